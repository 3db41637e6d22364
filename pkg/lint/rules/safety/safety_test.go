package safety_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/lint/rules/safety"
	"github.com/leapstack-labs/pgcheck/pkg/splitter"
	"github.com/leapstack-labs/pgcheck/pkg/tracker"
)

// finding is one diagnostic with the index of the statement it belongs to.
type finding struct {
	stmt int
	diag lint.Diagnostic
}

func newRegistry(t *testing.T) *lint.Registry {
	t.Helper()
	reg, err := lint.NewRegistry(safety.Register)
	require.NoError(t, err)
	return reg
}

// lintSQL runs every safety rule over sql the way the workspace does.
func lintSQL(t *testing.T, sql string, cfg *lint.Config) []finding {
	t.Helper()
	reg := newRegistry(t)
	plan, diags := reg.Resolve(cfg)
	require.Empty(t, diags)
	d := lint.NewDispatcher(reg, plan, nil)

	res := splitter.Split(sql)
	require.Empty(t, res.Diagnostics)
	nodes := make([]ast.Node, len(res.Ranges))
	for i, r := range res.Ranges {
		node, err := ast.Parse(r.Text)
		require.NoError(t, err, r.Text)
		nodes[i] = node
	}
	snaps := tracker.Fold(nodes)
	sizes := tracker.ScopeSizes(snaps)

	var out []finding
	for i, node := range nodes {
		ctx := &lint.RuleContext{
			Text:      res.Ranges[i].Text,
			Index:     i,
			Total:     len(nodes),
			State:     snaps[i],
			ScopeSize: sizes[i],
			Previous:  nodes[:i],
		}
		for _, diag := range d.Run(node, ctx) {
			require.NotEqual(t, lint.CategoryInternalRule, diag.Category, diag.Message)
			out = append(out, finding{stmt: i, diag: diag})
		}
	}
	return out
}

// firing returns the statement indexes at which rule reported.
func firing(findings []finding, rule string) []int {
	var out []int
	for _, f := range findings {
		if f.diag.Rule.Name() == rule {
			out = append(out, f.stmt)
		}
	}
	return out
}

func TestRegister(t *testing.T) {
	reg := newRegistry(t)
	assert.Equal(t, len(safety.All), reg.Count())

	groups := reg.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "lint/safety", groups[0].String())

	for _, def := range safety.All {
		assert.NotEmpty(t, def.Description, def.Name)
		assert.NotEmpty(t, def.BadExample, def.Name)
		assert.NotNil(t, def.Check, def.Name)
	}

	plan, _ := reg.Resolve(nil)
	for name, want := range map[string]bool{
		"banConcurrentIndexCreationInTransaction": true,
		"runningStatementWhileHoldingAccessExclusive": true,
		"lockTimeoutWarning":                          false,
		"preferBigInt":                                false,
		"creatingEnum":                                false,
		"addingRequiredField":                         true,
	} {
		keys, err := reg.Lookup(name)
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, want, plan.Enabled(keys[0]), name)
	}
}

// ---------- Transaction rules ----------

func TestConcurrentIndexThenSelect(t *testing.T) {
	findings := lintSQL(t, "CREATE INDEX CONCURRENTLY idx ON t(c); SELECT 1;", nil)
	assert.Equal(t, []int{0}, firing(findings, "banConcurrentIndexCreationInTransaction"))
	assert.Empty(t, firing(findings, "runningStatementWhileHoldingAccessExclusive"))

	var hit lint.Diagnostic
	for _, f := range findings {
		if f.diag.Rule.Name() == "banConcurrentIndexCreationInTransaction" {
			hit = f.diag
		}
	}
	assert.Equal(t, lint.SeverityError, hit.Severity)
	assert.Equal(t, "lint/safety/banConcurrentIndexCreationInTransaction", hit.Category)
	assert.Contains(t, hit.Detail, "outside of a transaction")
}

func TestAlterThenSelect(t *testing.T) {
	findings := lintSQL(t, "ALTER TABLE t ADD COLUMN c int; SELECT 1;", nil)
	assert.Equal(t, []int{1}, firing(findings, "runningStatementWhileHoldingAccessExclusive"))
}

func TestTransactionRules(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		rule string
		want []int
	}{
		{"lone concurrent index", "CREATE INDEX CONCURRENTLY idx ON t (c);", "banConcurrentIndexCreationInTransaction", nil},
		{"concurrent index in explicit transaction", "BEGIN; CREATE INDEX CONCURRENTLY idx ON t (c);", "banConcurrentIndexCreationInTransaction", []int{1}},
		{"concurrent index after commit", "BEGIN; SELECT 1; COMMIT; CREATE INDEX CONCURRENTLY idx ON t (c);", "banConcurrentIndexCreationInTransaction", nil},
		{"lock held through transaction", "BEGIN; ALTER TABLE t DROP COLUMN c; UPDATE t SET a = 1; COMMIT; SELECT 1;", "runningStatementWhileHoldingAccessExclusive", []int{2}},
		{"commit releases the lock", "BEGIN;\nALTER TABLE t ADD COLUMN c text;\nCOMMIT;\nSELECT 1;", "runningStatementWhileHoldingAccessExclusive", nil},
		{"rollback releases the lock", "BEGIN; ALTER TABLE t DROP COLUMN c; ROLLBACK;", "runningStatementWhileHoldingAccessExclusive", nil},
		{"no lock on new table", "CREATE TABLE t (id bigint); ALTER TABLE t ADD COLUMN c text; SELECT 1;", "runningStatementWhileHoldingAccessExclusive", nil},
		{"nested begin", "BEGIN; BEGIN; COMMIT;", "transactionNesting", []int{1}},
		{"single begin", "BEGIN; SELECT 1; COMMIT;", "transactionNesting", nil},
		{"commit in implicit transaction", "SELECT 1; COMMIT;", "transactionNesting", []int{1}},
		{"leading commit", "COMMIT;", "transactionNesting", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := lintSQL(t, tt.sql, lint.NewConfig().All())
			assert.Equal(t, tt.want, firing(findings, tt.rule))
		})
	}
}

func TestLockTimeoutWarning(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		want    []int
		message string
	}{
		{"alter without timeout", "ALTER TABLE users ADD COLUMN c int;", []int{0}, "ACCESS EXCLUSIVE lock on public.users"},
		{"timeout set first", "SET LOCAL lock_timeout = '2s'; ALTER TABLE users ADD COLUMN c int;", nil, ""},
		{"zero timeout does not count", "SET lock_timeout = 0; ALTER TABLE users ADD COLUMN c int;", []int{1}, ""},
		{"plain index", "CREATE INDEX users_c_idx ON app.users (c);", []int{0}, "SHARE lock on app.users while creating index users_c_idx"},
		{"concurrent index", "CREATE INDEX CONCURRENTLY users_c_idx ON users (c);", nil, ""},
		{"table created in file", "CREATE TABLE users (id bigint); ALTER TABLE users ADD COLUMN c int;", nil, ""},
		{"dml", "UPDATE users SET c = 1;", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := lintSQL(t, tt.sql, lint.NewConfig().Enable("lockTimeoutWarning"))
			assert.Equal(t, tt.want, firing(findings, "lockTimeoutWarning"))
			if tt.message == "" {
				return
			}
			for _, f := range findings {
				if f.diag.Rule.Name() == "lockTimeoutWarning" {
					assert.Contains(t, f.diag.Message, tt.message)
					require.Len(t, f.diag.Advices, 1)
				}
			}
		})
	}
}

func TestLockTimeoutWarning_MinLevelOption(t *testing.T) {
	sql := "LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE; VACUUM users;"

	findings := lintSQL(t, sql, lint.NewConfig().Enable("lockTimeoutWarning"))
	assert.Equal(t, []int{0}, firing(findings, "lockTimeoutWarning"))

	cfg := lint.NewConfig().
		Enable("lockTimeoutWarning").
		SetRuleOptions("lockTimeoutWarning", map[string]any{"minLevel": "share update exclusive"})
	findings = lintSQL(t, sql, cfg)
	assert.Equal(t, []int{0, 1}, firing(findings, "lockTimeoutWarning"))
}

// ---------- Schema change rules ----------

func TestSchemaChangeRules(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		rule string
		want []int
	}{
		{"create index", "CREATE INDEX i ON users (c);", "requireConcurrentIndexCreation", []int{0}},
		{"create index concurrently", "CREATE INDEX CONCURRENTLY i ON users (c);", "requireConcurrentIndexCreation", nil},
		{"index on new table", "CREATE TABLE users (c int); CREATE INDEX i ON users (c);", "requireConcurrentIndexCreation", nil},
		{"index on table created in earlier scope", "BEGIN; CREATE TABLE users (c int); COMMIT; CREATE INDEX i ON users (c);", "requireConcurrentIndexCreation", nil},
		{"drop index", "DROP INDEX i;", "requireConcurrentIndexDeletion", []int{0}},
		{"drop index concurrently", "DROP INDEX CONCURRENTLY i;", "requireConcurrentIndexDeletion", nil},

		{"drop column", "ALTER TABLE users DROP COLUMN email;", "banDropColumn", []int{0}},
		{"drop column of new table", "CREATE TABLE users (email text); ALTER TABLE users DROP COLUMN email;", "banDropColumn", nil},
		{"drop table", "DROP TABLE users;", "banDropTable", []int{0}},
		{"drop two tables", "DROP TABLE users, orders;", "banDropTable", []int{0, 0}},
		{"drop view", "DROP VIEW users;", "banDropTable", nil},
		{"drop database", "DROP DATABASE app;", "banDropDatabase", []int{0}},
		{"drop not null", "ALTER TABLE users ALTER COLUMN email DROP NOT NULL;", "banDropNotNull", []int{0}},
		{"truncate cascade", "TRUNCATE accounts CASCADE;", "banTruncateCascade", []int{0}},
		{"truncate", "TRUNCATE accounts;", "banTruncateCascade", nil},

		{"required field", "ALTER TABLE users ADD COLUMN email text NOT NULL;", "addingRequiredField", []int{0}},
		{"required field with default", "ALTER TABLE users ADD COLUMN email text NOT NULL DEFAULT '';", "addingRequiredField", nil},
		{"nullable field", "ALTER TABLE users ADD COLUMN email text;", "addingRequiredField", nil},
		{"identity field", "ALTER TABLE users ADD COLUMN n bigint GENERATED ALWAYS AS IDENTITY;", "addingRequiredField", nil},

		{"constant default", "ALTER TABLE users ADD COLUMN active boolean DEFAULT true;", "addingFieldWithDefault", nil},
		{"cast default", "ALTER TABLE users ADD COLUMN price numeric DEFAULT '0'::numeric(10, 2);", "addingFieldWithDefault", nil},
		{"stable default", "ALTER TABLE users ADD COLUMN created timestamptz DEFAULT now();", "addingFieldWithDefault", nil},
		{"volatile default", "ALTER TABLE users ADD COLUMN token uuid DEFAULT gen_random_uuid();", "addingFieldWithDefault", []int{0}},
		{"generated column", "ALTER TABLE users ADD COLUMN total int GENERATED ALWAYS AS (a + b) STORED;", "addingFieldWithDefault", []int{0}},

		{"foreign key", "ALTER TABLE orders ADD CONSTRAINT fk FOREIGN KEY (user_id) REFERENCES users (id);", "addingForeignKeyConstraint", []int{0}},
		{"foreign key not valid", "ALTER TABLE orders ADD CONSTRAINT fk FOREIGN KEY (user_id) REFERENCES users (id) NOT VALID;", "addingForeignKeyConstraint", nil},
		{"column references", "ALTER TABLE orders ADD COLUMN user_id bigint REFERENCES users;", "addingForeignKeyConstraint", []int{0}},
		{"primary key", "ALTER TABLE items ADD PRIMARY KEY (id);", "addingPrimaryKeyConstraint", []int{0}},
		{"primary key using index", "ALTER TABLE items ADD CONSTRAINT items_pk PRIMARY KEY USING INDEX items_idx;", "addingPrimaryKeyConstraint", nil},
		{"check constraint", "ALTER TABLE accounts ADD CONSTRAINT c CHECK (balance >= 0);", "constraintMissingNotValid", []int{0}},
		{"check constraint not valid", "ALTER TABLE accounts ADD CONSTRAINT c CHECK (balance >= 0) NOT VALID;", "constraintMissingNotValid", nil},
		{"unique constraint", "ALTER TABLE users ADD CONSTRAINT u UNIQUE (email);", "disallowUniqueConstraint", []int{0}},
		{"unique using index", "ALTER TABLE users ADD CONSTRAINT u UNIQUE USING INDEX users_email_idx;", "disallowUniqueConstraint", nil},
		{"set not null", "ALTER TABLE users ALTER COLUMN email SET NOT NULL;", "addingNotNullField", []int{0}},

		{"column type", "ALTER TABLE users ALTER COLUMN id TYPE bigint;", "changingColumnType", []int{0}},
		{"rename column", "ALTER TABLE users RENAME COLUMN mail TO email;", "renamingColumn", []int{0}},
		{"rename table", "ALTER TABLE users RENAME TO accounts;", "renamingTable", []int{0}},
		{"multiple alter", "ALTER TABLE users ADD COLUMN a text; ALTER TABLE public.users ADD COLUMN b text; ALTER TABLE other ADD COLUMN c text;", "multipleAlterTable", []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := lintSQL(t, tt.sql, lint.NewConfig().All())
			assert.Equal(t, tt.want, firing(findings, tt.rule))
		})
	}
}

func TestAddingFieldWithDefault_StableFunctionsOption(t *testing.T) {
	sql := "ALTER TABLE users ADD COLUMN region text DEFAULT app.default_region();"
	assert.Equal(t, []int{0}, firing(lintSQL(t, sql, nil), "addingFieldWithDefault"))

	cfg := lint.NewConfig().SetRuleOptions("addingFieldWithDefault", map[string]any{
		"stableFunctions": []any{"default_region"},
	})
	assert.Empty(t, firing(lintSQL(t, sql, cfg), "addingFieldWithDefault"))
}

// ---------- Type rules ----------

func TestTypeRules(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		rule string
		want int
	}{
		{"serial column", "ALTER TABLE events ADD COLUMN seq bigserial;", "addSerialColumn", 1},
		{"serial in new table", "CREATE TABLE events (id bigserial);", "addSerialColumn", 0},
		{"stored generated column", "ALTER TABLE t ADD COLUMN x int GENERATED ALWAYS AS (a * 2) STORED;", "addSerialColumn", 1},
		{"char", "CREATE TABLE c (code char(2), name character varying(10));", "banCharField", 1},
		{"character", "ALTER TABLE c ADD COLUMN code character(2);", "banCharField", 1},
		{"int and smallint", "CREATE TABLE c (a int, b smallint, c bigint, d integer);", "preferBigInt", 3},
		{"varchar with length", "CREATE TABLE c (a varchar(10), b varchar, c character varying(5));", "preferTextField", 2},
		{"varchar on column type change", "ALTER TABLE c ALTER COLUMN a TYPE varchar(20);", "preferTextField", 1},
		{"timestamp", "CREATE TABLE c (a timestamp, b timestamptz, c timestamp without time zone, d timestamp with time zone);", "preferTimestamptz", 2},
		{"json", "CREATE TABLE c (a json, b jsonb);", "preferJsonb", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := lintSQL(t, tt.sql, lint.NewConfig().All())
			assert.Len(t, firing(findings, tt.rule), tt.want)
		})
	}
}

func TestTypeRules_SpanIsColumn(t *testing.T) {
	sql := "CREATE TABLE c (id bigint, a json)"
	findings := lintSQL(t, sql, lint.NewConfig().Enable("preferJsonb"))
	require.Len(t, findings, 1)
	d := findings[0].diag
	assert.Equal(t, "a json", sql[d.Pos.Offset:d.EndPos.Offset])
}

// ---------- Other rules ----------

func TestCreatingEnum(t *testing.T) {
	findings := lintSQL(t, "CREATE TYPE status AS ENUM ('active', 'inactive');", lint.NewConfig().Enable("creatingEnum"))
	require.Len(t, findings, 1)
	assert.Equal(t, "Creating enum type status is not recommended.", findings[0].diag.Message)
	require.Len(t, findings[0].diag.Advices, 1)
	assert.Contains(t, findings[0].diag.Advices[0].Message, "lookup table")
}

func TestPreferRobustStmts(t *testing.T) {
	cfg := lint.NewConfig().Enable("preferRobustStmts")

	findings := lintSQL(t, "CREATE INDEX CONCURRENTLY ON users (email);", cfg)
	assert.Len(t, firing(findings, "preferRobustStmts"), 2)

	findings = lintSQL(t, "CREATE INDEX CONCURRENTLY IF NOT EXISTS i ON users (email); DROP INDEX CONCURRENTLY IF EXISTS j;", cfg)
	assert.Empty(t, firing(findings, "preferRobustStmts"))

	findings = lintSQL(t, "DROP INDEX CONCURRENTLY j;", cfg)
	assert.Len(t, firing(findings, "preferRobustStmts"), 1)
}

func TestMessagesNameTheObject(t *testing.T) {
	findings := lintSQL(t, "ALTER TABLE users DROP COLUMN email, RENAME COLUMN a TO b;", nil)

	var msgs []string
	for _, f := range findings {
		msgs = append(msgs, f.diag.Message)
	}
	assert.Contains(t, msgs, "Dropping column email may break existing clients.")
	assert.Contains(t, msgs, "Renaming column a to b may break existing clients.")
}
