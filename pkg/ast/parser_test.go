package ast_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
)

func mustParse(t *testing.T, sql string) ast.Node {
	t.Helper()
	node, err := ast.Parse(sql)
	require.NoError(t, err)
	require.NotNil(t, node)
	return node
}

// ---------- Statement kinds ----------

func TestParse_Kinds(t *testing.T) {
	tests := []struct {
		sql  string
		kind string
	}{
		{"SELECT 1", "select"},
		{"VALUES (1), (2)", "select"},
		{"(SELECT 1) UNION (SELECT 2)", "select"},
		{"WITH x AS (SELECT 1) INSERT INTO t SELECT * FROM x", "insert"},
		{"UPDATE ONLY t SET a = 1", "update"},
		{"DELETE FROM t WHERE a = 1", "delete"},
		{"MERGE INTO t USING s ON t.id = s.id WHEN MATCHED THEN DELETE", "merge"},
		{"CREATE TABLE t (id int)", "create_table"},
		{"CREATE UNLOGGED TABLE t (id int)", "create_table"},
		{"CREATE UNIQUE INDEX i ON t (a)", "create_index"},
		{"CREATE OR REPLACE VIEW v AS SELECT 1", "create_view"},
		{"CREATE MATERIALIZED VIEW mv AS SELECT 1", "create_view"},
		{"CREATE PROCEDURE p() LANGUAGE sql AS 'select 1'", "create_function"},
		{"CREATE TYPE mood AS ENUM ('sad')", "create_type"},
		{"CREATE CONSTRAINT TRIGGER tr AFTER INSERT ON t FOR EACH ROW EXECUTE FUNCTION f()", "create_trigger"},
		{"CREATE EXTENSION IF NOT EXISTS pgcrypto", "create_extension"},
		{"CREATE SCHEMA IF NOT EXISTS app", "create_schema"},
		{"CREATE SEQUENCE s", "unknown"},
		{"DROP INDEX i", "drop_index"},
		{"DROP TABLE t", "drop"},
		{"ALTER TABLE t ADD COLUMN c int", "alter_table"},
		{"ALTER INDEX i RENAME TO j", "rename"},
		{"ALTER SEQUENCE s OWNED BY t.id", "unknown"},
		{"TRUNCATE t", "truncate"},
		{"LOCK t", "lock"},
		{"VACUUM", "vacuum"},
		{"ANALYZE VERBOSE t", "analyze"},
		{"REINDEX TABLE t", "reindex"},
		{"REFRESH MATERIALIZED VIEW mv", "refresh_materialized_view"},
		{"CLUSTER t", "cluster"},
		{"BEGIN", "transaction"},
		{"SET search_path TO app, public", "set"},
		{"RESET ALL", "set"},
		{"GRANT SELECT ON t TO u", "unknown"},
		{"COPY t FROM stdin", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			node := mustParse(t, tt.sql)
			assert.Equal(t, tt.kind, ast.Kind(node))
		})
	}
}

func TestParse_UnknownKeyword(t *testing.T) {
	node := mustParse(t, "grant select on t to u;")
	stmt, ok := node.(*ast.UnknownStmt)
	require.True(t, ok)
	assert.Equal(t, "GRANT", stmt.Keyword)
}

func TestParse_StatementSpan(t *testing.T) {
	node := mustParse(t, "SELECT 1;")
	span := node.GetSpan()
	assert.Equal(t, 0, span.Start.Offset)
	assert.Equal(t, 8, span.End.Offset)
}

// ---------- DML ----------

func TestParse_SelectForUpdate(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT * FROM t FOR UPDATE", true},
		{"SELECT * FROM t FOR NO KEY UPDATE SKIP LOCKED", true},
		{"SELECT * FROM t FOR SHARE", true},
		{"SELECT * FROM (SELECT * FROM t FOR UPDATE) s", false},
		{"SELECT * FROM t", false},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			stmt, ok := mustParse(t, tt.sql).(*ast.SelectStmt)
			require.True(t, ok)
			assert.Equal(t, tt.want, stmt.ForUpdate)
		})
	}
}

func TestParse_DMLRelation(t *testing.T) {
	stmt, ok := mustParse(t, `INSERT INTO app."Users" (id) VALUES (1)`).(*ast.InsertStmt)
	require.True(t, ok)
	assert.Equal(t, ast.QualifiedName{Schema: "app", Name: "Users"}, stmt.Relation)

	del, ok := mustParse(t, "DELETE FROM ONLY Orders").(*ast.DeleteStmt)
	require.True(t, ok)
	assert.Equal(t, "orders", del.Relation.Name)
}

// ---------- CREATE ----------

func TestParse_CreateTable(t *testing.T) {
	sql := `CREATE TABLE IF NOT EXISTS public.users (
		id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		email varchar(255) NOT NULL UNIQUE,
		tags text[],
		created_at timestamp with time zone DEFAULT now(),
		org_id int REFERENCES orgs,
		CONSTRAINT users_org_fk FOREIGN KEY (org_id) REFERENCES orgs (id) NOT VALID
	)`
	stmt, ok := mustParse(t, sql).(*ast.CreateTableStmt)
	require.True(t, ok)

	assert.Equal(t, ast.QualifiedName{Schema: "public", Name: "users"}, stmt.Relation)
	assert.True(t, stmt.IfNotExists)
	require.Len(t, stmt.Columns, 5)
	require.Len(t, stmt.Constraints, 1)

	id := stmt.Columns[0]
	assert.Equal(t, "id", id.Name)
	assert.Equal(t, "bigint", id.Type.Name)
	assert.True(t, id.Identity)
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.NotNull)

	email := stmt.Columns[1]
	assert.Equal(t, "varchar", email.Type.Name)
	assert.Equal(t, "(255)", email.Type.Mods)
	assert.True(t, email.NotNull)
	assert.True(t, email.Unique)

	assert.True(t, stmt.Columns[2].Type.Array)
	assert.Equal(t, "text[]", stmt.Columns[2].Type.String())

	created := stmt.Columns[3]
	assert.Equal(t, "timestamp with time zone", created.Type.Name)
	assert.True(t, created.HasDefault)
	assert.Equal(t, "now()", created.Default)

	require.NotNil(t, stmt.Columns[4].References)
	assert.Equal(t, "orgs", stmt.Columns[4].References.Name)

	fk := stmt.Constraints[0]
	assert.Equal(t, ast.ConstraintForeignKey, fk.Kind)
	assert.Equal(t, "users_org_fk", fk.Name)
	assert.Equal(t, []string{"org_id"}, fk.Columns)
	assert.True(t, fk.NotValid)
	require.NotNil(t, fk.References)
	assert.Equal(t, "orgs", fk.References.Name)
}

func TestParse_CreateTableVariants(t *testing.T) {
	stmt, ok := mustParse(t, "CREATE TEMP TABLE t AS SELECT 1").(*ast.CreateTableStmt)
	require.True(t, ok)
	assert.True(t, stmt.Temporary)
	assert.True(t, stmt.AsSelect)

	stmt, ok = mustParse(t, "CREATE TABLE m (id int, at date) PARTITION BY RANGE (at)").(*ast.CreateTableStmt)
	require.True(t, ok)
	assert.True(t, stmt.Partitioned)
	assert.False(t, stmt.AsSelect)
	assert.Len(t, stmt.Columns, 2)

	stmt, ok = mustParse(t, "CREATE TABLE m_2024 PARTITION OF m FOR VALUES FROM ('2024-01-01') TO ('2025-01-01')").(*ast.CreateTableStmt)
	require.True(t, ok)
	assert.Equal(t, "m_2024", stmt.Relation.Name)
	assert.Empty(t, stmt.Columns)
}

func TestParse_CreateIndex(t *testing.T) {
	stmt, ok := mustParse(t, "CREATE INDEX CONCURRENTLY IF NOT EXISTS idx ON ONLY app.t (c)").(*ast.CreateIndexStmt)
	require.True(t, ok)
	assert.True(t, stmt.Concurrently)
	assert.True(t, stmt.IfNotExists)
	assert.False(t, stmt.Unique)
	assert.Equal(t, "idx", stmt.Name)
	assert.Equal(t, ast.QualifiedName{Schema: "app", Name: "t"}, stmt.Relation)

	stmt, ok = mustParse(t, "CREATE UNIQUE INDEX ON t (c)").(*ast.CreateIndexStmt)
	require.True(t, ok)
	assert.True(t, stmt.Unique)
	assert.Empty(t, stmt.Name)
}

func TestParse_CreateFunctionBody(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		language string
		body     string
	}{
		{
			name:     "dollar quoted",
			sql:      "CREATE FUNCTION f() RETURNS int AS $$ select 1 $$ LANGUAGE sql",
			language: "sql",
			body:     " select 1 ",
		},
		{
			name:     "tagged dollar quote",
			sql:      "CREATE OR REPLACE FUNCTION app.f() RETURNS void LANGUAGE plpgsql AS $body$begin null; end$body$",
			language: "plpgsql",
			body:     "begin null; end",
		},
		{
			name:     "string body",
			sql:      "CREATE FUNCTION f() RETURNS int LANGUAGE 'sql' AS 'select 2'",
			language: "sql",
			body:     "select 2",
		},
		{
			name:     "begin atomic",
			sql:      "CREATE FUNCTION f() RETURNS int BEGIN ATOMIC select 1; end",
			language: "sql",
			body:     "BEGIN ATOMIC select 1; end",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, ok := mustParse(t, tt.sql).(*ast.CreateFunctionStmt)
			require.True(t, ok)
			assert.Equal(t, tt.language, stmt.Language)
			assert.Equal(t, tt.body, stmt.Body)
			require.GreaterOrEqual(t, stmt.BodyOffset, 0)
			assert.Equal(t, tt.body, tt.sql[stmt.BodyOffset:stmt.BodyOffset+len(tt.body)])
		})
	}
}

func TestParse_CreateFunctionWithoutBody(t *testing.T) {
	stmt, ok := mustParse(t, "CREATE FUNCTION f(int) RETURNS int LANGUAGE c").(*ast.CreateFunctionStmt)
	require.True(t, ok)
	assert.Equal(t, -1, stmt.BodyOffset)
	assert.Equal(t, "c", stmt.Language)
}

func TestParse_CreateEnum(t *testing.T) {
	stmt, ok := mustParse(t, "CREATE TYPE mood AS ENUM ('sad', 'ok', 'it''s fine')").(*ast.CreateTypeStmt)
	require.True(t, ok)
	assert.True(t, stmt.Enum)
	assert.Equal(t, []string{"sad", "ok", "it's fine"}, stmt.Values)

	composite, ok := mustParse(t, "CREATE TYPE pair AS (a int, b int)").(*ast.CreateTypeStmt)
	require.True(t, ok)
	assert.False(t, composite.Enum)
}

func TestParse_CreateTrigger(t *testing.T) {
	stmt, ok := mustParse(t, "CREATE TRIGGER audit BEFORE UPDATE ON app.accounts FOR EACH ROW EXECUTE FUNCTION log()").(*ast.CreateTriggerStmt)
	require.True(t, ok)
	assert.Equal(t, "audit", stmt.Name)
	assert.Equal(t, ast.QualifiedName{Schema: "app", Name: "accounts"}, stmt.Relation)
}

// ---------- ALTER ----------

func TestParse_AlterTableCommands(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		kind   ast.AlterCmdKind
		column string
		cname  string
	}{
		{"add column", "ALTER TABLE t ADD COLUMN c text", ast.AlterAddColumn, "c", ""},
		{"add column without keyword", "ALTER TABLE t ADD IF NOT EXISTS c text", ast.AlterAddColumn, "c", ""},
		{"drop column", "ALTER TABLE t DROP COLUMN IF EXISTS c", ast.AlterDropColumn, "c", ""},
		{"drop column without keyword", "ALTER TABLE t DROP c CASCADE", ast.AlterDropColumn, "c", ""},
		{"alter type", "ALTER TABLE t ALTER COLUMN c TYPE bigint USING c::bigint", ast.AlterColumnType, "c", ""},
		{"set data type", "ALTER TABLE t ALTER c SET DATA TYPE text", ast.AlterColumnType, "c", ""},
		{"set not null", "ALTER TABLE t ALTER COLUMN c SET NOT NULL", ast.AlterSetNotNull, "c", ""},
		{"drop not null", "ALTER TABLE t ALTER COLUMN c DROP NOT NULL", ast.AlterDropNotNull, "c", ""},
		{"set default", "ALTER TABLE t ALTER COLUMN c SET DEFAULT 0", ast.AlterSetDefault, "c", ""},
		{"drop default", "ALTER TABLE t ALTER COLUMN c DROP DEFAULT", ast.AlterDropDefault, "c", ""},
		{"set statistics", "ALTER TABLE t ALTER COLUMN c SET STATISTICS 500", ast.AlterSetStatistics, "c", ""},
		{"add constraint", "ALTER TABLE t ADD CONSTRAINT t_pk PRIMARY KEY (id)", ast.AlterAddConstraint, "", "t_pk"},
		{"validate constraint", "ALTER TABLE t VALIDATE CONSTRAINT t_fk", ast.AlterValidateConstraint, "", "t_fk"},
		{"drop constraint", "ALTER TABLE t DROP CONSTRAINT IF EXISTS t_fk", ast.AlterDropConstraint, "", "t_fk"},
		{"rename column", "ALTER TABLE t RENAME COLUMN a TO b", ast.AlterRenameColumn, "a", "b"},
		{"rename table", "ALTER TABLE t RENAME TO u", ast.AlterRenameTable, "", "u"},
		{"other", "ALTER TABLE t SET UNLOGGED", ast.AlterOther, "", ""},
		{"drop identity", "ALTER TABLE t ALTER COLUMN c DROP IDENTITY", ast.AlterOther, "c", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, ok := mustParse(t, tt.sql).(*ast.AlterTableStmt)
			require.True(t, ok)
			assert.Equal(t, "t", stmt.Relation.Name)
			require.Len(t, stmt.Commands, 1)
			cmd := stmt.Commands[0]
			assert.Equal(t, tt.kind, cmd.Kind, "got %s", cmd.Kind)
			assert.Equal(t, tt.column, cmd.Column)
			assert.Equal(t, tt.cname, cmd.Name)
		})
	}
}

func TestParse_AlterTableMultipleCommands(t *testing.T) {
	sql := "ALTER TABLE IF EXISTS ONLY app.t ADD COLUMN c int NOT NULL DEFAULT 0, ALTER COLUMN d TYPE numeric(10, 2), ADD CONSTRAINT fk FOREIGN KEY (c) REFERENCES o (id) NOT VALID"
	stmt, ok := mustParse(t, sql).(*ast.AlterTableStmt)
	require.True(t, ok)
	assert.True(t, stmt.IfExists)
	assert.Equal(t, ast.QualifiedName{Schema: "app", Name: "t"}, stmt.Relation)
	require.Len(t, stmt.Commands, 3)

	add := stmt.Commands[0]
	require.NotNil(t, add.Def)
	assert.True(t, add.Def.NotNull)
	assert.True(t, add.Def.HasDefault)
	assert.Equal(t, "0", add.Def.Default)

	typ := stmt.Commands[1]
	require.NotNil(t, typ.Type)
	assert.Equal(t, "numeric(10, 2)", typ.Type.String())

	fk := stmt.Commands[2]
	require.NotNil(t, fk.Constraint)
	assert.Equal(t, ast.ConstraintForeignKey, fk.Constraint.Kind)
	assert.True(t, fk.Constraint.NotValid)
}

func TestParse_AlterTableUniqueUsingIndex(t *testing.T) {
	stmt, ok := mustParse(t, "ALTER TABLE t ADD CONSTRAINT t_email_key UNIQUE USING INDEX t_email_idx").(*ast.AlterTableStmt)
	require.True(t, ok)
	c := stmt.Commands[0].Constraint
	require.NotNil(t, c)
	assert.Equal(t, ast.ConstraintUnique, c.Kind)
	assert.True(t, c.UsingIndex)
}

func TestParse_RenameOtherObjects(t *testing.T) {
	stmt, ok := mustParse(t, "ALTER MATERIALIZED VIEW IF EXISTS app.mv RENAME TO mv2").(*ast.RenameStmt)
	require.True(t, ok)
	assert.Equal(t, "materialized view", stmt.ObjectType)
	assert.Equal(t, ast.QualifiedName{Schema: "app", Name: "mv"}, stmt.Name)
}

// ---------- DROP, TRUNCATE, LOCK ----------

func TestParse_Drop(t *testing.T) {
	idx, ok := mustParse(t, "DROP INDEX CONCURRENTLY IF EXISTS a, s.b").(*ast.DropIndexStmt)
	require.True(t, ok)
	assert.True(t, idx.Concurrently)
	assert.True(t, idx.IfExists)
	assert.Equal(t, []ast.QualifiedName{{Name: "a"}, {Schema: "s", Name: "b"}}, idx.Names)

	tests := []struct {
		sql        string
		objectType string
		cascade    bool
	}{
		{"DROP TABLE t CASCADE", "table", true},
		{"DROP MATERIALIZED VIEW IF EXISTS v", "materialized view", false},
		{"DROP FOREIGN TABLE ft", "foreign table", false},
		{"DROP DATABASE db", "database", false},
		{"DROP FUNCTION f(int, text) RESTRICT", "function", false},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			stmt, ok := mustParse(t, tt.sql).(*ast.DropStmt)
			require.True(t, ok)
			assert.Equal(t, tt.objectType, stmt.ObjectType)
			assert.Equal(t, tt.cascade, stmt.Cascade)
			assert.Len(t, stmt.Names, 1)
		})
	}
}

func TestParse_Truncate(t *testing.T) {
	stmt, ok := mustParse(t, "TRUNCATE TABLE a, b RESTART IDENTITY CASCADE").(*ast.TruncateStmt)
	require.True(t, ok)
	assert.Len(t, stmt.Relations, 2)
	assert.True(t, stmt.Cascade)
}

func TestParse_Lock(t *testing.T) {
	stmt, ok := mustParse(t, "LOCK TABLE t IN SHARE ROW EXCLUSIVE MODE NOWAIT").(*ast.LockStmt)
	require.True(t, ok)
	assert.Equal(t, "share row exclusive", stmt.Mode)
	assert.True(t, stmt.NoWait)

	stmt, ok = mustParse(t, "LOCK t").(*ast.LockStmt)
	require.True(t, ok)
	assert.Equal(t, "access exclusive", stmt.Mode)
}

// ---------- Maintenance ----------

func TestParse_Maintenance(t *testing.T) {
	vac, ok := mustParse(t, "VACUUM (FULL, ANALYZE false) t").(*ast.VacuumStmt)
	require.True(t, ok)
	assert.True(t, vac.Full)
	assert.False(t, vac.Analyze)
	assert.Equal(t, []ast.QualifiedName{{Name: "t"}}, vac.Relations)

	vac, ok = mustParse(t, "VACUUM FULL ANALYZE t").(*ast.VacuumStmt)
	require.True(t, ok)
	assert.True(t, vac.Full)
	assert.True(t, vac.Analyze)

	re, ok := mustParse(t, "REINDEX INDEX CONCURRENTLY i").(*ast.ReindexStmt)
	require.True(t, ok)
	assert.Equal(t, "index", re.ObjectType)
	assert.True(t, re.Concurrently)

	re, ok = mustParse(t, "REINDEX (CONCURRENTLY) TABLE t").(*ast.ReindexStmt)
	require.True(t, ok)
	assert.True(t, re.Concurrently)

	ref, ok := mustParse(t, "REFRESH MATERIALIZED VIEW CONCURRENTLY mv WITH DATA").(*ast.RefreshMatViewStmt)
	require.True(t, ok)
	assert.True(t, ref.Concurrently)
	assert.Equal(t, "mv", ref.Relation.Name)
}

// ---------- Transactions and SET ----------

func TestParse_Transaction(t *testing.T) {
	tests := []struct {
		sql  string
		kind ast.TransactionKind
	}{
		{"BEGIN", ast.TransBegin},
		{"BEGIN ISOLATION LEVEL SERIALIZABLE", ast.TransBegin},
		{"START TRANSACTION", ast.TransStart},
		{"COMMIT", ast.TransCommit},
		{"END", ast.TransCommit},
		{"ROLLBACK", ast.TransRollback},
		{"ABORT", ast.TransRollback},
		{"ROLLBACK TO SAVEPOINT sp", ast.TransRollbackTo},
		{"ROLLBACK WORK TO sp", ast.TransRollbackTo},
		{"SAVEPOINT sp", ast.TransSavepoint},
		{"RELEASE SAVEPOINT sp", ast.TransRelease},
		{"PREPARE TRANSACTION 'x'", ast.TransPrepare},
		{"COMMIT PREPARED 'x'", ast.TransCommitPrepared},
		{"ROLLBACK PREPARED 'x'", ast.TransRollbackPrepared},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			stmt, ok := mustParse(t, tt.sql).(*ast.TransactionStmt)
			require.True(t, ok)
			assert.Equal(t, tt.kind, stmt.Kind)
		})
	}
}

func TestParse_Set(t *testing.T) {
	tests := []struct {
		sql   string
		name  string
		value string
		local bool
		reset bool
	}{
		{"SET lock_timeout = '2s'", "lock_timeout", "2s", false, false},
		{"SET LOCAL statement_timeout TO 0", "statement_timeout", "0", true, false},
		{"SET SESSION search_path TO app, public", "search_path", "app, public", false, false},
		{"SET TIME ZONE 'UTC'", "timezone", "UTC", false, false},
		{"SET app.setting = 'on'", "app.setting", "on", false, false},
		{"RESET lock_timeout", "lock_timeout", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			stmt, ok := mustParse(t, tt.sql).(*ast.VariableSetStmt)
			require.True(t, ok)
			assert.Equal(t, tt.name, stmt.Name)
			assert.Equal(t, tt.value, stmt.Value)
			assert.Equal(t, tt.local, stmt.Local)
			assert.Equal(t, tt.reset, stmt.Reset)
		})
	}
}

// ---------- Errors ----------

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		message string
	}{
		{"empty", "  ;", "empty statement"},
		{"unbalanced", "SELECT (1", "unbalanced parentheses"},
		{"unexpected closing", "SELECT 1)", "unexpected )"},
		{"insert without into", "INSERT t VALUES (1)", "expected INTO"},
		{"alter table without action", "ALTER TABLE t", "expected ALTER TABLE action"},
		{"unterminated string", "SELECT 'abc", "unterminated string literal"},
		{"create index without on", "CREATE INDEX i", "expected ON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ast.Parse(tt.sql)
			require.Error(t, err)
			var perr *ast.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Contains(t, perr.Message, tt.message)
			assert.LessOrEqual(t, perr.Offset, perr.End)
			assert.LessOrEqual(t, perr.End, len(tt.sql))
		})
	}
}

// ---------- Describe ----------

func TestDescribe(t *testing.T) {
	node := mustParse(t, "CREATE TABLE t (id bigint PRIMARY KEY, name text NOT NULL)")
	d := ast.Describe(node)

	assert.Equal(t, "create_table", d["kind"])
	assert.Equal(t, "t", d["relation"])
	cols, ok := d["columns"].([]any)
	require.True(t, ok)
	require.Len(t, cols, 2)
	first, ok := cols[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bigint", first["type"])
	assert.Equal(t, true, first["primary_key"])

	alter := ast.Describe(mustParse(t, "ALTER TABLE t RENAME COLUMN a TO b"))
	cmds, ok := alter["commands"].([]any)
	require.True(t, ok)
	cmd, ok := cmds[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "rename column", cmd["kind"])
	assert.Equal(t, "a", cmd["column"])
}

func TestDescribe_AllKindsHaveNames(t *testing.T) {
	sqls := []string{
		"SELECT 1", "CREATE INDEX i ON t (a)", "DROP TABLE t", "LOCK t",
		"BEGIN", "SET a = 1", "VACUUM", "COPY t FROM stdin",
	}
	for _, sql := range sqls {
		d := ast.Describe(mustParse(t, sql))
		kind, ok := d["kind"].(string)
		require.True(t, ok)
		assert.False(t, strings.HasPrefix(kind, "*ast."), sql)
	}
}
