package workspace_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pgcheck/internal/testutil"
	"github.com/leapstack-labs/pgcheck/internal/workspace"
	"github.com/leapstack-labs/pgcheck/pkg/cache"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/lint/rules"
	"github.com/leapstack-labs/pgcheck/pkg/tracker"
)

func newWorkspace(t *testing.T, opts ...workspace.Option) *workspace.Workspace {
	t.Helper()
	reg, err := rules.NewRegistry()
	require.NoError(t, err)
	opts = append([]workspace.Option{workspace.WithLogger(testutil.NewTestLogger(t))}, opts...)
	return workspace.New(reg, opts...)
}

func analyze(t *testing.T, ws *workspace.Workspace, content string) *workspace.Result {
	t.Helper()
	res, err := ws.Analyze(context.Background(), "migration.sql", content)
	require.NoError(t, err)
	return res
}

func byCategory(diags []lint.Diagnostic, category string) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, d := range diags {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// ---------- Pipeline ----------

func TestAnalyze_RebasesRuleDiagnostics(t *testing.T) {
	ws := newWorkspace(t)
	res := analyze(t, ws, "SELECT 1;\n\nALTER TABLE users DROP COLUMN email;\n")

	require.Len(t, res.Statements, 2)
	assert.NotEmpty(t, res.PassID)
	assert.Equal(t, "migration.sql", res.Path)

	diags := byCategory(res.Diagnostics, "lint/safety/banDropColumn")
	require.Len(t, diags, 1)
	assert.Equal(t, 3, diags[0].Pos.Line)
	assert.Greater(t, diags[0].Pos.Offset, len("SELECT 1;\n\n"))
	assert.Equal(t, 3, diags[0].EndPos.Line)
	assert.Contains(t, diags[0].DocumentationURL, "banDropColumn")
}

func TestAnalyze_StatementState(t *testing.T) {
	ws := newWorkspace(t)
	res := analyze(t, ws, "BEGIN;\nALTER TABLE a ADD COLUMN b int;\nSELECT 1;\nCOMMIT;\nSELECT 2;")

	require.Len(t, res.Statements, 5)
	kinds := make([]string, len(res.Statements))
	for i, s := range res.Statements {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []string{"transaction", "alter_table", "select", "transaction", "select"}, kinds)

	assert.Equal(t, tracker.Explicit, res.Statements[2].State.Mode)
	assert.True(t, res.Statements[2].State.HoldingAccessExclusive())
	assert.Equal(t, tracker.Implicit, res.Statements[4].State.Mode)

	// SELECT 1 runs under the ALTER's lock. The COMMIT releases it.
	held := byCategory(res.Diagnostics, "lint/safety/runningStatementWhileHoldingAccessExclusive")
	require.Len(t, held, 1)
	assert.Equal(t, 3, held[0].Pos.Line)
}

func TestAnalyze_ScopePolicy(t *testing.T) {
	content := "BEGIN;\nSELECT 1;\nCOMMIT;\nCREATE INDEX CONCURRENTLY i ON t (c);"
	rule := "lint/safety/banConcurrentIndexCreationInTransaction"

	res := analyze(t, newWorkspace(t), content)
	assert.Equal(t, 1, res.Statements[3].ScopeSize)
	assert.Empty(t, byCategory(res.Diagnostics, rule))

	res = analyze(t, newWorkspace(t, workspace.WithScopePolicy(tracker.ScopeFile)), content)
	assert.Equal(t, 4, res.Statements[3].ScopeSize)
	assert.Len(t, byCategory(res.Diagnostics, rule), 1)
}

func TestAnalyze_SyntaxErrors(t *testing.T) {
	ws := newWorkspace(t)
	res := analyze(t, ws, "SELECT 1;\nALTER TABLE ;\nDROP TABLE users;")

	require.Len(t, res.Statements, 3)
	assert.Nil(t, res.Statements[1].Node)
	assert.Empty(t, res.Statements[1].Kind)

	syntax := byCategory(res.Diagnostics, lint.CategorySyntax)
	require.Len(t, syntax, 1)
	assert.Equal(t, 2, syntax[0].Pos.Line)
	assert.Equal(t, lint.SeverityError, syntax[0].Severity)

	// Later statements are still checked.
	assert.NotEmpty(t, byCategory(res.Diagnostics, "lint/safety/banDropTable"))
}

func TestAnalyze_FunctionBody(t *testing.T) {
	ws := newWorkspace(t)
	content := "SELECT 1;\nCREATE FUNCTION f() RETURNS int LANGUAGE sql AS $$\nSELECT 1;\nALTER TABLE ;\n$$;"
	res := analyze(t, ws, content)

	syntax := byCategory(res.Diagnostics, lint.CategorySyntax)
	require.Len(t, syntax, 1)
	assert.Equal(t, 4, syntax[0].Pos.Line)
	assert.GreaterOrEqual(t, syntax[0].Pos.Offset, strings.Index(content, "ALTER"))

	// Body statements are cached as children of the function statement.
	before := ws.CacheStats()["ast"]
	analyze(t, ws, content)
	after := ws.CacheStats()["ast"]
	assert.Equal(t, before.Misses, after.Misses)
	assert.Equal(t, before.Hits+4, after.Hits)
}

func TestAnalyze_PlpgsqlBodyIsNotParsed(t *testing.T) {
	ws := newWorkspace(t)
	res := analyze(t, ws, "CREATE FUNCTION f() RETURNS int LANGUAGE plpgsql AS $$ BEGIN RETURN 1; END $$;")
	assert.Empty(t, byCategory(res.Diagnostics, lint.CategorySyntax))
}

func TestAnalyze_Sorted(t *testing.T) {
	ws := newWorkspace(t)
	res := analyze(t, ws, "ALTER TABLE a DROP COLUMN x;\nALTER TABLE ;\nDROP TABLE b;")
	for i := 1; i < len(res.Diagnostics); i++ {
		assert.LessOrEqual(t, res.Diagnostics[i-1].Pos.Offset, res.Diagnostics[i].Pos.Offset)
	}
}

func TestAnalyze_Cancelled(t *testing.T) {
	ws := newWorkspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ws.Analyze(ctx, "x.sql", "SELECT 1;")
	assert.ErrorIs(t, err, context.Canceled)
}

// ---------- Suppressions ----------

func TestAnalyze_Suppressions(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		opts        []workspace.Option
		wantRule    int
		wantMessage string
	}{
		{
			name:     "line suppression",
			content:  "-- pgcheck-ignore lint/safety/banDropColumn: planned\nALTER TABLE users DROP COLUMN email;",
			wantRule: 0,
		},
		{
			name:     "suppression with value",
			content:  "-- pgcheck-ignore lint/safety/banDropColumn(email)\nALTER TABLE users DROP COLUMN email, DROP COLUMN name;",
			wantRule: 1,
		},
		{
			name:        "unused suppression",
			content:     "-- pgcheck-ignore lint/safety/banDropTable\nALTER TABLE users DROP COLUMN email;",
			wantRule:    1,
			wantMessage: "This suppression has no effect.",
		},
		{
			name:        "suppression of disabled rule",
			content:     "-- pgcheck-ignore-all lint/safety/banDropColumn\nALTER TABLE users DROP COLUMN email;",
			opts:        []workspace.Option{workspace.WithConfig(lint.NewConfig().Disable("banDropColumn"))},
			wantRule:    0,
			wantMessage: "disabled via the configuration",
		},
		{
			name:        "malformed suppression",
			content:     "-- pgcheck-ignore\nALTER TABLE users DROP COLUMN email;",
			wantRule:    1,
			wantMessage: "must specify which lints",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := analyze(t, newWorkspace(t, tt.opts...), tt.content)
			assert.Len(t, byCategory(res.Diagnostics, "lint/safety/banDropColumn"), tt.wantRule)

			sup := byCategory(res.Diagnostics, lint.CategorySuppressions)
			if tt.wantMessage == "" {
				assert.Empty(t, sup)
				return
			}
			require.Len(t, sup, 1)
			assert.Contains(t, sup[0].Message, tt.wantMessage)
			assert.Equal(t, 1, sup[0].Pos.Line)
		})
	}
}

// ---------- Annotations and ids ----------

func TestAnnotations_EndsWithSemicolon(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"SELECT * FROM foo", false},
		{"SELECT * FROM foo;", true},
		{"SELECT * FROM foo; ", true},
		{"SELECT * FROM foo;\n", true},
		{"SELECT * FROM foo -- note", false},
	}
	ws := newWorkspace(t)
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			res := analyze(t, ws, tt.content)
			require.Len(t, res.Statements, 1)
			assert.Equal(t, tt.want, res.Statements[0].Annotations.EndsWithSemicolon)
		})
	}
}

func TestStatements_IDsFollowContent(t *testing.T) {
	ws := newWorkspace(t)
	a := ws.Statements("SELECT 1;\nSELECT 2;\n")
	b := ws.Statements("-- header\n\nSELECT 2;\nSELECT 1;\n")
	require.Len(t, a, 2)
	require.Len(t, b, 2)

	assert.Equal(t, a[0].ID, b[1].ID)
	assert.Equal(t, a[1].ID, b[0].ID)
	assert.NotEqual(t, a[0].Range.Start, b[1].Range.Start)
}

func TestAnalyze_ReusesCachedArtifacts(t *testing.T) {
	ws := newWorkspace(t, workspace.WithCacheOptions(cache.WithShards(1)))
	analyze(t, ws, "SELECT 1;\nSELECT 2;")
	analyze(t, ws, "SELECT 2;\nSELECT 3;\nSELECT 1;")

	stats := ws.CacheStats()
	assert.Equal(t, uint64(3), stats["ast"].Misses)
	assert.Equal(t, uint64(2), stats["ast"].Hits)
	assert.Equal(t, uint64(3), stats["tokens"].Misses)
	assert.Equal(t, uint64(2), stats["annotations"].Hits)
}

func TestResult_StatementAt(t *testing.T) {
	res := analyze(t, newWorkspace(t), "SELECT 1;\nSELECT 2;")
	stmt, ok := res.StatementAt(12)
	require.True(t, ok)
	assert.Equal(t, "SELECT 2;", stmt.Range.Text)

	_, ok = res.StatementAt(1000)
	assert.False(t, ok)
}

func TestResult_StatementAt_AdjacentStatements(t *testing.T) {
	res := analyze(t, newWorkspace(t), "SELECT 1;SELECT 2;")

	tests := []struct {
		offset int
		want   string
	}{
		{0, "SELECT 1;"},
		{8, "SELECT 1;"},
		{9, "SELECT 2;"},
		{18, "SELECT 2;"},
	}
	for _, tt := range tests {
		stmt, ok := res.StatementAt(tt.offset)
		require.True(t, ok, tt.offset)
		assert.Equal(t, tt.want, stmt.Range.Text, tt.offset)
	}
}

// ---------- Configuration ----------

func TestConfigDiagnostics(t *testing.T) {
	ws := newWorkspace(t,
		workspace.WithConfig(lint.NewConfig().Enable("noSuchRule")),
		workspace.WithConfigDiagnostics(lint.Diagnostic{Category: lint.CategoryConfig, Message: "custom rule broken"}),
	)
	diags := ws.ConfigDiagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, "custom rule broken", diags[0].Message)
	assert.Equal(t, lint.CategoryConfig, diags[1].Category)
}

func TestAnalyze_Concurrent(t *testing.T) {
	ws := newWorkspace(t)
	docs := []string{
		"ALTER TABLE a DROP COLUMN x;",
		"BEGIN;\nCREATE INDEX CONCURRENTLY i ON t (c);\nCOMMIT;",
		"SELECT 1;\nDROP TABLE b;",
	}

	var wg sync.WaitGroup
	results := make([]*workspace.Result, 30)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ws.Analyze(context.Background(), "doc.sql", docs[i%len(docs)])
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, results[i%len(docs)].Diagnostics, res.Diagnostics)
	}
}
