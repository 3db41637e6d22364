package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// PreferRobustStmts flags concurrent index statements that cannot be
// re-run after a failure.
var PreferRobustStmts = lint.RuleDef{
	Name:        "preferRobustStmts",
	Group:       Group,
	Description: "Concurrent index statements should be re-runnable.",
	Severity:    lint.SeverityWarning,
	Sources:     []string{"squawk/prefer-robust-stmts"},
	Check:       checkPreferRobustStmts,

	Rationale: `Concurrent index operations run outside a transaction. When one fails halfway,
re-running the migration only works if the statement tolerates the leftovers.`,

	BadExample:  `CREATE INDEX CONCURRENTLY ON users (email);`,
	GoodExample: `CREATE INDEX CONCURRENTLY IF NOT EXISTS users_email_idx ON users (email);`,
}

func checkPreferRobustStmts(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	switch s := stmt.(type) {
	case *ast.CreateIndexStmt:
		if !s.Concurrently {
			return nil, nil
		}
		if s.Name == "" {
			diags = append(diags, report(ctx, s.Span,
				"Concurrent index should have an explicit name.",
				"Use an explicit name for a concurrently created index to make migrations more robust.",
				""))
		}
		if !s.IfNotExists {
			diags = append(diags, report(ctx, s.Span,
				"Concurrent index creation should use IF NOT EXISTS.",
				"Add IF NOT EXISTS to make the migration re-runnable if it fails.",
				""))
		}
	case *ast.DropIndexStmt:
		if s.Concurrently && !s.IfExists {
			diags = append(diags, report(ctx, s.Span,
				"Concurrent drop should use IF EXISTS.",
				"Add IF EXISTS to make the migration re-runnable if it fails.",
				""))
		}
	}
	return diags, nil
}
