package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// RequireConcurrentIndexDeletion flags DROP INDEX without CONCURRENTLY.
var RequireConcurrentIndexDeletion = lint.RuleDef{
	Name:        "requireConcurrentIndexDeletion",
	Group:       Group,
	Description: "Dropping an index should be done CONCURRENTLY.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/require-concurrent-index-deletion"},
	Check:       checkRequireConcurrentIndexDeletion,

	BadExample:  `DROP INDEX users_email_idx;`,
	GoodExample: `DROP INDEX CONCURRENTLY users_email_idx;`,
}

func checkRequireConcurrentIndexDeletion(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	drop, ok := stmt.(*ast.DropIndexStmt)
	if !ok || drop.Concurrently {
		return nil, nil
	}
	return []lint.Diagnostic{report(ctx, drop.Span,
		"Dropping an index non-concurrently blocks reads and writes to the table.",
		"Use DROP INDEX CONCURRENTLY to avoid blocking concurrent operations on the table.",
		"")}, nil
}
