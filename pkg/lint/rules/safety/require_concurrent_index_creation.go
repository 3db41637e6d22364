package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// RequireConcurrentIndexCreation flags CREATE INDEX without CONCURRENTLY on
// an existing table.
var RequireConcurrentIndexCreation = lint.RuleDef{
	Name:        "requireConcurrentIndexCreation",
	Group:       Group,
	Description: "Creating an index should be done CONCURRENTLY.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/require-concurrent-index-creation"},
	Check:       checkRequireConcurrentIndexCreation,

	Rationale: `A plain CREATE INDEX holds a SHARE lock for the whole build, blocking inserts,
updates and deletes on the table. Indexes on tables created in the same migration
are exempt.`,

	BadExample:  `CREATE INDEX users_email_idx ON users (email);`,
	GoodExample: `CREATE INDEX CONCURRENTLY users_email_idx ON users (email);`,
}

func checkRequireConcurrentIndexCreation(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	idx, ok := stmt.(*ast.CreateIndexStmt)
	if !ok || idx.Concurrently || idx.Relation.Name == "" || createdEarlier(ctx, idx.Relation) {
		return nil, nil
	}
	return []lint.Diagnostic{report(ctx, idx.Span,
		"Creating an index non-concurrently blocks writes to the table.",
		"Use CREATE INDEX CONCURRENTLY to avoid blocking concurrent operations on the table.",
		"")}, nil
}
