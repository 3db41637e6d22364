package safety

import (
	"fmt"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// MultipleAlterTable flags a second ALTER TABLE on the same table.
var MultipleAlterTable = lint.RuleDef{
	Name:        "multipleAlterTable",
	Group:       Group,
	Description: "Combine ALTER TABLE statements on the same table.",
	Severity:    lint.SeverityWarning,
	Sources:     []string{"eugene/W12"},
	Check:       checkMultipleAlterTable,

	BadExample: `ALTER TABLE users ADD COLUMN a text;
ALTER TABLE users ADD COLUMN b text;`,

	GoodExample: `ALTER TABLE users ADD COLUMN a text, ADD COLUMN b text;`,
}

func checkMultipleAlterTable(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := stmt.(*ast.AlterTableStmt)
	if !ok {
		return nil, nil
	}
	name := alter.Relation.WithDefaultSchema("public")
	for _, prev := range ctx.Previous {
		p, ok := prev.(*ast.AlterTableStmt)
		if !ok || !p.Relation.WithDefaultSchema("public").Equal(name) {
			continue
		}
		return []lint.Diagnostic{report(ctx, alter.Span,
			fmt.Sprintf("Multiple ALTER TABLE statements found for table %s.", name),
			"Multiple ALTER TABLE statements on the same table require scanning and potentially rewriting the table multiple times.",
			"Combine the ALTER TABLE statements into a single statement with comma-separated actions to scan the table only once.")}, nil
	}
	return nil, nil
}
