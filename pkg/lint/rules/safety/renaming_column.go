package safety

import (
	"fmt"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// RenamingColumn flags RENAME COLUMN.
var RenamingColumn = lint.RuleDef{
	Name:        "renamingColumn",
	Group:       Group,
	Description: "Renaming a column may break existing clients.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/renaming-column"},
	Check:       checkRenamingColumn,

	BadExample: `ALTER TABLE users RENAME COLUMN mail TO email;`,

	Fix: "Add the new column, write to both, move readers over and drop the old column later.",
}

func checkRenamingColumn(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := alterOnExisting(stmt, ctx)
	if !ok {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, cmd := range alter.Commands {
		if cmd.Kind != ast.AlterRenameColumn {
			continue
		}
		diags = append(diags, report(ctx, cmd.Span,
			fmt.Sprintf("Renaming column %s to %s may break existing clients.", cmd.Column, cmd.Name),
			"Queries that use the old name fail as soon as the migration runs.",
			""))
	}
	return diags, nil
}
