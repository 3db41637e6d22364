package safety

import (
	"fmt"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// RenamingTable flags ALTER TABLE ... RENAME TO.
var RenamingTable = lint.RuleDef{
	Name:        "renamingTable",
	Group:       Group,
	Description: "Renaming a table may break existing clients.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/renaming-table"},
	Check:       checkRenamingTable,

	BadExample: `ALTER TABLE users RENAME TO accounts;`,
}

func checkRenamingTable(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := alterOnExisting(stmt, ctx)
	if !ok {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, cmd := range alter.Commands {
		if cmd.Kind != ast.AlterRenameTable {
			continue
		}
		diags = append(diags, report(ctx, cmd.Span,
			fmt.Sprintf("Renaming table %s to %s may break existing clients.", alter.Relation, cmd.Name),
			"Queries that use the old name fail as soon as the migration runs.",
			"Create a view with the old name while clients move to the new one."))
	}
	return diags, nil
}
