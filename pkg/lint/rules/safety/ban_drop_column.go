package safety

import (
	"fmt"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// BanDropColumn flags ALTER TABLE ... DROP COLUMN.
var BanDropColumn = lint.RuleDef{
	Name:        "banDropColumn",
	Group:       Group,
	Description: "Dropping a column may break existing clients.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/ban-drop-column"},
	Check:       checkBanDropColumn,

	Rationale: `Application code deployed before the migration still selects and writes the
column. Those queries start failing the moment the column is gone.`,

	BadExample: `ALTER TABLE users DROP COLUMN email;`,

	Fix: "Stop reading and writing the column, deploy that change, then drop the column in a later migration.",
}

func checkBanDropColumn(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := alterOnExisting(stmt, ctx)
	if !ok {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, cmd := range alter.Commands {
		if cmd.Kind != ast.AlterDropColumn {
			continue
		}
		diags = append(diags, report(ctx, cmd.Span,
			fmt.Sprintf("Dropping column %s may break existing clients.", cmd.Column),
			"Queries that still read or write the column fail as soon as the migration runs.",
			"Remove all uses of the column from application code and deploy that before dropping it."))
	}
	return diags, nil
}
