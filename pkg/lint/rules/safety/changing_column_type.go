package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// ChangingColumnType flags ALTER COLUMN ... TYPE.
var ChangingColumnType = lint.RuleDef{
	Name:        "changingColumnType",
	Group:       Group,
	Description: "Changing a column type may rewrite the table.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/changing-column-type"},
	Check:       checkChangingColumnType,

	Rationale: `Most type changes rewrite the whole table and its indexes while holding an
ACCESS EXCLUSIVE lock. Clients that depend on the old type may break too.`,

	BadExample: `ALTER TABLE users ALTER COLUMN id TYPE bigint;`,

	Fix: "Add a new column with the desired type, backfill it, switch clients over and drop the old column.",
}

func checkChangingColumnType(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := alterOnExisting(stmt, ctx)
	if !ok {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, cmd := range alter.Commands {
		if cmd.Kind != ast.AlterColumnType {
			continue
		}
		diags = append(diags, report(ctx, cmd.Span,
			"Changing a column type requires a table rewrite and blocks reads and writes.",
			"Consider creating a new column with the desired type, migrating data, and then dropping the old column.",
			""))
	}
	return diags, nil
}
