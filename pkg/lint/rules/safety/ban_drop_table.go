package safety

import (
	"fmt"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// BanDropTable flags DROP TABLE.
var BanDropTable = lint.RuleDef{
	Name:        "banDropTable",
	Group:       Group,
	Description: "Dropping a table may break existing clients.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/ban-drop-table"},
	Check:       checkBanDropTable,

	Rationale: `Dropping a table removes its data for good and breaks every query that still
uses it. Tables created earlier in the same file are exempt.`,

	BadExample: `DROP TABLE users;`,
}

func checkBanDropTable(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	drop, ok := stmt.(*ast.DropStmt)
	if !ok || drop.ObjectType != "table" {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, name := range drop.Names {
		if createdEarlier(ctx, name) {
			continue
		}
		diags = append(diags, report(ctx, drop.Span,
			fmt.Sprintf("Dropping table %s may break existing clients.", name),
			"The table's data is deleted and queries that use the table fail.",
			"Stop using the table in application code and deploy that before dropping it."))
	}
	return diags, nil
}
