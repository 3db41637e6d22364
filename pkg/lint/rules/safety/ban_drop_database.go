package safety

import (
	"fmt"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// BanDropDatabase flags DROP DATABASE.
var BanDropDatabase = lint.RuleDef{
	Name:        "banDropDatabase",
	Group:       Group,
	Description: "Dropping a database is irreversible.",
	Severity:    lint.SeverityError,
	Recommended: true,
	Sources:     []string{"squawk/ban-drop-database"},
	Check:       checkBanDropDatabase,

	BadExample: `DROP DATABASE app;`,
}

func checkBanDropDatabase(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	drop, ok := stmt.(*ast.DropStmt)
	if !ok || drop.ObjectType != "database" {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, name := range drop.Names {
		diags = append(diags, report(ctx, drop.Span,
			fmt.Sprintf("Dropping database %s deletes all of its data.", name),
			"A migration should never drop a database. Clients connected to it lose all data.",
			""))
	}
	return diags, nil
}
