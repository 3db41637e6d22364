package safety

import (
	"fmt"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// PreferBigInt flags 2 and 4 byte integer columns.
var PreferBigInt = lint.RuleDef{
	Name:        "preferBigInt",
	Group:       Group,
	Description: "Prefer BIGINT over smaller integer types.",
	Severity:    lint.SeverityWarning,
	Sources:     []string{"squawk/prefer-big-int"},
	Check:       checkPreferBigInt,

	Rationale: `Integer keys and counters outgrow 32 bits more often than expected, and widening
the column later rewrites the table. The extra four bytes per row are rarely a
concern.`,

	BadExample:  `CREATE TABLE events (id serial PRIMARY KEY);`,
	GoodExample: `CREATE TABLE events (id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY);`,
}

func checkPreferBigInt(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, col := range columnTypes(stmt) {
		switch baseType(col.typ) {
		case "smallint", "int2", "integer", "int", "int4", "smallserial", "serial2", "serial", "serial4":
		default:
			continue
		}
		diags = append(diags, report(ctx, col.span,
			"Using smaller integer types can lead to overflow issues.",
			fmt.Sprintf("The '%s' type has a limited range that may be exceeded as your data grows.", col.typ.Name),
			"Consider using BIGINT for integer columns to avoid future migration issues."))
	}
	return diags, nil
}
