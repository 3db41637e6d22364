package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// PreferTimestamptz flags timestamp columns without a time zone.
var PreferTimestamptz = lint.RuleDef{
	Name:        "preferTimestamptz",
	Group:       Group,
	Description: "Prefer TIMESTAMPTZ over TIMESTAMP.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/prefer-timestamptz"},
	Check:       checkPreferTimestamptz,

	BadExample:  `CREATE TABLE events (created_at timestamp);`,
	GoodExample: `CREATE TABLE events (created_at timestamptz);`,
}

func checkPreferTimestamptz(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, col := range columnTypes(stmt) {
		switch baseType(col.typ) {
		case "timestamp", "timestamp without time zone":
		default:
			continue
		}
		diags = append(diags, report(ctx, col.span,
			"Prefer TIMESTAMPTZ over TIMESTAMP for better timezone handling.",
			"TIMESTAMP WITHOUT TIME ZONE can lead to issues when dealing with time zones.",
			"Use TIMESTAMPTZ (TIMESTAMP WITH TIME ZONE) instead."))
	}
	return diags, nil
}
