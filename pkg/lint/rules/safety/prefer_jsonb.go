package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// PreferJSONB flags json columns.
var PreferJSONB = lint.RuleDef{
	Name:        "preferJsonb",
	Group:       Group,
	Description: "Prefer JSONB over JSON.",
	Severity:    lint.SeverityWarning,
	Sources:     []string{"eugene/E3"},
	Check:       checkPreferJSONB,

	BadExample:  `CREATE TABLE events (payload json);`,
	GoodExample: `CREATE TABLE events (payload jsonb);`,
}

func checkPreferJSONB(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, col := range columnTypes(stmt) {
		if baseType(col.typ) != "json" {
			continue
		}
		diags = append(diags, report(ctx, col.span,
			"Prefer JSONB over JSON for better performance and functionality.",
			"JSON stores exact text representation while JSONB stores parsed binary format. JSONB is faster for queries, supports indexing, and removes duplicate keys.",
			"Consider using JSONB instead unless you specifically need to preserve formatting or duplicate keys."))
	}
	return diags, nil
}
