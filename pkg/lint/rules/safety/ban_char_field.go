package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// BanCharField flags columns of type char(n).
var BanCharField = lint.RuleDef{
	Name:        "banCharField",
	Group:       Group,
	Description: "CHAR columns pad values with spaces.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/ban-char-field"},
	Check:       checkBanCharField,

	BadExample:  `CREATE TABLE countries (code char(2));`,
	GoodExample: `CREATE TABLE countries (code text CHECK (length(code) = 2));`,
}

func checkBanCharField(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, col := range columnTypes(stmt) {
		switch baseType(col.typ) {
		case "char", "character", "bpchar":
		default:
			continue
		}
		diags = append(diags, report(ctx, col.span,
			"CHAR type is discouraged due to space padding behavior.",
			"CHAR types are fixed-length and padded with spaces, which can lead to unexpected behavior.",
			"Use VARCHAR or TEXT instead for variable-length character data."))
	}
	return diags, nil
}
