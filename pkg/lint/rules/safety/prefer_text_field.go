package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// PreferTextField flags varchar columns with a length limit.
var PreferTextField = lint.RuleDef{
	Name:        "preferTextField",
	Group:       Group,
	Description: "Prefer TEXT with a CHECK constraint over VARCHAR(n).",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/prefer-text-field"},
	Check:       checkPreferTextField,

	Rationale: `Changing the length of a varchar column takes an ACCESS EXCLUSIVE lock, while a
CHECK constraint on a text column can be replaced with NOT VALID and validated
without blocking writes.`,

	BadExample:  `CREATE TABLE users (name varchar(100));`,
	GoodExample: `CREATE TABLE users (name text CHECK (length(name) <= 100));`,
}

func checkPreferTextField(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, col := range columnTypes(stmt) {
		switch baseType(col.typ) {
		case "varchar", "character varying":
		default:
			continue
		}
		if col.typ.Mods == "" {
			continue
		}
		diags = append(diags, report(ctx, col.span,
			"Changing the size of a varchar field requires an ACCESS EXCLUSIVE lock.",
			"",
			"Use a text field with a check constraint."))
	}
	return diags, nil
}
