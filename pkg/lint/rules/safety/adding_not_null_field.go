package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// AddingNotNullField flags ALTER COLUMN ... SET NOT NULL.
var AddingNotNullField = lint.RuleDef{
	Name:        "addingNotNullField",
	Group:       Group,
	Description: "Setting NOT NULL scans the table under an ACCESS EXCLUSIVE lock.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/adding-not-nullable-field"},
	Check:       checkAddingNotNullField,

	BadExample: `ALTER TABLE users ALTER COLUMN email SET NOT NULL;`,

	GoodExample: `ALTER TABLE users ADD CONSTRAINT email_not_null CHECK (email IS NOT NULL) NOT VALID;
-- next migration
ALTER TABLE users VALIDATE CONSTRAINT email_not_null;
ALTER TABLE users ALTER COLUMN email SET NOT NULL;`,
}

func checkAddingNotNullField(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := alterOnExisting(stmt, ctx)
	if !ok {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, cmd := range alter.Commands {
		if cmd.Kind != ast.AlterSetNotNull {
			continue
		}
		diags = append(diags, report(ctx, cmd.Span,
			"Setting a column NOT NULL blocks reads while the table is scanned.",
			"This operation requires an ACCESS EXCLUSIVE lock and a full table scan to verify all rows.",
			"Use a CHECK constraint with NOT VALID instead, then validate it in a separate transaction."))
	}
	return diags, nil
}
