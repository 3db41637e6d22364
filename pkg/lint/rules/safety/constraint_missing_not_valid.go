package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// ConstraintMissingNotValid flags CHECK and FOREIGN KEY constraints added
// without NOT VALID.
var ConstraintMissingNotValid = lint.RuleDef{
	Name:        "constraintMissingNotValid",
	Group:       Group,
	Description: "Adding a constraint should use NOT VALID.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/constraint-missing-not-valid"},
	Check:       checkConstraintMissingNotValid,

	BadExample: `ALTER TABLE accounts ADD CONSTRAINT positive_balance CHECK (balance >= 0);`,

	GoodExample: `ALTER TABLE accounts ADD CONSTRAINT positive_balance CHECK (balance >= 0) NOT VALID;
-- next migration
ALTER TABLE accounts VALIDATE CONSTRAINT positive_balance;`,
}

func checkConstraintMissingNotValid(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := alterOnExisting(stmt, ctx)
	if !ok {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, cmd := range alter.Commands {
		c := cmd.Constraint
		if cmd.Kind != ast.AlterAddConstraint || c == nil || c.NotValid {
			continue
		}
		if c.Kind != ast.ConstraintCheck && c.Kind != ast.ConstraintForeignKey {
			continue
		}
		diags = append(diags, report(ctx, cmd.Span,
			"Adding a constraint without NOT VALID will block reads and writes while validating existing rows.",
			"Add the constraint as NOT VALID in one transaction, then run VALIDATE CONSTRAINT in a separate transaction.",
			""))
	}
	return diags, nil
}
