package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// AddingForeignKeyConstraint flags foreign keys added to existing tables
// without NOT VALID.
var AddingForeignKeyConstraint = lint.RuleDef{
	Name:        "addingForeignKeyConstraint",
	Group:       Group,
	Description: "Adding a foreign key validates every row while holding locks on both tables.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/adding-foreign-key-constraint"},
	Check:       checkAddingForeignKeyConstraint,

	Rationale: `Adding a foreign key takes a SHARE ROW EXCLUSIVE lock on both tables and scans
the referencing table to validate existing rows. Writes to both tables are
blocked for the whole scan.`,

	BadExample: `ALTER TABLE orders ADD CONSTRAINT orders_user_fk FOREIGN KEY (user_id) REFERENCES users (id);`,

	GoodExample: `ALTER TABLE orders ADD CONSTRAINT orders_user_fk FOREIGN KEY (user_id) REFERENCES users (id) NOT VALID;
ALTER TABLE orders VALIDATE CONSTRAINT orders_user_fk;`,
}

func checkAddingForeignKeyConstraint(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := alterOnExisting(stmt, ctx)
	if !ok {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, cmd := range alter.Commands {
		switch {
		case cmd.Kind == ast.AlterAddConstraint && cmd.Constraint != nil:
			c := cmd.Constraint
			if c.Kind != ast.ConstraintForeignKey || c.NotValid {
				continue
			}
			diags = append(diags, report(ctx, cmd.Span,
				"Adding a foreign key constraint requires a table scan and locks on both tables.",
				"This will block writes to both the referencing and referenced tables while PostgreSQL verifies the constraint.",
				"Add the constraint as NOT VALID first, then VALIDATE it in a separate transaction."))
		case cmd.Kind == ast.AlterAddColumn && cmd.Def != nil && cmd.Def.References != nil:
			diags = append(diags, report(ctx, cmd.Span,
				"Adding a column with a foreign key constraint requires a table scan and locks.",
				"Using REFERENCES when adding a column will block writes while verifying the constraint.",
				"Add the column without the constraint first, then add the constraint as NOT VALID and VALIDATE it separately."))
		}
	}
	return diags, nil
}
