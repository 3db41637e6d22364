package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// AddingPrimaryKeyConstraint flags primary keys added to existing tables
// without an existing index.
var AddingPrimaryKeyConstraint = lint.RuleDef{
	Name:        "addingPrimaryKeyConstraint",
	Group:       Group,
	Description: "Adding a primary key builds an index under an ACCESS EXCLUSIVE lock.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/adding-serial-primary-key-field"},
	Check:       checkAddingPrimaryKeyConstraint,

	BadExample: `ALTER TABLE items ADD PRIMARY KEY (id);`,

	GoodExample: `CREATE UNIQUE INDEX CONCURRENTLY items_pk ON items (id);
ALTER TABLE items ADD CONSTRAINT items_pk PRIMARY KEY USING INDEX items_pk;`,
}

func checkAddingPrimaryKeyConstraint(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := alterOnExisting(stmt, ctx)
	if !ok {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, cmd := range alter.Commands {
		pk := false
		switch {
		case cmd.Kind == ast.AlterAddConstraint && cmd.Constraint != nil:
			pk = cmd.Constraint.Kind == ast.ConstraintPrimaryKey && !cmd.Constraint.UsingIndex
		case cmd.Kind == ast.AlterAddColumn && cmd.Def != nil:
			pk = cmd.Def.PrimaryKey
		}
		if !pk {
			continue
		}
		diags = append(diags, report(ctx, cmd.Span,
			"Adding a PRIMARY KEY constraint results in locks and table rewrites.",
			"Adding a PRIMARY KEY constraint requires an ACCESS EXCLUSIVE lock which blocks reads.",
			"Add the PRIMARY KEY constraint USING an index."))
	}
	return diags, nil
}
