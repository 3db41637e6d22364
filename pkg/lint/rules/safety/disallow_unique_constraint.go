package safety

import (
	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// DisallowUniqueConstraint flags UNIQUE constraints that build their index
// under an ACCESS EXCLUSIVE lock.
var DisallowUniqueConstraint = lint.RuleDef{
	Name:        "disallowUniqueConstraint",
	Group:       Group,
	Description: "Adding a UNIQUE constraint builds an index under an ACCESS EXCLUSIVE lock.",
	Severity:    lint.SeverityError,
	Recommended: true,
	Sources:     []string{"squawk/disallowed-unique-constraint"},
	Check:       checkDisallowUniqueConstraint,

	BadExample: `ALTER TABLE users ADD CONSTRAINT users_email_key UNIQUE (email);`,

	GoodExample: `CREATE UNIQUE INDEX CONCURRENTLY users_email_idx ON users (email);
ALTER TABLE users ADD CONSTRAINT users_email_key UNIQUE USING INDEX users_email_idx;`,
}

func checkDisallowUniqueConstraint(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := alterOnExisting(stmt, ctx)
	if !ok {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, cmd := range alter.Commands {
		unique := false
		switch {
		case cmd.Kind == ast.AlterAddConstraint && cmd.Constraint != nil:
			unique = cmd.Constraint.Kind == ast.ConstraintUnique && !cmd.Constraint.UsingIndex
		case cmd.Kind == ast.AlterAddColumn && cmd.Def != nil:
			unique = cmd.Def.Unique
		}
		if !unique {
			continue
		}
		diags = append(diags, report(ctx, cmd.Span,
			"Adding a UNIQUE constraint requires an ACCESS EXCLUSIVE lock.",
			"The index behind the constraint is built while reads and writes to the table are blocked.",
			"Create a unique index CONCURRENTLY and then add the constraint using that index."))
	}
	return diags, nil
}
