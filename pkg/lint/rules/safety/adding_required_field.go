package safety

import (
	"fmt"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// AddingRequiredField flags ADD COLUMN ... NOT NULL without a default.
var AddingRequiredField = lint.RuleDef{
	Name:        "addingRequiredField",
	Group:       Group,
	Description: "Adding a NOT NULL column without a default fails on non-empty tables.",
	Severity:    lint.SeverityError,
	Recommended: true,
	Sources:     []string{"squawk/adding-required-field"},
	Check:       checkAddingRequiredField,

	Rationale: `Existing rows have no value for the new column, so Postgres rejects the
statement as soon as the table holds a single row. Clients that insert without
the new column also start failing.`,

	BadExample:  `ALTER TABLE users ADD COLUMN email text NOT NULL;`,
	GoodExample: `ALTER TABLE users ADD COLUMN email text NOT NULL DEFAULT '';`,

	Fix: "Add a DEFAULT, or add the column as nullable, backfill it and set NOT NULL afterwards.",
}

func checkAddingRequiredField(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := alterOnExisting(stmt, ctx)
	if !ok {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, cmd := range alter.Commands {
		def := cmd.Def
		if cmd.Kind != ast.AlterAddColumn || def == nil {
			continue
		}
		if !def.NotNull || def.HasDefault || def.Generated || def.Identity {
			continue
		}
		diags = append(diags, report(ctx, def.Span,
			fmt.Sprintf("Adding column %s as NOT NULL without a default fails on tables that have rows.", def.Name),
			"Existing rows have no value for the new column, and inserts that omit it are rejected.",
			"Add a DEFAULT, or add the column as nullable, backfill it and then set NOT NULL."))
	}
	return diags, nil
}
