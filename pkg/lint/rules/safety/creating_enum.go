package safety

import (
	"fmt"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// CreatingEnum flags CREATE TYPE ... AS ENUM.
var CreatingEnum = lint.RuleDef{
	Name:        "creatingEnum",
	Group:       Group,
	Description: "Enum types are hard to change later.",
	Severity:    lint.SeverityWarning,
	Sources:     []string{"eugene/W13"},
	Check:       checkCreatingEnum,

	BadExample: `CREATE TYPE status AS ENUM ('active', 'inactive');`,

	GoodExample: `CREATE TABLE statuses (name text PRIMARY KEY);
INSERT INTO statuses VALUES ('active'), ('inactive');`,
}

func checkCreatingEnum(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	typ, ok := stmt.(*ast.CreateTypeStmt)
	if !ok || !typ.Enum {
		return nil, nil
	}
	return []lint.Diagnostic{report(ctx, typ.Span,
		fmt.Sprintf("Creating enum type %s is not recommended.", typ.Name),
		"Enum types are difficult to modify: removing values requires complex migrations, and associating additional data with values is not possible.",
		"Consider using a lookup table with a foreign key constraint instead, which provides more flexibility and easier maintenance.")}, nil
}
