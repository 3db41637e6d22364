package safety

import (
	"fmt"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// BanDropNotNull flags ALTER COLUMN ... DROP NOT NULL.
var BanDropNotNull = lint.RuleDef{
	Name:        "banDropNotNull",
	Group:       Group,
	Description: "Dropping a NOT NULL constraint may break existing clients.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/ban-drop-not-null"},
	Check:       checkBanDropNotNull,

	BadExample: `ALTER TABLE users ALTER COLUMN email DROP NOT NULL;`,
}

func checkBanDropNotNull(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := alterOnExisting(stmt, ctx)
	if !ok {
		return nil, nil
	}
	var diags []lint.Diagnostic
	for _, cmd := range alter.Commands {
		if cmd.Kind != ast.AlterDropNotNull {
			continue
		}
		diags = append(diags, report(ctx, cmd.Span,
			fmt.Sprintf("Dropping the NOT NULL constraint on %s may break existing clients.", cmd.Column),
			"Code that assumes the column is always set will start seeing NULL values.",
			""))
	}
	return diags, nil
}
