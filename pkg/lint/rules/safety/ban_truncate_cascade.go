package safety

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// BanTruncateCascade flags TRUNCATE ... CASCADE.
var BanTruncateCascade = lint.RuleDef{
	Name:        "banTruncateCascade",
	Group:       Group,
	Description: "TRUNCATE CASCADE also empties referencing tables.",
	Severity:    lint.SeverityError,
	Recommended: true,
	Sources:     []string{"squawk/ban-truncate-cascade"},
	Check:       checkBanTruncateCascade,

	Rationale: `CASCADE follows foreign keys recursively, so a truncate of one table can empty
tables that are not named in the statement.`,

	BadExample:  `TRUNCATE accounts CASCADE;`,
	GoodExample: `TRUNCATE accounts, account_events;`,
}

func checkBanTruncateCascade(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	tr, ok := stmt.(*ast.TruncateStmt)
	if !ok || !tr.Cascade {
		return nil, nil
	}
	names := make([]string, len(tr.Relations))
	for i, r := range tr.Relations {
		names[i] = r.String()
	}
	return []lint.Diagnostic{report(ctx, tr.Span,
		fmt.Sprintf("TRUNCATE CASCADE also truncates every table with a foreign key to %s.", strings.Join(names, ", ")),
		"CASCADE follows foreign keys recursively and can empty tables that were not named.",
		"List the tables to truncate explicitly and remove CASCADE.")}, nil
}
