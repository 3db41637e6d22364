package safety

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// AddSerialColumn flags new serial and stored generated columns on
// existing tables.
var AddSerialColumn = lint.RuleDef{
	Name:        "addSerialColumn",
	Group:       Group,
	Description: "Adding a serial or stored generated column rewrites the table.",
	Severity:    lint.SeverityError,
	Recommended: true,
	Sources:     []string{"eugene/E11"},
	Check:       checkAddSerialColumn,

	Rationale: `A serial column needs a fresh sequence value for every existing row and a
stored generated column needs its expression computed for every row. Both
rewrite the table while holding an ACCESS EXCLUSIVE lock.`,

	BadExample: `ALTER TABLE events ADD COLUMN seq bigserial;`,

	GoodExample: `ALTER TABLE events ADD COLUMN seq bigint;
-- backfill in batches, then attach a sequence default`,
}

func isSerial(t ast.TypeName) bool {
	switch baseType(t) {
	case "serial", "bigserial", "smallserial", "serial2", "serial4", "serial8":
		return true
	}
	return false
}

func checkAddSerialColumn(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
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
		switch {
		case isSerial(def.Type):
			diags = append(diags, report(ctx, def.Span,
				fmt.Sprintf("Adding a column with type %s requires a table rewrite.", strings.ToUpper(def.Type.String())),
				"SERIAL types require rewriting the entire table with an ACCESS EXCLUSIVE lock, blocking all reads and writes.",
				"SERIAL types cannot be added to existing tables without a full table rewrite. Consider using a non-serial type with a sequence instead."))
		case def.Generated:
			diags = append(diags, report(ctx, def.Span,
				"Adding a column with GENERATED ALWAYS AS ... STORED requires a table rewrite.",
				"GENERATED ... STORED columns require rewriting the entire table with an ACCESS EXCLUSIVE lock, blocking all reads and writes.",
				""))
		}
	}
	return diags, nil
}
