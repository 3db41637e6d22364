package safety

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lexer"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/token"
)

// AddingFieldWithDefault flags new columns whose default forces a table
// rewrite.
var AddingFieldWithDefault = lint.RuleDef{
	Name:        "addingFieldWithDefault",
	Group:       Group,
	Description: "Adding a column with a volatile default rewrites the table.",
	Severity:    lint.SeverityWarning,
	Recommended: true,
	Sources:     []string{"squawk/adding-field-with-default"},
	ConfigKeys:  []string{"stableFunctions"},
	Check:       checkAddingFieldWithDefault,

	Rationale: `Since Postgres 11 a constant default is stored in the catalog and the table is
not touched. A volatile default such as random() or clock_timestamp() still has
to be computed for every existing row, which rewrites the table under an ACCESS
EXCLUSIVE lock. Generated columns are always computed for every row.`,

	BadExample:  `ALTER TABLE users ADD COLUMN token uuid DEFAULT gen_random_uuid();`,
	GoodExample: `ALTER TABLE users ADD COLUMN active boolean DEFAULT true;`,

	Fix: "Add the column without a default, then set the default in a separate statement and backfill in batches.",
}

// stableFunctions are functions that are safe in a column default. Any other
// function call is treated as volatile.
var stableFunctions = []string{
	"cast",
	"row",
	"array",
	"now",
	"statement_timestamp",
	"transaction_timestamp",
	"current_setting",
	"lower",
	"upper",
	"coalesce",
	"nullif",
	"make_interval",
	"jsonb_build_object",
	"json_build_object",
	"jsonb_build_array",
	"json_build_array",
}

func checkAddingFieldWithDefault(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	alter, ok := alterOnExisting(stmt, ctx)
	if !ok {
		return nil, nil
	}
	stable := append(slices.Clone(stableFunctions), ctx.Options.GetStringSlice("stableFunctions", nil)...)

	var diags []lint.Diagnostic
	for _, cmd := range alter.Commands {
		def := cmd.Def
		if cmd.Kind != ast.AlterAddColumn || def == nil {
			continue
		}
		switch {
		case def.Generated:
			diags = append(diags, report(ctx, def.Span,
				"Adding a generated column requires a table rewrite.",
				"This operation requires an ACCESS EXCLUSIVE lock and rewrites the entire table.",
				"Add the column as nullable, backfill existing rows, and add a trigger to update the column on write instead."))
		case def.HasDefault && isVolatile(def.Default, stable):
			diags = append(diags, report(ctx, def.Span,
				"Adding a column with a volatile default value causes a table rewrite.",
				"Even in PostgreSQL 11+, volatile default values require a full table rewrite.",
				"Add the column without a default, then set the default in a separate statement."))
		}
	}
	return diags, nil
}

// isVolatile reports whether expr calls a function outside stable. Type
// modifiers after a cast, as in '0'::numeric(10, 2), are not calls.
func isVolatile(expr string, stable []string) bool {
	toks, _ := lexer.Tokenize(expr)
	var sig []token.Token
	for _, tok := range toks {
		if !token.IsTrivia(tok.Type) && tok.Type != token.EOF {
			sig = append(sig, tok)
		}
	}
	for i := 0; i+1 < len(sig); i++ {
		tok := sig[i]
		if sig[i+1].Type != token.LPAREN {
			continue
		}
		if tok.Type != token.IDENT && tok.Type != token.QUOTED_IDENT && !token.IsKeyword(tok.Type) {
			continue
		}
		if i > 0 && sig[i-1].Type == token.DCOLON {
			continue
		}
		name := strings.ToLower(strings.Trim(tok.Literal, `"`))
		if !slices.Contains(stable, name) {
			return true
		}
	}
	return false
}
