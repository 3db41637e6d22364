// Package safety holds the built-in migration safety rules.
//
// The rules look at one statement at a time together with the transaction
// state the tracker computed for it. They flag DDL that takes long-held
// locks, rewrites tables or breaks clients that still use the old schema.
//
// Register the rules with a registry:
//
//	reg, err := lint.NewRegistry(safety.Register)
package safety

import (
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/token"
)

// Group is the group all rules of this package belong to.
const Group = "safety"

// All lists the rules of the group.
var All = []lint.RuleDef{
	AddSerialColumn,
	AddingFieldWithDefault,
	AddingForeignKeyConstraint,
	AddingNotNullField,
	AddingPrimaryKeyConstraint,
	AddingRequiredField,
	BanCharField,
	BanConcurrentIndexCreationInTransaction,
	BanDropColumn,
	BanDropDatabase,
	BanDropNotNull,
	BanDropTable,
	BanTruncateCascade,
	ChangingColumnType,
	ConstraintMissingNotValid,
	CreatingEnum,
	DisallowUniqueConstraint,
	LockTimeoutWarning,
	MultipleAlterTable,
	PreferBigInt,
	PreferJSONB,
	PreferRobustStmts,
	PreferTextField,
	PreferTimestamptz,
	RenamingColumn,
	RenamingTable,
	RequireConcurrentIndexCreation,
	RequireConcurrentIndexDeletion,
	RunningStatementWhileHoldingAccessExclusive,
	TransactionNesting,
}

// Register records the safety group and its rules.
func Register(v lint.Visitor) {
	v.RecordGroup(lint.Group{
		Name:        Group,
		Description: "Migrations that lock, rewrite or break tables in production.",
	})
	for _, def := range All {
		v.RecordRule(lint.WrapRuleDef(def))
	}
}

// report builds a diagnostic with an optional detail and note.
func report(ctx *lint.RuleContext, span token.Span, message, detail, note string) lint.Diagnostic {
	d := ctx.Report(span, message)
	d.Detail = detail
	if note != "" {
		d.Advices = []lint.Advice{{Message: note}}
	}
	return d
}

// createdEarlier reports whether name was created by an earlier statement,
// either in the current scope or anywhere before it in the file. Changes to
// such tables block nobody.
func createdEarlier(ctx *lint.RuleContext, name ast.QualifiedName) bool {
	if name.Name == "" {
		return false
	}
	if ctx.State.HasCreated(name) {
		return true
	}
	want := name.WithDefaultSchema("public")
	for _, prev := range ctx.Previous {
		if ct, ok := prev.(*ast.CreateTableStmt); ok && ct.Relation.WithDefaultSchema("public").Equal(want) {
			return true
		}
	}
	return false
}

// alterOnExisting returns stmt as an ALTER TABLE on a table that was not
// created earlier in the file.
func alterOnExisting(stmt ast.Node, ctx *lint.RuleContext) (*ast.AlterTableStmt, bool) {
	alter, ok := stmt.(*ast.AlterTableStmt)
	if !ok || createdEarlier(ctx, alter.Relation) {
		return nil, false
	}
	return alter, true
}

// typedColumn is a column whose type a statement sets.
type typedColumn struct {
	name string
	typ  ast.TypeName
	span token.Span
}

// columnTypes returns the column types set by CREATE TABLE, ADD COLUMN and
// ALTER COLUMN TYPE.
func columnTypes(stmt ast.Node) []typedColumn {
	var out []typedColumn
	switch s := stmt.(type) {
	case *ast.CreateTableStmt:
		for _, col := range s.Columns {
			out = append(out, typedColumn{name: col.Name, typ: col.Type, span: col.Span})
		}
	case *ast.AlterTableStmt:
		for _, cmd := range s.Commands {
			switch {
			case cmd.Kind == ast.AlterAddColumn && cmd.Def != nil:
				out = append(out, typedColumn{name: cmd.Def.Name, typ: cmd.Def.Type, span: cmd.Def.Span})
			case cmd.Kind == ast.AlterColumnType && cmd.Type != nil:
				out = append(out, typedColumn{name: cmd.Column, typ: *cmd.Type, span: cmd.Span})
			}
		}
	}
	return out
}

// baseType returns the type name without a pg_catalog qualifier.
func baseType(t ast.TypeName) string {
	return strings.TrimPrefix(t.Name, "pg_catalog.")
}

func qualified(name ast.QualifiedName) string {
	return name.WithDefaultSchema("public").String()
}
