package tracker

import (
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
)

// DefaultSchema is assumed for unqualified names.
const DefaultSchema = "public"

// EffectKind is the transaction control effect of a statement.
type EffectKind int

// Effect kinds.
const (
	EffectNone EffectKind = iota
	EffectBegin
	EffectCommit
	EffectRollback
	EffectSavepoint
)

// Effect describes what a statement does to transaction and lock state.
type Effect struct {
	Kind EffectKind
	// Lock is the strongest table lock the statement takes.
	Lock LockLevel
	// Target is the object Lock is taken on, if known.
	Target ast.QualifiedName
	// DDL is set for schema changes and LOCK TABLE. Only these raise the
	// held lock level.
	DDL bool
	// Creates lists objects the statement creates.
	Creates []ast.QualifiedName

	SetsLockTimeout      bool
	SetsStatementTimeout bool
}

// Classify maps a statement to its effect. A nil node has no effect.
func Classify(node ast.Node) Effect {
	switch s := node.(type) {
	case *ast.TransactionStmt:
		return Effect{Kind: transactionEffect(s.Kind)}

	case *ast.SelectStmt:
		if s.ForUpdate {
			return Effect{Lock: RowShare}
		}
		return Effect{Lock: AccessShare}
	case *ast.InsertStmt:
		return Effect{Lock: RowExclusive, Target: s.Relation}
	case *ast.UpdateStmt:
		return Effect{Lock: RowExclusive, Target: s.Relation}
	case *ast.DeleteStmt:
		return Effect{Lock: RowExclusive, Target: s.Relation}
	case *ast.MergeStmt:
		return Effect{Lock: RowExclusive, Target: s.Relation}

	case *ast.CreateTableStmt:
		eff := Effect{DDL: true, Creates: []ast.QualifiedName{s.Relation}}
		// Foreign keys lock the referenced table.
		if ref := firstReference(s); ref != nil {
			eff.Lock = ShareRowExclusive
			eff.Target = *ref
		}
		return eff
	case *ast.CreateIndexStmt:
		eff := Effect{DDL: true, Lock: Share, Target: s.Relation}
		if s.Concurrently {
			eff.Lock = ShareUpdateExclusive
		}
		if s.Name != "" {
			eff.Creates = []ast.QualifiedName{{Schema: s.Relation.Schema, Name: s.Name}}
		}
		return eff
	case *ast.CreateViewStmt:
		eff := Effect{DDL: true, Creates: []ast.QualifiedName{s.Relation}}
		if s.OrReplace {
			eff.Lock = AccessExclusive
			eff.Target = s.Relation
		}
		return eff
	case *ast.CreateTriggerStmt:
		return Effect{DDL: true, Lock: ShareRowExclusive, Target: s.Relation}
	case *ast.CreateFunctionStmt, *ast.CreateTypeStmt, *ast.CreateExtensionStmt, *ast.CreateSchemaStmt:
		return Effect{DDL: true}

	case *ast.DropIndexStmt:
		eff := Effect{DDL: true, Lock: AccessExclusive, Target: first(s.Names)}
		if s.Concurrently {
			eff.Lock = ShareUpdateExclusive
		}
		return eff
	case *ast.DropStmt:
		return Effect{DDL: true, Lock: AccessExclusive, Target: first(s.Names)}
	case *ast.AlterTableStmt:
		return Effect{DDL: true, Lock: alterTableLock(s), Target: s.Relation}
	case *ast.RenameStmt:
		return Effect{DDL: true, Lock: AccessExclusive, Target: s.Name}
	case *ast.TruncateStmt:
		return Effect{DDL: true, Lock: AccessExclusive, Target: first(s.Relations)}
	case *ast.LockStmt:
		level, _ := ParseLockMode(s.Mode)
		return Effect{DDL: true, Lock: level, Target: first(s.Relations)}

	case *ast.VacuumStmt:
		if s.Full {
			return Effect{DDL: true, Lock: AccessExclusive, Target: first(s.Relations)}
		}
		return Effect{DDL: true, Lock: ShareUpdateExclusive, Target: first(s.Relations)}
	case *ast.AnalyzeStmt:
		return Effect{DDL: true, Lock: ShareUpdateExclusive, Target: first(s.Relations)}
	case *ast.ReindexStmt:
		if s.Concurrently {
			return Effect{DDL: true, Lock: ShareUpdateExclusive, Target: s.Name}
		}
		return Effect{DDL: true, Lock: AccessExclusive, Target: s.Name}
	case *ast.RefreshMatViewStmt:
		if s.Concurrently {
			return Effect{DDL: true, Lock: Exclusive, Target: s.Relation}
		}
		return Effect{DDL: true, Lock: AccessExclusive, Target: s.Relation}
	case *ast.ClusterStmt:
		return Effect{DDL: true, Lock: AccessExclusive, Target: s.Relation}

	case *ast.VariableSetStmt:
		if s.Reset || isZeroTimeout(s.Value) {
			return Effect{}
		}
		return Effect{
			SetsLockTimeout:      s.Name == "lock_timeout",
			SetsStatementTimeout: s.Name == "statement_timeout",
		}
	}
	return Effect{}
}

func transactionEffect(k ast.TransactionKind) EffectKind {
	switch k {
	case ast.TransBegin, ast.TransStart:
		return EffectBegin
	case ast.TransCommit, ast.TransPrepare:
		return EffectCommit
	case ast.TransRollback:
		return EffectRollback
	case ast.TransSavepoint, ast.TransRelease, ast.TransRollbackTo:
		return EffectSavepoint
	}
	return EffectNone
}

// alterTableLock returns the strongest lock any subcommand takes.
func alterTableLock(s *ast.AlterTableStmt) LockLevel {
	level := AccessShare
	for _, cmd := range s.Commands {
		var l LockLevel
		switch cmd.Kind {
		case ast.AlterValidateConstraint, ast.AlterSetStatistics:
			l = ShareUpdateExclusive
		case ast.AlterAddConstraint:
			l = AccessExclusive
			if cmd.Constraint != nil && cmd.Constraint.Kind == ast.ConstraintForeignKey {
				l = ShareRowExclusive
			}
		default:
			l = AccessExclusive
		}
		level = max(level, l)
	}
	if len(s.Commands) == 0 {
		level = AccessExclusive
	}
	return level
}

func firstReference(s *ast.CreateTableStmt) *ast.QualifiedName {
	for _, c := range s.Columns {
		if c.References != nil {
			return c.References
		}
	}
	for _, c := range s.Constraints {
		if c.References != nil {
			return c.References
		}
	}
	return nil
}

func first(names []ast.QualifiedName) ast.QualifiedName {
	if len(names) == 0 {
		return ast.QualifiedName{}
	}
	return names[0]
}

func isZeroTimeout(v string) bool {
	v = strings.Trim(strings.TrimSpace(v), "'")
	return v == "0" || strings.EqualFold(v, "default")
}
