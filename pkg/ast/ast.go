// Package ast is a shallow, tagged-variant syntax tree for single Postgres
// statements.
//
// It models only what safety rules and the transaction tracker need to
// know about a statement: its kind, the relations it touches and, for DDL,
// the column and constraint changes it makes. Statements it does not model
// parse to *UnknownStmt. Spans are relative to the statement text.
package ast

import (
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/token"
)

// Node is a parsed statement. The set of implementations is closed; rules
// switch on the concrete type and ignore the variants they do not handle.
type Node interface {
	GetSpan() token.Span
	stmtNode()
}

// NodeInfo provides common fields for all AST nodes.
type NodeInfo struct {
	Span token.Span
}

// GetSpan returns the node's source span.
func (n *NodeInfo) GetSpan() token.Span {
	return n.Span
}

// QualifiedName is a possibly schema-qualified object name. Unquoted parts
// are folded to lower case.
type QualifiedName struct {
	Schema string
	Name   string
}

func (q QualifiedName) String() string {
	if q.Schema == "" {
		return q.Name
	}
	return q.Schema + "." + q.Name
}

// WithDefaultSchema fills in schema when the name is unqualified.
func (q QualifiedName) WithDefaultSchema(schema string) QualifiedName {
	if q.Schema == "" {
		q.Schema = schema
	}
	return q
}

// Equal compares two names case-insensitively.
func (q QualifiedName) Equal(other QualifiedName) bool {
	return strings.EqualFold(q.Schema, other.Schema) && strings.EqualFold(q.Name, other.Name)
}

// TypeName is a column type as written, normalized to lower case words,
// e.g. "character varying" or "timestamp with time zone".
type TypeName struct {
	Name  string
	Mods  string // "(10)", "(10, 2)"; empty if none
	Array bool
}

func (t TypeName) String() string {
	s := t.Name + t.Mods
	if t.Array {
		s += "[]"
	}
	return s
}

// ---------- DML ----------

// SelectStmt is a SELECT, VALUES or TABLE query.
type SelectStmt struct {
	NodeInfo
	ForUpdate bool // has a FOR UPDATE/SHARE locking clause
}

// InsertStmt is an INSERT.
type InsertStmt struct {
	NodeInfo
	Relation QualifiedName
}

// UpdateStmt is an UPDATE.
type UpdateStmt struct {
	NodeInfo
	Relation QualifiedName
}

// DeleteStmt is a DELETE.
type DeleteStmt struct {
	NodeInfo
	Relation QualifiedName
}

// MergeStmt is a MERGE.
type MergeStmt struct {
	NodeInfo
	Relation QualifiedName
}

// ---------- DDL ----------

// ColumnDef is a column definition in CREATE TABLE or ADD COLUMN.
type ColumnDef struct {
	NodeInfo
	Name       string
	Type       TypeName
	NotNull    bool
	HasDefault bool
	Default    string // default expression as written
	Generated  bool   // GENERATED ALWAYS AS (...) STORED
	Identity   bool   // GENERATED ... AS IDENTITY
	PrimaryKey bool
	Unique     bool
	References *QualifiedName
}

// ConstraintKind identifies a table constraint.
type ConstraintKind int

// Constraint kinds.
const (
	ConstraintCheck ConstraintKind = iota
	ConstraintPrimaryKey
	ConstraintUnique
	ConstraintForeignKey
	ConstraintExclude
)

var constraintKindNames = map[ConstraintKind]string{
	ConstraintCheck:      "check",
	ConstraintPrimaryKey: "primary key",
	ConstraintUnique:     "unique",
	ConstraintForeignKey: "foreign key",
	ConstraintExclude:    "exclude",
}

func (k ConstraintKind) String() string {
	return constraintKindNames[k]
}

// Constraint is a table constraint.
type Constraint struct {
	NodeInfo
	Kind       ConstraintKind
	Name       string
	Columns    []string
	NotValid   bool
	UsingIndex bool
	References *QualifiedName
}

// CreateTableStmt is CREATE TABLE, including CREATE TABLE ... AS.
type CreateTableStmt struct {
	NodeInfo
	Relation    QualifiedName
	IfNotExists bool
	Temporary   bool
	Columns     []*ColumnDef
	Constraints []*Constraint
	Partitioned bool
	AsSelect    bool
}

// CreateIndexStmt is CREATE [UNIQUE] INDEX.
type CreateIndexStmt struct {
	NodeInfo
	Name         string
	Relation     QualifiedName
	Concurrently bool
	Unique       bool
	IfNotExists  bool
}

// CreateViewStmt is CREATE [MATERIALIZED] VIEW.
type CreateViewStmt struct {
	NodeInfo
	Relation     QualifiedName
	Materialized bool
	OrReplace    bool
}

// CreateFunctionStmt is CREATE FUNCTION or CREATE PROCEDURE.
type CreateFunctionStmt struct {
	NodeInfo
	Name       QualifiedName
	Procedure  bool
	Language   string
	Body       string // function body with quoting removed
	BodyOffset int    // offset of Body in the statement text, -1 if none
}

// CreateTypeStmt is CREATE TYPE.
type CreateTypeStmt struct {
	NodeInfo
	Name   QualifiedName
	Enum   bool
	Values []string
}

// CreateTriggerStmt is CREATE TRIGGER.
type CreateTriggerStmt struct {
	NodeInfo
	Name     string
	Relation QualifiedName
}

// CreateExtensionStmt is CREATE EXTENSION.
type CreateExtensionStmt struct {
	NodeInfo
	Name        string
	IfNotExists bool
}

// CreateSchemaStmt is CREATE SCHEMA.
type CreateSchemaStmt struct {
	NodeInfo
	Name        string
	IfNotExists bool
}

// DropIndexStmt is DROP INDEX.
type DropIndexStmt struct {
	NodeInfo
	Names        []QualifiedName
	Concurrently bool
	IfExists     bool
}

// DropStmt is any DROP other than DROP INDEX.
type DropStmt struct {
	NodeInfo
	ObjectType string // "table", "database", "materialized view", ...
	Names      []QualifiedName
	IfExists   bool
	Cascade    bool
}

// AlterCmdKind identifies an ALTER TABLE subcommand.
type AlterCmdKind int

// ALTER TABLE subcommands.
const (
	AlterOther AlterCmdKind = iota
	AlterAddColumn
	AlterDropColumn
	AlterColumnType
	AlterSetNotNull
	AlterDropNotNull
	AlterSetDefault
	AlterDropDefault
	AlterAddConstraint
	AlterValidateConstraint
	AlterDropConstraint
	AlterRenameColumn
	AlterRenameTable
	AlterSetStatistics
)

var alterCmdNames = map[AlterCmdKind]string{
	AlterOther:              "other",
	AlterAddColumn:          "add column",
	AlterDropColumn:         "drop column",
	AlterColumnType:         "alter column type",
	AlterSetNotNull:         "set not null",
	AlterDropNotNull:        "drop not null",
	AlterSetDefault:         "set default",
	AlterDropDefault:        "drop default",
	AlterAddConstraint:      "add constraint",
	AlterValidateConstraint: "validate constraint",
	AlterDropConstraint:     "drop constraint",
	AlterRenameColumn:       "rename column",
	AlterRenameTable:        "rename table",
	AlterSetStatistics:      "set statistics",
}

func (k AlterCmdKind) String() string {
	return alterCmdNames[k]
}

// AlterTableCmd is one subcommand of ALTER TABLE.
type AlterTableCmd struct {
	NodeInfo
	Kind       AlterCmdKind
	Column     string      // affected column, if any
	Name       string      // constraint name or new name
	Def        *ColumnDef  // AlterAddColumn
	Constraint *Constraint // AlterAddConstraint
	Type       *TypeName   // AlterColumnType
	Default    string      // AlterSetDefault
}

// AlterTableStmt is ALTER TABLE.
type AlterTableStmt struct {
	NodeInfo
	Relation QualifiedName
	IfExists bool
	Commands []*AlterTableCmd
}

// RenameStmt is ALTER <object> ... RENAME for objects other than tables.
type RenameStmt struct {
	NodeInfo
	ObjectType string
	Name       QualifiedName
}

// TruncateStmt is TRUNCATE.
type TruncateStmt struct {
	NodeInfo
	Relations []QualifiedName
	Cascade   bool
}

// LockStmt is LOCK TABLE.
type LockStmt struct {
	NodeInfo
	Relations []QualifiedName
	Mode      string // "access exclusive" when not given
	NoWait    bool
}

// VacuumStmt is VACUUM.
type VacuumStmt struct {
	NodeInfo
	Full      bool
	Analyze   bool
	Relations []QualifiedName
}

// AnalyzeStmt is ANALYZE.
type AnalyzeStmt struct {
	NodeInfo
	Relations []QualifiedName
}

// ReindexStmt is REINDEX.
type ReindexStmt struct {
	NodeInfo
	ObjectType   string
	Name         QualifiedName
	Concurrently bool
}

// RefreshMatViewStmt is REFRESH MATERIALIZED VIEW.
type RefreshMatViewStmt struct {
	NodeInfo
	Relation     QualifiedName
	Concurrently bool
}

// ClusterStmt is CLUSTER.
type ClusterStmt struct {
	NodeInfo
	Relation QualifiedName
}

// ---------- Session and transaction control ----------

// TransactionKind identifies a transaction control statement.
type TransactionKind int

// Transaction statement kinds.
const (
	TransBegin TransactionKind = iota
	TransStart
	TransCommit
	TransRollback
	TransSavepoint
	TransRelease
	TransRollbackTo
	TransPrepare
	TransCommitPrepared
	TransRollbackPrepared
)

var transactionKindNames = map[TransactionKind]string{
	TransBegin:            "begin",
	TransStart:            "start transaction",
	TransCommit:           "commit",
	TransRollback:         "rollback",
	TransSavepoint:        "savepoint",
	TransRelease:          "release",
	TransRollbackTo:       "rollback to savepoint",
	TransPrepare:          "prepare transaction",
	TransCommitPrepared:   "commit prepared",
	TransRollbackPrepared: "rollback prepared",
}

func (k TransactionKind) String() string {
	return transactionKindNames[k]
}

// TransactionStmt is BEGIN, COMMIT, ROLLBACK and friends.
type TransactionStmt struct {
	NodeInfo
	Kind TransactionKind
}

// VariableSetStmt is SET or RESET of a run-time parameter.
type VariableSetStmt struct {
	NodeInfo
	Name  string // lower case
	Value string // as written; empty for RESET
	Local bool
	Reset bool
}

// UnknownStmt is any statement this package does not model.
type UnknownStmt struct {
	NodeInfo
	Keyword string // first keyword, upper case
}

func (*SelectStmt) stmtNode()          {}
func (*InsertStmt) stmtNode()          {}
func (*UpdateStmt) stmtNode()          {}
func (*DeleteStmt) stmtNode()          {}
func (*MergeStmt) stmtNode()           {}
func (*CreateTableStmt) stmtNode()     {}
func (*CreateIndexStmt) stmtNode()     {}
func (*CreateViewStmt) stmtNode()      {}
func (*CreateFunctionStmt) stmtNode()  {}
func (*CreateTypeStmt) stmtNode()      {}
func (*CreateTriggerStmt) stmtNode()   {}
func (*CreateExtensionStmt) stmtNode() {}
func (*CreateSchemaStmt) stmtNode()    {}
func (*DropIndexStmt) stmtNode()       {}
func (*DropStmt) stmtNode()            {}
func (*AlterTableStmt) stmtNode()      {}
func (*RenameStmt) stmtNode()          {}
func (*TruncateStmt) stmtNode()        {}
func (*LockStmt) stmtNode()            {}
func (*VacuumStmt) stmtNode()          {}
func (*AnalyzeStmt) stmtNode()         {}
func (*ReindexStmt) stmtNode()         {}
func (*RefreshMatViewStmt) stmtNode()  {}
func (*ClusterStmt) stmtNode()         {}
func (*TransactionStmt) stmtNode()     {}
func (*VariableSetStmt) stmtNode()     {}
func (*UnknownStmt) stmtNode()         {}
