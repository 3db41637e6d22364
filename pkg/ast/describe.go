package ast

import "fmt"

// Kind returns a short lower-case name for the statement variant, such as
// "create_table" or "alter_table".
func Kind(n Node) string {
	switch n.(type) {
	case *SelectStmt:
		return "select"
	case *InsertStmt:
		return "insert"
	case *UpdateStmt:
		return "update"
	case *DeleteStmt:
		return "delete"
	case *MergeStmt:
		return "merge"
	case *CreateTableStmt:
		return "create_table"
	case *CreateIndexStmt:
		return "create_index"
	case *CreateViewStmt:
		return "create_view"
	case *CreateFunctionStmt:
		return "create_function"
	case *CreateTypeStmt:
		return "create_type"
	case *CreateTriggerStmt:
		return "create_trigger"
	case *CreateExtensionStmt:
		return "create_extension"
	case *CreateSchemaStmt:
		return "create_schema"
	case *DropIndexStmt:
		return "drop_index"
	case *DropStmt:
		return "drop"
	case *AlterTableStmt:
		return "alter_table"
	case *RenameStmt:
		return "rename"
	case *TruncateStmt:
		return "truncate"
	case *LockStmt:
		return "lock"
	case *VacuumStmt:
		return "vacuum"
	case *AnalyzeStmt:
		return "analyze"
	case *ReindexStmt:
		return "reindex"
	case *RefreshMatViewStmt:
		return "refresh_materialized_view"
	case *ClusterStmt:
		return "cluster"
	case *TransactionStmt:
		return "transaction"
	case *VariableSetStmt:
		return "set"
	case *UnknownStmt:
		return "unknown"
	}
	return fmt.Sprintf("%T", n)
}

// Describe returns a plain view of n built from strings, bools, ints,
// lists and maps. Custom rules receive statements in this form.
func Describe(n Node) map[string]any {
	span := n.GetSpan()
	d := map[string]any{
		"kind":  Kind(n),
		"start": span.Start.Offset,
		"end":   span.End.Offset,
	}

	switch s := n.(type) {
	case *SelectStmt:
		d["for_update"] = s.ForUpdate
	case *InsertStmt:
		d["relation"] = s.Relation.String()
	case *UpdateStmt:
		d["relation"] = s.Relation.String()
	case *DeleteStmt:
		d["relation"] = s.Relation.String()
	case *MergeStmt:
		d["relation"] = s.Relation.String()
	case *CreateTableStmt:
		d["relation"] = s.Relation.String()
		d["if_not_exists"] = s.IfNotExists
		d["temporary"] = s.Temporary
		d["partitioned"] = s.Partitioned
		d["as_select"] = s.AsSelect
		cols := make([]any, 0, len(s.Columns))
		for _, c := range s.Columns {
			cols = append(cols, describeColumn(c))
		}
		d["columns"] = cols
		cons := make([]any, 0, len(s.Constraints))
		for _, c := range s.Constraints {
			cons = append(cons, describeConstraint(c))
		}
		d["constraints"] = cons
	case *CreateIndexStmt:
		d["name"] = s.Name
		d["relation"] = s.Relation.String()
		d["concurrently"] = s.Concurrently
		d["unique"] = s.Unique
		d["if_not_exists"] = s.IfNotExists
	case *CreateViewStmt:
		d["relation"] = s.Relation.String()
		d["materialized"] = s.Materialized
		d["or_replace"] = s.OrReplace
	case *CreateFunctionStmt:
		d["name"] = s.Name.String()
		d["procedure"] = s.Procedure
		d["language"] = s.Language
		d["body"] = s.Body
	case *CreateTypeStmt:
		d["name"] = s.Name.String()
		d["enum"] = s.Enum
		d["values"] = stringList(s.Values)
	case *CreateTriggerStmt:
		d["name"] = s.Name
		d["relation"] = s.Relation.String()
	case *CreateExtensionStmt:
		d["name"] = s.Name
		d["if_not_exists"] = s.IfNotExists
	case *CreateSchemaStmt:
		d["name"] = s.Name
		d["if_not_exists"] = s.IfNotExists
	case *DropIndexStmt:
		d["names"] = qualifiedNames(s.Names)
		d["concurrently"] = s.Concurrently
		d["if_exists"] = s.IfExists
	case *DropStmt:
		d["object_type"] = s.ObjectType
		d["names"] = qualifiedNames(s.Names)
		d["if_exists"] = s.IfExists
		d["cascade"] = s.Cascade
	case *AlterTableStmt:
		d["relation"] = s.Relation.String()
		d["if_exists"] = s.IfExists
		cmds := make([]any, 0, len(s.Commands))
		for _, c := range s.Commands {
			cmds = append(cmds, describeAlterCmd(c))
		}
		d["commands"] = cmds
	case *RenameStmt:
		d["object_type"] = s.ObjectType
		d["name"] = s.Name.String()
	case *TruncateStmt:
		d["relations"] = qualifiedNames(s.Relations)
		d["cascade"] = s.Cascade
	case *LockStmt:
		d["relations"] = qualifiedNames(s.Relations)
		d["mode"] = s.Mode
		d["nowait"] = s.NoWait
	case *VacuumStmt:
		d["full"] = s.Full
		d["analyze"] = s.Analyze
		d["relations"] = qualifiedNames(s.Relations)
	case *AnalyzeStmt:
		d["relations"] = qualifiedNames(s.Relations)
	case *ReindexStmt:
		d["object_type"] = s.ObjectType
		d["name"] = s.Name.String()
		d["concurrently"] = s.Concurrently
	case *RefreshMatViewStmt:
		d["relation"] = s.Relation.String()
		d["concurrently"] = s.Concurrently
	case *ClusterStmt:
		d["relation"] = s.Relation.String()
	case *TransactionStmt:
		d["transaction"] = s.Kind.String()
	case *VariableSetStmt:
		d["name"] = s.Name
		d["value"] = s.Value
		d["local"] = s.Local
		d["reset"] = s.Reset
	case *UnknownStmt:
		d["keyword"] = s.Keyword
	}
	return d
}

func describeColumn(c *ColumnDef) map[string]any {
	d := map[string]any{
		"name":        c.Name,
		"type":        c.Type.String(),
		"not_null":    c.NotNull,
		"has_default": c.HasDefault,
		"default":     c.Default,
		"generated":   c.Generated,
		"identity":    c.Identity,
		"primary_key": c.PrimaryKey,
		"unique":      c.Unique,
	}
	if c.References != nil {
		d["references"] = c.References.String()
	}
	return d
}

func describeConstraint(c *Constraint) map[string]any {
	d := map[string]any{
		"kind":        c.Kind.String(),
		"name":        c.Name,
		"columns":     stringList(c.Columns),
		"not_valid":   c.NotValid,
		"using_index": c.UsingIndex,
	}
	if c.References != nil {
		d["references"] = c.References.String()
	}
	return d
}

func describeAlterCmd(c *AlterTableCmd) map[string]any {
	d := map[string]any{
		"kind":   c.Kind.String(),
		"column": c.Column,
		"name":   c.Name,
	}
	if c.Def != nil {
		d["definition"] = describeColumn(c.Def)
	}
	if c.Constraint != nil {
		d["constraint"] = describeConstraint(c.Constraint)
	}
	if c.Type != nil {
		d["type"] = c.Type.String()
	}
	if c.Kind == AlterSetDefault {
		d["default"] = c.Default
	}
	return d
}

func stringList(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}

func qualifiedNames(in []QualifiedName) []any {
	out := make([]any, 0, len(in))
	for _, n := range in {
		out = append(out, n.String())
	}
	return out
}
