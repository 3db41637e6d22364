package starlark

import (
	"fmt"
	"maps"
	"slices"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// GoToStarlark converts a Go value to a Starlark value.
// Supported types: string, int, int64, float64, bool, []string, []any, map[string]any
func GoToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case string:
		return starlark.String(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case float64:
		return starlark.Float(val), nil

	case bool:
		return starlark.Bool(val), nil

	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case map[string]any:
		dict := starlark.NewDict(len(val))
		for _, k := range slices.Sorted(maps.Keys(val)) {
			sv, err := GoToStarlark(val[k])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil

	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToStruct converts a map to a Starlark struct. Nested maps, also inside
// lists, become structs too, so rules can write stmt.columns[0].name.
func ToStruct(name string, m map[string]any) (*starlarkstruct.Struct, error) {
	fields := make(starlark.StringDict, len(m))
	for k, v := range m {
		sv, err := structValue(k, v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = sv
	}
	return starlarkstruct.FromStringDict(starlark.String(name), fields), nil
}

func structValue(name string, v any) (starlark.Value, error) {
	switch val := v.(type) {
	case map[string]any:
		return ToStruct(name, val)
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := structValue(name, item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	}
	return GoToStarlark(v)
}

// ToGo converts a Starlark value back to a Go value.
// Returns: string, int64, float64, bool, []any, map[string]any, or nil
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil

	case starlark.String:
		return string(val), nil

	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			return val.String(), nil
		}
		return i64, nil

	case starlark.Float:
		return float64(val), nil

	case starlark.Bool:
		return bool(val), nil

	case *starlark.List:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	case starlark.Tuple:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := ToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("tuple index %d: %w", i, err)
			}
			result[i] = gv
		}
		return result, nil

	case *starlark.Dict:
		result := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			result[string(key)] = gv
		}
		return result, nil

	case *starlarkstruct.Struct:
		result := make(map[string]any)
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				return nil, fmt.Errorf("struct field %q: %w", name, err)
			}
			gv, err := ToGo(attr)
			if err != nil {
				return nil, fmt.Errorf("struct field %q: %w", name, err)
			}
			result[name] = gv
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported Starlark type %s", v.Type())
	}
}

// StatementValue converts a statement to the "stmt" argument of check.
func StatementValue(stmt ast.Node) (*starlarkstruct.Struct, error) {
	return ToStruct("stmt", ast.Describe(stmt))
}

// ContextValue converts a rule context to the "ctx" argument of check.
func ContextValue(ctx *lint.RuleContext) (*starlarkstruct.Struct, error) {
	opts := map[string]any(ctx.Options)
	if opts == nil {
		opts = map[string]any{}
	}
	options, err := GoToStarlark(opts)
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	s := ctx.State
	return starlarkstruct.FromStringDict(starlark.String("ctx"), starlark.StringDict{
		"text":                starlark.String(ctx.Text),
		"index":               starlark.MakeInt(ctx.Index),
		"total":               starlark.MakeInt(ctx.Total),
		"scope_size":          starlark.MakeInt(ctx.ScopeSize),
		"scope_ordinal":       starlark.MakeInt(ctx.ScopeOrdinal()),
		"statements_in_scope": starlark.MakeInt(s.StatementsInScope),
		"mode":                starlark.String(s.Mode.String()),
		"held_lock_level":     starlark.String(s.HeldLockLevel.String()),
		"lock_timeout_set":    starlark.Bool(s.LockTimeoutSet),
		"statement_timeout_set": starlark.Bool(s.StatementTimeoutSet),
		"options":             options,
	}), nil
}
