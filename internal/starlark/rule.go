package starlark

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/token"
)

// Rule is a lint rule defined by a .star file. It is safe for concurrent
// use; every call runs on its own thread.
type Rule struct {
	meta  lint.Metadata
	path  string
	check *starlark.Function
	pool  *ThreadPool
}

// Metadata implements lint.Rule.
func (r *Rule) Metadata() lint.Metadata {
	return r.meta
}

// Path returns the file the rule was loaded from.
func (r *Rule) Path() string {
	return r.path
}

// Check implements lint.Rule by calling the file's check function.
func (r *Rule) Check(stmt ast.Node, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	stmtVal, err := StatementValue(stmt)
	if err != nil {
		return nil, fmt.Errorf("convert statement: %w", err)
	}
	ctxVal, err := ContextValue(ctx)
	if err != nil {
		return nil, fmt.Errorf("convert context: %w", err)
	}

	thread := r.pool.Get(r.meta.Name)
	defer r.pool.Put(thread)

	result, err := starlark.Call(thread, r.check, starlark.Tuple{stmtVal, ctxVal}, nil)
	if err != nil {
		if evalErr, ok := err.(*starlark.EvalError); ok { //nolint:errorlint // Call returns *EvalError unwrapped
			return nil, fmt.Errorf("%s", evalErr.Backtrace())
		}
		return nil, err
	}
	return r.diagnostics(result, ctx)
}

// diagnostics converts the value check returned. None and empty lists
// report nothing.
func (r *Rule) diagnostics(result starlark.Value, ctx *lint.RuleContext) ([]lint.Diagnostic, error) {
	if result == starlark.None {
		return nil, nil
	}
	iterable, ok := result.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("check must return a list, got %s", result.Type())
	}

	var lines *token.LineIndex
	var out []lint.Diagnostic

	iter := iterable.Iterate()
	defer iter.Done()
	var item starlark.Value
	for i := 0; iter.Next(&item); i++ {
		switch v := item.(type) {
		case starlark.String:
			out = append(out, ctx.Report(token.Span{}, string(v)))
		case *starlark.Dict:
			fields, err := ToGo(v)
			if err != nil {
				return nil, fmt.Errorf("result %d: %w", i, err)
			}
			if lines == nil {
				lines = token.NewLineIndex(ctx.Text)
			}
			d, err := reportFromDict(ctx, lines, fields.(map[string]any))
			if err != nil {
				return nil, fmt.Errorf("result %d: %w", i, err)
			}
			out = append(out, d)
		default:
			return nil, fmt.Errorf("result %d: expected string or dict, got %s", i, item.Type())
		}
	}
	return out, nil
}

func reportFromDict(ctx *lint.RuleContext, lines *token.LineIndex, fields map[string]any) (lint.Diagnostic, error) {
	message, ok := fields["message"].(string)
	if !ok || message == "" {
		return lint.Diagnostic{}, fmt.Errorf("missing string %q", "message")
	}

	var span token.Span
	start, hasStart := fields["start"].(int64)
	end, hasEnd := fields["end"].(int64)
	if hasStart || hasEnd {
		if !hasEnd {
			end = int64(len(ctx.Text))
		}
		if start < 0 || end < start || end > int64(len(ctx.Text)) {
			return lint.Diagnostic{}, fmt.Errorf("span %d..%d is outside the statement", start, end)
		}
		span = lines.Span(int(start), int(end))
	}

	d := ctx.Report(span, message)
	if detail, ok := fields["detail"].(string); ok {
		d.Detail = detail
	}
	if raw, found := fields["severity"]; found {
		s, _ := raw.(string)
		sev, valid := lint.ParseSeverity(s)
		if !valid {
			return lint.Diagnostic{}, fmt.Errorf("invalid severity %v", raw)
		}
		d.Severity = sev
	}
	return d, nil
}
