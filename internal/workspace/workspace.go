// Package workspace runs the analysis pipeline over SQL documents.
// It caches per-statement artifacts so repeated passes over an edited
// document only redo the statements that changed.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
	"github.com/leapstack-labs/pgcheck/pkg/cache"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/splitter"
	"github.com/leapstack-labs/pgcheck/pkg/token"
	"github.com/leapstack-labs/pgcheck/pkg/tracker"
)

// Annotations are facts about a statement derived from its tokens.
type Annotations struct {
	// EndsWithSemicolon reports whether the last significant token is a
	// semicolon.
	EndsWithSemicolon bool
}

// parsed is a cached parse result. Syntax errors are cached too; parsing
// the same text again would fail the same way.
type parsed struct {
	node ast.Node
	err  *ast.ParseError
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger. Defaults to discarding.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithConfig sets the rule configuration. Defaults to the recommended
// rules.
func WithConfig(cfg *lint.Config) Option {
	return func(w *Workspace) { w.config = cfg }
}

// WithScopePolicy sets how transaction scopes are delimited.
func WithScopePolicy(p tracker.ScopePolicy) Option {
	return func(w *Workspace) { w.policy = p }
}

// WithCacheOptions configures the artifact stores.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(w *Workspace) { w.cacheOpts = append(w.cacheOpts, opts...) }
}

// WithConfigDiagnostics adds diagnostics found while loading the
// configuration, such as custom rules that failed to load.
func WithConfigDiagnostics(diags ...lint.Diagnostic) Option {
	return func(w *Workspace) { w.configDiags = append(w.configDiags, diags...) }
}

// Workspace analyses documents against a rule registry. It is safe for
// concurrent use.
type Workspace struct {
	reg        *lint.Registry
	plan       *lint.Plan
	dispatcher *lint.Dispatcher
	config     *lint.Config
	policy     tracker.ScopePolicy
	logger     *slog.Logger

	cacheOpts   []cache.Option
	configDiags []lint.Diagnostic

	tokens      *cache.Store[[]token.Token]
	asts        *cache.Store[parsed]
	annotations *cache.Store[Annotations]
}

// New creates a workspace for reg.
func New(reg *lint.Registry, opts ...Option) *Workspace {
	w := &Workspace{
		reg:    reg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}

	plan, diags := reg.Resolve(w.config)
	w.plan = plan
	w.configDiags = append(w.configDiags, diags...)
	w.dispatcher = lint.NewDispatcher(reg, plan, w.logger)

	cacheOpts := append([]cache.Option{cache.WithLogger(w.logger)}, w.cacheOpts...)
	w.tokens = cache.NewStore[[]token.Token](cacheOpts...)
	w.asts = cache.NewStore[parsed](cacheOpts...)
	w.annotations = cache.NewStore[Annotations](cacheOpts...)
	return w
}

// Registry returns the rule registry.
func (w *Workspace) Registry() *lint.Registry { return w.reg }

// Plan returns the resolved rule plan.
func (w *Workspace) Plan() *lint.Plan { return w.plan }

// ConfigDiagnostics returns problems found in the configuration. They are
// not attached to any document.
func (w *Workspace) ConfigDiagnostics() []lint.Diagnostic {
	return append([]lint.Diagnostic(nil), w.configDiags...)
}

// CacheStats reports the hit and miss counts of the artifact stores.
func (w *Workspace) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"tokens":      w.tokens.Stats(),
		"ast":         w.asts.Stats(),
		"annotations": w.annotations.Stats(),
	}
}

// Statement is one analysed statement.
type Statement struct {
	ID          cache.StatementID
	Range       splitter.StatementRange
	Node        ast.Node // nil when the statement failed to parse
	Kind        string
	State       tracker.Snapshot
	ScopeSize   int
	Annotations Annotations
}

// Result is the outcome of one analysis pass.
type Result struct {
	Path        string
	PassID      string
	Statements  []Statement
	Diagnostics []lint.Diagnostic
}

// StatementAt returns the statement containing offset. A cursor right
// after the last character of a statement still belongs to it, unless the
// next statement starts there.
func (r *Result) StatementAt(offset int) (Statement, bool) {
	for _, s := range r.Statements {
		if offset >= s.Range.Start && offset < s.Range.End {
			return s, true
		}
	}
	for _, s := range r.Statements {
		if offset == s.Range.End {
			return s, true
		}
	}
	return Statement{}, false
}

// StatementInfo is a statement id with its range.
type StatementInfo struct {
	ID    cache.StatementID
	Range splitter.StatementRange
}

// Statements splits content and returns the id of every statement.
func (w *Workspace) Statements(content string) []StatementInfo {
	ranges := splitter.Split(content).Ranges
	out := make([]StatementInfo, len(ranges))
	for i, r := range ranges {
		out[i] = StatementInfo{ID: cache.NewStatementID(r.Text), Range: r}
	}
	return out
}

// Analyze runs every enabled rule over content and returns the statements
// and diagnostics of the document. Diagnostics carry document positions.
// It returns ctx's error if ctx is done before the pass finishes.
func (w *Workspace) Analyze(ctx context.Context, path, content string) (*Result, error) {
	start := time.Now()
	res := &Result{Path: path, PassID: uuid.NewString()}
	logger := w.logger.With(slog.String("pass", res.PassID), slog.String("path", path))

	p := &pass{
		w:     w,
		lines: token.NewLineIndex(content),
	}

	split := splitter.Split(content)
	for _, d := range split.Diagnostics {
		p.diags = append(p.diags, lint.Diagnostic{
			Category: lint.CategorySplit,
			Severity: lint.SeverityError,
			Message:  d.Message,
			Pos:      p.lines.Position(d.Start),
			EndPos:   p.lines.Position(d.End),
		})
	}

	nodes := make([]ast.Node, len(split.Ranges))
	res.Statements = make([]Statement, len(split.Ranges))
	for i, r := range split.Ranges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, err := p.prepare(r)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		res.Statements[i] = stmt
		nodes[i] = stmt.Node
	}

	snaps := tracker.Fold(nodes, tracker.WithPolicy(w.policy))
	sizes := tracker.ScopeSizes(snaps)
	for i := range res.Statements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt := &res.Statements[i]
		stmt.State = snaps[i]
		stmt.ScopeSize = sizes[i]
		if stmt.Node == nil {
			continue
		}
		rc := &lint.RuleContext{
			Text:      stmt.Range.Text,
			Index:     i,
			Total:     len(res.Statements),
			State:     stmt.State,
			ScopeSize: stmt.ScopeSize,
			Previous:  nodes[:i],
		}
		for _, d := range w.dispatcher.Run(stmt.Node, rc) {
			p.diags = append(p.diags, p.rebase(d, stmt.Range))
		}
	}

	res.Diagnostics = p.suppress(content)
	lint.SortDiagnostics(res.Diagnostics)

	logger.Debug("analysis finished",
		slog.Int("statements", len(res.Statements)),
		slog.Int("diagnostics", len(res.Diagnostics)),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}
