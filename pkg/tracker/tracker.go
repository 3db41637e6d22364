// Package tracker folds transaction and lock state across the statements
// of a document.
//
// The fold runs once per analysis pass. Each statement receives a Snapshot
// of the state as it was before that statement ran, so a statement never
// observes its own effect.
package tracker

import (
	"slices"

	"github.com/leapstack-labs/pgcheck/pkg/ast"
)

// Snapshot is the transaction state entering one statement.
type Snapshot struct {
	Mode Mode
	// StatementsInScope counts the statements before this one in its scope.
	StatementsInScope int
	// HeldLockLevel is the strongest lock taken by DDL earlier in the scope.
	HeldLockLevel LockLevel
	// Scope numbers the scope the statement belongs to, from zero.
	Scope int

	LockTimeoutSet      bool
	StatementTimeoutSet bool
	// ExplicitDepth counts BEGINs in the current explicit transaction.
	ExplicitDepth int

	createdObjects []ast.QualifiedName
}

// HasCreated reports whether name was created earlier in the scope. An
// unqualified name is looked up in the public schema.
func (s Snapshot) HasCreated(name ast.QualifiedName) bool {
	name = name.WithDefaultSchema(DefaultSchema)
	for _, c := range s.createdObjects {
		if c.Equal(name) {
			return true
		}
	}
	return false
}

// CreatedObjects returns a copy of the objects created earlier in the scope.
func (s Snapshot) CreatedObjects() []ast.QualifiedName {
	return slices.Clone(s.createdObjects)
}

// HoldingAccessExclusive reports whether an ACCESS EXCLUSIVE lock is held.
func (s Snapshot) HoldingAccessExclusive() bool {
	return s.HeldLockLevel == AccessExclusive
}

// Option configures Fold.
type Option func(*State)

// WithPolicy sets the scope policy. The default is ScopeTransaction.
func WithPolicy(p ScopePolicy) Option {
	return func(s *State) {
		s.policy = p
	}
}

// State is the running state of a fold. The zero value is the initial
// state under ScopeTransaction.
type State struct {
	policy  ScopePolicy
	current Snapshot
}

// NewState returns the initial state.
func NewState(opts ...Option) *State {
	s := &State{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Step returns the snapshot for node and then applies its effect.
func (s *State) Step(node ast.Node) Snapshot {
	eff := Classify(node)

	// BEGIN from implicit mode opens a new scope that includes the BEGIN.
	// An empty implicit scope is reused.
	if eff.Kind == EffectBegin && s.current.Mode == Implicit && s.policy == ScopeTransaction &&
		s.current.StatementsInScope > 0 {
		s.startScope()
	}

	snap := s.current
	snap.createdObjects = slices.Clone(s.current.createdObjects)

	s.apply(eff)
	return snap
}

func (s *State) apply(eff Effect) {
	cur := &s.current
	cur.StatementsInScope++

	if eff.DDL && eff.Lock > cur.HeldLockLevel && !s.createdInScope(eff.Target) {
		cur.HeldLockLevel = eff.Lock
	}
	for _, name := range eff.Creates {
		cur.createdObjects = append(cur.createdObjects, name.WithDefaultSchema(DefaultSchema))
	}
	if eff.SetsLockTimeout {
		cur.LockTimeoutSet = true
	}
	if eff.SetsStatementTimeout {
		cur.StatementTimeoutSet = true
	}

	switch eff.Kind {
	case EffectBegin:
		if cur.Mode == Explicit {
			cur.ExplicitDepth++
			return
		}
		cur.Mode = Explicit
		cur.ExplicitDepth = 1
	case EffectCommit, EffectRollback:
		if cur.Mode != Explicit {
			return
		}
		cur.Mode = Implicit
		cur.ExplicitDepth = 0
		if s.policy == ScopeTransaction {
			s.startScope()
		}
	}
}

// createdInScope reports whether the lock target was created earlier in
// the scope. Locks on such objects block nobody.
func (s *State) createdInScope(target ast.QualifiedName) bool {
	if target.Name == "" {
		return false
	}
	return s.current.HasCreated(target)
}

func (s *State) startScope() {
	s.current = Snapshot{
		Mode:  s.current.Mode,
		Scope: s.current.Scope + 1,
	}
}

// Fold returns one snapshot per statement, in order. Nil entries stand for
// statements that failed to parse; they count toward the scope but have no
// other effect.
func Fold(stmts []ast.Node, opts ...Option) []Snapshot {
	s := NewState(opts...)
	out := make([]Snapshot, len(stmts))
	for i, stmt := range stmts {
		out[i] = s.Step(stmt)
	}
	return out
}

// ScopeSizes returns, for each snapshot, the number of statements in the
// scope that contains it.
func ScopeSizes(snaps []Snapshot) []int {
	counts := make(map[int]int)
	for _, s := range snaps {
		counts[s.Scope]++
	}
	out := make([]int, len(snaps))
	for i, s := range snaps {
		out[i] = counts[s.Scope]
	}
	return out
}
