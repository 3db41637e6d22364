package rules

import (
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/lint/rules/safety"
)

// Builtin returns the registrars of every built-in rule package.
func Builtin() []lint.Registrar {
	return []lint.Registrar{
		safety.Register,
	}
}

// NewRegistry builds a registry of the built-in rules plus extra.
func NewRegistry(extra ...lint.Registrar) (*lint.Registry, error) {
	return lint.NewRegistry(append(Builtin(), extra...)...)
}
