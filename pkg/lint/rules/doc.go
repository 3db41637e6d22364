// Package rules collects the built-in rule packages.
//
// Each rule package exposes a Register function. Builtin returns all of
// them for lint.NewRegistry:
//
//	reg, err := lint.NewRegistry(rules.Builtin()...)
//
// Rules loaded at run time, such as Starlark rules, add their own
// registrars to the list.
package rules
