// Package starlark runs custom lint rules written in Starlark.
//
// Every .star file in the custom rules directory defines one rule:
//
//	name = "banDropSchema"
//	description = "Disallow DROP SCHEMA."
//	severity = "error"        # optional
//	recommended = True        # optional, defaults to True
//
//	def check(stmt, ctx):
//	    if stmt.kind == "drop" and stmt.object_type == "schema":
//	        return ["Dropping schema %s deletes everything in it." % stmt.names[0]]
//	    return []
//
// check receives the statement as a struct (see ast.Describe) and the rule
// context, and returns a list of messages or dicts with "message" and
// optional "detail", "severity", "start" and "end" keys.
package starlark

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// Group is the group custom rules register into.
const Group = "custom"

// Extension is the file extension of custom rule files.
const Extension = ".star"

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// Loader scans a directory for .star files and loads them as rules.
type Loader struct {
	dir    string
	pool   *ThreadPool
	logger *slog.Logger
}

// NewLoader creates a loader for dir. Checks of the loaded rules run on
// threads from pool; a nil pool gets a default one.
func NewLoader(dir string, pool *ThreadPool, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if pool == nil {
		pool = NewThreadPool(0, logger)
	}
	return &Loader{dir: dir, pool: pool, logger: logger}
}

// Load loads every rule file in the directory. A missing directory yields
// an empty set. Files that fail to load are recorded in the set and do not
// stop the others.
func (l *Loader) Load() (*RuleSet, error) {
	set := &RuleSet{}
	if l.dir == "" {
		return set, nil
	}

	info, err := os.Stat(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, fmt.Errorf("failed to access custom rules directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("custom rules path is not a directory: %s", l.dir)
	}

	files, err := filepath.Glob(filepath.Join(l.dir, "*"+Extension))
	if err != nil {
		return nil, fmt.Errorf("failed to scan custom rules directory: %w", err)
	}
	slices.Sort(files)

	seen := make(map[string]string)
	for _, file := range files {
		rule, err := l.loadFile(file)
		if err == nil {
			if prev, dup := seen[strings.ToLower(rule.meta.Name)]; dup {
				err = &LoadError{File: file, Message: fmt.Sprintf("rule %q is already defined in %s", rule.meta.Name, filepath.Base(prev))}
			}
		}
		if err != nil {
			l.logger.Warn("custom rule not loaded", slog.String("file", file), slog.String("error", err.Error()))
			set.errs = append(set.errs, asLoadError(file, err))
			continue
		}
		seen[strings.ToLower(rule.meta.Name)] = file
		set.rules = append(set.rules, rule)
	}
	l.logger.Debug("custom rules loaded", slog.String("dir", l.dir), slog.Int("rules", len(set.rules)), slog.Int("errors", len(set.errs)))
	return set, nil
}

// loadFile executes a single .star file and reads its rule definition.
func (l *Loader) loadFile(path string) (*Rule, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a glob within the rules directory
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	thread := &starlark.Thread{
		Name: "load:" + filepath.Base(path),
		Print: func(_ *starlark.Thread, msg string) {
			l.logger.Debug("custom rule print", slog.String("file", path), slog.String("msg", msg))
		},
	}
	thread.SetMaxExecutionSteps(DefaultMaxSteps)

	globals, err := starlark.ExecFileOptions(fileOptions, thread, path, content, nil)
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}
	globals.Freeze()

	return newRule(path, globals, l.pool)
}

// newRule reads the rule globals of a loaded file.
func newRule(path string, globals starlark.StringDict, pool *ThreadPool) (*Rule, error) {
	fail := func(format string, args ...any) (*Rule, error) {
		return nil, &LoadError{File: path, Message: fmt.Sprintf(format, args...)}
	}

	meta := lint.Metadata{
		Group:       Group,
		Severity:    lint.SeverityWarning,
		Recommended: true,
	}

	name, ok := globals["name"].(starlark.String)
	if !ok {
		return fail("missing string global %q", "name")
	}
	meta.Name = string(name)
	if err := validateName(meta.Name); err != nil {
		return fail("%v", err)
	}

	if v, found := globals["description"]; found {
		s, ok := v.(starlark.String)
		if !ok {
			return fail("description must be a string, got %s", v.Type())
		}
		meta.Description = string(s)
	}
	if v, found := globals["severity"]; found {
		s, ok := v.(starlark.String)
		if !ok {
			return fail("severity must be a string, got %s", v.Type())
		}
		sev, valid := lint.ParseSeverity(string(s))
		if !valid {
			return fail("invalid severity %q", string(s))
		}
		meta.Severity = sev
	}
	if v, found := globals["recommended"]; found {
		b, ok := v.(starlark.Bool)
		if !ok {
			return fail("recommended must be a bool, got %s", v.Type())
		}
		meta.Recommended = bool(b)
	}

	fn, ok := globals["check"].(*starlark.Function)
	if !ok {
		return fail("missing function %q", "check")
	}
	if fn.NumParams() != 2 {
		return fail("check must take 2 parameters (stmt, ctx), takes %d", fn.NumParams())
	}

	meta.Sources = []string{filepath.Base(path)}
	return &Rule{meta: meta, path: path, check: fn, pool: pool}, nil
}

// validateName checks that a rule name is usable in selectors and
// suppression comments.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("rule name cannot be empty")
	}
	for i, r := range name {
		if i == 0 {
			if !isLetter(r) {
				return fmt.Errorf("rule name must start with a letter: %s", name)
			}
		} else if !isLetter(r) && !isDigit(r) && r != '_' && r != '-' {
			return fmt.Errorf("rule name contains invalid character: %s", name)
		}
	}
	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// LoadError represents an error loading a custom rule file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", filepath.Base(e.File), e.Message)
}

func asLoadError(file string, err error) *LoadError {
	if le, ok := err.(*LoadError); ok { //nolint:errorlint // loadFile returns *LoadError unwrapped
		return le
	}
	return &LoadError{File: file, Message: err.Error()}
}

// RuleSet is the result of loading a custom rules directory.
type RuleSet struct {
	rules []*Rule
	errs  []*LoadError
}

// Rules returns the loaded rules in file order.
func (s *RuleSet) Rules() []*Rule {
	return slices.Clone(s.rules)
}

// Errors returns the files that failed to load.
func (s *RuleSet) Errors() []*LoadError {
	return slices.Clone(s.errs)
}

// Register records the custom group and its rules. It is a lint.Registrar.
func (s *RuleSet) Register(v lint.Visitor) {
	if len(s.rules) == 0 {
		return
	}
	v.RecordGroup(lint.Group{
		Name:        Group,
		Description: "Rules loaded from Starlark files.",
	})
	for _, r := range s.rules {
		v.RecordRule(r)
	}
}

// Diagnostics reports each file that failed to load.
func (s *RuleSet) Diagnostics() []lint.Diagnostic {
	out := make([]lint.Diagnostic, 0, len(s.errs))
	for _, e := range s.errs {
		out = append(out, lint.Diagnostic{
			Category: lint.CategoryConfig,
			Severity: lint.SeverityError,
			Message:  "Custom rule could not be loaded: " + e.Error(),
			Detail:   e.File,
		})
	}
	return out
}
