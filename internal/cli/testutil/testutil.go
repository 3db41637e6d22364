// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/pgcheck/internal/cli/output"
)

// Files of the project SetupTestProject creates, relative to its root.
const (
	SafeMigration    = "migrations/0001_create_users.sql"
	UnsafeMigration  = "migrations/0002_drop_email.sql"
	CustomRuleFile   = ".pgcheck/rules/ban_drop_schema.star"
	CustomRuleName   = "banDropSchema"
	DropColumnRule   = "lint/safety/banDropColumn"
	DropSchemaRule   = "lint/custom/banDropSchema"
	DropSchemaText   = "Dropping schema staging"
)

// SetupTestProject creates a temporary project with a pgcheck.yaml, a
// custom rule and two migrations, the second of which drops a column and
// a schema.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	files := map[string]string{
		"pgcheck.yaml": "scope: transaction\ncustom_rules_dir: .pgcheck/rules\n",
		SafeMigration:  "CREATE TABLE IF NOT EXISTS users (id bigint PRIMARY KEY, email text);\n",
		UnsafeMigration: `BEGIN;
ALTER TABLE users DROP COLUMN email;
COMMIT;
DROP SCHEMA staging;
`,
		CustomRuleFile: `name = "banDropSchema"
description = "Disallow DROP SCHEMA."
severity = "error"

def check(stmt, ctx):
    if stmt.kind == "drop" and stmt.object_type == "schema":
        return ["Dropping schema %s deletes everything in it." % stmt.names[0]]
    return []
`,
	}

	for name, content := range files {
		path := filepath.Join(tmpDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
