package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pgcheck/internal/cli/commands"
	"github.com/leapstack-labs/pgcheck/internal/cli/config"
	"github.com/leapstack-labs/pgcheck/internal/cli/output"
	"github.com/leapstack-labs/pgcheck/internal/cli/testutil"
)

// run executes the root command inside dir.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(dir)
	config.ResetConfig()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRoot_Check(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := run(t, dir, "check", "migrations")
	require.ErrorIs(t, err, commands.ErrCheckFailed)

	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, testutil.DropColumnRule)
	assert.Contains(t, out, testutil.DropSchemaRule)
	assert.Contains(t, out, testutil.DropSchemaText)
	assert.NotContains(t, out, "## "+filepath.FromSlash(testutil.SafeMigration))
}

func TestRoot_CheckJSON(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := run(t, dir, "--output", "json", "check", testutil.UnsafeMigration)
	require.ErrorIs(t, err, commands.ErrCheckFailed)

	var got output.CheckOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Files, 1)
	assert.Equal(t, 1, got.Summary.Files)
	assert.Positive(t, got.Summary.Errors)
}

func TestRoot_RulesDirFlag(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	empty := t.TempDir()

	out, _, err := run(t, dir, "--rules-dir", empty, "-o", "json", "check", testutil.UnsafeMigration)
	require.NoError(t, err, "without the custom rule only warnings remain")
	assert.NotContains(t, out, testutil.DropSchemaRule)
	assert.Contains(t, out, testutil.DropColumnRule)
}

func TestRoot_CustomRulesListed(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := run(t, dir, "rules", "custom")
	require.NoError(t, err)
	assert.Contains(t, out, "## Custom")
	assert.Contains(t, out, "**"+testutil.CustomRuleName+"**")
}

func TestRoot_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"output", []string{"-o", "yaml", "check"}, "invalid output format"},
		{"scope", []string{"--scope", "statement", "check"}, "invalid scope"},
		{"log level", []string{"--log-level", "loud", "check"}, "invalid log level"},
		{"log format", []string{"--log-format", "xml", "check"}, "invalid log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testutil.SetupTestProject(t)
			_, _, err := run(t, dir, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRoot_EnvOverridesFile(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Setenv("PGCHECK_SCOPE", "file")

	out, _, err := run(t, dir, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "scope: file")
	assert.Contains(t, out, "pgcheck.yaml")
}

func TestRoot_VersionSkipsConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "pgcheck.yaml"), "scope: [not, valid\n"))

	out, _, err := run(t, dir, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pgcheck v"+Version)

	_, _, err = run(t, dir, "check")
	assert.Error(t, err)
}

func TestRoot_Completion(t *testing.T) {
	out, _, err := run(t, t.TempDir(), "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "bash completion")

	_, _, err = run(t, t.TempDir(), "completion", "tcsh")
	assert.Error(t, err)
}

func TestRoot_Verbose(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, errOut, err := run(t, dir, "-v", "rules")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Using config file:")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, &config.Config{LogLevel: "warn", LogFormat: "json", Verbose: true})
	require.NoError(t, err)

	logger.Info("visible")
	logger.Debug("hidden")
	assert.Contains(t, buf.String(), `"msg":"visible"`)
	assert.NotContains(t, buf.String(), "hidden")

	_, err = newLogger(&buf, &config.Config{LogLevel: "loud"})
	assert.Error(t, err)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
