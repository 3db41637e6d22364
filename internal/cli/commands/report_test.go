package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/pgcheck/internal/cli/output"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
	"github.com/leapstack-labs/pgcheck/pkg/token"
)

func diag(sev lint.Severity, line, col, endCol int) lint.Diagnostic {
	return lint.Diagnostic{
		Category: "lint/safety/banDropColumn",
		Severity: sev,
		Message:  "Dropping column email may break existing clients.",
		Pos:      token.Position{Line: line, Column: col},
		EndPos:   token.Position{Line: line, Column: endCol},
	}
}

func TestSourceLine(t *testing.T) {
	content := "first\r\nsecond\nthird"
	tests := []struct {
		n      int
		want   string
		wantOK bool
	}{
		{1, "first", true},
		{2, "second", true},
		{3, "third", true},
		{4, "", false},
		{0, "", false},
	}
	for _, tt := range tests {
		got, ok := sourceLine(content, tt.n)
		assert.Equal(t, tt.wantOK, ok, "line %d", tt.n)
		assert.Equal(t, tt.want, got, "line %d", tt.n)
	}
}

func TestCodeFrame(t *testing.T) {
	content := "SELECT 1;\nALTER TABLE t DROP COLUMN c;\n"

	tests := []struct {
		name string
		d    lint.Diagnostic
		want string
	}{
		{
			name: "range on one line",
			d:    diag(lint.SeverityWarning, 2, 15, 28),
			want: "     2 │ ALTER TABLE t DROP COLUMN c;\n       │ " + strings.Repeat(" ", 14) + strings.Repeat("^", 13),
		},
		{
			name: "range past the line",
			d:    diag(lint.SeverityWarning, 2, 27, 0),
			want: "     2 │ ALTER TABLE t DROP COLUMN c;\n       │ " + strings.Repeat(" ", 26) + "^^",
		},
		{
			name: "empty range",
			d:    diag(lint.SeverityWarning, 1, 10, 10),
			want: "     1 │ SELECT 1;\n       │ " + strings.Repeat(" ", 9) + "^",
		},
		{
			name: "no position",
			d:    diag(lint.SeverityWarning, 0, 0, 0),
		},
		{
			name: "line out of range",
			d:    diag(lint.SeverityWarning, 9, 1, 2),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codeFrame(content, tt.d))
		})
	}
}

func TestCheckReport_FilterAndSummary(t *testing.T) {
	rep := &checkReport{
		Config: []lint.Diagnostic{{Category: lint.CategoryConfig, Severity: lint.SeverityError}},
		Files: []fileReport{
			{Path: "a.sql", Diagnostics: []lint.Diagnostic{
				diag(lint.SeverityWarning, 1, 1, 2),
				diag(lint.SeverityHint, 2, 1, 2),
			}},
			{Path: "b.sql", Diagnostics: []lint.Diagnostic{diag(lint.SeverityInfo, 1, 1, 2)}},
		},
	}

	assert.Equal(t, output.CheckSummary{Files: 2, Errors: 1, Warnings: 1, Info: 1, Hints: 1}, rep.summary())

	rep.filter(lint.SeverityWarning)
	s := rep.summary()
	assert.Equal(t, output.CheckSummary{Files: 2, Errors: 1, Warnings: 1}, s)
	assert.Equal(t, 2, s.Total())
	assert.Empty(t, rep.Files[1].Diagnostics)
}

func TestJSONReport(t *testing.T) {
	d := diag(lint.SeverityWarning, 2, 15, 28)
	d.Detail = "Clients still reading the column will fail."
	d.DocumentationURL = "https://example.com/rules/ban-drop-column"
	d.Advices = []lint.Advice{{Message: "Stop reading the column first."}}

	got := jsonReport(&checkReport{Files: []fileReport{{Path: "a.sql", Diagnostics: []lint.Diagnostic{d}}}})

	assert.Empty(t, got.Config)
	assert.Equal(t, output.CheckSummary{Files: 1, Warnings: 1}, got.Summary)
	assert.Equal(t, []output.CheckFile{{
		Path: "a.sql",
		Diagnostics: []output.CheckDiagnostic{{
			Category:  "lint/safety/banDropColumn",
			Severity:  "warning",
			Message:   "Dropping column email may break existing clients.",
			Detail:    "Clients still reading the column will fail.",
			Line:      2,
			Column:    15,
			EndLine:   2,
			EndColumn: 28,
			URL:       "https://example.com/rules/ban-drop-column",
			Notes:     []string{"Stop reading the column first."},
		}},
	}}, got.Files)
}

func TestReportWriter_Markdown(t *testing.T) {
	d := diag(lint.SeverityError, 3, 2, 5)
	d.Detail = "detail text"
	d.Advices = []lint.Advice{{Message: "advice text"}}
	rep := &checkReport{
		Config: []lint.Diagnostic{{Category: lint.CategoryConfig, Severity: lint.SeverityWarning, Message: "bad option"}},
		Files:  []fileReport{{Path: "a.sql", Diagnostics: []lint.Diagnostic{d}}, {Path: "clean.sql"}},
	}

	var buf bytes.Buffer
	w := &reportWriter{r: output.NewRendererWithTTY(&buf, &buf, false, output.ModeMarkdown)}
	assert.NoError(t, w.write(rep))

	out := buf.String()
	assert.Contains(t, out, "## Configuration\n\n- **Warning** bad option (`config`)")
	assert.Contains(t, out, "## a.sql\n\n- **Error** `3:2` Dropping column email")
	assert.Contains(t, out, "  detail text\n  > advice text\n")
	assert.NotContains(t, out, "clean.sql")
	assert.Contains(t, out, "**Summary:** 1 errors, 1 warnings, 0 info, 0 hints in 2 files")
}

func TestReportWriter_TextNoProblems(t *testing.T) {
	var buf bytes.Buffer
	w := &reportWriter{r: output.NewRendererWithTTY(&buf, &buf, false, output.ModeText)}
	assert.NoError(t, w.write(&checkReport{Files: []fileReport{{Path: "a.sql"}}}))
	assert.Contains(t, buf.String(), "No problems found in 1 files")
}
