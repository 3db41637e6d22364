package commands

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/pgcheck/internal/cli/output"
	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// fileReport holds the diagnostics of one checked file.
type fileReport struct {
	Path        string
	Content     string
	Diagnostics []lint.Diagnostic
}

// checkReport is everything one check run produced.
type checkReport struct {
	Config []lint.Diagnostic
	Files  []fileReport
}

// filter drops diagnostics less severe than minSeverity.
func (c *checkReport) filter(minSeverity lint.Severity) {
	keep := func(diags []lint.Diagnostic) []lint.Diagnostic {
		out := diags[:0:0]
		for _, d := range diags {
			if d.Severity <= minSeverity {
				out = append(out, d)
			}
		}
		return out
	}
	c.Config = keep(c.Config)
	for i := range c.Files {
		c.Files[i].Diagnostics = keep(c.Files[i].Diagnostics)
	}
}

func (c *checkReport) summary() output.CheckSummary {
	s := output.CheckSummary{Files: len(c.Files)}
	count := func(diags []lint.Diagnostic) {
		counts := lint.CountBySeverity(diags)
		s.Errors += counts[lint.SeverityError]
		s.Warnings += counts[lint.SeverityWarning]
		s.Info += counts[lint.SeverityInfo]
		s.Hints += counts[lint.SeverityHint]
	}
	count(c.Config)
	for _, f := range c.Files {
		count(f.Diagnostics)
	}
	return s
}

var titleCase = cases.Title(language.English)

// reportWriter renders check reports in the renderer's mode.
type reportWriter struct {
	r       *output.Renderer
	summary bool
}

func (w *reportWriter) write(rep *checkReport) error {
	switch w.r.EffectiveMode() {
	case output.ModeJSON:
		return w.r.JSON(jsonReport(rep))
	case output.ModeMarkdown:
		w.markdown(rep)
	default:
		w.text(rep)
	}
	return nil
}

// ---------- JSON ----------

func jsonReport(rep *checkReport) output.CheckOutput {
	out := output.CheckOutput{
		Files:   make([]output.CheckFile, 0, len(rep.Files)),
		Summary: rep.summary(),
	}
	for _, d := range rep.Config {
		out.Config = append(out.Config, jsonDiagnostic(d))
	}
	for _, f := range rep.Files {
		file := output.CheckFile{Path: f.Path, Diagnostics: make([]output.CheckDiagnostic, 0, len(f.Diagnostics))}
		for _, d := range f.Diagnostics {
			file.Diagnostics = append(file.Diagnostics, jsonDiagnostic(d))
		}
		out.Files = append(out.Files, file)
	}
	return out
}

func jsonDiagnostic(d lint.Diagnostic) output.CheckDiagnostic {
	out := output.CheckDiagnostic{
		Category:  d.Category,
		Severity:  d.Severity.String(),
		Message:   d.Message,
		Detail:    d.Detail,
		Line:      d.Pos.Line,
		Column:    d.Pos.Column,
		EndLine:   d.EndPos.Line,
		EndColumn: d.EndPos.Column,
		URL:       d.DocumentationURL,
	}
	for _, a := range d.Advices {
		out.Notes = append(out.Notes, a.Message)
	}
	return out
}

// ---------- Text ----------

func (w *reportWriter) text(rep *checkReport) {
	styles := w.r.Styles()

	if len(rep.Config) > 0 {
		w.r.Println(styles.Path.Render("configuration"))
		for _, d := range rep.Config {
			w.textDiagnostic("", d)
		}
		w.r.Println("")
	}

	for _, f := range rep.Files {
		if len(f.Diagnostics) == 0 {
			continue
		}
		w.r.Println(styles.Path.Render(f.Path))
		for _, d := range f.Diagnostics {
			w.textDiagnostic(f.Content, d)
		}
		w.r.Println("")
	}

	s := rep.summary()
	if w.summary {
		w.summaryTable(rep)
	}
	if s.Total() == 0 {
		w.r.Success(fmt.Sprintf("No problems found in %d files", s.Files))
		return
	}
	w.r.Printf("Found %s in %d files\n", countsLine(s), s.Files)
}

const indent = "           "

func (w *reportWriter) textDiagnostic(content string, d lint.Diagnostic) {
	styles := w.r.Styles()
	loc := "-"
	if d.Pos.Line > 0 {
		loc = fmt.Sprintf("%d:%d", d.Pos.Line, d.Pos.Column)
	}
	w.r.Printf("  %s  %s  %s  %s\n",
		styles.Muted.Render(fmt.Sprintf("%-7s", loc)),
		severityStyle(styles, d.Severity).Render(fmt.Sprintf("%-7s", d.Severity)),
		d.Message,
		styles.Muted.Render(d.Category),
	)
	if d.Detail != "" {
		w.r.Println(indent + styles.Muted.Render(d.Detail))
	}
	if frame := codeFrame(content, d); frame != "" {
		w.r.Println(styles.Code.Render(frame))
	}
	for _, a := range d.Advices {
		w.r.Println(indent + styles.Info.Render("note: ") + a.Message)
	}
	if d.DocumentationURL != "" {
		w.r.Println(indent + styles.Muted.Render(d.DocumentationURL))
	}
}

// codeFrame renders the first line of the diagnostic's range with a caret
// underline.
func codeFrame(content string, d lint.Diagnostic) string {
	line, ok := sourceLine(content, d.Pos.Line)
	if !ok || d.Pos.Column < 1 || d.Pos.Column-1 > len(line) {
		return ""
	}
	start := d.Pos.Column - 1
	end := len(line)
	if d.EndPos.Line == d.Pos.Line && d.EndPos.Column-1 > start && d.EndPos.Column-1 <= len(line) {
		end = d.EndPos.Column - 1
	}
	prefix := strings.Map(func(r rune) rune {
		if r == '\t' {
			return r
		}
		return ' '
	}, line[:start])
	width := max(utf8.RuneCountInString(line[start:end]), 1)

	gutter := fmt.Sprintf("%6d │ ", d.Pos.Line)
	blank := strings.Repeat(" ", 7) + "│ "
	return gutter + line + "\n" + blank + prefix + strings.Repeat("^", width)
}

func sourceLine(content string, n int) (string, bool) {
	if n < 1 {
		return "", false
	}
	for i := 1; ; i++ {
		line, rest, found := strings.Cut(content, "\n")
		if i == n {
			return strings.TrimSuffix(line, "\r"), true
		}
		if !found {
			return "", false
		}
		content = rest
	}
}

func severityStyle(styles *output.Styles, sev lint.Severity) lipgloss.Style {
	switch sev {
	case lint.SeverityError:
		return styles.Error
	case lint.SeverityWarning:
		return styles.Warning
	case lint.SeverityInfo:
		return styles.Info
	default:
		return styles.Hint
	}
}

func countsLine(s output.CheckSummary) string {
	return fmt.Sprintf("%d errors, %d warnings, %d info, %d hints", s.Errors, s.Warnings, s.Info, s.Hints)
}

// ---------- Markdown ----------

func (w *reportWriter) markdown(rep *checkReport) {
	w.r.Println("# pgcheck report")
	w.r.Println("")

	if len(rep.Config) > 0 {
		w.r.Println("## Configuration")
		w.r.Println("")
		for _, d := range rep.Config {
			w.markdownDiagnostic(d)
		}
		w.r.Println("")
	}

	for _, f := range rep.Files {
		if len(f.Diagnostics) == 0 {
			continue
		}
		w.r.Printf("## %s\n\n", f.Path)
		for _, d := range f.Diagnostics {
			w.markdownDiagnostic(d)
		}
		w.r.Println("")
	}

	s := rep.summary()
	if w.summary {
		w.summaryTable(rep)
		w.r.Println("")
	}
	if s.Total() == 0 {
		w.r.Printf("No problems found in %d files.\n", s.Files)
		return
	}
	w.r.Printf("**Summary:** %s in %d files\n", countsLine(s), s.Files)
}

func (w *reportWriter) markdownDiagnostic(d lint.Diagnostic) {
	loc := ""
	if d.Pos.Line > 0 {
		loc = fmt.Sprintf(" `%d:%d`", d.Pos.Line, d.Pos.Column)
	}
	w.r.Printf("- **%s**%s %s (`%s`)\n", titleCase.String(d.Severity.String()), loc, d.Message, d.Category)
	if d.Detail != "" {
		w.r.Println("  " + d.Detail)
	}
	for _, a := range d.Advices {
		w.r.Println("  > " + a.Message)
	}
}

// ---------- Summary table ----------

func (w *reportWriter) summaryTable(rep *checkReport) {
	rows := make([][]any, 0, len(rep.Files))
	for _, f := range rep.Files {
		counts := lint.CountBySeverity(f.Diagnostics)
		rows = append(rows, []any{
			f.Path,
			counts[lint.SeverityError],
			counts[lint.SeverityWarning],
			counts[lint.SeverityInfo],
			counts[lint.SeverityHint],
		})
	}
	s := rep.summary()
	w.r.Table(
		[]string{"File", "Errors", "Warnings", "Info", "Hints"},
		rows,
		[]any{"Total", s.Errors, s.Warnings, s.Info, s.Hints},
	)
}
