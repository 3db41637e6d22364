package lsp

import (
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/lint"
)

// publishDiagnostics analyzes the document and publishes its diagnostics.
// Only SQL files are analyzed; other documents get an empty list.
func (s *Server) publishDiagnostics(uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}

	diagnostics := []Diagnostic{}
	ws := s.workspace()

	if strings.HasSuffix(strings.ToLower(uri), ".sql") && ws != nil {
		res, err := ws.Analyze(s.ctx, URIToPath(uri), doc.Content)
		if err != nil {
			s.logger.Error("Analysis failed", "uri", uri, "error", err)
		} else {
			s.storeResult(uri, res)
			diagnostics = convertDiagnostics(doc, res.Diagnostics)
		}
	}

	version := doc.Version
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: diagnostics,
	})
}

// convertDiagnostics converts analysis diagnostics to LSP diagnostics.
func convertDiagnostics(doc *Document, diags []lint.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, convertDiagnostic(doc, d))
	}
	return out
}

func convertDiagnostic(doc *Document, d lint.Diagnostic) Diagnostic {
	diag := Diagnostic{
		Range:    doc.SpanToRange(d.Pos, d.EndPos),
		Severity: mapSeverity(d.Severity),
		Code:     d.Category,
		Source:   Source,
		Message:  diagnosticMessage(d),
	}
	if d.DocumentationURL != "" {
		diag.CodeDescription = &CodeDescription{Href: d.DocumentationURL}
	}
	return diag
}

// diagnosticMessage joins the message with its detail and notes.
func diagnosticMessage(d lint.Diagnostic) string {
	var sb strings.Builder
	sb.WriteString(d.Message)
	if d.Detail != "" {
		sb.WriteString("\n")
		sb.WriteString(d.Detail)
	}
	for _, a := range d.Advices {
		sb.WriteString("\nnote: ")
		sb.WriteString(a.Message)
	}
	return sb.String()
}

// mapSeverity converts lint severity to LSP severity.
func mapSeverity(sev lint.Severity) DiagnosticSeverity {
	switch sev {
	case lint.SeverityError:
		return DiagnosticSeverityError
	case lint.SeverityWarning:
		return DiagnosticSeverityWarning
	case lint.SeverityInfo:
		return DiagnosticSeverityInformation
	case lint.SeverityHint:
		return DiagnosticSeverityHint
	default:
		return DiagnosticSeverityWarning
	}
}
