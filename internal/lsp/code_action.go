package lsp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leapstack-labs/pgcheck/pkg/suppress"
)

// handleCodeAction offers suppression comments for pgcheck lint
// diagnostics in the requested range.
func (s *Server) handleCodeAction(msg *JSONRPCMessage) error {
	var params CodeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.invalidParams(msg, err)
	}

	actions := []CodeAction{}
	doc := s.documents.Get(params.TextDocument.URI)
	if doc != nil && wantsQuickFix(params.Context.Only) {
		for _, d := range params.Context.Diagnostics {
			actions = append(actions, suppressionActions(doc, d)...)
		}
	}

	s.sendResponse(msg.ID, actions, nil)
	return nil
}

func wantsQuickFix(only []CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}
	for _, k := range only {
		if k == CodeActionKindQuickFix {
			return true
		}
	}
	return false
}

// suppressionActions builds the line and file suppression fixes for d.
func suppressionActions(doc *Document, d Diagnostic) []CodeAction {
	if d.Source != Source || !strings.HasPrefix(d.Code, "lint/") {
		return nil
	}

	line := d.Range.Start.Line
	text := doc.GetLine(int(line))
	indent := text[:len(text)-len(strings.TrimLeft(text, " \t"))]
	lineEdit := TextEdit{
		Range:   Range{Start: Position{Line: line}, End: Position{Line: line}},
		NewText: fmt.Sprintf("%s-- %s %s\n", indent, suppress.Prefix, d.Code),
	}
	fileEdit := TextEdit{
		Range:   Range{},
		NewText: fmt.Sprintf("-- %s-all %s\n", suppress.Prefix, d.Code),
	}

	return []CodeAction{
		{
			Title:       fmt.Sprintf("Suppress %s for this line", d.Code),
			Kind:        CodeActionKindQuickFix,
			Diagnostics: []Diagnostic{d},
			IsPreferred: true,
			Edit:        &WorkspaceEdit{Changes: map[string][]TextEdit{doc.URI: {lineEdit}}},
		},
		{
			Title:       fmt.Sprintf("Suppress %s for this file", d.Code),
			Kind:        CodeActionKindQuickFix,
			Diagnostics: []Diagnostic{d},
			Edit:        &WorkspaceEdit{Changes: map[string][]TextEdit{doc.URI: {fileEdit}}},
		},
	}
}
