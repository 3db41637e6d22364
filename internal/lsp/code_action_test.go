package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuppressionActions(t *testing.T) {
	doc := newDocument("file:///db/0001.sql", "\tDROP TABLE users;\n", 1)

	tests := []struct {
		name  string
		diag  Diagnostic
		count int
	}{
		{"lint diagnostic", Diagnostic{Code: "lint/safety/banDropTable", Source: Source}, 2},
		{"syntax error", Diagnostic{Code: "syntax", Source: Source}, 0},
		{"suppression problem", Diagnostic{Code: "suppressions", Source: Source}, 0},
		{"other server", Diagnostic{Code: "lint/safety/banDropTable", Source: "sqlls"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := suppressionActions(doc, tt.diag)
			assert.Len(t, actions, tt.count)
		})
	}

	actions := suppressionActions(doc, Diagnostic{Code: "lint/safety/banDropTable", Source: Source})
	assert.Equal(t, "\t-- pgcheck-ignore lint/safety/banDropTable\n", actions[0].Edit.Changes[doc.URI][0].NewText)
}

func TestWantsQuickFix(t *testing.T) {
	tests := []struct {
		only []CodeActionKind
		want bool
	}{
		{nil, true},
		{[]CodeActionKind{CodeActionKindQuickFix}, true},
		{[]CodeActionKind{"refactor", CodeActionKindQuickFix}, true},
		{[]CodeActionKind{"source.organizeImports"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wantsQuickFix(tt.only), "%v", tt.only)
	}
}
