package lsp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leapstack-labs/pgcheck/internal/workspace"
)

// handleHover describes the statement under the cursor: its identity and
// the transaction state the statement runs in.
func (s *Server) handleHover(msg *JSONRPCMessage) error {
	var params HoverParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.invalidParams(msg, err)
	}

	uri := params.TextDocument.URI
	doc := s.documents.Get(uri)
	res := s.result(uri)
	if doc == nil || res == nil {
		s.sendResponse(msg.ID, nil, nil)
		return nil
	}

	stmt, ok := res.StatementAt(doc.PositionToOffset(params.Position))
	if !ok {
		s.sendResponse(msg.ID, nil, nil)
		return nil
	}

	r := Range{
		Start: doc.OffsetToPosition(stmt.Range.Start),
		End:   doc.OffsetToPosition(stmt.Range.End),
	}
	s.sendResponse(msg.ID, &Hover{
		Contents: MarkupContent{Kind: MarkupKindMarkdown, Value: hoverMarkdown(stmt)},
		Range:    &r,
	}, nil)
	return nil
}

func hoverMarkdown(stmt workspace.Statement) string {
	kind := stmt.Kind
	if stmt.Node == nil || kind == "" {
		kind = "unparsed"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** `%s`\n\n", kind, stmt.ID.String())

	st := stmt.State
	fmt.Fprintf(&sb, "- Transaction: %s\n", st.Mode)
	fmt.Fprintf(&sb, "- Statement %d of %d in scope %d\n", st.StatementsInScope+1, stmt.ScopeSize, st.Scope)
	fmt.Fprintf(&sb, "- Held lock: %s\n", st.HeldLockLevel)
	if st.LockTimeoutSet {
		sb.WriteString("- lock_timeout: set\n")
	} else {
		sb.WriteString("- lock_timeout: not set\n")
	}
	return sb.String()
}
