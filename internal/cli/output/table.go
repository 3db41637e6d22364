package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// Table renders rows under header, with an optional footer row. Text mode
// draws a box table; markdown mode writes a pipe table.
func (r *Renderer) Table(header []string, rows [][]any, footer []any) {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}
	if len(footer) > 0 {
		t.AppendFooter(table.Row(footer))
	}

	if r.EffectiveMode() == ModeMarkdown {
		r.Println(t.RenderMarkdown())
		return
	}
	r.Println(t.Render())
}
