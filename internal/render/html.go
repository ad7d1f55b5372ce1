package render

import (
	"html"
	"strings"

	"toolcost/internal"
)

// HTML renders the view as one module-block per module, each holding a
// comparison-table. Cells carry the no-data, min and max classes.
func HTML(view internal.ComparisonView) string {
	var sb strings.Builder
	for _, module := range view.Modules {
		sb.WriteString(`<div class="module-block">`)
		sb.WriteString(`<div class="module-header">`)
		sb.WriteString(html.EscapeString(module.Name))
		sb.WriteString(`</div>`)
		sb.WriteString(`<table class="comparison-table">`)

		sb.WriteString(`<tr><th class="field-name">Field</th>`)
		for _, name := range view.Filenames {
			sb.WriteString(`<th>`)
			sb.WriteString(html.EscapeString(name))
			sb.WriteString(`</th>`)
		}
		sb.WriteString(`</tr>`)

		for _, row := range module.Rows {
			if row.Kind == internal.RowSummary {
				sb.WriteString(`<tr class="summary-row">`)
			} else {
				sb.WriteString(`<tr>`)
			}
			sb.WriteString(`<td class="field-name">`)
			sb.WriteString(html.EscapeString(row.Label))
			sb.WriteString(`</td>`)
			for _, cell := range row.Cells {
				if class := cellClass(cell); class != "" {
					sb.WriteString(`<td class="` + class + `">`)
				} else {
					sb.WriteString(`<td>`)
				}
				sb.WriteString(html.EscapeString(cell.Display()))
				sb.WriteString(`</td>`)
			}
			sb.WriteString(`</tr>`)
		}

		sb.WriteString(`</table></div>`)
	}
	return sb.String()
}

func cellClass(cell internal.Cell) string {
	if !cell.Present {
		return "no-data"
	}
	return string(cell.Mark)
}

// Page wraps HTML in a minimal standalone document.
func Page(view internal.ComparisonView) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Tool Cost Comparison</title>\n<style>\n")
	sb.WriteString(pageStyle)
	sb.WriteString("</style></head><body>\n")
	sb.WriteString(HTML(view))
	sb.WriteString("\n</body></html>\n")
	return sb.String()
}

const pageStyle = `body{font-family:sans-serif;margin:24px}
.module-block{margin-bottom:24px}
.module-header{font-weight:bold;font-size:1.1em;padding:6px 0}
.comparison-table{border-collapse:collapse}
.comparison-table th,.comparison-table td{border:1px solid #dee2e6;padding:4px 8px}
.comparison-table th{background:#e9ecef}
.field-name{font-weight:500}
.summary-row{font-weight:bold;background:#f8f9fa}
.no-data{color:#adb5bd}
.min{background:#c6efce}
.max{background:#ffc7ce}
`
