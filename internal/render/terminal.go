// Package render draws a comparison view for a terminal or a web page.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"toolcost/internal"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	summaryStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	minStyle     = cellStyle.Foreground(lipgloss.Color("2"))
	maxStyle     = cellStyle.Foreground(lipgloss.Color("1"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	noDataStyle  = cellStyle.Foreground(lipgloss.Color("8"))
)

// Terminal renders one table per module: a Field column and one column per
// file. Lowest values are green, highest red, missing cells muted.
func Terminal(view internal.ComparisonView) string {
	var sb strings.Builder
	for _, module := range view.Modules {
		sb.WriteString(moduleTable(module, view.Filenames))
	}
	return sb.String()
}

func moduleTable(module internal.ModuleView, filenames []string) string {
	headers := append([]string{"Field"}, filenames...)

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range module.Rows {
		if w := lipgloss.Width(row.Label); w > widths[0] {
			widths[0] = w
		}
		for i, cell := range row.Cells {
			if i+1 < len(widths) {
				if w := lipgloss.Width(cell.Display()); w > widths[i+1] {
					widths[i+1] = w
				}
			}
		}
	}
	// lipgloss Width includes padding
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(module.Name))
	sb.WriteString("\n")

	sep := mutedStyle.Render("|")
	for i, h := range headers {
		sb.WriteString(headerStyle.Width(widths[i]).Render(h))
		if i < len(headers)-1 {
			sb.WriteString(sep)
		}
	}
	sb.WriteString("\n")

	total := len(headers) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(mutedStyle.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for _, row := range module.Rows {
		label := cellStyle
		if row.Kind == internal.RowSummary {
			label = summaryStyle
		}
		sb.WriteString(label.Width(widths[0]).Render(row.Label))
		for i, cell := range row.Cells {
			if i+1 >= len(widths) {
				break
			}
			sb.WriteString(sep)
			sb.WriteString(styleFor(cell).Width(widths[i+1]).Render(cell.Display()))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func styleFor(cell internal.Cell) lipgloss.Style {
	switch {
	case !cell.Present:
		return noDataStyle
	case cell.Mark == internal.MarkMin:
		return minStyle
	case cell.Mark == internal.MarkMax:
		return maxStyle
	default:
		return cellStyle
	}
}
