package render

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"toolcost/internal"
)

func sampleView() internal.ComparisonView {
	return internal.ComparisonView{
		Filenames: []string{"a.csv", "b<1>.csv"},
		Modules: []internal.ModuleView{{
			Name: "Cavity",
			Rows: []internal.ComparisonRow{
				{
					Kind: internal.RowSummary, Label: "Total Cost", Key: "Total Cost", Numeric: true,
					Cells: []internal.Cell{
						{Value: "100", Present: true, Mark: internal.MarkMax},
						{Value: "80", Present: true, Mark: internal.MarkMin},
					},
				},
				{
					Kind: internal.RowField, Label: "Remark", Key: "Remark",
					Cells: []internal.Cell{{Value: "ok", Present: true}, {}},
				},
			},
		}},
	}
}

func TestHTMLStructure(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(HTML(sampleView())))
	require.NoError(t, err)

	require.Equal(t, 1, doc.Find("div.module-block").Length())
	require.Equal(t, "Cavity", doc.Find(".module-header").Text())

	headers := doc.Find("table.comparison-table th")
	require.Equal(t, 3, headers.Length())
	require.Equal(t, "b<1>.csv", headers.Eq(2).Text())

	summary := doc.Find("tr.summary-row")
	require.Equal(t, 1, summary.Length())
	require.Equal(t, "Total Cost", summary.Find("td.field-name").Text())
	require.Equal(t, "80", summary.Find("td.min").Text())
	require.Equal(t, "100", summary.Find("td.max").Text())

	noData := doc.Find("td.no-data")
	require.Equal(t, 1, noData.Length())
	require.Equal(t, "-", noData.Text())
}

func TestPageWrapsFragment(t *testing.T) {
	page := Page(sampleView())
	require.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	require.Contains(t, page, `<div class="module-block">`)
}

func TestTerminalContainsValues(t *testing.T) {
	out := Terminal(sampleView())
	require.Contains(t, out, "Cavity")
	require.Contains(t, out, "Field")
	require.Contains(t, out, "Total Cost")
	require.Contains(t, out, "80")
	require.Contains(t, out, "b<1>.csv")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	// title, header, divider, two rows
	require.Len(t, lines, 5)
	require.Contains(t, lines[4], "-")
}
