package pipeline

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"toolcost/internal"
)

func sampleView(t *testing.T) internal.ComparisonView {
	t.Helper()
	a := ParseDocument("a.csv", "#Cavity\nTotal Cost,1000\nRemark,\"FOB, Shenzhen\"\nCavity,S136,,2,10,20\n")
	b := ParseDocument("b,2.csv", "#Cavity\nTotal Cost,1200\nCavity,NAK80,,2,15,30\n")
	view, err := BuildView([]internal.Document{a, b})
	require.NoError(t, err)
	return view
}

func TestWriteViewCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteViewCSV(&buf, sampleView(t)))
	require.Equal(t,
		"\n# Cavity\n"+
			"Field,a.csv,\"b,2.csv\"\n"+
			"Total Cost,1000,1200\n"+
			"Remark,\"FOB, Shenzhen\",\n",
		buf.String())
}

func TestEscapeCSV(t *testing.T) {
	require.Equal(t, "plain", escapeCSV("plain"))
	require.Equal(t, `"a,b"`, escapeCSV("a,b"))
	require.Equal(t, `"say ""hi"""`, escapeCSV(`say "hi"`))
	require.Equal(t, "\"two\nlines\"", escapeCSV("two\nlines"))
}

func TestExportViewToXLSX(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "comparison.xlsx")
	require.NoError(t, ExportViewToXLSX(sampleView(t), out))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(comparisonSheet)
	require.NoError(t, err)
	require.Equal(t, []string{"Cavity"}, rows[0])
	require.Equal(t, []string{"Field", "a.csv", "b,2.csv"}, rows[1])
	require.Equal(t, []string{"Total Cost", "1000", "1200"}, rows[2])

	// component rows are part of the workbook
	var labels []string
	for _, row := range rows {
		if len(row) > 0 {
			labels = append(labels, row[0])
		}
	}
	require.Contains(t, labels, "Cavity Unit Cost(RMB)")

	minStyle, err := f.GetCellStyle(comparisonSheet, "B3")
	require.NoError(t, err)
	maxStyle, err := f.GetCellStyle(comparisonSheet, "C3")
	require.NoError(t, err)
	require.NotZero(t, minStyle)
	require.NotEqual(t, minStyle, maxStyle)
}
