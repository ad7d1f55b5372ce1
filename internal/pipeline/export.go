package pipeline

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"toolcost/internal"
)

// WriteViewCSV writes the summary and field rows of every module. Component
// rows stay on screen and in the XLSX export only. Missing values are
// written as empty cells.
func WriteViewCSV(w io.Writer, view internal.ComparisonView) error {
	bw := bufio.NewWriter(w)

	header := make([]string, 0, len(view.Filenames)+1)
	header = append(header, "Field")
	for _, name := range view.Filenames {
		header = append(header, escapeCSV(name))
	}

	for _, module := range view.Modules {
		bw.WriteString("\n# " + module.Name + "\n")
		bw.WriteString(strings.Join(header, ",") + "\n")
		for _, row := range module.Rows {
			if row.Kind == internal.RowComponent {
				continue
			}
			cols := make([]string, 0, len(row.Cells)+1)
			cols = append(cols, escapeCSV(row.Label))
			for _, cell := range row.Cells {
				cols = append(cols, escapeCSV(cell.Value))
			}
			bw.WriteString(strings.Join(cols, ",") + "\n")
		}
	}

	return bw.Flush()
}

func escapeCSV(v string) string {
	if strings.ContainsAny(v, ",\"\n") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}

// ExportViewToXLSX writes the full view, component rows included, to one
// sheet. Minimum cells are filled green and maximum cells red.
func ExportViewToXLSX(view internal.ComparisonView, outputPath string) error {
	f, err := buildViewWorkbook(view)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// WriteViewXLSX streams the workbook instead of saving it to disk.
func WriteViewXLSX(w io.Writer, view internal.ComparisonView) error {
	f, err := buildViewWorkbook(view)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteTo(w)
	return err
}

const comparisonSheet = "Comparison"

func buildViewWorkbook(view internal.ComparisonView) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), comparisonSheet); err != nil {
		return nil, err
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}})
	if err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E9ECEF"}},
	})
	if err != nil {
		return nil, err
	}
	summaryStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	minStyle, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}}})
	if err != nil {
		return nil, err
	}
	maxStyle, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}}})
	if err != nil {
		return nil, err
	}

	r := 1
	set := func(col int, value any, style int) {
		cell, _ := excelize.CoordinatesToCellName(col, r)
		_ = f.SetCellValue(comparisonSheet, cell, value)
		if style != 0 {
			_ = f.SetCellStyle(comparisonSheet, cell, cell, style)
		}
	}

	for _, module := range view.Modules {
		set(1, module.Name, titleStyle)
		r++

		set(1, "Field", headerStyle)
		for i, name := range view.Filenames {
			set(i+2, name, headerStyle)
		}
		r++

		for _, row := range module.Rows {
			labelStyle := 0
			if row.Kind == internal.RowSummary {
				labelStyle = summaryStyle
			}
			set(1, row.Label, labelStyle)
			for i, cell := range row.Cells {
				style := 0
				switch cell.Mark {
				case internal.MarkMin:
					style = minStyle
				case internal.MarkMax:
					style = maxStyle
				}
				set(i+2, cell.Display(), style)
			}
			r++
		}
		r++
	}

	_ = f.SetColWidth(comparisonSheet, "A", "A", 32)
	return f, nil
}
