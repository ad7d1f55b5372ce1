package pipeline

import (
	"errors"
	"sort"

	"toolcost/internal"
	"toolcost/internal/util"
)

var ErrTooFewFiles = errors.New("at least 2 quotation files are required to compare")

// BuildView merges parsed documents into one row-per-field comparison with a
// cell per document. Modules are sorted by name. Inside a module the summary
// rows come first in first-seen order, then the remaining fields sorted by
// name, then five rows per component in first-seen order.
func BuildView(docs []internal.Document) (internal.ComparisonView, error) {
	if len(docs) < 2 {
		return internal.ComparisonView{}, ErrTooFewFiles
	}

	view := internal.ComparisonView{
		Filenames: make([]string, 0, len(docs)),
		Modules:   []internal.ModuleView{},
	}
	for _, doc := range docs {
		view.Filenames = append(view.Filenames, doc.Filename)
	}

	for _, name := range moduleNames(docs) {
		view.Modules = append(view.Modules, buildModuleView(docs, name))
	}
	return view, nil
}

func moduleNames(docs []internal.Document) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, doc := range docs {
		for name := range doc.Modules {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func buildModuleView(docs []internal.Document, module string) internal.ModuleView {
	mv := internal.ModuleView{Name: module, Rows: []internal.ComparisonRow{}}

	for _, key := range summaryKeys(docs, module) {
		values := collect(docs, module, func(m *internal.ModuleRecord) string { return m.Summary[key] })
		mv.Rows = append(mv.Rows, newRow(internal.RowSummary, key, key, IsNumericField(key), values))
	}

	for _, key := range fieldKeys(docs, module) {
		values := collect(docs, module, func(m *internal.ModuleRecord) string { return m.Fields[key] })
		mv.Rows = append(mv.Rows, newRow(internal.RowField, key, key, IsNumericField(key), values))
	}

	for _, component := range componentNames(docs, module) {
		for _, prop := range ComponentProperties {
			values := collect(docs, module, func(m *internal.ModuleRecord) string {
				row, ok := m.FindComponent(component)
				if !ok {
					return ""
				}
				return ComponentValue(row, prop)
			})
			row := newRow(internal.RowComponent, component+" "+prop, prop, IsNumericProperty(prop), values)
			row.Component = component
			row.Property = prop
			mv.Rows = append(mv.Rows, row)
		}
	}

	return mv
}

func summaryKeys(docs []internal.Document, module string) []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, doc := range docs {
		m := doc.Module(module)
		if m == nil {
			continue
		}
		for _, key := range m.SummaryOrder {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

func fieldKeys(docs []internal.Document, module string) []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, doc := range docs {
		m := doc.Module(module)
		if m == nil {
			continue
		}
		for key := range m.Fields {
			if IsSummaryField(key) {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func componentNames(docs []internal.Document, module string) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, doc := range docs {
		m := doc.Module(module)
		if m == nil {
			continue
		}
		for _, row := range m.Table {
			if _, ok := seen[row.Component]; ok {
				continue
			}
			seen[row.Component] = struct{}{}
			names = append(names, row.Component)
		}
	}
	return names
}

func collect(docs []internal.Document, module string, pick func(*internal.ModuleRecord) string) []string {
	values := make([]string, len(docs))
	for i, doc := range docs {
		if m := doc.Module(module); m != nil {
			values[i] = pick(m)
		}
	}
	return values
}

func newRow(kind internal.RowKind, label, key string, numeric bool, values []string) internal.ComparisonRow {
	row := internal.ComparisonRow{
		Kind:    kind,
		Label:   label,
		Key:     key,
		Numeric: numeric,
		Cells:   make([]internal.Cell, len(values)),
	}
	for i, v := range values {
		row.Cells[i] = internal.Cell{Value: v, Present: v != ""}
	}
	if numeric {
		for i, mark := range HighlightMinMax(values) {
			row.Cells[i].Mark = mark
		}
	}
	return row
}

// HighlightMinMax marks the lowest and highest numeric values of a row.
// Cells that do not parse as numbers are ignored. Nothing is marked when
// fewer than two numbers remain or when they are all equal; ties mark every
// cell holding the extreme value.
func HighlightMinMax(values []string) []internal.CellMark {
	marks := make([]internal.CellMark, len(values))
	nums := make([]float64, len(values))
	ok := make([]bool, len(values))

	count := 0
	var lo, hi float64
	for i, v := range values {
		if v == "" || v == internal.NoData {
			continue
		}
		n, parsed := util.ParseLooseFloat(v)
		if !parsed {
			continue
		}
		nums[i], ok[i] = n, true
		if count == 0 || n < lo {
			lo = n
		}
		if count == 0 || n > hi {
			hi = n
		}
		count++
	}

	if count < 2 || lo == hi {
		return marks
	}

	for i := range values {
		if !ok[i] {
			continue
		}
		switch nums[i] {
		case lo:
			marks[i] = internal.MarkMin
		case hi:
			marks[i] = internal.MarkMax
		}
	}
	return marks
}
