package pipeline

import (
	"strings"

	"toolcost/internal"
)

// ParseDocument reads one quotation file. The format is loose: "#" lines
// open a module, component rows fill the module's table and every other
// "key,value..." line becomes a free-form field. Lines that fit none of
// these shapes are dropped.
//
// A module header that repeats inside one file starts that module over, so
// the earlier section's values are lost. Lines before the first header
// belong to no module; they are dropped and counted in OrphanLines.
func ParseDocument(filename, text string) internal.Document {
	doc := internal.Document{
		Filename: filename,
		Modules:  map[string]*internal.ModuleRecord{},
	}

	var current *internal.ModuleRecord
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			name := strings.TrimSpace(line[1:])
			if _, seen := doc.Modules[name]; !seen {
				doc.ModuleOrder = append(doc.ModuleOrder, name)
			}
			current = internal.NewModuleRecord()
			doc.Modules[name] = current
			continue
		}

		if strings.Contains(line, ComponentTableHeader) {
			continue
		}

		parts := SplitLine(line)
		if len(parts) < 2 {
			continue
		}
		if current == nil {
			doc.OrphanLines++
			continue
		}

		key := parts[0]
		switch {
		case IsComponentName(key) && len(parts) >= 6 && key != "" && strings.ToLower(key) != componentLabel:
			current.Table = append(current.Table, componentRow(parts))
		case key == "" || isStrayHeader(line):
			// header echo or blank key
		default:
			value := strings.TrimSpace(strings.Join(parts[1:], ","))
			current.SetField(key, value)
			if IsSummaryField(key) {
				current.SetSummary(key, value)
			}
		}
	}

	return doc
}

func componentRow(parts []string) internal.ComponentRow {
	at := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	return internal.ComponentRow{
		Component: at(0),
		Material:  at(1),
		Treatment: at(2),
		Qty:       at(3),
		UnitCost:  at(4),
		TotalCost: at(5),
	}
}

// ComponentValue returns the value of one of ComponentProperties.
func ComponentValue(row internal.ComponentRow, property string) string {
	switch property {
	case PropMaterial:
		return row.Material
	case PropTreatment:
		return row.Treatment
	case PropQty:
		return row.Qty
	case PropUnitCost:
		return row.UnitCost
	case PropTotalCost:
		return row.TotalCost
	default:
		return ""
	}
}

// HasContent reports whether any module carries a field or component row.
func HasContent(doc internal.Document) bool {
	for _, m := range doc.Modules {
		if len(m.Fields) > 0 || len(m.Table) > 0 {
			return true
		}
	}
	return false
}
