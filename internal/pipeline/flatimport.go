package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ParseFlatFields reads an exported quotation CSV into one flat label →
// value map, the shape used to refill the cost entry form. Component rows
// contribute "<Name> Material" and "<Name> Treatment" entries.
func ParseFlatFields(content string) (map[string]string, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	data := map[string]string{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(row) == 0 {
			continue
		}

		first := strings.TrimSpace(strings.Trim(row[0], `"`))
		if strings.HasPrefix(first, "#") || first == "" || first == componentLabel {
			continue
		}

		norm := strings.ToLower(first)
		if isFlatComponent(norm) {
			base := capitalize(strings.ReplaceAll(norm, " ", "_"))
			if len(row) > 1 {
				if material := strings.TrimSpace(row[1]); material != "" {
					data[base+" Material"] = material
				}
			}
			if len(row) > 2 {
				if treatment := strings.TrimSpace(row[2]); treatment != "" {
					data[base+" Treatment"] = treatment
				}
			}
			continue
		}

		if len(row) >= 2 {
			value := strings.TrimSpace(strings.Trim(strings.Join(row[1:], ","), `"`))
			if value != "" && !strings.HasPrefix(first, componentLabel) {
				data[first] = value
			}
		}
	}
	return data, nil
}

func isFlatComponent(lower string) bool {
	for _, name := range ComponentNames {
		if strings.ToLower(name) == lower {
			return true
		}
	}
	return false
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// FieldMapping maps quotation CSV labels to the entry form's field ids.
var FieldMapping = buildFieldMapping()

func buildFieldMapping() map[string]string {
	m := map[string]string{
		// basic info
		"Tool Type":            "tool_type",
		"Program Name":         "program_name",
		"Part Name":            "part_name",
		"Part Number":          "part_num",
		"Part Version":         "part_version",
		"Supplier Name":        "supplier_name",
		"Quotation Date":       "quotation_date",
		"Part Raw Material":    "part_raw_material",
		"Resin Type":           "resin_type",
		"Resin Manufacturer":   "resin_manufacturer",
		"Resin Grade":          "resin_grade",
		"Moldbase size(L)/cm":  "moldbase_l",
		"Moldbase size(W)/cm":  "moldbase_w",
		"Moldbase size(H)/cm":  "moldbase_h",
		"Injection System":     "injection_system",
		"Mold Type":            "mold_type",
		"Hot Runner System":    "hot_runner_system",
		"Hot Runner Gate Type": "hot_runner_gate_type",
		"Cold runner System":   "cold_runner_system",
		"Gate Type":            "gate_type",

		// design & engineering
		"CAE design Hrs":             "cae_design_hrs",
		"CAE Rate (RMB/Hrs)":         "cae_rate",
		"Tool design Hrs":            "tool_design_hrs",
		"Tool design Rate (RMB/Hrs)": "tool_design_rate",

		// hot runner
		"Supplier":          "hr_supplier",
		"Hot Drop Qty":      "hr_qty",
		"Drop Pitch (X)/mm": "hr_pitch_x",
		"Drop Pitch (Y)/mm": "hr_pitch_y",
		"HR Cost (RMB)":     "hr_cost",

		// assembly & fitting
		"Tool Maker Qty":             "tool_maker_qty",
		"Tool Assy Hrs":              "tool_assy_hrs",
		"Assy Working Rate/hr (RMB)": "assy_rate",

		// molding trial
		"Labor: Trial Pers":               "trial_pers",
		"Labor: Trial Rate (RMB/Hrs)":     "trial_rate",
		"Labor: Trial Hrs":                "trial_hrs_labor",
		"Machine: Machines Used":          "machine_qty",
		"Machine: Machine Rate (RMB/Hrs)": "machine_rate",
		"Machine: Trial Hrs":              "trial_hrs_machine",

		// others & profit
		"Description":       "others_description",
		"Cost (RMB)":        "others_cost",
		"Profit Cost (RMB)": "profit_cost",
	}

	for _, name := range ComponentNames {
		key := strings.ReplaceAll(strings.ToLower(name), " ", "_")
		m[capitalize(key)+" Material"] = key + "_material"
		m[capitalize(key)+" Treatment"] = key + "_treatment"
	}
	return m
}

// MapToFormFields keeps the labels FieldMapping knows, keyed by form id.
func MapToFormFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for label, value := range fields {
		if id, ok := FieldMapping[label]; ok {
			out[id] = value
		}
	}
	return out
}
