// Package catalog loads the dropdown option lists of the cost entry form.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

const optionsSheet = "List"

// FormOptions maps a form select id to its allowed values.
type FormOptions map[string][]string

// optionColumns pairs the header used in the options workbook with the id
// of the form select it feeds.
var optionColumns = []struct {
	header string
	key    string
}{
	{"Tool type", "tool_type"},
	{"Injection system", "injection_system"},
	{"Mold type", "mold_type"},
	{"Hot runner system", "hot_runner_system"},
	{"Cold runner system", "cold_runner_system"},
	{"Gate type", "gate_type"},
	{"Hot runner gate type", "hot_runner_gate_type"},
}

// DefaultFormOptions is served when no options workbook is installed.
func DefaultFormOptions() FormOptions {
	return FormOptions{
		"tool_type":            {"Injection"},
		"injection_system":     {"Hot Runner", "Cold Runner"},
		"mold_type":            {"2 Plate", "3 Plate"},
		"hot_runner_system":    {"Synventive", "Husky"},
		"cold_runner_system":   {"Standard"},
		"gate_type":            {"Edge", "Submarine"},
		"hot_runner_gate_type": {"Direct"},
	}
}

// LoadFormOptions reads the "List" sheet of the options workbook. Each known
// column yields its unique non-empty values in sheet order. A missing
// workbook yields DefaultFormOptions.
func LoadFormOptions(path string) (FormOptions, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return DefaultFormOptions(), nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open options workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(optionsSheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", optionsSheet, err)
	}

	out := FormOptions{}
	for _, col := range optionColumns {
		out[col.key] = []string{}
	}
	if len(rows) == 0 {
		return out, nil
	}

	index := map[string]int{}
	for i, h := range rows[0] {
		index[strings.TrimSpace(h)] = i
	}

	for _, col := range optionColumns {
		i, ok := index[col.header]
		if !ok {
			continue
		}
		seen := map[string]struct{}{}
		for _, row := range rows[1:] {
			if i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out[col.key] = append(out[col.key], v)
		}
	}
	return out, nil
}
