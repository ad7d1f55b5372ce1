package pipeline

import "strings"

// SplitLine splits one quotation line on commas that sit outside double
// quotes. A quote only toggles the quoted state, so `"a""b"` reads as `ab`.
// An unterminated quote keeps the rest of the line in the last field.
func SplitLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	return append(fields, strings.TrimSpace(current.String()))
}
