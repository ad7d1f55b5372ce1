package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	numericNoise  = regexp.MustCompile(`[,%\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]`)
	leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
)

// ParseLooseFloat reads a cost-sheet number such as "1,250.00", "35 %" or
// "120RMB". Commas, percent signs and whitespace (Unicode spaces included)
// are removed and the longest leading float is used; anything without one
// is rejected.
func ParseLooseFloat(input string) (float64, bool) {
	cleaned := numericNoise.ReplaceAllString(input, "")
	if cleaned == "" || cleaned == "-" {
		return 0, false
	}

	unsigned := cleaned
	if unsigned[0] == '+' || unsigned[0] == '-' {
		unsigned = unsigned[1:]
	}
	if strings.HasPrefix(unsigned, "Infinity") {
		if strings.HasPrefix(cleaned, "-") {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}

	token := leadingNumber.FindString(cleaned)
	if token == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(value*100)/100, 'f', -1, 64) + " " + sizes[i]
}
