package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLooseFloat(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "plain", input: "120.50", want: 120.5},
		{name: "thousands comma", input: "1,250.00", want: 1250},
		{name: "percent", input: "35 %", want: 35},
		{name: "trailing unit", input: "120RMB", want: 120},
		{name: "negative", input: "-4.5", want: -4.5},
		{name: "leading dot", input: ".5", want: 0.5},
		{name: "exponent", input: "1e3", want: 1000},
		{name: "no-break space", input: "1\u00a0200", want: 1200},
		{name: "ideographic space", input: "1\u3000200", want: 1200},
		{name: "narrow no-break space", input: "2\u202f500.5", want: 2500.5},
		{name: "byte order mark", input: "\ufeff42", want: 42},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseLooseFloat(tc.input)
			require.True(t, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseLooseFloatRejects(t *testing.T) {
	for _, input := range []string{"", "-", "Steel", "  ", "N/A", "\u00a0", "--Infinity", "+-Infinity", "--5"} {
		_, ok := ParseLooseFloat(input)
		require.False(t, ok, "input %q", input)
	}
}

func TestParseLooseFloatInfinity(t *testing.T) {
	got, ok := ParseLooseFloat("-Infinity")
	require.True(t, ok)
	require.True(t, math.IsInf(got, -1))

	got, ok = ParseLooseFloat("+Infinity")
	require.True(t, ok)
	require.True(t, math.IsInf(got, 1))
}

func TestFormatFileSize(t *testing.T) {
	require.Equal(t, "0 Bytes", FormatFileSize(0))
	require.Equal(t, "512 Bytes", FormatFileSize(512))
	require.Equal(t, "1.5 KB", FormatFileSize(1536))
	require.Equal(t, "2 MB", FormatFileSize(2*1024*1024))
}
