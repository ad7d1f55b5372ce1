package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSubject(t *testing.T) {
	require.Equal(t, "rfq mold 4711", NormalizeSubject("Re: FW:  RFQ   Mold 4711 "))
	require.Equal(t, "报价 a01", NormalizeSubject("回复：报价 A01"))
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "rfq_mold_4711", SanitizeFilename("rfq mold/4711"))
	require.Equal(t, "untitled", SanitizeFilename("  "))
}
