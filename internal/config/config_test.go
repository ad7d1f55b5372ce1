package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("COMPARE_MAX_FILES", "")
	t.Setenv("IMAP_SECURE", "")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5, cfg.CompareMaxFiles)
	require.True(t, cfg.IMAPSecure)
	require.Equal(t, "INBOX", cfg.MailListenerLabel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COMPARE_MAX_FILES", "3")
	t.Setenv("IMAP_SECURE", "off")
	t.Setenv("APP_ENV", "Development")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3, cfg.CompareMaxFiles)
	require.False(t, cfg.IMAPSecure)
	require.True(t, cfg.Development())
}

func TestLoadRejectsTinyCompareLimit(t *testing.T) {
	t.Setenv("COMPARE_MAX_FILES", "1")
	_, err := Load()
	require.Error(t, err)
}

func TestRequire(t *testing.T) {
	var cfg Config
	require.Error(t, cfg.Require("IMAP_HOST", "  "))
	require.NoError(t, cfg.Require("IMAP_HOST", "imap.example.com"))
}
