package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath          string
	DataDir         string
	RawMailDir      string
	OutputDir       string
	FormOptionsXLSX string

	ListenAddr      string
	UploadMaxMB     int
	CompareMaxFiles int

	AppEnv    string
	LogLevel  string
	LogFormat string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailListenerProvider     string
	MailListenerLabel        string
	MailListenerIntervalSec  int
	MailListenerFetchMax     int
	MailListenerProcessBatch int
	MailListenerAutoCompare  bool

	WatchDebounceMs int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	dataDir := getEnv("DATA_DIR", filepath.Join(cwd, "data"))
	cfg := Config{
		DBPath:          getEnv("DB_PATH", filepath.Join(dataDir, "tool_cost.db")),
		DataDir:         dataDir,
		RawMailDir:      getEnv("MAIL_RAW_DIR", filepath.Join(dataDir, "raw")),
		OutputDir:       getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		FormOptionsXLSX: getEnv("FORM_OPTIONS_XLSX", filepath.Join(dataDir, "Tool_CBD.xlsx")),

		ListenAddr:      getEnv("LISTEN_ADDR", "0.0.0.0:5000"),
		UploadMaxMB:     getEnvInt("UPLOAD_MAX_MB", 32),
		CompareMaxFiles: getEnvInt("COMPARE_MAX_FILES", 5),

		AppEnv:    strings.ToLower(getEnv("APP_ENV", "production")),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailListenerProvider:     getEnv("MAIL_LISTENER_PROVIDER", "imap"),
		MailListenerLabel:        getEnv("MAIL_LISTENER_LABEL", "INBOX"),
		MailListenerIntervalSec:  getEnvInt("MAIL_LISTENER_INTERVAL_SEC", 60),
		MailListenerFetchMax:     getEnvInt("MAIL_LISTENER_FETCH_MAX", 20),
		MailListenerProcessBatch: getEnvInt("MAIL_LISTENER_PROCESS_BATCH", 20),
		MailListenerAutoCompare:  getEnvBool("MAIL_LISTENER_AUTO_COMPARE", true),

		WatchDebounceMs: getEnvInt("WATCH_DEBOUNCE_MS", 500),
	}

	if cfg.CompareMaxFiles < 2 {
		return Config{}, fmt.Errorf("COMPARE_MAX_FILES must be at least 2, got %d", cfg.CompareMaxFiles)
	}

	return cfg, nil
}

func (c Config) Development() bool {
	return c.AppEnv == "development"
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
