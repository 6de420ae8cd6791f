package config

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the server configuration
type Config struct {
	HTTPAddr        string
	DBDriver        string
	DBDSN           string
	WeddingTTL      time.Duration
	CodeLength      int
	CodeAttempts    int
	WhatsAppEnabled bool
	WhatsAppDataDir string
	LogLevel        string
	LogPretty       bool
}

// ClientConfig holds the configuration of the command line client
type ClientConfig struct {
	APIURL        string
	StateDir      string
	SessionTTL    time.Duration
	ProbeInterval time.Duration
	HTTPTimeout   time.Duration
	LogLevel      string
	LogPretty     bool
}

// LoadConfig loads server configuration from environment variables or defaults
func LoadConfig() *Config {
	return &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DBDriver:        getEnv("DB_DRIVER", "sqlite3"),
		DBDSN:           getEnv("DB_DSN", "file:data/wedding.db?_foreign_keys=on"),
		WeddingTTL:      getEnvDuration("WEDDING_TTL", 15*24*time.Hour),
		CodeLength:      getEnvInt("CODE_LENGTH", 6),
		CodeAttempts:    getEnvInt("CODE_ATTEMPTS", 6),
		WhatsAppEnabled: getEnvBool("WHATSAPP_ENABLED", false),
		WhatsAppDataDir: getEnv("WHATSAPP_DATA_DIR", "data"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       getEnvBool("LOG_PRETTY", false),
	}
}

// LoadClientConfig loads client configuration from environment variables or defaults
func LoadClientConfig() *ClientConfig {
	return &ClientConfig{
		APIURL:        strings.TrimRight(getEnv("WEDDING_API_URL", "http://localhost:8080/api"), "/"),
		StateDir:      expandHome(getEnv("WEDDING_STATE_DIR", "~/.wedding-planner")),
		SessionTTL:    getEnvDuration("SESSION_TTL", 5*24*time.Hour),
		ProbeInterval: getEnvDuration("PROBE_INTERVAL", 5*time.Second),
		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		LogLevel:      getEnv("LOG_LEVEL", "warn"),
		LogPretty:     getEnvBool("LOG_PRETTY", true),
	}
}

// NewLogger builds the root logger. Components derive their own with
// .With().Str("component", ...).
func NewLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
