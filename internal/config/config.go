package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const DefaultSourceURL = "https://www.fsc.bg/en/investment-avtivity/lists-of-supervised-entities/investment-firms/"

type Config struct {
	DBPath    string
	OutputDir string

	SourceURL     string
	UserAgent     string
	HTTPTimeoutMs int

	NERBaseURL      string
	NERModel        string
	NERThreshold    float64
	NERAPIToken     string
	NERTimeoutMs    int
	NERRateLimitRPS float64
	NERCache        bool
	TaxonomyPath    string

	OutputCSV   string
	OutputXLSX  string
	Workers     int
	PreviewRows int

	APIAddr             string
	ListenerIntervalSec int

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "fscner.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		SourceURL:     getEnv("FSC_SOURCE_URL", DefaultSourceURL),
		UserAgent:     getEnv("FSC_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"),
		HTTPTimeoutMs: getEnvInt("FSC_HTTP_TIMEOUT_MS", 30000),

		NERBaseURL:      getEnv("NER_BASE_URL", "http://localhost:8080"),
		NERModel:        getEnv("NER_MODEL", "urchade/gliner_large-v2.1"),
		NERThreshold:    getEnvFloat("NER_THRESHOLD", 0.5),
		NERAPIToken:     getEnv("NER_API_TOKEN", ""),
		NERTimeoutMs:    getEnvInt("NER_TIMEOUT_MS", 120000),
		NERRateLimitRPS: getEnvFloat("NER_RATE_LIMIT_RPS", 0),
		NERCache:        getEnvBool("NER_CACHE", false),
		TaxonomyPath:    getEnv("TAXONOMY_PATH", ""),

		OutputCSV:   getEnv("OUTPUT_CSV", "fsc_companies_ner.csv"),
		OutputXLSX:  getEnv("OUTPUT_XLSX", ""),
		Workers:     getEnvInt("WORKERS", 1),
		PreviewRows: getEnvInt("PREVIEW_ROWS", 5),

		APIAddr:             getEnv("API_ADDR", ":8090"),
		ListenerIntervalSec: getEnvInt("LISTENER_INTERVAL_SEC", 24*60*60),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.NERThreshold <= 0 || cfg.NERThreshold > 1 {
		return Config{}, fmt.Errorf("NER_THRESHOLD must be in (0, 1], got %v", cfg.NERThreshold)
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// ResolveOutput places relative output paths under OutputDir.
func (c Config) ResolveOutput(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.OutputDir, path)
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	var handler slog.Handler
	if strings.EqualFold(c.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
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

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
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
