package oracle

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds all pipeline-runner configuration values.
type Config struct {
	APIBaseURL     string
	PipelineAPIKey string
	LogLevel       slog.Level
	RequestTimeout time.Duration
	RunScheduler   bool
	BaseCurrency   string // portfolios' common reporting currency for FX pairs
}

// LoadConfig reads configuration from environment variables and validates
// required fields.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.APIBaseURL = os.Getenv("VALORE_API_URL")
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("VALORE_API_URL is required")
	}

	cfg.PipelineAPIKey = os.Getenv("PIPELINE_API_KEY")
	if cfg.PipelineAPIKey == "" {
		return nil, fmt.Errorf("PIPELINE_API_KEY is required")
	}

	level, err := parseLogLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	timeout, err := parseTimeout(os.Getenv("REQUEST_TIMEOUT"))
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout = timeout

	scheduler, err := parseBool(os.Getenv("RUN_PAC_SCHEDULER"), true)
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_PAC_SCHEDULER value: %w", err)
	}
	cfg.RunScheduler = scheduler

	cfg.BaseCurrency = strings.ToUpper(os.Getenv("BASE_CURRENCY"))
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = "EUR"
	}

	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: must be debug, info, warn, or error", s)
	}
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %v", d)
	}
	return d, nil
}

func parseBool(s string, defaultVal bool) (bool, error) {
	if s == "" {
		return defaultVal, nil
	}
	switch strings.ToLower(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("must be true, false, 1, or 0, got %q", s)
	}
}
