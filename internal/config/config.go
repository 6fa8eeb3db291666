// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultUndoDepth is the number of adjustments kept per chat for /undo.
const DefaultUndoDepth = 100

// DefaultLimitResetTimezone is used for the limit reset jobs when none is configured.
const DefaultLimitResetTimezone = "Asia/Dhaka"

// Supported OpenTelemetry exporters.
const (
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
	ExporterStdout   = "stdout"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	LogLevel         string
	LogFormat        string
	OwnerID          int64
	UndoDepth        int

	LimitResetEnabled  bool
	LimitResetTimezone string

	OTelEnabled      bool
	OTelExporter     string
	OTelEndpoint     string
	OTelInsecure     bool
	OTelServiceName  string
	OTelSampleRatio  float64
	OTelExportPeriod time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        os.Getenv("LOG_FORMAT"),
		OTelEndpoint:     strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTelInsecure:     parseBool(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")),
	}

	var errs []string

	if ownerStr := strings.TrimSpace(os.Getenv("BOT_OWNER_ID")); ownerStr != "" {
		id, err := strconv.ParseInt(ownerStr, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("BOT_OWNER_ID must be a Telegram user ID, got %q", ownerStr))
		} else {
			cfg.OwnerID = id
		}
	}

	cfg.UndoDepth = DefaultUndoDepth
	if depthStr := os.Getenv("UNDO_DEPTH"); depthStr != "" {
		if d, err := strconv.Atoi(depthStr); err == nil && d > 0 {
			cfg.UndoDepth = d
		}
	}

	cfg.LimitResetEnabled = os.Getenv("LIMIT_RESET_ENABLED") == "true"
	cfg.LimitResetTimezone = DefaultLimitResetTimezone
	if tz := os.Getenv("LIMIT_RESET_TIMEZONE"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			cfg.LimitResetTimezone = tz
		}
	}

	cfg.OTelEnabled = parseBool(os.Getenv("OTEL_ENABLED"))
	cfg.OTelExporter = ExporterStdout
	if exp := strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_EXPORTER"))); exp != "" {
		switch exp {
		case ExporterOTLPGRPC, ExporterOTLPHTTP, ExporterStdout:
			cfg.OTelExporter = exp
		default:
			errs = append(errs, fmt.Sprintf("OTEL_EXPORTER must be one of %s, %s, %s", ExporterOTLPGRPC, ExporterOTLPHTTP, ExporterStdout))
		}
	}
	cfg.OTelServiceName = "dsw-limit-bot"
	if name := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")); name != "" {
		cfg.OTelServiceName = name
	}
	cfg.OTelSampleRatio = 0.1
	if ratioStr := os.Getenv("OTEL_SAMPLER_RATIO"); ratioStr != "" {
		if r, err := strconv.ParseFloat(ratioStr, 64); err == nil && r >= 0 && r <= 1 {
			cfg.OTelSampleRatio = r
		}
	}
	cfg.OTelExportPeriod = time.Minute
	if periodStr := os.Getenv("OTEL_METRIC_EXPORT_INTERVAL"); periodStr != "" {
		if p, err := time.ParseDuration(periodStr); err == nil && p > 0 {
			cfg.OTelExportPeriod = p
		}
	}

	// Validate required configuration.
	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() []string {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if c.OwnerID == 0 {
		errs = append(errs, "BOT_OWNER_ID is required")
	}

	if c.OTelEnabled && c.OTelExporter != ExporterStdout && c.OTelEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required for OTLP exporters")
	}

	return errs
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
