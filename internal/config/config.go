// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Telemetry exporters.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// MinJWTSecretLength is the shortest accepted HS256 signing secret.
const MinJWTSecretLength = 32

// BootstrapAdmin is the administrator created at startup if missing.
type BootstrapAdmin struct {
	Username string
	Email    string
	Password string
}

// Enabled reports whether a bootstrap admin is configured.
func (b BootstrapAdmin) Enabled() bool {
	return b.Username != ""
}

// Config holds all configuration for the application.
type Config struct {
	Storage         string
	DatabaseURL     string
	HTTPAddr        string
	RequestTimeout  time.Duration
	JWTSecret       string
	JWTIssuer       string
	TokenTTL        time.Duration
	GeminiAPIKey    string
	GeminiModel     string
	UploadDir       string
	LogLevel        string
	LogFormat       string
	OTelExporter    string
	OTelServiceName string
	BootstrapAdmin  BootstrapAdmin
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Storage:         envOr("STORAGE", StoragePostgres),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTIssuer:       envOr("JWT_ISSUER", "expense-approvals"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		UploadDir:       envOr("UPLOAD_DIR", "./uploads"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		LogFormat:       envOr("LOG_FORMAT", "console"),
		OTelExporter:    envOr("OTEL_EXPORTER", ExporterNone),
		OTelServiceName: envOr("OTEL_SERVICE_NAME", "expense-approvals"),
		BootstrapAdmin: BootstrapAdmin{
			Username: strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_USERNAME")),
			Email:    strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
			Password: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
	}

	var errs []string
	cfg.RequestTimeout = durationEnv("REQUEST_TIMEOUT", 15*time.Second, &errs)
	cfg.TokenTTL = durationEnv("TOKEN_TTL", 12*time.Hour, &errs)

	if err := cfg.validate(errs); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration, errs *[]string) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s must be a positive duration, got %q", key, raw))
		return fallback
	}
	return d
}

// validate checks that all required configuration is present.
func (c *Config) validate(errs []string) error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required")
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage))
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Sprintf("JWT_SECRET must be at least %d characters", MinJWTSecretLength))
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be console or json, got %q", c.LogFormat))
	}

	switch c.OTelExporter {
	case ExporterNone, ExporterStdout, ExporterOTLPHTTP, ExporterOTLPGRPC:
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER %q is not supported", c.OTelExporter))
	}

	b := c.BootstrapAdmin
	if b.Enabled() || b.Email != "" || b.Password != "" {
		if b.Username == "" || b.Email == "" || b.Password == "" {
			errs = append(errs, "BOOTSTRAP_ADMIN_USERNAME, BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ExtractionEnabled reports whether document extraction is configured.
func (c *Config) ExtractionEnabled() bool {
	return c.GeminiAPIKey != ""
}
