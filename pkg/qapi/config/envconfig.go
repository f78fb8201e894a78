package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type EnvConfig struct {
	Port              string        `envconfig:"PORT" default:"3000"`
	Environment       string        `envconfig:"ENVIRONMENT" default:"development"`
	ReplicateToken    string        `envconfig:"REPLICATE_API_TOKEN" required:"true"`
	ReplicateBaseURL  string        `envconfig:"REPLICATE_BASE_URL" default:"https://api.replicate.com/v1"`
	CacheTTL          time.Duration `envconfig:"CACHE_TTL" default:"1h"`
	PredictionTimeout time.Duration `envconfig:"PREDICTION_TIMEOUT" default:"300s"`
	PollInterval      time.Duration `envconfig:"POLL_INTERVAL" default:"2s"`
	HTTPTimeout       time.Duration `envconfig:"HTTP_TIMEOUT" default:"300s"`
	ValkeyAddr        string        `envconfig:"VALKEY_ADDR"`
	ValkeyPassword    string        `envconfig:"VALKEY_PASSWORD"`
	ValkeyDB          int           `envconfig:"VALKEY_DB" default:"0"`
	S3Endpoint        string        `envconfig:"S3_ENDPOINT"`
	S3AccessKey       string        `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey       string        `envconfig:"S3_SECRET_KEY"`
	S3Bucket          string        `envconfig:"S3_BUCKET" default:"qgen"`
	S3Region          string        `envconfig:"S3_REGION" default:"us-east-1"`
	S3UseSSL          bool          `envconfig:"S3_USE_SSL" default:"false"`
	ArtifactDir       string        `envconfig:"ARTIFACT_DIR"`
}

// IsDev reports whether ENVIRONMENT is unset or "development".
func IsDev() bool {
	env := os.Getenv("ENVIRONMENT")
	return env == "" || env == "development"
}

func ValidateEnv() (*EnvConfig, error) {
	if IsDev() {
		if err := godotenv.Load(); err != nil {
			log.Println("ℹ No .env file found")
		} else {
			log.Println("✓ Loaded .env file")
		}
	}

	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if errs := cfg.validate(); len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return &cfg, nil
}

func (c *EnvConfig) validate() []string {
	var errors []string

	if strings.TrimSpace(c.ReplicateToken) == "" {
		errors = append(errors, "  ❌ REPLICATE_API_TOKEN must not be empty")
	}
	if _, err := url.ParseRequestURI(c.ReplicateBaseURL); err != nil {
		errors = append(errors, "  ❌ REPLICATE_BASE_URL must be a valid URL")
	}
	if c.CacheTTL < 0 {
		errors = append(errors, "  ❌ CACHE_TTL must not be negative")
	}
	if c.PollInterval <= 0 {
		errors = append(errors, "  ❌ POLL_INTERVAL must be positive")
	}
	if c.S3Endpoint != "" && (c.S3AccessKey == "" || c.S3SecretKey == "") {
		errors = append(errors, "  ❌ S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENDPOINT is set")
	}
	if c.S3Endpoint != "" && c.ArtifactDir != "" {
		errors = append(errors, "  ❌ Set only one of S3_ENDPOINT and ARTIFACT_DIR")
	}
	return errors
}

func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func (c *EnvConfig) Print(fmtr func(string, ...interface{})) {
	fmtr("📋 Configuration:\n")
	fmtr("  Environment: %s\n", c.Environment)
	fmtr("  Port: %s\n", c.Port)
	fmtr("  Replicate: %s (token %s)\n", c.ReplicateBaseURL, MaskSecret(c.ReplicateToken))
	fmtr("  Cache TTL: %s\n", c.CacheTTL)
	fmtr("  Prediction timeout: %s (poll every %s)\n", c.PredictionTimeout, c.PollInterval)

	if c.ValkeyAddr != "" {
		fmtr("  Cache backend: valkey %s/%d\n", c.ValkeyAddr, c.ValkeyDB)
	} else {
		fmtr("  Cache backend: memory\n")
	}

	switch {
	case c.S3Endpoint != "":
		fmtr("  Artifacts: s3 %s/%s (access key %s)\n", c.S3Endpoint, c.S3Bucket, MaskSecret(c.S3AccessKey))
	case c.ArtifactDir != "":
		fmtr("  Artifacts: dir %s\n", c.ArtifactDir)
	default:
		fmtr("  Artifacts: ✗ Disabled\n")
	}
}
