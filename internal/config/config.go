package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8029"`

	// Storage
	DatabasePath string `envconfig:"DATABASE_PATH" default:"data/contextd.db"`

	// Trigger queue
	QueueSize           int `envconfig:"QUEUE_SIZE" default:"1024"`
	ConsumerConcurrency int `envconfig:"CONSUMER_CONCURRENCY" default:"16"`

	// Dispatch (optional — messages complete without a downstream when unset)
	DispatchURL     string        `envconfig:"DISPATCH_URL"`
	DispatchTimeout time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"30s"`
	DispatchRetries int           `envconfig:"DISPATCH_RETRIES" default:"3"`

	// API
	APIKey string `envconfig:"API_KEY"` // empty disables auth

	// Blob storage (optional — file parts served without signed URLs when unset)
	GCSBucket         string        `envconfig:"GCS_BUCKET"`
	GCSServiceAccount string        `envconfig:"GCS_SERVICE_ACCOUNT"`
	GCSPrivateKey     string        `envconfig:"GCS_PRIVATE_KEY"`
	SignedURLExpiry   time.Duration `envconfig:"SIGNED_URL_EXPIRY" default:"15m"`
}

// DispatchEnabled returns true if a downstream webhook is configured.
func (c *Config) DispatchEnabled() bool {
	return c.DispatchURL != ""
}

// BlobEnabled returns true if GCS credentials are configured.
func (c *Config) BlobEnabled() bool {
	return c.GCSBucket != "" && c.GCSServiceAccount != "" && c.GCSPrivateKey != ""
}

// Validate checks constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.QueueSize < 1 {
		return fmt.Errorf("QUEUE_SIZE must be at least 1, got %d", c.QueueSize)
	}
	if c.ConsumerConcurrency < 1 {
		return fmt.Errorf("CONSUMER_CONCURRENCY must be at least 1, got %d", c.ConsumerConcurrency)
	}
	if c.DispatchRetries < 0 {
		return fmt.Errorf("DISPATCH_RETRIES must not be negative, got %d", c.DispatchRetries)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
