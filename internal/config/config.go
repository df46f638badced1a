package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

const defaultDevUserID = "00000000-0000-0000-0000-000000000001"

// Config captures runtime configuration shared by the API and worker
// services. Fields irrelevant to a given binary are simply unused there.
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	NATSURL     string `envconfig:"NATS_URL" required:"true"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsPort int    `envconfig:"METRICS_PORT" default:"9090"`
	HealthPort  int    `envconfig:"HEALTH_PORT" default:"8081"`

	// Fetch pipeline.
	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	FetchRetries  int           `envconfig:"FETCH_RETRIES" default:"3"`
	FetchMaxBytes int64         `envconfig:"FETCH_MAX_BODY_BYTES" default:"10485760"`

	// Extraction result cache.
	CacheTTL   time.Duration `envconfig:"RESULT_CACHE_TTL" default:"24h"`
	CacheSweep time.Duration `envconfig:"RESULT_CACHE_SWEEP" default:"1h"`
	WrapTokens bool          `envconfig:"WRAP_TOKENS" default:"false"`

	// Object storage for uploaded documents.
	UploadBucket    string `envconfig:"UPLOAD_S3_BUCKET" default:""`
	UploadRegion    string `envconfig:"UPLOAD_S3_REGION" default:"us-east-1"`
	UploadEndpoint  string `envconfig:"UPLOAD_S3_ENDPOINT" default:""`
	UploadAccessKey string `envconfig:"UPLOAD_S3_ACCESS_KEY" default:""`
	UploadSecretKey string `envconfig:"UPLOAD_S3_SECRET_KEY" default:""`

	DevUserID  uuid.UUID `ignored:"true"`
	DevUserRaw string    `envconfig:"DEV_USER_ID" default:""`
}

// Load reads configuration values from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	raw := cfg.DevUserRaw
	if raw == "" {
		raw = defaultDevUserID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse dev user id: %w", err)
	}
	cfg.DevUserID = id
	return cfg, nil
}

// Address returns the TCP listen address for the HTTP server.
func (c Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// MetricsAddress returns the listen address for the metrics HTTP server.
func (c Config) MetricsAddress() string {
	return fmt.Sprintf(":%d", c.MetricsPort)
}

// HealthAddress returns the listen address for the health HTTP server.
func (c Config) HealthAddress() string {
	return fmt.Sprintf(":%d", c.HealthPort)
}

// UploadsEnabled reports whether object storage is configured.
func (c Config) UploadsEnabled() bool {
	return c.UploadBucket != ""
}
