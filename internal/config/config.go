package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the scan service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"scan-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"SCAN_API_PORT" envDefault:"8380"`
	LogLevel        string        `env:"SCAN_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"SCAN_LOG_FORMAT" envDefault:"console"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Menu Analysis Provider (OpenAI-compatible multimodal chat completions)
	MenuProviderBaseURL string        `env:"MENU_PROVIDER_BASE_URL,notEmpty"`
	MenuProviderAPIKey  string        `env:"MENU_PROVIDER_API_KEY"`
	MenuModel           string        `env:"MENU_MODEL" envDefault:"gpt-4o-mini"`
	MenuAnalysisTimeout time.Duration `env:"MENU_ANALYSIS_TIMEOUT" envDefault:"90s"`
	MenuMaxImageBytes   int64         `env:"MENU_MAX_IMAGE_BYTES" envDefault:"10485760"`

	// Image Generation Provider (OpenAI-compatible images endpoint)
	ImageProviderBaseURL   string        `env:"IMAGE_PROVIDER_BASE_URL,notEmpty"`
	ImageProviderAPIKey    string        `env:"IMAGE_PROVIDER_API_KEY"`
	ImageModel             string        `env:"IMAGE_MODEL" envDefault:"z-image"`
	ImageSize              string        `env:"IMAGE_SIZE" envDefault:"1024x1024"`
	ImageResponseFormat    string        `env:"IMAGE_RESPONSE_FORMAT" envDefault:"b64_json"`
	ImageGenerationTimeout time.Duration `env:"IMAGE_GENERATION_TIMEOUT" envDefault:"120s"`

	// Visibility Trigger
	ProximityMargin float64 `env:"VIEWPORT_PROXIMITY_MARGIN" envDefault:"200"`
	VisibleFraction float64 `env:"VIEWPORT_VISIBLE_FRACTION" envDefault:"0.1"`

	// Storage Backend Selection for generated images
	StorageBackend string `env:"IMAGE_STORAGE_BACKEND" envDefault:"local"` // Options: "s3", "local" or "off"

	// Local Storage Configuration
	LocalStoragePath    string `env:"IMAGE_LOCAL_STORAGE_PATH"`
	LocalStorageBaseURL string `env:"IMAGE_LOCAL_STORAGE_BASE_URL"`

	// S3 Storage Configuration
	S3Endpoint       string        `env:"IMAGE_S3_ENDPOINT"`
	S3PublicEndpoint string        `env:"IMAGE_S3_PUBLIC_ENDPOINT"`
	S3Region         string        `env:"IMAGE_S3_REGION" envDefault:"us-west-2"`
	S3Bucket         string        `env:"IMAGE_S3_BUCKET"`
	S3AccessKeyID    string        `env:"IMAGE_S3_ACCESS_KEY_ID"`
	S3SecretKey      string        `env:"IMAGE_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle   bool          `env:"IMAGE_S3_USE_PATH_STYLE" envDefault:"true"`
	S3PresignTTL     time.Duration `env:"IMAGE_S3_PRESIGN_TTL" envDefault:"24h"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.MenuProviderBaseURL = strings.TrimSpace(cfg.MenuProviderBaseURL)
	cfg.ImageProviderBaseURL = strings.TrimSpace(cfg.ImageProviderBaseURL)
	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)
	cfg.S3PublicEndpoint = strings.TrimSpace(cfg.S3PublicEndpoint)

	if cfg.MenuMaxImageBytes <= 0 {
		cfg.MenuMaxImageBytes = 10 * 1024 * 1024
	}
	if cfg.VisibleFraction <= 0 || cfg.VisibleFraction > 1 {
		return nil, fmt.Errorf("VIEWPORT_VISIBLE_FRACTION must be in (0,1], got %v", cfg.VisibleFraction)
	}
	if cfg.ProximityMargin < 0 {
		return nil, fmt.Errorf("VIEWPORT_PROXIMITY_MARGIN must not be negative, got %v", cfg.ProximityMargin)
	}
	if cfg.IsS3Storage() && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("IMAGE_S3_BUCKET is required when IMAGE_STORAGE_BACKEND is s3")
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsLocalStorage returns true if local storage backend is configured.
func (c *Config) IsLocalStorage() bool {
	backend := strings.ToLower(strings.TrimSpace(c.StorageBackend))
	return backend == "" || backend == "local"
}

// IsS3Storage returns true if S3 storage backend is configured.
func (c *Config) IsS3Storage() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) == "s3"
}

// IsStorageDisabled returns true if generated images are served inline only.
func (c *Config) IsStorageDisabled() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) == "off"
}
