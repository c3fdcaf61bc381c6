package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Provider
	ProviderType     string        `envconfig:"PROVIDER_TYPE" default:"deepface"`
	DeepFaceURL      string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel    string        `envconfig:"DEEPFACE_MODEL" default:"VGG-Face"`
	DeepFaceDetector string        `envconfig:"DEEPFACE_DETECTOR" default:"ssd"`
	DeepFaceTimeout  time.Duration `envconfig:"DEEPFACE_TIMEOUT" default:"30s"`
	DeepFaceRetries  int           `envconfig:"DEEPFACE_RETRIES" default:"3"`
	ProbeDetector    string        `envconfig:"PROBE_DETECTOR" default:"none"`
	AWSRegion        string        `envconfig:"AWS_REGION" default:"us-east-1"`
	MaxProbeImages   int           `envconfig:"MAX_PROBE_IMAGES" default:"5"`
	ExtractWorkers   int           `envconfig:"EXTRACT_WORKERS" default:"1"`
	EnrichWorkers    int           `envconfig:"ENRICH_WORKERS" default:"4"`
	EmbeddingDim     int           `envconfig:"EMBEDDING_DIM" default:"4096"`
	TopK             int           `envconfig:"TOP_K" default:"10"`
	CosineWeight     float64       `envconfig:"COSINE_WEIGHT" default:"1.2"`
	EuclideanWeight  float64       `envconfig:"EUCLIDEAN_WEIGHT" default:"0.8"`

	// Gallery
	GallerySource    string `envconfig:"GALLERY_SOURCE" default:"csv"`
	GalleryCSV       string `envconfig:"GALLERY_CSV" default:"member_features_vggface_direct.csv"`
	GalleryKeyColumn string `envconfig:"GALLERY_KEY_COLUMN" default:"image_name"`

	// Profiles
	ProfileSource   string        `envconfig:"PROFILE_SOURCE" default:"postgres"`
	ProfileFile     string        `envconfig:"PROFILE_FILE"`
	ProfileCacheTTL time.Duration `envconfig:"PROFILE_CACHE_TTL" default:"10m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.ExtractWorkers <= 0 || c.EnrichWorkers <= 0 {
		return fmt.Errorf("worker counts must be positive (extract=%d, enrich=%d)", c.ExtractWorkers, c.EnrichWorkers)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.RateLimitPerMinute)
	}
	if c.MaxProbeImages <= 0 {
		return fmt.Errorf("MAX_PROBE_IMAGES must be positive, got %d", c.MaxProbeImages)
	}
	return nil
}

// RequireDatabase fails when no DATABASE_URL was provided
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("required key DATABASE_URL missing value")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
