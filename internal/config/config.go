package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Image locations
	SourceDir    string `envconfig:"SOURCE_DIR" default:"./images"`
	CacheDir     string `envconfig:"CACHE_DIR" default:"./cache"`
	CacheURL     string `envconfig:"CACHE_URL" default:"/cache"`
	URLSeparator string `envconfig:"URL_SEPARATOR" default:"/"`
	ErrorImage   string `envconfig:"ERROR_IMAGE" default:"error.png"`
	// Staleness policy: exists, mtime, or recompute
	CachePolicy string `envconfig:"CACHE_POLICY" default:"exists"`
	// Origin settings (optional object-storage source backend)
	OriginEnabled  bool   `envconfig:"ORIGIN_ENABLED" default:"false"`
	MinIOEndpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	MinIOAccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	MinIOSecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	MinIOBucket    string `envconfig:"MINIO_BUCKET" default:"images"`
	MinIOUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	// HTTP server settings
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	MaxPayloadSize  int64         `envconfig:"MAX_PAYLOAD_SIZE" default:"52428800"` // 50MB
	HTTPPort        int           `envconfig:"HTTP_PORT" default:"8080"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
