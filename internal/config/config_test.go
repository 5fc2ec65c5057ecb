package config

import (
	"os"
	"testing"
	"time"
)

var envVars = []string{
	"SOURCE_DIR", "CACHE_DIR", "CACHE_URL", "URL_SEPARATOR", "ERROR_IMAGE",
	"CACHE_POLICY",
	"ORIGIN_ENABLED", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY",
	"MINIO_BUCKET", "MINIO_USE_SSL",
	"LOG_LEVEL", "LOG_FORMAT",
	"READ_TIMEOUT", "WRITE_TIMEOUT", "SHUTDOWN_TIMEOUT",
	"MAX_PAYLOAD_SIZE", "HTTP_PORT",
}

// clearEnv clears all config env vars and restores them after the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		if value, ok := os.LookupEnv(key); ok {
			t.Setenv(key, value)
			os.Unsetenv(key)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.SourceDir != "./images" {
		t.Errorf("SourceDir = %q, want ./images", cfg.SourceDir)
	}
	if cfg.CacheDir != "./cache" {
		t.Errorf("CacheDir = %q, want ./cache", cfg.CacheDir)
	}
	if cfg.CacheURL != "/cache" {
		t.Errorf("CacheURL = %q, want /cache", cfg.CacheURL)
	}
	if cfg.URLSeparator != "/" {
		t.Errorf("URLSeparator = %q, want /", cfg.URLSeparator)
	}
	if cfg.ErrorImage != "error.png" {
		t.Errorf("ErrorImage = %q, want error.png", cfg.ErrorImage)
	}
	if cfg.CachePolicy != "exists" {
		t.Errorf("CachePolicy = %q, want exists", cfg.CachePolicy)
	}
	if cfg.OriginEnabled {
		t.Error("OriginEnabled = true, want false")
	}
	if cfg.MinIOEndpoint != "localhost:9000" {
		t.Errorf("MinIOEndpoint = %q, want localhost:9000", cfg.MinIOEndpoint)
	}
	if cfg.MinIOBucket != "images" {
		t.Errorf("MinIOBucket = %q, want images", cfg.MinIOBucket)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout = %v, want 30s", cfg.WriteTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if cfg.MaxPayloadSize != 52428800 {
		t.Errorf("MaxPayloadSize = %d, want 52428800", cfg.MaxPayloadSize)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)

	t.Setenv("SOURCE_DIR", "/srv/images")
	t.Setenv("CACHE_DIR", "/var/cache/thumbs")
	t.Setenv("CACHE_URL", "/thumbs")
	t.Setenv("URL_SEPARATOR", "!")
	t.Setenv("ERROR_IMAGE", "missing.jpg")
	t.Setenv("CACHE_POLICY", "mtime")
	t.Setenv("ORIGIN_ENABLED", "true")
	t.Setenv("MINIO_ENDPOINT", "minio:9001")
	t.Setenv("MINIO_BUCKET", "sources")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("READ_TIMEOUT", "60s")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.SourceDir != "/srv/images" {
		t.Errorf("SourceDir = %q, want /srv/images", cfg.SourceDir)
	}
	if cfg.CacheDir != "/var/cache/thumbs" {
		t.Errorf("CacheDir = %q, want /var/cache/thumbs", cfg.CacheDir)
	}
	if cfg.CacheURL != "/thumbs" {
		t.Errorf("CacheURL = %q, want /thumbs", cfg.CacheURL)
	}
	if cfg.URLSeparator != "!" {
		t.Errorf("URLSeparator = %q, want !", cfg.URLSeparator)
	}
	if cfg.ErrorImage != "missing.jpg" {
		t.Errorf("ErrorImage = %q, want missing.jpg", cfg.ErrorImage)
	}
	if cfg.CachePolicy != "mtime" {
		t.Errorf("CachePolicy = %q, want mtime", cfg.CachePolicy)
	}
	if !cfg.OriginEnabled {
		t.Error("OriginEnabled = false, want true")
	}
	if cfg.MinIOEndpoint != "minio:9001" {
		t.Errorf("MinIOEndpoint = %q, want minio:9001", cfg.MinIOEndpoint)
	}
	if cfg.MinIOBucket != "sources" {
		t.Errorf("MinIOBucket = %q, want sources", cfg.MinIOBucket)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
	if cfg.ReadTimeout != 60*time.Second {
		t.Errorf("ReadTimeout = %v, want 60s", cfg.ReadTimeout)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", cfg.HTTPPort)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("READ_TIMEOUT", "invalid")

	if _, err := Load(); err == nil {
		t.Error("Load() should return error for invalid duration")
	}
}

func TestLoad_InvalidInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "not-a-number")

	if _, err := Load(); err == nil {
		t.Error("Load() should return error for invalid integer")
	}
}

func TestLoad_InvalidBool(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORIGIN_ENABLED", "not-a-bool")

	if _, err := Load(); err == nil {
		t.Error("Load() should return error for invalid boolean")
	}
}
