package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timkrebs/thumbcache/internal/cache"
	"github.com/timkrebs/thumbcache/internal/config"
	"github.com/timkrebs/thumbcache/internal/imagecache"
	"github.com/timkrebs/thumbcache/internal/metrics"
	"github.com/timkrebs/thumbcache/internal/origin"
	"github.com/timkrebs/thumbcache/internal/render"
	"github.com/timkrebs/thumbcache/internal/server"
)

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Create artifact store
	policy, err := cache.ParsePolicy(cfg.CachePolicy)
	if err != nil {
		logger.Error("failed to parse cache policy", "error", err)
		os.Exit(1)
	}
	store := cache.New(cache.Config{
		Dir:          cfg.CacheDir,
		URLPrefix:    cfg.CacheURL,
		URLSeparator: cfg.URLSeparator,
		Policy:       policy,
	})
	if err := store.EnsureDir(); err != nil {
		logger.Error("failed to create cache dir", "error", err)
		os.Exit(1)
	}
	logger.Info("artifact store ready", "dir", cfg.CacheDir, "policy", policy.String())

	// Initialize metrics
	httpMetrics := metrics.NewHTTPMetrics("thumbcache")
	cacheMetrics := metrics.NewCacheMetrics("thumbcache")
	renderMetrics := metrics.NewRenderMetrics("thumbcache")

	// Create renderer
	renderer := render.New()
	renderer.SetMetrics(renderMetrics)

	// Create image cache
	images := imagecache.New(store, renderer, cfg.SourceDir, cfg.ErrorImage, logger)
	images.SetMetrics(cacheMetrics)

	// Connect to the origin bucket when configured
	var originClient *origin.Origin
	if cfg.OriginEnabled {
		originClient, err = origin.New(origin.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			logger.Error("failed to create origin client", "error", err)
			os.Exit(1)
		}
		originClient.SetMetrics(metrics.NewOriginMetrics("thumbcache"))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := originClient.EnsureBucket(ctx); err != nil {
			cancel()
			logger.Error("failed to ensure bucket", "error", err)
			os.Exit(1)
		}
		cancel()
		logger.Info("connected to origin", "bucket", cfg.MinIOBucket)
	}

	// Create handlers and router
	handlers := server.NewHandlers(images, originClient, cfg.SourceDir, logger)
	router := server.NewRouter(handlers, httpMetrics, cfg.MaxPayloadSize, cfg.CacheURL, cfg.CacheDir, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
