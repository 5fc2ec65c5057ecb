package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timkrebs/thumbcache/internal/metrics"
)

// NewRouter creates a new HTTP router with all routes configured. cacheDir
// is also served statically under the cache URL prefix so that artifact
// URLs returned by the API resolve against the same server.
func NewRouter(handlers *Handlers, httpMetrics *metrics.HTTPMetrics, maxBodySize int64, cacheURL, cacheDir string, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(StructuredLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(MaxBodySize(maxBodySize))
	r.Use(MetricsMiddleware(httpMetrics))

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Health check
	r.Get("/healthz", handlers.Health)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/images/*", handlers.TransformImage)
		r.Post("/images/*", handlers.CreateImage)
		r.Get("/urls/*", handlers.GetImageURL)
	})

	// Cached artifacts
	r.Handle(cacheURL+"/*", http.StripPrefix(cacheURL+"/", http.FileServer(http.Dir(cacheDir))))

	return r
}
