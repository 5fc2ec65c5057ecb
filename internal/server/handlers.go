package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/timkrebs/thumbcache/internal/imagecache"
	"github.com/timkrebs/thumbcache/internal/origin"
	"github.com/timkrebs/thumbcache/internal/transform"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	cache     *imagecache.Cache
	origin    *origin.Origin
	logger    *slog.Logger
	sourceDir string
}

// NewHandlers creates a new handlers instance. origin may be nil when no
// object-storage backend is configured.
func NewHandlers(cache *imagecache.Cache, origin *origin.Origin, sourceDir string, logger *slog.Logger) *Handlers {
	return &Handlers{
		cache:     cache,
		origin:    origin,
		sourceDir: sourceDir,
		logger:    logger,
	}
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

// writeError writes an error response
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// resolveSource maps the request path to a local source path, pulling the
// file from the origin bucket when it is not on disk yet
func (h *Handlers) resolveSource(ctx context.Context, rel string) (string, bool) {
	srcPath := filepath.Join(h.sourceDir, filepath.FromSlash(rel))
	if _, err := os.Stat(srcPath); err == nil {
		return srcPath, true
	}
	if h.origin == nil {
		return srcPath, false
	}
	if err := h.origin.Fetch(ctx, rel, srcPath); err != nil {
		h.logger.Warn("failed to fetch source from origin", "key", rel, "error", err)
		return srcPath, false
	}
	return srcPath, true
}

// applyParams configures the image from query parameters. Unparseable
// values are ignored, matching the setters' own leniency.
func applyParams(img *imagecache.Image, q map[string][]string) {
	get := func(key string) (string, bool) {
		if vs, ok := q[key]; ok && len(vs) > 0 {
			return vs[0], true
		}
		return "", false
	}
	getInt := func(key string) (int, bool) {
		s, ok := get(key)
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return n, true
	}

	if v, ok := get("ratio"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			img.SetRatio(b)
		}
	}
	if v, ok := get("fit"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			img.SetFit(b)
		}
	}
	if v, ok := getInt("q"); ok {
		img.SetQuality(v)
	}
	if v, ok := getInt("ox"); ok {
		img.SetOffsetX(v)
	}
	if v, ok := getInt("oy"); ok {
		img.SetOffsetY(v)
	}

	w, haveW := getInt("w")
	h, haveH := getInt("h")
	if haveW || haveH {
		img.Resize(w, h)
	}
}

// applyMask configures the watermark overlay from query parameters. The
// mask name is resolved inside the source directory.
func (h *Handlers) applyMask(img *imagecache.Image, q map[string][]string) {
	vs, ok := q["mask"]
	if !ok || len(vs) == 0 || vs[0] == "" {
		return
	}
	name := vs[0]
	if !validRequestPath(name) {
		return
	}
	transparency := 0
	if ts, ok := q["mt"]; ok && len(ts) > 0 {
		if n, err := strconv.Atoi(ts[0]); err == nil {
			transparency = n
		}
	}
	img.SetMask(filepath.Join(h.sourceDir, filepath.FromSlash(name)), transparency)
}

// validRequestPath rejects absolute paths and traversal outside the source
// directory
func validRequestPath(rel string) bool {
	if rel == "" || strings.HasPrefix(rel, "/") {
		return false
	}
	clean := filepath.ToSlash(filepath.Clean(rel))
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

// TransformImage handles GET /api/v1/images/*
//
// Query parameters: w, h (target size), ratio, fit, q (quality), ox, oy
// (offsets), mask, mt (mask transparency), format (output override), live
// (bypass the cache file and stream a fresh encode).
func (h *Handlers) TransformImage(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if !validRequestPath(rel) {
		h.writeError(w, http.StatusBadRequest, "invalid image path")
		return
	}

	srcPath, found := h.resolveSource(r.Context(), rel)
	if !found {
		h.logger.Info("source not found, serving error image", "path", rel)
	}

	img := h.cache.Image(srcPath)
	applyParams(img, r.URL.Query())
	h.applyMask(img, r.URL.Query())

	var format transform.Format
	if name := r.URL.Query().Get("format"); name != "" {
		f, err := transform.ParseFormat(name)
		if err != nil {
			h.writeError(w, http.StatusUnsupportedMediaType, "unsupported output format: "+name)
			return
		}
		format = f
	}

	var contentType string
	if format != "" {
		contentType = format.MIME()
	} else {
		ct, err := img.ContentType()
		if err != nil {
			h.serveError(w, err)
			return
		}
		contentType = ct
	}

	if r.URL.Query().Get("live") == "1" {
		data, err := img.LiveRender(format)
		if err != nil {
			h.serveError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if _, err := w.Write(data); err != nil {
			h.logger.Error("failed to write response", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", contentType)
	if _, err := img.Render(w, format); err != nil {
		h.logger.Error("failed to stream artifact", "path", rel, "error", err)
		return
	}
}

// GetImageURL handles GET /api/v1/urls/*
// Returns the artifact URL for the requested transform, rendering it if
// needed.
func (h *Handlers) GetImageURL(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if !validRequestPath(rel) {
		h.writeError(w, http.StatusBadRequest, "invalid image path")
		return
	}

	srcPath, _ := h.resolveSource(r.Context(), rel)
	img := h.cache.Image(srcPath)
	applyParams(img, r.URL.Query())
	h.applyMask(img, r.URL.Query())

	url, err := img.URL("")
	if err != nil {
		h.serveError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"url":      url,
		"fallback": img.Source().Fallback,
	})
}

// createImageRequest is the body for POST /api/v1/images/*
type createImageRequest struct {
	Payload string `json:"payload"`
}

// CreateImage handles POST /api/v1/images/*
// Accepts a base64 payload for a source that is not on disk and returns the
// artifact URL for the requested transform.
func (h *Handlers) CreateImage(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if !validRequestPath(rel) {
		h.writeError(w, http.StatusBadRequest, "invalid image path")
		return
	}

	var req createImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	srcPath := filepath.Join(h.sourceDir, filepath.FromSlash(rel))
	img := h.cache.ImageFromPayload(srcPath, req.Payload)
	applyParams(img, r.URL.Query())
	h.applyMask(img, r.URL.Query())

	url, err := img.URL("")
	if err != nil {
		h.serveError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"url":      url,
		"fallback": img.Source().Fallback,
	})
}

// serveError maps pipeline errors to HTTP status codes
func (h *Handlers) serveError(w http.ResponseWriter, err error) {
	h.logger.Error("render failed", "error", err)
	if errors.Is(err, transform.ErrUnsupportedFormat) {
		h.writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	h.writeError(w, http.StatusInternalServerError, "failed to render image")
}

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	checks := make(map[string]interface{})

	if _, err := os.Stat(h.cache.Store().Dir()); err != nil {
		status = "unhealthy"
		checks["cache_dir"] = map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		}
	} else {
		checks["cache_dir"] = map[string]string{"status": "healthy"}
	}

	if h.origin != nil {
		if err := h.origin.Health(ctx); err != nil {
			status = "unhealthy"
			checks["origin"] = map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			}
		} else {
			checks["origin"] = map[string]string{"status": "healthy"}
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	h.writeJSON(w, statusCode, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
