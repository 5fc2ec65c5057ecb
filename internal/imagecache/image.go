package imagecache

import (
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/timkrebs/thumbcache/internal/cache"
	"github.com/timkrebs/thumbcache/internal/metrics"
	"github.com/timkrebs/thumbcache/internal/render"
	"github.com/timkrebs/thumbcache/internal/transform"
)

// Source is the resolved origin of an image. Fallback marks that the
// requested source could not be found and the configured error image was
// substituted in its place.
type Source struct {
	Path     string
	Fallback bool
}

// Cache ties the transform descriptor, the staleness policy and the render
// pipeline together. It is the factory for Image instances and carries the
// configuration they share: the source directory, the error-image fallback,
// the artifact store and the renderer.
type Cache struct {
	store      *cache.Store
	renderer   *render.Renderer
	sourceDir  string
	errorImage string
	logger     *slog.Logger
	metrics    *metrics.CacheMetrics
}

// New creates an image cache. errorImage is the file name, relative to
// sourceDir, substituted when a requested source cannot be resolved.
func New(store *cache.Store, renderer *render.Renderer, sourceDir, errorImage string, logger *slog.Logger) *Cache {
	return &Cache{
		store:      store,
		renderer:   renderer,
		sourceDir:  sourceDir,
		errorImage: errorImage,
		logger:     logger,
	}
}

// SetMetrics injects metrics collectors into the cache
func (c *Cache) SetMetrics(m *metrics.CacheMetrics) {
	c.metrics = m
}

// Store returns the underlying artifact store
func (c *Cache) Store() *cache.Store {
	return c.store
}

// ErrorImage returns the configured fallback image name
func (c *Cache) ErrorImage() string {
	return c.errorImage
}

// resolve maps a requested path to a source, degrading to the error image
// when no file exists at the path
func (c *Cache) resolve(path string) Source {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Source{Path: path}
		}
	}
	return Source{Path: filepath.Join(c.sourceDir, c.errorImage), Fallback: true}
}

// Image creates an Image for the given source path. A path that does not
// exist on the filesystem falls back to the configured error image rather
// than failing; the substitution is visible on Image.Source().
func (c *Cache) Image(path string) *Image {
	src := c.resolve(path)
	return &Image{
		cache:  c,
		source: src,
		desc:   transform.NewDescriptor(src.Path),
	}
}

// ImageFromPayload creates an Image for path, materializing the
// base64-encoded payload into a temporary file when no file exists at path.
// With neither a readable file nor a decodable payload the error image is
// substituted.
func (c *Cache) ImageFromPayload(path, payload string) *Image {
	if _, err := os.Stat(path); err == nil {
		return c.Image(path)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		c.logger.Warn("failed to decode payload, using error image", "path", path, "error", err)
		return c.Image("")
	}

	// Carry the canonical extension so key derivation sees a recognized,
	// normalized format ("new.JPG" becomes a ".jpeg" temp file)
	ext := filepath.Ext(path)
	if f, err := transform.FormatFromPath(path); err == nil {
		ext = "." + f.Extension()
	}
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("thumbcache-%s%s", uuid.New().String(), ext))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		c.logger.Error("failed to write payload, using error image", "path", path, "error", err)
		return c.Image("")
	}

	return &Image{
		cache:  c,
		source: Source{Path: tmp},
		desc:   transform.NewDescriptor(tmp),
	}
}

// Image is one source image plus its transform parameters. Configuration
// calls are fluent; the result accessors (URL, Path, Render, Bytes, Save)
// lazily trigger the render pipeline on a cache miss. The cached-status
// decision is memoized against the descriptor version, so any setter call
// forces the next accessor to recheck.
type Image struct {
	cache  *Cache
	source Source
	desc   *transform.Descriptor

	cachedVersion int
	cachedKnown   bool
	cachedHit     bool
}

// Source returns the resolved source, including whether the error-image
// fallback was substituted
func (img *Image) Source() Source {
	return img.source
}

// SetQuality sets the encode quality, accepted only within [0,100]
func (img *Image) SetQuality(quality int) *Image {
	img.desc.SetQuality(quality)
	return img
}

// SetRatio selects whether the source aspect ratio is preserved
func (img *Image) SetRatio(keep bool) *Image {
	img.desc.SetRatio(keep)
	return img
}

// SetFit selects fill-and-crop mode
func (img *Image) SetFit(fit bool) *Image {
	img.desc.SetFit(fit)
	return img
}

// SetOffsetX shifts the fitted image horizontally, in pixels
func (img *Image) SetOffsetX(offset int) *Image {
	img.desc.SetOffsetX(offset)
	return img
}

// SetOffsetY shifts the fitted image vertically, in pixels
func (img *Image) SetOffsetY(offset int) *Image {
	img.desc.SetOffsetY(offset)
	return img
}

// SetMask configures a watermark overlay
func (img *Image) SetMask(path string, transparency int, position ...string) *Image {
	img.desc.SetMask(path, transparency, position...)
	return img
}

// Resize sets the target dimensions, 0 meaning unconstrained
func (img *Image) Resize(width, height int) *Image {
	img.desc.Resize(width, height)
	return img
}

// ResizeWidth constrains only the width, keeping the aspect ratio
func (img *Image) ResizeWidth(width int) *Image {
	img.desc.ResizeWidth(width)
	return img
}

// ResizeHeight constrains only the height, keeping the aspect ratio
func (img *Image) ResizeHeight(height int) *Image {
	img.desc.ResizeHeight(height)
	return img
}

// cachedStatus applies the staleness policy, memoized per descriptor version
func (img *Image) cachedStatus(key string) (bool, error) {
	if img.cachedKnown && img.cachedVersion == img.desc.Version() {
		return img.cachedHit, nil
	}
	fresh, err := img.cache.store.Fresh(key, img.source.Path)
	if err != nil {
		return false, err
	}
	img.cachedHit = fresh
	img.cachedKnown = true
	img.cachedVersion = img.desc.Version()
	return fresh, nil
}

// ensure computes the cache key, applies the staleness policy and runs the
// render pipeline if and only if the artifact cannot be reused
func (img *Image) ensure(format transform.Format) (string, error) {
	key := img.desc.CacheKey()

	cached, err := img.cachedStatus(key)
	if err != nil {
		return "", err
	}
	if cached {
		if img.cache.metrics != nil {
			img.cache.metrics.HitsTotal.Inc()
		}
		return key, nil
	}

	if img.cache.metrics != nil {
		img.cache.metrics.MissesTotal.Inc()
	}
	img.cache.logger.Info("rendering artifact", "key", key, "source", img.source.Path)

	if err := img.cache.renderer.RenderFile(img.desc.Params(), format, img.cache.store.ArtifactPath(key)); err != nil {
		return "", err
	}
	img.cachedHit = true
	img.cachedKnown = true
	img.cachedVersion = img.desc.Version()
	return key, nil
}

// URL returns the URL-style path to the cached artifact, rendering it first
// if needed. An empty format keeps the source format.
func (img *Image) URL(format transform.Format) (string, error) {
	key, err := img.ensure(format)
	if err != nil {
		return "", err
	}
	return img.cache.store.ArtifactURL(key), nil
}

// Path returns the filesystem path to the cached artifact, rendering it
// first if needed
func (img *Image) Path(format transform.Format) (string, error) {
	key, err := img.ensure(format)
	if err != nil {
		return "", err
	}
	return img.cache.store.ArtifactPath(key), nil
}

// Render streams the cached artifact to w, rendering it first if needed,
// and returns the number of bytes written
func (img *Image) Render(w io.Writer, format transform.Format) (int64, error) {
	key, err := img.ensure(format)
	if err != nil {
		return 0, err
	}
	rc, err := img.cache.store.Open(key)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := io.Copy(w, rc)
	if err != nil {
		return n, fmt.Errorf("failed to stream artifact: %w", err)
	}
	return n, nil
}

// Bytes returns the full contents of the cached artifact, rendering it
// first if needed
func (img *Image) Bytes(format transform.Format) ([]byte, error) {
	key, err := img.ensure(format)
	if err != nil {
		return nil, err
	}
	return img.cache.store.ReadFile(key)
}

// LiveRender runs the pipeline in memory, bypassing the cache file
// entirely, and returns the encoded bytes
func (img *Image) LiveRender(format transform.Format) ([]byte, error) {
	return img.cache.renderer.Render(img.desc.Params(), format)
}

// ContentType returns the MIME type of the source's detected format
func (img *Image) ContentType() (string, error) {
	info, err := render.Probe(img.source.Path)
	if err != nil {
		return "", err
	}
	return info.Format.MIME(), nil
}

// Save copies the cached artifact to dst, rendering it first if needed
func (img *Image) Save(dst string) error {
	key, err := img.ensure("")
	if err != nil {
		return err
	}
	return img.cache.store.CopyTo(key, dst)
}

// String renders the artifact URL; on failure it degrades to the configured
// error-image name instead of propagating the error
func (img *Image) String() string {
	url, err := img.URL("")
	if err != nil {
		img.cache.logger.Error("failed to render artifact", "source", img.source.Path, "error", err)
		return img.cache.errorImage
	}
	return url
}
