package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/disintegration/imaging"

	"github.com/timkrebs/thumbcache/internal/metrics"
	"github.com/timkrebs/thumbcache/internal/transform"
)

// SourceInfo holds the metadata read from a source file before rendering
type SourceInfo struct {
	Width  int
	Height int
	Format transform.Format
}

// Probe reads the dimensions and format of an image file without decoding
// its pixels. An unrecognized format yields ErrUnsupportedFormat.
func Probe(path string) (SourceInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return SourceInfo{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, name, err := image.DecodeConfig(f)
	if err != nil {
		return SourceInfo{}, fmt.Errorf("%w: %s", transform.ErrUnsupportedFormat, path)
	}
	format, err := transform.ParseFormat(name)
	if err != nil {
		return SourceInfo{}, err
	}
	return SourceInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Renderer executes the transform pipeline: probe, resample, place on the
// output canvas, overlay the mask, encode
type Renderer struct {
	metrics *metrics.RenderMetrics
}

// New creates a new renderer
func New() *Renderer {
	return &Renderer{}
}

// SetMetrics injects metrics collectors into the renderer
func (r *Renderer) SetMetrics(m *metrics.RenderMetrics) {
	r.metrics = m
}

// Render runs the full pipeline for the given parameters and returns the
// encoded bytes. An empty format encodes in the source's own format.
func (r *Renderer) Render(p transform.Params, format transform.Format) ([]byte, error) {
	start := time.Now()
	data, outFormat, err := r.render(p, format)

	if r.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.RecordDuration(start, r.metrics.Duration.WithLabelValues(string(outFormat), status))
		r.metrics.RendersTotal.WithLabelValues(string(outFormat), status).Inc()
		if err == nil {
			r.metrics.OutputBytes.Add(float64(len(data)))
		}
	}

	return data, err
}

// RenderFile runs the pipeline and persists the result at outPath. The image
// is encoded fully in memory before the file is written, so a failed run
// leaves no artifact behind.
func (r *Renderer) RenderFile(p transform.Params, format transform.Format, outPath string) error {
	data, err := r.Render(p, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

func (r *Renderer) render(p transform.Params, format transform.Format) ([]byte, transform.Format, error) {
	info, err := Probe(p.SourcePath)
	if err != nil {
		return nil, format, err
	}
	if format == "" {
		format = info.Format
	}

	size := transform.ResolveSize(info.Width, info.Height, p.Width, p.Height, p.KeepRatio, p.Fit)

	src, err := imaging.Open(p.SourcePath)
	if err != nil {
		return nil, format, fmt.Errorf("failed to load source: %w", err)
	}

	// The resample only runs when dimensions were requested; an untouched
	// descriptor keeps the source pixels as they are
	resampled := src
	if p.ResizeRequested {
		resampled = imaging.Resize(src, size.Width, size.Height, imaging.Lanczos)
	}

	// Fit mode fixes the canvas at the target size; the resampled image is
	// centered with the configured offset and clipped at the canvas bounds.
	canvas := resampled
	if p.Fit {
		canvas = imaging.New(p.Width, p.Height, color.NRGBA{})
		pos := image.Pt((p.Width-size.Width)/2+p.OffsetX, (p.Height-size.Height)/2+p.OffsetY)
		canvas = imaging.Paste(canvas, resampled, pos)
	}

	if p.MaskPath != "" {
		canvas, err = r.overlayMask(canvas, p)
		if err != nil {
			return nil, format, err
		}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, canvas, format, p.Quality); err != nil {
		return nil, format, err
	}
	return buf.Bytes(), format, nil
}

// overlayMask composites the configured mask onto the canvas, aligned to the
// bottom-right corner. A mask in an alpha-capable format keeps its own
// transparency; otherwise the configured percentage is blended in.
func (r *Renderer) overlayMask(canvas image.Image, p transform.Params) (*image.NRGBA, error) {
	info, err := Probe(p.MaskPath)
	if err != nil {
		return nil, err
	}
	mask, err := imaging.Open(p.MaskPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load mask: %w", err)
	}

	bounds := canvas.Bounds()
	pos := image.Pt(bounds.Dx()-info.Width, bounds.Dy()-info.Height)

	opacity := 1.0
	if !info.Format.HasAlpha() {
		opacity = float64(p.MaskTransparency) / 100
	}
	return imaging.Overlay(canvas, mask, pos, opacity), nil
}

// PNGCompressionLevel maps an encode quality in [0,100] onto the 0-9 PNG
// compression scale by integer division, clamped to 9
func PNGCompressionLevel(quality int) int {
	level := quality / 10
	if level > 9 {
		level = 9
	}
	if level < 0 {
		level = 0
	}
	return level
}

func pngCompression(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 5:
		return png.BestSpeed
	case level == 9:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

// Encode writes img in the given format. Quality is format-specific: JPEG
// uses it directly, PNG maps it to a compression level, GIF ignores it.
func Encode(w io.Writer, img image.Image, format transform.Format, quality int) error {
	switch format {
	case transform.FormatJPEG:
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
			return fmt.Errorf("failed to encode JPEG: %w", err)
		}
	case transform.FormatPNG:
		enc := png.Encoder{CompressionLevel: pngCompression(PNGCompressionLevel(quality))}
		if err := enc.Encode(w, img); err != nil {
			return fmt.Errorf("failed to encode PNG: %w", err)
		}
	case transform.FormatGIF:
		if err := gif.Encode(w, img, nil); err != nil {
			return fmt.Errorf("failed to encode GIF: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", transform.ErrUnsupportedFormat, format)
	}
	return nil
}
