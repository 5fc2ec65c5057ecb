package transform

import (
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
)

// DefaultQuality is the encode quality used when none is configured
const DefaultQuality = 90

// Params is the full set of transform parameters for one source image.
// Width/Height of 0 mean "unconstrained in that dimension".
type Params struct {
	SourcePath       string
	Width            int
	Height           int
	KeepRatio        bool
	Fit              bool
	Quality          int
	OffsetX          int
	OffsetY          int
	MaskPath         string
	MaskTransparency int

	// ResizeRequested marks that target dimensions were explicitly set.
	// Without it the pipeline leaves the source pixels unresampled.
	ResizeRequested bool
}

// Descriptor holds the transform parameters for one source image and derives
// the deterministic cache key from them. Setters are fluent and mutate the
// descriptor in place; every mutation bumps an internal version counter so
// that memoized derived state (the cache key here, the cached flag on the
// caller's side) is never served against stale parameters.
type Descriptor struct {
	params  Params
	version int

	keyVersion int
	key        string
	keyValid   bool
}

// NewDescriptor creates a descriptor for the given source path with default
// parameters: unconstrained size, aspect ratio kept, no fit, quality 90.
func NewDescriptor(sourcePath string) *Descriptor {
	return &Descriptor{
		params: Params{
			SourcePath:       sourcePath,
			KeepRatio:        true,
			Quality:          DefaultQuality,
			MaskTransparency: 100,
		},
	}
}

// Params returns a copy of the current parameter set
func (d *Descriptor) Params() Params {
	return d.params
}

// Version returns the current parameter version. It changes on every setter
// call and is the token callers use to invalidate their own memoized state.
func (d *Descriptor) Version() int {
	return d.version
}

// ResizeRequested reports whether Resize (or a delegate) has been called
func (d *Descriptor) ResizeRequested() bool {
	return d.params.ResizeRequested
}

func (d *Descriptor) invalidate() {
	d.version++
	d.keyValid = false
}

// SetQuality sets the encode quality. Values outside [0,100] leave the
// previous quality in place but still invalidate derived state.
func (d *Descriptor) SetQuality(quality int) *Descriptor {
	if quality >= 0 && quality <= 100 {
		d.params.Quality = quality
	}
	d.invalidate()
	return d
}

// SetRatio selects whether the source aspect ratio is preserved
func (d *Descriptor) SetRatio(keep bool) *Descriptor {
	d.params.KeepRatio = keep
	d.invalidate()
	return d
}

// SetFit selects fill-and-crop mode: the output canvas is fixed at the
// target size and the resampled image fills it, overflow clipped
func (d *Descriptor) SetFit(fit bool) *Descriptor {
	d.params.Fit = fit
	d.invalidate()
	return d
}

// SetOffsetX shifts the fitted image horizontally, in pixels. Only applied
// when fit mode is active.
func (d *Descriptor) SetOffsetX(offset int) *Descriptor {
	d.params.OffsetX = offset
	d.invalidate()
	return d
}

// SetOffsetY shifts the fitted image vertically, in pixels
func (d *Descriptor) SetOffsetY(offset int) *Descriptor {
	d.params.OffsetY = offset
	d.invalidate()
	return d
}

// SetMask configures a watermark overlay. The mask path is only accepted if
// it exists on the filesystem; transparency is only accepted within [1,100].
// The position argument is reserved and currently has no effect.
func (d *Descriptor) SetMask(path string, transparency int, position ...string) *Descriptor {
	_ = position
	if _, err := os.Stat(path); err == nil {
		d.params.MaskPath = path
	}
	if transparency >= 1 && transparency <= 100 {
		d.params.MaskTransparency = transparency
	}
	d.invalidate()
	return d
}

// Resize sets the target dimensions. Negative values are normalized to 0
// (unconstrained).
func (d *Descriptor) Resize(width, height int) *Descriptor {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	d.params.Width = width
	d.params.Height = height
	d.params.ResizeRequested = true
	d.invalidate()
	return d
}

// ResizeWidth constrains only the width, forcing aspect-preserving
// fit-within mode
func (d *Descriptor) ResizeWidth(width int) *Descriptor {
	d.params.KeepRatio = true
	d.params.Fit = false
	return d.Resize(width, 0)
}

// ResizeHeight constrains only the height, forcing aspect-preserving
// fit-within mode
func (d *Descriptor) ResizeHeight(height int) *Descriptor {
	d.params.KeepRatio = true
	d.params.Fit = false
	return d.Resize(0, height)
}

// CacheKey derives the deterministic artifact name for the current
// parameters:
//
//	{hex-crc32(dir)}-{basename}-{W}x{H}-{quality}{suffix}.{ext}
//
// The suffix encodes the scaling policy ("-stretched" when the ratio is
// dropped, "-scale" in fit mode) and, when a mask is set, the mask base name
// and transparency. The key has no random or time-based components, so
// identical inputs produce identical keys across process restarts.
func (d *Descriptor) CacheKey() string {
	if d.keyValid && d.keyVersion == d.version {
		return d.key
	}

	dir := filepath.Dir(d.params.SourcePath)
	ext := strings.TrimPrefix(filepath.Ext(d.params.SourcePath), ".")
	base := strings.TrimSuffix(filepath.Base(d.params.SourcePath), filepath.Ext(d.params.SourcePath))

	var suffix string
	switch {
	case !d.params.KeepRatio:
		suffix = "-stretched"
	case d.params.Fit:
		suffix = "-scale"
	}
	if d.params.MaskPath != "" {
		maskBase := strings.TrimSuffix(filepath.Base(d.params.MaskPath), filepath.Ext(d.params.MaskPath))
		suffix += fmt.Sprintf("-%s-%d", maskBase, d.params.MaskTransparency)
	}

	d.key = fmt.Sprintf("%x-%s-%dx%d-%d%s.%s",
		crc32.ChecksumIEEE([]byte(dir)),
		base,
		d.params.Width, d.params.Height,
		d.params.Quality,
		suffix,
		ext,
	)
	d.keyVersion = d.version
	d.keyValid = true
	return d.key
}
