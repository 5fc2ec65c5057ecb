package transform

import (
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeMask creates a mask file on disk so SetMask accepts its path
func writeMask(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("mask"), 0o644); err != nil {
		t.Fatalf("failed to write mask file: %v", err)
	}
	return path
}

func TestCacheKey_Format(t *testing.T) {
	d := NewDescriptor("/srv/images/photo.jpg").Resize(100, 50)

	want := fmt.Sprintf("%x-photo-100x50-90.jpg", crc32.ChecksumIEEE([]byte("/srv/images")))
	if got := d.CacheKey(); got != want {
		t.Errorf("CacheKey() = %q, want %q", got, want)
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	a := NewDescriptor("/srv/images/photo.jpg").Resize(100, 50).SetQuality(80)
	b := NewDescriptor("/srv/images/photo.jpg").Resize(100, 50).SetQuality(80)

	if a.CacheKey() != b.CacheKey() {
		t.Errorf("identical parameters produced different keys: %q vs %q", a.CacheKey(), b.CacheKey())
	}
}

func TestCacheKey_ChangesWithEachParameter(t *testing.T) {
	maskPath := writeMask(t, "stamp.png")

	base := func() *Descriptor {
		return NewDescriptor("/srv/images/photo.jpg").Resize(100, 50)
	}
	baseKey := base().CacheKey()

	tests := []struct {
		name   string
		mutate func(*Descriptor)
	}{
		{"width", func(d *Descriptor) { d.Resize(101, 50) }},
		{"height", func(d *Descriptor) { d.Resize(100, 51) }},
		{"quality", func(d *Descriptor) { d.SetQuality(80) }},
		{"ratio", func(d *Descriptor) { d.SetRatio(false) }},
		{"fit", func(d *Descriptor) { d.SetFit(true) }},
		{"mask", func(d *Descriptor) { d.SetMask(maskPath, 60) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base()
			tt.mutate(d)
			if d.CacheKey() == baseKey {
				t.Errorf("changing %s did not change the cache key %q", tt.name, baseKey)
			}
		})
	}
}

func TestCacheKey_PolicySuffix(t *testing.T) {
	d := NewDescriptor("/srv/images/photo.jpg").Resize(100, 50)

	if key := d.CacheKey(); strings.Contains(key, "-stretched") || strings.Contains(key, "-scale") {
		t.Errorf("default key %q should carry no policy suffix", key)
	}

	d.SetFit(true)
	if key := d.CacheKey(); !strings.Contains(key, "-scale") {
		t.Errorf("fit key %q should contain -scale", key)
	}

	// Dropping the ratio wins over fit
	d.SetRatio(false)
	key := d.CacheKey()
	if !strings.Contains(key, "-stretched") {
		t.Errorf("stretched key %q should contain -stretched", key)
	}
	if strings.Contains(key, "-scale") {
		t.Errorf("stretched key %q should not contain -scale", key)
	}
}

func TestCacheKey_MaskSuffix(t *testing.T) {
	maskPath := writeMask(t, "stamp.png")

	d := NewDescriptor("/srv/images/photo.jpg").Resize(100, 50).SetMask(maskPath, 60)
	key := d.CacheKey()

	if !strings.Contains(key, "-stamp-60") {
		t.Errorf("masked key %q should contain -stamp-60", key)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Errorf("key %q should keep the source extension", key)
	}
}

func TestSetQuality_Range(t *testing.T) {
	d := NewDescriptor("/srv/images/photo.jpg")

	d.SetQuality(101)
	if got := d.Params().Quality; got != DefaultQuality {
		t.Errorf("Quality after out-of-range set = %d, want %d", got, DefaultQuality)
	}

	d.SetQuality(-1)
	if got := d.Params().Quality; got != DefaultQuality {
		t.Errorf("Quality after negative set = %d, want %d", got, DefaultQuality)
	}

	d.SetQuality(0)
	if got := d.Params().Quality; got != 0 {
		t.Errorf("Quality = %d, want 0", got)
	}

	d.SetQuality(100)
	if got := d.Params().Quality; got != 100 {
		t.Errorf("Quality = %d, want 100", got)
	}
}

func TestSetMask_Validation(t *testing.T) {
	d := NewDescriptor("/srv/images/photo.jpg")

	d.SetMask("/does/not/exist.png", 60)
	if got := d.Params().MaskPath; got != "" {
		t.Errorf("MaskPath = %q, want empty for missing file", got)
	}

	maskPath := writeMask(t, "stamp.png")
	d.SetMask(maskPath, 0)
	p := d.Params()
	if p.MaskPath != maskPath {
		t.Errorf("MaskPath = %q, want %q", p.MaskPath, maskPath)
	}
	if p.MaskTransparency != 100 {
		t.Errorf("MaskTransparency after out-of-range set = %d, want 100", p.MaskTransparency)
	}

	d.SetMask(maskPath, 101)
	if got := d.Params().MaskTransparency; got != 100 {
		t.Errorf("MaskTransparency = %d, want 100", got)
	}

	d.SetMask(maskPath, 55)
	if got := d.Params().MaskTransparency; got != 55 {
		t.Errorf("MaskTransparency = %d, want 55", got)
	}
}

func TestResize_NormalizesNegative(t *testing.T) {
	d := NewDescriptor("/srv/images/photo.jpg").Resize(-10, -20)

	p := d.Params()
	if p.Width != 0 || p.Height != 0 {
		t.Errorf("size = %dx%d, want 0x0", p.Width, p.Height)
	}
	if !d.ResizeRequested() {
		t.Error("ResizeRequested() = false after Resize")
	}
	if !p.ResizeRequested {
		t.Error("Params().ResizeRequested = false after Resize")
	}
}

func TestResizeWidth_ForcesFlags(t *testing.T) {
	d := NewDescriptor("/srv/images/photo.jpg").SetRatio(false).SetFit(true)
	d.ResizeWidth(100)

	p := d.Params()
	if !p.KeepRatio {
		t.Error("KeepRatio = false, want true after ResizeWidth")
	}
	if p.Fit {
		t.Error("Fit = true, want false after ResizeWidth")
	}
	if p.Width != 100 || p.Height != 0 {
		t.Errorf("size = %dx%d, want 100x0", p.Width, p.Height)
	}
}

func TestResizeHeight_ForcesFlags(t *testing.T) {
	d := NewDescriptor("/srv/images/photo.jpg").SetRatio(false).SetFit(true)
	d.ResizeHeight(80)

	p := d.Params()
	if !p.KeepRatio || p.Fit {
		t.Errorf("flags = ratio:%v fit:%v, want ratio:true fit:false", p.KeepRatio, p.Fit)
	}
	if p.Width != 0 || p.Height != 80 {
		t.Errorf("size = %dx%d, want 0x80", p.Width, p.Height)
	}
}

func TestVersion_BumpsOnEverySetter(t *testing.T) {
	maskPath := writeMask(t, "stamp.png")
	d := NewDescriptor("/srv/images/photo.jpg")

	setters := []struct {
		name string
		call func()
	}{
		{"SetQuality", func() { d.SetQuality(80) }},
		{"SetQuality out of range", func() { d.SetQuality(500) }},
		{"SetRatio", func() { d.SetRatio(true) }},
		{"SetFit", func() { d.SetFit(false) }},
		{"SetOffsetX", func() { d.SetOffsetX(5) }},
		{"SetOffsetY", func() { d.SetOffsetY(5) }},
		{"SetMask", func() { d.SetMask(maskPath, 50) }},
		{"Resize", func() { d.Resize(10, 10) }},
	}

	for _, s := range setters {
		before := d.Version()
		s.call()
		if d.Version() == before {
			t.Errorf("%s did not bump the version", s.name)
		}
	}
}

func TestCacheKey_MemoInvalidation(t *testing.T) {
	d := NewDescriptor("/srv/images/photo.jpg").Resize(100, 50)

	key1 := d.CacheKey()
	if key2 := d.CacheKey(); key2 != key1 {
		t.Errorf("repeated CacheKey() = %q, want memoized %q", key2, key1)
	}

	d.SetQuality(80)
	if key3 := d.CacheKey(); key3 == key1 {
		t.Errorf("CacheKey() after setter = %q, want a different key", key3)
	}
}
