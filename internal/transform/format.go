package transform

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when a source, mask, or output format is
// not one of the supported trio (JPEG, PNG, GIF).
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Format identifies one of the supported image formats
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
)

// ParseFormat resolves a format name or file extension to a Format
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "gif":
		return FormatGIF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// FormatFromPath resolves a format from a file name's extension
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: no extension in %q", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// MIME returns the content type for the format
func (f Format) MIME() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the canonical file extension without the leading dot
func (f Format) Extension() string {
	return string(f)
}

// HasAlpha reports whether the format carries native transparency. A mask in
// an alpha-capable format is overlaid with its own alpha channel; the
// configured transparency percentage only applies to formats without one.
func (f Format) HasAlpha() bool {
	return f == FormatPNG || f == FormatGIF
}
