// Package codec reads images into pixel grids and writes rendered
// quadtrees back out, and measures the byte cost of a tree either by
// encoding it for real or by packing its leaves into a compressed stream.
package codec

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for formats the codec cannot write or read
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrDecode is returned when input bytes cannot be decoded
	ErrDecode = errors.New("cannot decode image")
)

// Format is an image container format
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatWebP Format = "webp"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
	FormatHEIF Format = "heif" // input only
)

// ParseFormat maps a format name or extension (with or without dot) to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "gif":
		return FormatGIF, nil
	case "webp":
		return FormatWebP, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "heic", "heif":
		return FormatHEIF, nil
	}
	return "", ErrUnsupportedFormat
}

// FormatFromPath derives the format from a file extension
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// CanEncode reports whether the codec can write f
func (f Format) CanEncode() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatGIF, FormatWebP, FormatBMP, FormatTIFF:
		return true
	}
	return false
}

// ContentType returns the MIME type of f
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	case FormatHEIF:
		return "image/heif"
	}
	return "application/octet-stream"
}

// Extension returns the canonical file extension including the dot
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatHEIF:
		return ".heic"
	case "":
		return ""
	}
	return "." + string(f)
}
