package compressor

import (
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/harliandi/go-quadtree/pkg/quadtree"
)

var (
	// ErrFileTooLarge is returned when the file exceeds the size limit
	ErrFileTooLarge = errors.New("file size exceeds limit")
	// ErrInvalidImageDimensions is returned when image dimensions are invalid
	ErrInvalidImageDimensions = errors.New("invalid image dimensions")
	// ErrImageTooLarge is returned when image dimensions exceed limits
	ErrImageTooLarge = errors.New("image dimensions exceed maximum allowed")
	// ErrInvalidParams is returned for out-of-range compression parameters
	ErrInvalidParams = quadtree.ErrInvalidParams
)

// Validation limits
const (
	MaxFileSize       = 20 * 1024 * 1024 // 20MB max file size
	MaxImageWidth     = 20000            // 20K pixels max width
	MaxImageHeight    = 20000            // 20K pixels max height
	MaxImagePixels    = 100_000_000      // 100 megapixels, the grid keeps 3 bytes per pixel
	MinImageDimension = 1
)

// ValidateFile checks the file size before decoding. maxBytes <= 0 uses MaxFileSize.
func ValidateFile(data []byte, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = MaxFileSize
	}
	if int64(len(data)) > maxBytes {
		log.Printf("File too large: %d bytes (max: %d)", len(data), maxBytes)
		return ErrFileTooLarge
	}
	if len(data) == 0 {
		return ErrInvalidImageDimensions
	}
	return nil
}

// ValidateImage checks decoded image dimensions are within acceptable limits
func ValidateImage(img image.Image) error {
	if img == nil {
		return ErrInvalidImageDimensions
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width < MinImageDimension || height < MinImageDimension {
		log.Printf("Invalid dimensions: %dx%d", width, height)
		return ErrInvalidImageDimensions
	}

	if width > MaxImageWidth || height > MaxImageHeight {
		log.Printf("Dimensions too large: %dx%d (max: %dx%d)", width, height, MaxImageWidth, MaxImageHeight)
		return ErrImageTooLarge
	}

	// Check total pixel count (prevent decompression bomb attacks)
	totalPixels := int64(width) * int64(height)
	if totalPixels > MaxImagePixels {
		log.Printf("Too many pixels: %d (max: %d)", totalPixels, MaxImagePixels)
		return ErrImageTooLarge
	}

	return nil
}

// ValidateParams checks p against an image of the given area. A minimum block
// larger than the image is capped to the image area instead of rejected.
func ValidateParams(p quadtree.Params, area int) (quadtree.Params, error) {
	if area > 0 && p.MinBlockSize > area {
		log.Printf("Min block size %d exceeds image area %d, capping", p.MinBlockSize, area)
		p.MinBlockSize = area
	}
	if err := p.Validate(area); err != nil {
		return p, fmt.Errorf("validate params: %w", err)
	}
	return p, nil
}
