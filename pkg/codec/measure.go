package codec

import (
	"context"

	"github.com/harliandi/go-quadtree/pkg/quadtree"
)

// ImageMeasurer renders a tree and encodes it with the real encoder.
// It is the accurate, expensive measurement.
type ImageMeasurer struct {
	Format  Format
	Quality int
}

// Measure implements estimate.Measurer
func (m ImageMeasurer) Measure(ctx context.Context, t *quadtree.Tree) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !m.Format.CanEncode() {
		return 0, ErrUnsupportedFormat
	}
	return EncodedSize(quadtree.Render(t), m.Format, m.Quality)
}

// StreamMeasurer packs the leaves and compresses them with a
// general-purpose algorithm, approximating a dedicated block format.
type StreamMeasurer struct {
	Algorithm Algorithm
}

// Measure implements estimate.Measurer
func (m StreamMeasurer) Measure(ctx context.Context, t *quadtree.Tree) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out, err := Compress(m.Algorithm, PackLeaves(t))
	if err != nil {
		return 0, err
	}
	return int64(len(out)), nil
}
