// Package estimate approximates the encoded size of a quadtree without
// running a real encoder, so threshold trials stay cheap.
package estimate

import (
	"context"
	"math"

	"github.com/harliandi/go-quadtree/pkg/quadtree"
)

// Measurer reports the byte cost of a built tree
type Measurer interface {
	Measure(ctx context.Context, t *quadtree.Tree) (int64, error)
}

// MeasurerFunc adapts a function to the Measurer interface
type MeasurerFunc func(ctx context.Context, t *quadtree.Tree) (int64, error)

// Measure calls f
func (f MeasurerFunc) Measure(ctx context.Context, t *quadtree.Tree) (int64, error) {
	return f(ctx, t)
}

// Model is a linear size model: a fixed header plus a constant cost per
// leaf block, scaled by optional correction factors. The coefficients are
// heuristics; tune them per deployment rather than relying on the defaults
// to match a particular output format.
type Model struct {
	// BaseOverhead is the fixed cost in bytes (image header)
	BaseOverhead float64
	// BytesPerLeaf is the cost of one stored block
	BytesPerLeaf float64
	// FormatFactors scales the estimate per output format name ("png", "jpeg", ...).
	// Missing formats use a factor of 1.
	FormatFactors map[string]float64
	// MinBlockCoefficient scales the estimate by 1 + k*log2(minBlockSize)
	MinBlockCoefficient float64
}

// DefaultModel stores each leaf as four 32-bit integers (x, y, w, h) plus
// three color bytes, behind an 8-byte width/height header.
func DefaultModel() Model {
	return Model{
		BaseOverhead: 8,
		BytesPerLeaf: 4*4 + 3,
	}
}

// Estimate returns the modelled size for a tree of leafCount leaves
func (m Model) Estimate(leafCount int, format string, minBlockSize int) int64 {
	size := m.BaseOverhead + float64(leafCount)*m.BytesPerLeaf
	if f, ok := m.FormatFactors[format]; ok && f > 0 {
		size *= f
	}
	if m.MinBlockCoefficient != 0 && minBlockSize > 1 {
		size *= 1 + m.MinBlockCoefficient*math.Log2(float64(minBlockSize))
	}
	if size < 0 {
		return 0
	}
	return int64(math.Round(size))
}

// EstimateTree counts the tree's leaves and applies the model
func (m Model) EstimateTree(t *quadtree.Tree, format string, minBlockSize int) int64 {
	leaves := 0
	if t != nil {
		leaves = t.LeafCount()
	}
	return m.Estimate(leaves, format, minBlockSize)
}

// Measurer binds the model to an output format and block size
func (m Model) Measurer(format string, minBlockSize int) Measurer {
	return MeasurerFunc(func(_ context.Context, t *quadtree.Tree) (int64, error) {
		return m.EstimateTree(t, format, minBlockSize), nil
	})
}

// Ratio returns 1 - size/original, or 0 when the original size is unknown
func Ratio(size, original int64) float64 {
	if original <= 0 {
		return 0
	}
	return 1.0 - float64(size)/float64(original)
}
