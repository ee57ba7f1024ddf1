package quadtree

import (
	"errors"
	"fmt"
	"log"
	"math"
)

// ErrInvalidParams is returned when compression parameters are out of range
var ErrInvalidParams = errors.New("invalid compression parameters")

// Params configures a single build. It is passed by value: callers that need
// a different threshold copy it rather than mutating a shared instance.
type Params struct {
	Method       Method
	Threshold    float64
	MinBlockSize int     // minimum sub-block area, not side length
	TargetRatio  float64 // 0 disables threshold search
}

// DefaultParams returns Variance with threshold 10 and 1-pixel blocks
func DefaultParams() Params {
	return Params{
		Method:       Variance,
		Threshold:    10,
		MinBlockSize: 1,
	}
}

// WithThreshold returns a copy of p using threshold t
func (p Params) WithThreshold(t float64) Params {
	p.Threshold = t
	return p
}

// Validate checks the parameters against a grid of the given area
func (p Params) Validate(area int) error {
	if !p.Method.Valid() {
		return fmt.Errorf("%w: error method %d", ErrInvalidParams, p.Method)
	}
	lo, hi := p.Method.Range()
	if math.IsNaN(p.Threshold) || p.Threshold < lo || p.Threshold > hi {
		return fmt.Errorf("%w: threshold %g outside [%g, %g] for %s", ErrInvalidParams, p.Threshold, lo, hi, p.Method)
	}
	if p.MinBlockSize < 1 {
		return fmt.Errorf("%w: min block size %d", ErrInvalidParams, p.MinBlockSize)
	}
	if area > 0 && p.MinBlockSize > area {
		return fmt.Errorf("%w: min block size %d exceeds image area %d", ErrInvalidParams, p.MinBlockSize, area)
	}
	if math.IsNaN(p.TargetRatio) || p.TargetRatio < 0 || p.TargetRatio > 1 {
		return fmt.Errorf("%w: target ratio %g outside [0, 1]", ErrInvalidParams, p.TargetRatio)
	}
	return nil
}

// Builder decomposes a grid into a quadtree. A Builder holds no mutable
// state, so one grid can feed many builders concurrently.
type Builder struct {
	grid      *Grid
	metric    Metric
	threshold float64
	minBlock  int
}

// NewBuilder creates a builder for grid using the metric selected by p.Method
func NewBuilder(grid *Grid, p Params) *Builder {
	return NewBuilderWithMetric(grid, NewMetric(p.Method), p)
}

// NewBuilderWithMetric creates a builder with an explicit metric implementation
func NewBuilderWithMetric(grid *Grid, m Metric, p Params) *Builder {
	minBlock := p.MinBlockSize
	if minBlock < 1 {
		minBlock = 1
	}
	return &Builder{
		grid:      grid,
		metric:    m,
		threshold: p.Threshold,
		minBlock:  minBlock,
	}
}

// Build runs the recursive decomposition over the whole grid
func (b *Builder) Build() *Tree {
	if b.grid == nil {
		return &Tree{}
	}
	return NewTree(b.build(b.grid.Bounds(), 0))
}

func (b *Builder) build(r Region, depth int) *Node {
	color, err := b.averageColor(r)
	node := newNode(r, color)
	if err != nil {
		log.Printf("quadtree: leaf at %+v (depth %d): %v", r, depth, err)
		return node
	}

	if !b.shouldSubdivide(r, depth) {
		return node
	}

	halfW, halfH := r.Width/2, r.Height/2
	if halfW*halfH < b.minBlock {
		return node
	}
	remW, remH := r.Width-halfW, r.Height-halfH

	quads := [4]Region{
		{X: r.X, Y: r.Y, Width: halfW, Height: halfH},
		{X: r.X + halfW, Y: r.Y, Width: remW, Height: halfH},
		{X: r.X, Y: r.Y + halfH, Width: halfW, Height: remH},
		{X: r.X + halfW, Y: r.Y + halfH, Width: remW, Height: remH},
	}
	node.children = make([]*Node, 0, 4)
	for _, q := range quads {
		node.children = append(node.children, b.build(q, depth+1))
	}
	return node
}

// shouldSubdivide reports whether the region's error exceeds the threshold.
// Invalid regions and metric failures keep the node a leaf.
func (b *Builder) shouldSubdivide(r Region, depth int) (split bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("quadtree: metric panic at %+v (depth %d): %v", r, depth, rec)
			split = false
		}
	}()

	if !b.grid.Valid(r) {
		log.Printf("quadtree: invalid region %+v (depth %d)", r, depth)
		return false
	}
	score, err := b.metric.CalculateError(b.grid, r)
	if err != nil {
		log.Printf("quadtree: metric error at %+v (depth %d): %v", r, depth, err)
		return false
	}
	return score > b.threshold
}

func (b *Builder) averageColor(r Region) (c Pixel, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			c, err = Pixel{}, fmt.Errorf("average color panic: %v", rec)
		}
	}()
	if r.Area() <= 0 {
		return Pixel{}, nil
	}
	return b.grid.AverageColor(r)
}
