// Package compressor runs the full pipeline: decode, optional threshold
// search, final quadtree build, render and encode.
package compressor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/harliandi/go-quadtree/internal/config"
	"github.com/harliandi/go-quadtree/pkg/codec"
	"github.com/harliandi/go-quadtree/pkg/estimate"
	"github.com/harliandi/go-quadtree/pkg/metrics"
	"github.com/harliandi/go-quadtree/pkg/quadtree"
	"github.com/harliandi/go-quadtree/pkg/search"
)

// Measure modes besides the stream algorithms in codec
const (
	MeasureEstimate = "estimate"
	MeasureEncode   = "encode"
)

// Options configures a Compressor
type Options struct {
	Params quadtree.Params
	// Format is the output format; empty keeps the input format when it can
	// be encoded and falls back to PNG otherwise
	Format  codec.Format
	Quality int
	// Measure selects how trial trees are sized during threshold search:
	// "estimate", "encode" or a codec stream algorithm such as "zstd"
	Measure string
	// Workers sizes the trial pool; <= 0 uses search.DefaultWorkers
	Workers int
	// MaxFileBytes limits Compress input; <= 0 uses MaxFileSize
	MaxFileBytes int64
	Model        estimate.Model
}

// DefaultOptions returns Variance at threshold 10, PNG output and the
// leaf-count estimator
func DefaultOptions() Options {
	return Options{
		Params:  quadtree.DefaultParams(),
		Format:  codec.FormatPNG,
		Quality: codec.DefaultQuality,
		Measure: MeasureEstimate,
		Model:   estimate.DefaultModel(),
	}
}

// Compressor compresses images with a fixed set of options. It is safe for
// concurrent use.
type Compressor struct {
	opts Options
}

// New creates a Compressor. A zero Model uses estimate.DefaultModel.
func New(opts Options) *Compressor {
	if opts.Model.BytesPerLeaf == 0 && opts.Model.BaseOverhead == 0 {
		opts.Model = estimate.DefaultModel()
	}
	if opts.Measure == "" {
		opts.Measure = MeasureEstimate
	}
	return &Compressor{opts: opts}
}

// Options returns the compressor's options
func (c *Compressor) Options() Options { return c.opts }

// Result describes one compression run
type Result struct {
	RunID   string
	Tree    *quadtree.Tree
	Image   *image.RGBA
	Encoded []byte
	Format  codec.Format
	Params  quadtree.Params
	// Measure is the measure mode the search and EstimatedSize used
	Measure string

	OriginalSize   int64
	CompressedSize int64
	// EstimatedSize is the final tree as sized by the configured measurer
	EstimatedSize int64
	Threshold     float64
	// Search is nil when no target ratio was requested
	Search   *search.Result
	Duration time.Duration
}

// Ratio is the achieved compression ratio 1 - compressed/original
func (r *Result) Ratio() float64 {
	return estimate.Ratio(r.CompressedSize, r.OriginalSize)
}

// Compress decodes data and compresses it. The original size is the input
// byte count.
func (c *Compressor) Compress(ctx context.Context, data []byte) (*Result, error) {
	if err := ValidateFile(data, c.opts.MaxFileBytes); err != nil {
		return nil, err
	}
	img, inFormat, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	log.Printf("Image loaded: %s %dx%d, %d bytes", inFormat, img.Bounds().Dx(), img.Bounds().Dy(), len(data))
	return c.compress(ctx, img, int64(len(data)), inFormat)
}

// CompressImage compresses an already decoded image. originalSize <= 0 uses
// the raw RGB size.
func (c *Compressor) CompressImage(ctx context.Context, img image.Image, originalSize int64) (*Result, error) {
	return c.compress(ctx, img, originalSize, "")
}

func (c *Compressor) compress(ctx context.Context, img image.Image, originalSize int64, inFormat codec.Format) (res *Result, err error) {
	start := time.Now()
	runID := uuid.NewString()
	mode := c.opts.Measure
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		var in, out int64
		if res != nil {
			in, out = res.OriginalSize, res.CompressedSize
		}
		metrics.RecordCompression(status, mode, time.Since(start).Seconds(), in, out)
	}()

	if err := ValidateImage(img); err != nil {
		return nil, err
	}
	grid, err := quadtree.GridFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageDimensions, err)
	}
	area := grid.Width() * grid.Height()
	if originalSize <= 0 {
		originalSize = int64(area) * 3
	}

	params, err := ValidateParams(c.opts.Params, area)
	if err != nil {
		return nil, err
	}
	format := c.outputFormat(inFormat)
	measurer, err := c.measurer(format, params.MinBlockSize)
	if err != nil {
		return nil, err
	}

	res = &Result{
		RunID:        runID,
		Format:       format,
		Measure:      mode,
		OriginalSize: originalSize,
		Threshold:    params.Threshold,
	}

	if params.TargetRatio > 0 {
		lo, hi := params.Method.Range()
		s := search.New(lo, hi, trialEvaluator(grid, params, measurer, originalSize))
		s.Workers = c.opts.Workers
		log.Printf("[%s] Searching threshold for %.2f%% compression with %s", short(runID), params.TargetRatio*100, params.Method)
		sr, err := s.Find(ctx, params.TargetRatio, params.Threshold)
		if err != nil {
			return nil, fmt.Errorf("threshold search: %w", err)
		}
		if sr.Status == search.Unattainable {
			log.Printf("[%s] Target not achievable, keeping threshold %g", short(runID), params.Threshold)
		}
		res.Search = &sr
		res.Threshold = sr.Threshold
	}
	params = params.WithThreshold(res.Threshold)
	res.Params = params

	tree := quadtree.NewBuilder(grid, params).Build()
	res.Tree = tree
	metrics.RecordTree(tree.NodeCount(), tree.Depth())
	log.Printf("[%s] Tree built: depth %d, %d nodes, %d leaves", short(runID), tree.Depth(), tree.NodeCount(), tree.LeafCount())

	if res.EstimatedSize, err = measurer.Measure(ctx, tree); err != nil {
		return nil, fmt.Errorf("measure final tree: %w", err)
	}

	res.Image = quadtree.Render(tree)
	if res.Encoded, err = codec.EncodeBytes(res.Image, format, c.opts.Quality); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	res.CompressedSize = int64(len(res.Encoded))
	res.Duration = time.Since(start)
	log.Printf("[%s] Compressed %d -> %d bytes (%.2f%%) in %v", short(runID), res.OriginalSize, res.CompressedSize, res.Ratio()*100, res.Duration)
	return res, nil
}

// trialEvaluator builds a fresh tree per threshold; the grid is shared
// read-only and params is copied per call.
func trialEvaluator(grid *quadtree.Grid, params quadtree.Params, m estimate.Measurer, originalSize int64) search.Evaluator {
	return func(ctx context.Context, threshold float64) (float64, error) {
		tree := quadtree.NewBuilder(grid, params.WithThreshold(threshold)).Build()
		size, err := m.Measure(ctx, tree)
		if err != nil {
			return 0, err
		}
		return estimate.Ratio(size, originalSize), nil
	}
}

func (c *Compressor) outputFormat(in codec.Format) codec.Format {
	if c.opts.Format != "" {
		return c.opts.Format
	}
	if in.CanEncode() {
		return in
	}
	return codec.FormatPNG
}

func (c *Compressor) measurer(f codec.Format, minBlock int) (estimate.Measurer, error) {
	switch c.opts.Measure {
	case MeasureEstimate:
		return c.opts.Model.Measurer(string(f), minBlock), nil
	case MeasureEncode:
		if !f.CanEncode() {
			return nil, codec.ErrUnsupportedFormat
		}
		return codec.ImageMeasurer{Format: f, Quality: c.opts.Quality}, nil
	}
	algo, err := codec.ParseAlgorithm(c.opts.Measure)
	if err != nil {
		return nil, fmt.Errorf("%w: measure mode %q", ErrInvalidParams, c.opts.Measure)
	}
	return codec.StreamMeasurer{Algorithm: algo}, nil
}

// ValidMeasure reports whether mode names a supported measurer
func ValidMeasure(mode string) bool {
	if mode == MeasureEstimate || mode == MeasureEncode {
		return true
	}
	_, err := codec.ParseAlgorithm(mode)
	return err == nil
}

// IsClientError reports whether err was caused by the input rather than the
// server
func IsClientError(err error) bool {
	return errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrInvalidImageDimensions) ||
		errors.Is(err, ErrImageTooLarge) ||
		errors.Is(err, ErrInvalidParams) ||
		errors.Is(err, codec.ErrDecode) ||
		errors.Is(err, codec.ErrUnsupportedFormat) ||
		errors.Is(err, search.ErrInvalidTarget)
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// OptionsFromConfig maps loaded configuration onto compressor options
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := DefaultOptions()
	opts.Params = quadtree.Params{
		Method:       quadtree.Method(cfg.ErrorMethod),
		Threshold:    cfg.Threshold,
		MinBlockSize: cfg.MinBlockSize,
		TargetRatio:  cfg.TargetCompression,
	}
	if err := opts.Params.Validate(0); err != nil {
		return opts, err
	}
	f, err := codec.ParseFormat(cfg.OutputFormat)
	if err != nil || !f.CanEncode() {
		return opts, fmt.Errorf("%w: output format %q", ErrInvalidParams, cfg.OutputFormat)
	}
	opts.Format = f
	if !ValidMeasure(cfg.MeasureMode) {
		return opts, fmt.Errorf("%w: measure mode %q", ErrInvalidParams, cfg.MeasureMode)
	}
	opts.Measure = cfg.MeasureMode
	opts.Quality = cfg.Quality
	opts.Workers = cfg.WorkerCount
	return opts, nil
}
