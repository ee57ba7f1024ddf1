// Command quadtree compresses an image file by quadtree decomposition.
//
//	quadtree -i photo.jpg -o out.png -m 5 -t 0.15
//	quadtree -i photo.jpg -o out.png -target 0.8 -measure zstd -gif steps.gif
//
// Defaults come from the same environment variables as the API server;
// flags override them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/harliandi/go-quadtree/internal/compressor"
	"github.com/harliandi/go-quadtree/internal/config"
	"github.com/harliandi/go-quadtree/pkg/animate"
	"github.com/harliandi/go-quadtree/pkg/codec"
	"github.com/harliandi/go-quadtree/pkg/quadtree"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			log.Printf("Error: %v", err)
		}
		os.Exit(1)
	}
}

type options struct {
	input, output, gif string
	method, format     string
	measure            string
	threshold, target  float64
	minBlock, quality  int
	workers, delay     int
	quiet              bool
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("quadtree", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.input, "i", "", "Input file. Supported types: jpg, png, gif, webp, bmp, tiff, heic")
	fs.StringVar(&o.output, "o", "", "Output file. The format follows the extension unless -f is given")
	fs.StringVar(&o.gif, "gif", "", "Optional GIF file showing the subdivision level by level")
	fs.StringVar(&o.method, "m", quadtree.Method(cfg.ErrorMethod).String(), "Error method: 1 variance, 2 mad, 3 max, 4 entropy, 5 ssim")
	fs.Float64Var(&o.threshold, "t", cfg.Threshold, "Error threshold; blocks above it are split")
	fs.IntVar(&o.minBlock, "b", cfg.MinBlockSize, "Minimum block area in pixels")
	fs.Float64Var(&o.target, "target", cfg.TargetCompression, "Target compression ratio in (0, 1]; 0 disables the threshold search")
	fs.StringVar(&o.measure, "measure", cfg.MeasureMode, "Trial sizing: estimate, encode, zstd, lz4, brotli, snappy, gzip")
	fs.StringVar(&o.format, "f", "", "Output format (jpeg, png, gif, webp, bmp, tiff)")
	fs.IntVar(&o.quality, "q", cfg.Quality, "JPEG/WebP quality (1-100)")
	fs.IntVar(&o.workers, "workers", cfg.WorkerCount, "Parallel threshold trials")
	fs.IntVar(&o.delay, "delay", animate.DefaultDelay, "GIF frame delay in 1/100 s")
	fs.BoolVar(&o.quiet, "quiet", false, "Suppress the results report")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: quadtree -i input -o output [flags]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if o.input == "" || o.output == "" {
		fmt.Fprintln(stderr, "Missing input or output file parameter!")
		fs.Usage()
		return nil, errUsage
	}
	return o, nil
}

// compressorOptions resolves flags into compressor options
func (o *options) compressorOptions() (compressor.Options, error) {
	opts := compressor.DefaultOptions()

	m, err := quadtree.ParseMethod(o.method)
	if err != nil {
		return opts, fmt.Errorf("%w: %v", compressor.ErrInvalidParams, err)
	}
	opts.Params = quadtree.Params{
		Method:       m,
		Threshold:    o.threshold,
		MinBlockSize: o.minBlock,
		TargetRatio:  o.target,
	}

	f, err := codec.FormatFromPath(o.output)
	if o.format != "" {
		f, err = codec.ParseFormat(o.format)
	}
	if err != nil || !f.CanEncode() {
		return opts, fmt.Errorf("%w: cannot write %s", codec.ErrUnsupportedFormat, o.output)
	}
	opts.Format = f

	if !compressor.ValidMeasure(o.measure) {
		return opts, fmt.Errorf("%w: measure mode %q", compressor.ErrInvalidParams, o.measure)
	}
	opts.Measure = o.measure
	opts.Quality = o.quality
	opts.Workers = o.workers
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := config.Load()
	o, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}
	opts, err := o.compressorOptions()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(o.input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	opts.MaxFileBytes = int64(len(data))

	res, err := compressor.New(opts).Compress(ctx, data)
	if err != nil {
		return err
	}

	if err := os.WriteFile(o.output, res.Encoded, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Printf("Saved %s", o.output)

	if o.gif != "" {
		if err := writeGIF(o.gif, res.Tree, o.delay); err != nil {
			return err
		}
		log.Printf("Saved %s", o.gif)
	}

	if !o.quiet {
		return res.WriteReport(stdout)
	}
	return nil
}

func writeGIF(path string, t *quadtree.Tree, delay int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gif: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := animate.Write(f, t, delay); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}
