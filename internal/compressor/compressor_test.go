package compressor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/harliandi/go-quadtree/internal/config"
	"github.com/harliandi/go-quadtree/pkg/codec"
	"github.com/harliandi/go-quadtree/pkg/quadtree"
	"github.com/harliandi/go-quadtree/pkg/search"
)

// createTestImage creates a gradient test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCompress(t *testing.T) {
	data := encodePNG(t, createTestImage(64, 48))
	c := New(DefaultOptions())

	res, err := c.Compress(context.Background(), data)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if _, err := uuid.Parse(res.RunID); err != nil {
		t.Errorf("RunID %q is not a uuid: %v", res.RunID, err)
	}
	if res.OriginalSize != int64(len(data)) {
		t.Errorf("OriginalSize = %d, want %d", res.OriginalSize, len(data))
	}
	if res.CompressedSize != int64(len(res.Encoded)) {
		t.Errorf("CompressedSize = %d, len(Encoded) = %d", res.CompressedSize, len(res.Encoded))
	}
	if res.Search != nil {
		t.Error("no target ratio, search should not run")
	}
	if res.Threshold != 10 {
		t.Errorf("Threshold = %g, want 10", res.Threshold)
	}
	if res.Tree == nil || res.Tree.LeafCount() == 0 {
		t.Fatal("missing tree")
	}
	if want := 8 + 19*int64(res.Tree.LeafCount()); res.EstimatedSize != want {
		t.Errorf("EstimatedSize = %d, want %d", res.EstimatedSize, want)
	}

	img, f, err := codec.Decode(res.Encoded)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if f != codec.FormatPNG {
		t.Errorf("output format = %s, want png", f)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("output bounds = %v", img.Bounds())
	}
}

func TestCompress_KeepsInputFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, createTestImage(16, 16), nil); err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	opts.Format = ""

	res, err := New(opts).Compress(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if res.Format != codec.FormatGIF {
		t.Errorf("Format = %s, want gif", res.Format)
	}
}

func TestCompressImage_RawOriginalSize(t *testing.T) {
	res, err := New(DefaultOptions()).CompressImage(context.Background(), createTestImage(10, 10), 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.OriginalSize != 300 {
		t.Errorf("OriginalSize = %d, want 300", res.OriginalSize)
	}
}

func TestCompressImage_TargetRatio(t *testing.T) {
	opts := DefaultOptions()
	opts.Params.TargetRatio = 0.9
	opts.Workers = 3

	res, err := New(opts).CompressImage(context.Background(), createTestImage(64, 64), 0)
	if err != nil {
		t.Fatalf("CompressImage() error = %v", err)
	}
	if res.Search == nil {
		t.Fatal("search did not run")
	}
	if res.Search.Status == search.Unattainable {
		t.Fatalf("target reported unattainable: %+v", res.Search)
	}
	var report bytes.Buffer
	if err := res.WriteReport(&report); err != nil {
		t.Fatal(err)
	}
	if want := fmt.Sprintf("Search Ratio (estimate): %.2f%%", res.Search.Ratio*100); !strings.Contains(report.String(), want) {
		t.Errorf("report missing %q:\n%s", want, report.String())
	}
	if math.Abs(res.Search.Ratio-0.9) > 0.05 {
		t.Errorf("search ratio = %.4f, want about 0.9", res.Search.Ratio)
	}
	if res.Threshold != res.Search.Threshold || res.Params.Threshold != res.Threshold {
		t.Errorf("final build used threshold %g, search chose %g", res.Params.Threshold, res.Search.Threshold)
	}
}

func TestCompressImage_UnattainableKeepsThreshold(t *testing.T) {
	opts := DefaultOptions()
	opts.Params.Threshold = 25
	opts.Params.TargetRatio = 0.99999

	res, err := New(opts).CompressImage(context.Background(), createTestImage(32, 32), 0)
	if err != nil {
		t.Fatalf("CompressImage() error = %v", err)
	}
	if res.Search == nil || res.Search.Status != search.Unattainable {
		t.Fatalf("Search = %+v, want unattainable", res.Search)
	}
	if res.Threshold != 25 {
		t.Errorf("Threshold = %g, want the original 25", res.Threshold)
	}
}

func TestCompressImage_Measurers(t *testing.T) {
	for _, mode := range []string{MeasureEstimate, MeasureEncode, "zstd", "lz4", "brotli", "snappy", "gzip"} {
		t.Run(mode, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Measure = mode
			opts.Params.TargetRatio = 0.5
			opts.Workers = 3

			res, err := New(opts).CompressImage(context.Background(), createTestImage(16, 16), 0)
			if err != nil {
				t.Fatalf("CompressImage() error = %v", err)
			}
			if res.EstimatedSize <= 0 {
				t.Errorf("EstimatedSize = %d", res.EstimatedSize)
			}
		})
	}
}

func TestCompress_Errors(t *testing.T) {
	valid := encodePNG(t, createTestImage(8, 8))

	tests := []struct {
		name    string
		opts    func(*Options)
		data    []byte
		wantErr error
	}{
		{"garbage", nil, []byte("not an image"), codec.ErrDecode},
		{"empty", nil, nil, ErrInvalidImageDimensions},
		{"too large", func(o *Options) { o.MaxFileBytes = 10 }, valid, ErrFileTooLarge},
		{"bad measure", func(o *Options) { o.Measure = "xz" }, valid, ErrInvalidParams},
		{"bad threshold", func(o *Options) { o.Params.Threshold = -1 }, valid, ErrInvalidParams},
		{"bad method", func(o *Options) { o.Params.Method = 9 }, valid, ErrInvalidParams},
		{"heif output", func(o *Options) { o.Format = codec.FormatHEIF }, valid, codec.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			_, err := New(opts).Compress(context.Background(), tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Compress() error = %v, want %v", err, tt.wantErr)
			}
			if !IsClientError(err) {
				t.Errorf("IsClientError(%v) = false", err)
			}
		})
	}
}

func TestCompress_Cancelled(t *testing.T) {
	opts := DefaultOptions()
	opts.Params.TargetRatio = 0.5
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(opts).CompressImage(ctx, createTestImage(16, 16), 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("CompressImage() error = %v, want context.Canceled", err)
	}
}

func TestValidateParams_CapsMinBlock(t *testing.T) {
	p := quadtree.DefaultParams()
	p.MinBlockSize = 1000

	got, err := ValidateParams(p, 64)
	if err != nil {
		t.Fatalf("ValidateParams() error = %v", err)
	}
	if got.MinBlockSize != 64 {
		t.Errorf("MinBlockSize = %d, want 64", got.MinBlockSize)
	}

	opts := DefaultOptions()
	opts.Params = p
	res, err := New(opts).CompressImage(context.Background(), createTestImage(8, 8), 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Tree.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want a single leaf", res.Tree.NodeCount())
	}
}

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name    string
		img     image.Image
		wantErr error
	}{
		{"nil", nil, ErrInvalidImageDimensions},
		{"empty", image.NewRGBA(image.Rect(0, 0, 0, 5)), ErrInvalidImageDimensions},
		{"one pixel", image.NewRGBA(image.Rect(0, 0, 1, 1)), nil},
		{"too wide", image.NewGray(image.Rect(0, 0, MaxImageWidth+1, 1)), ErrImageTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateImage(tt.img); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateImage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteReport(t *testing.T) {
	res, err := New(DefaultOptions()).CompressImage(context.Background(), createTestImage(32, 32), 2048)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := res.WriteReport(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Compression Results",
		"Original Image Size: 2048 bytes (2.00 KB)",
		"Compression Percentage:",
		"QuadTree Depth:",
		"QuadTree Node Count:",
		res.RunID,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestValidMeasure(t *testing.T) {
	for _, m := range []string{"estimate", "encode", "zstd", "gzip"} {
		if !ValidMeasure(m) {
			t.Errorf("ValidMeasure(%q) = false", m)
		}
	}
	if ValidMeasure("xz") {
		t.Error("ValidMeasure(xz) = true")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		ErrorMethod:       int(quadtree.Entropy),
		Threshold:         2,
		MinBlockSize:      4,
		TargetCompression: 0.6,
		OutputFormat:      "webp",
		MeasureMode:       "lz4",
		Quality:           70,
		WorkerCount:       5,
	}
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig() error = %v", err)
	}
	if opts.Params.Method != quadtree.Entropy || opts.Params.MinBlockSize != 4 || opts.Params.TargetRatio != 0.6 {
		t.Errorf("Params = %+v", opts.Params)
	}
	if opts.Format != codec.FormatWebP || opts.Measure != "lz4" || opts.Quality != 70 || opts.Workers != 5 {
		t.Errorf("Options = %+v", opts)
	}

	bad := []func(*config.Config){
		func(c *config.Config) { c.ErrorMethod = 0 },
		func(c *config.Config) { c.Threshold = 9 }, // entropy tops out at 8
		func(c *config.Config) { c.OutputFormat = "heic" },
		func(c *config.Config) { c.MeasureMode = "xz" },
	}
	for i, mutate := range bad {
		c := *cfg
		mutate(&c)
		if _, err := OptionsFromConfig(&c); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("case %d: error = %v, want ErrInvalidParams", i, err)
		}
	}
}
