package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harliandi/go-quadtree/internal/compressor"
	"github.com/harliandi/go-quadtree/pkg/codec"
)

func writeTestPNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 8), uint8(y * 8), 100, 255})
		}
	}
	path := filepath.Join(dir, "in.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir)
	out := filepath.Join(dir, "out.jpg")
	anim := filepath.Join(dir, "steps.gif")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-i", in, "-o", out, "-gif", anim, "-m", "mad", "-t", "4", "-workers", "3"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run() error = %v, stderr: %s", err, stderr.String())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if _, f, err := codec.Decode(data); err != nil || f != codec.FormatJPEG {
		t.Errorf("output decode = %s, %v; want jpeg", f, err)
	}

	gf, err := os.Open(anim)
	if err != nil {
		t.Fatal(err)
	}
	defer gf.Close()
	g, err := gif.DecodeAll(gf)
	if err != nil {
		t.Fatalf("gif decode: %v", err)
	}
	if len(g.Image) < 2 {
		t.Errorf("gif has %d frames, want at least 2", len(g.Image))
	}

	if !strings.Contains(stdout.String(), "Compression Percentage") {
		t.Errorf("report missing from stdout: %s", stdout.String())
	}
}

func TestRun_TargetQuiet(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir)
	out := filepath.Join(dir, "out.png")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-i", in, "-o", out, "-target", "0.6", "-measure", "zstd", "-workers", "3", "-quiet"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("quiet run wrote a report: %s", stdout.String())
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	in := writeTestPNG(t, dir)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"missing input", []string{"-o", "x.png"}, errUsage},
		{"unknown output format", []string{"-i", in, "-o", filepath.Join(dir, "x.psd")}, codec.ErrUnsupportedFormat},
		{"heic output", []string{"-i", in, "-o", filepath.Join(dir, "x.png"), "-f", "heic"}, codec.ErrUnsupportedFormat},
		{"bad method", []string{"-i", in, "-o", filepath.Join(dir, "x.png"), "-m", "median"}, compressor.ErrInvalidParams},
		{"bad measure", []string{"-i", in, "-o", filepath.Join(dir, "x.png"), "-measure", "xz"}, compressor.ErrInvalidParams},
		{"threshold out of range", []string{"-i", in, "-o", filepath.Join(dir, "x.png"), "-m", "ssim", "-t", "2"}, compressor.ErrInvalidParams},
		{"missing file", []string{"-i", filepath.Join(dir, "nope.png"), "-o", filepath.Join(dir, "x.png")}, os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, &stdout, &stderr)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("run() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
