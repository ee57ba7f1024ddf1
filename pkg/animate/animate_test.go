package animate

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"testing"

	"github.com/harliandi/go-quadtree/pkg/quadtree"
)

func quadrantTree(t *testing.T) *quadtree.Tree {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	colors := []color.RGBA{
		{255, 0, 0, 255}, {0, 255, 0, 255},
		{0, 0, 255, 255}, {0, 0, 0, 255},
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, colors[(y/4)*2+x/4])
		}
	}
	g, err := quadtree.GridFromImage(img)
	if err != nil {
		t.Fatal(err)
	}
	return quadtree.NewBuilder(g, quadtree.DefaultParams()).Build()
}

func TestFrames(t *testing.T) {
	tree := quadrantTree(t)
	frames := Frames(tree)
	if len(frames) != tree.Depth()+1 {
		t.Fatalf("got %d frames, want %d", len(frames), tree.Depth()+1)
	}

	// Level 0 is the root's average color everywhere.
	avg := tree.Root().Color()
	if got := frames[0].RGBAAt(0, 0); got.R != avg.R || got.G != avg.G || got.B != avg.B {
		t.Errorf("frame 0 pixel = %v, want root color %v", got, avg)
	}
	// The last frame is the full decomposition.
	if got := frames[len(frames)-1].RGBAAt(6, 1); got != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("last frame top-right pixel = %v", got)
	}
}

func TestFrames_Empty(t *testing.T) {
	if Frames(nil) != nil {
		t.Error("nil tree should yield no frames")
	}
	if Frames(quadtree.NewTree(nil)) != nil {
		t.Error("empty tree should yield no frames")
	}
}

func TestEncodeGIF(t *testing.T) {
	tree := quadrantTree(t)
	var buf bytes.Buffer
	if err := Write(&buf, tree, 0); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	anim, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatalf("DecodeAll() error = %v", err)
	}
	if len(anim.Image) != tree.Depth()+1 {
		t.Errorf("decoded %d frames, want %d", len(anim.Image), tree.Depth()+1)
	}
	for i, d := range anim.Delay {
		if d != DefaultDelay {
			t.Errorf("frame %d delay = %d, want %d", i, d, DefaultDelay)
		}
	}
	if anim.LoopCount != 0 {
		t.Errorf("LoopCount = %d, want 0 (forever)", anim.LoopCount)
	}
}

func TestEncodeGIF_NoFrames(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeGIF(&buf, nil, 10); !errors.Is(err, ErrNoFrames) {
		t.Errorf("EncodeGIF(nil) error = %v, want ErrNoFrames", err)
	}
}
