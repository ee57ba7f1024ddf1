// Package animate turns a quadtree into a step-by-step subdivision animation.
package animate

import (
	"errors"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"

	"github.com/harliandi/go-quadtree/pkg/quadtree"
)

const (
	// DefaultDelay is the per-frame delay in 100ths of a second
	DefaultDelay = 50
	// MaxFrames caps the animation length for very deep trees
	MaxFrames = 50
)

// ErrNoFrames is returned when there is nothing to animate
var ErrNoFrames = errors.New("no frames to encode")

// Frames renders one snapshot per tree level, from the root alone down to the
// full decomposition, on a white background.
func Frames(t *quadtree.Tree) []*image.RGBA {
	if t == nil || t.Root() == nil {
		return nil
	}
	last := min(t.Depth(), MaxFrames-1)
	frames := make([]*image.RGBA, 0, last+1)
	for level := 0; level <= last; level++ {
		frames = append(frames, quadtree.RenderAtDepth(t, level, color.White))
	}
	return frames
}

// EncodeGIF writes frames as an endlessly looping GIF. A delay below 1 uses
// DefaultDelay.
func EncodeGIF(w io.Writer, frames []*image.RGBA, delay int) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	if delay < 1 {
		delay = DefaultDelay
	}

	anim := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: 0,
	}
	for i, f := range frames {
		anim.Image[i] = paletted(f)
		anim.Delay[i] = delay
	}
	return gif.EncodeAll(w, anim)
}

// Write renders t and encodes the animation in one step
func Write(w io.Writer, t *quadtree.Tree, delay int) error {
	return EncodeGIF(w, Frames(t), delay)
}

// paletted maps a frame onto the Plan9 palette. Blocks are flat, so
// nearest-color mapping is used instead of dithering.
func paletted(src *image.RGBA) *image.Paletted {
	dst := image.NewPaletted(src.Bounds(), palette.Plan9)
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}
