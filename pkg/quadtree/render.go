package quadtree

import (
	"image"
	"image/color"
	"image/draw"
)

// Render paints every leaf as a filled rectangle of its color. The canvas
// matches the root region; an empty tree renders as a 0x0 image.
func Render(t *Tree) *image.RGBA {
	canvas := newCanvas(t, color.Black)
	t.Walk(func(n *Node, _ int) bool {
		if n.IsLeaf() {
			fill(canvas, n)
		}
		return true
	})
	return canvas
}

// RenderAtDepth paints the tree as it looks when cut off at the given level:
// nodes at that level are drawn with their average color, shallower leaves
// are drawn as usual. Level 0 is the root alone.
func RenderAtDepth(t *Tree, level int, background color.Color) *image.RGBA {
	canvas := newCanvas(t, background)
	t.Walk(func(n *Node, l int) bool {
		if n.IsLeaf() || l == level {
			fill(canvas, n)
			return false
		}
		return true
	})
	return canvas
}

func newCanvas(t *Tree, bg color.Color) *image.RGBA {
	if t == nil || t.Root() == nil {
		return image.NewRGBA(image.Rectangle{})
	}
	r := t.Root().Region()
	canvas := image.NewRGBA(image.Rect(0, 0, r.X+r.Width, r.Y+r.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return canvas
}

func fill(canvas *image.RGBA, n *Node) {
	rect := n.Region().Rect().Intersect(canvas.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(canvas, rect, image.NewUniform(n.Color()), image.Point{}, draw.Src)
}
