package quadtree

import (
	"errors"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

var (
	// ErrInvalidRegion is returned when a rectangle is not fully inside the grid
	ErrInvalidRegion = errors.New("region outside grid bounds")
	// ErrEmptyGrid is returned when a grid would have a zero dimension
	ErrEmptyGrid = errors.New("grid must be at least 1x1")
)

// Pixel is a single RGB sample
type Pixel struct {
	R, G, B uint8
}

// Channel returns the value of channel c (0=R, 1=G, 2=B)
func (p Pixel) Channel(c int) uint8 {
	switch c {
	case 0:
		return p.R
	case 1:
		return p.G
	case 2:
		return p.B
	default:
		return 0
	}
}

// RGBA implements color.Color with an opaque alpha
func (p Pixel) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff}.RGBA()
}

// Region is an axis-aligned rectangle addressed by its top-left corner
type Region struct {
	X, Y          int
	Width, Height int
}

// Area returns Width*Height
func (r Region) Area() int {
	return r.Width * r.Height
}

// Rect converts the region to an image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Grid is a read-only 2D buffer of RGB samples stored row-major, 3 bytes per pixel.
// The core never mutates a grid after construction, so it is safe to share
// between goroutines.
type Grid struct {
	width  int
	height int
	pix    []uint8
}

// NewGrid wraps packed RGB samples. len(pix) must be width*height*3.
func NewGrid(width, height int, pix []uint8) (*Grid, error) {
	if width < 1 || height < 1 {
		return nil, ErrEmptyGrid
	}
	if len(pix) != width*height*3 {
		return nil, ErrInvalidRegion
	}
	buf := make([]uint8, len(pix))
	copy(buf, pix)
	return &Grid{width: width, height: height, pix: buf}, nil
}

// GridFromRows builds a grid from ordered rows of pixels. All rows must have the same length.
func GridFromRows(rows [][]Pixel) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	w, h := len(rows[0]), len(rows)
	pix := make([]uint8, 0, w*h*3)
	for _, row := range rows {
		if len(row) != w {
			return nil, ErrInvalidRegion
		}
		for _, p := range row {
			pix = append(pix, p.R, p.G, p.B)
		}
	}
	return &Grid{width: w, height: h, pix: pix}, nil
}

// GridFromImage converts any decoded image into a grid, dropping alpha
func GridFromImage(img image.Image) (*Grid, error) {
	if img == nil {
		return nil, ErrEmptyGrid
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 1 || h < 1 {
		return nil, ErrEmptyGrid
	}

	// Normalize to NRGBA so the channel values are not premultiplied.
	src, ok := img.(*image.NRGBA)
	if !ok || src.Rect.Min != (image.Point{}) {
		src = image.NewNRGBA(image.Rect(0, 0, w, h))
		xdraw.Draw(src, src.Rect, img, b.Min, xdraw.Src)
	}

	pix := make([]uint8, w*h*3)
	for y := 0; y < h; y++ {
		in := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := pix[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			out[x*3] = in[x*4]
			out[x*3+1] = in[x*4+1]
			out[x*3+2] = in[x*4+2]
		}
	}
	return &Grid{width: w, height: h, pix: pix}, nil
}

// Width returns the grid width in pixels
func (g *Grid) Width() int { return g.width }

// Height returns the grid height in pixels
func (g *Grid) Height() int { return g.height }

// Bounds returns the region covering the whole grid
func (g *Grid) Bounds() Region {
	return Region{Width: g.width, Height: g.height}
}

// At returns the pixel at (x, y). The caller must stay in bounds.
func (g *Grid) At(x, y int) Pixel {
	i := (y*g.width + x) * 3
	return Pixel{R: g.pix[i], G: g.pix[i+1], B: g.pix[i+2]}
}

// Valid reports whether r lies fully inside the grid with a positive area
func (g *Grid) Valid(r Region) bool {
	return r.X >= 0 && r.Y >= 0 &&
		r.Width > 0 && r.Height > 0 &&
		r.X+r.Width <= g.width &&
		r.Y+r.Height <= g.height
}

// row returns the packed samples of row y restricted to the region's columns
func (g *Grid) row(r Region, y int) []uint8 {
	start := (y*g.width + r.X) * 3
	return g.pix[start : start+r.Width*3]
}

// channelValues visits every sample of channel c inside r
func (g *Grid) channelValues(r Region, c int, visit func(v uint8)) {
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := g.row(r, y)
		for i := c; i < len(row); i += 3 {
			visit(row[i])
		}
	}
}

// ChannelSums returns the per-channel sum of samples in r
func (g *Grid) ChannelSums(r Region) ([3]int64, error) {
	var sums [3]int64
	if !g.Valid(r) {
		return sums, ErrInvalidRegion
	}
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := g.row(r, y)
		for i := 0; i < len(row); i += 3 {
			sums[0] += int64(row[i])
			sums[1] += int64(row[i+1])
			sums[2] += int64(row[i+2])
		}
	}
	return sums, nil
}

// AverageColor returns the integer mean color of r
func (g *Grid) AverageColor(r Region) (Pixel, error) {
	sums, err := g.ChannelSums(r)
	if err != nil {
		return Pixel{}, err
	}
	n := int64(r.Area())
	return Pixel{
		R: uint8(sums[0] / n),
		G: uint8(sums[1] / n),
		B: uint8(sums[2] / n),
	}, nil
}

// ChannelMean returns the floating-point mean of channel c over r
func (g *Grid) ChannelMean(r Region, c int) (float64, error) {
	if !g.Valid(r) {
		return 0, ErrInvalidRegion
	}
	var sum float64
	g.channelValues(r, c, func(v uint8) { sum += float64(v) })
	return sum / float64(r.Area()), nil
}

// ChannelVariance returns the population variance of channel c over r
func (g *Grid) ChannelVariance(r Region, c int) (float64, error) {
	mean, err := g.ChannelMean(r, c)
	if err != nil {
		return 0, err
	}
	var acc float64
	g.channelValues(r, c, func(v uint8) {
		d := float64(v) - mean
		acc += d * d
	})
	return acc / float64(r.Area()), nil
}

// Image copies the grid into an RGBA image
func (g *Grid) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			i := (y*g.width + x) * 3
			o := img.PixOffset(x, y)
			img.Pix[o] = g.pix[i]
			img.Pix[o+1] = g.pix[i+1]
			img.Pix[o+2] = g.pix[i+2]
			img.Pix[o+3] = 0xff
		}
	}
	return img
}
