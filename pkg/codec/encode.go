package codec

import (
	"bytes"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"sync"

	"github.com/chai2010/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// DefaultQuality is used for lossy formats when no quality is given
const DefaultQuality = 85

// Encode writes img in format f. quality applies to JPEG and WebP (1..100).
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	switch f {
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	case FormatGIF:
		// Nearest-color mapping keeps flat blocks flat instead of dithering them.
		return gif.Encode(w, img, &gif.Options{
			NumColors: 256,
			Drawer:    draw.Src,
		})
	case FormatWebP:
		return webp.Encode(w, toRGBA(img), &webp.Options{Quality: float32(quality)})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return ErrUnsupportedFormat
}

// EncodeBytes encodes img into a new byte slice
func EncodeBytes(img image.Image, f Format, quality int) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)
	if err := Encode(buf, img, f, quality); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// EncodedSize encodes img and returns only the byte count. The scratch
// buffer is pooled, so repeated threshold trials do not allocate per call.
func EncodedSize(img image.Image, f Format, quality int) (int64, error) {
	buf := getBuffer()
	defer putBuffer(buf)
	if err := Encode(buf, img, f, quality); err != nil {
		return 0, err
	}
	return int64(buf.Len()), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

// maxPooledBuffer keeps oversized buffers from pinning memory in the pool
const maxPooledBuffer = 16 << 20

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 64*1024))
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	bufferPool.Put(buf)
}
