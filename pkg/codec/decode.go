package codec

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"strings"

	"github.com/adrium/goheif"
	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Decode reads an image from data. HEIF and WebP are detected by their
// container magic, everything else goes through the image registry.
func Decode(data []byte) (image.Image, Format, error) {
	if len(data) == 0 {
		return nil, "", ErrDecode
	}

	switch {
	case IsHEIFMagic(data):
		img, err := safeDecode(data, goheif.Decode)
		if err != nil {
			return nil, "", fmt.Errorf("%w: heif: %v", ErrDecode, err)
		}
		return img, FormatHEIF, nil
	case IsWebPMagic(data):
		img, err := safeDecode(data, webp.Decode)
		if err != nil {
			return nil, "", fmt.Errorf("%w: webp: %v", ErrDecode, err)
		}
		return img, FormatWebP, nil
	}

	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	f, err := ParseFormat(name)
	if err != nil {
		return img, Format(name), nil
	}
	return img, f, nil
}

// safeDecode runs a container decoder, turning a panic on malformed input into an error
func safeDecode(data []byte, decode func(io.Reader) (image.Image, error)) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Decoder panic recovered: %v", r)
			img, err = nil, fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return decode(bytes.NewReader(data))
}

// IsHEIFMagic checks for an ISOBMFF "ftyp" box with a HEIF brand
func IsHEIFMagic(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	brand := strings.ToLower(string(data[8:12]))
	switch brand {
	case "heic", "heix", "heim", "heis", "hevc", "hevx", "mif1", "msf1":
		return true
	}
	return false
}

// IsWebPMagic checks for a RIFF container carrying WEBP
func IsWebPMagic(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}
