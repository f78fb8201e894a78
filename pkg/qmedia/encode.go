// Package qmedia converts between host media and the strings the inference
// API accepts, and decodes the artifacts predictions return.
package qmedia

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/draw"
)

// MaxEdge bounds the long edge of uploaded images.
const MaxEdge = 1024

// PixelBuffer is a single HWC image with float samples in [0, 1], the layout
// node-graph hosts hand around. Channels is 1, 3 or 4.
type PixelBuffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []float32
}

// Image converts b to an image.Image. Samples are clamped to [0, 1].
func (b PixelBuffer) Image() (image.Image, error) {
	if b.Width <= 0 || b.Height <= 0 {
		return nil, fmt.Errorf("invalid pixel buffer size %dx%d", b.Width, b.Height)
	}
	if want := b.Width * b.Height * b.Channels; len(b.Pix) != want {
		return nil, fmt.Errorf("pixel buffer has %d samples, want %d", len(b.Pix), want)
	}
	rect := image.Rect(0, 0, b.Width, b.Height)
	switch b.Channels {
	case 1:
		img := image.NewGray(rect)
		for i, v := range b.Pix {
			img.Pix[i] = sample(v)
		}
		return img, nil
	case 3, 4:
		img := image.NewNRGBA(rect)
		for px := 0; px < b.Width*b.Height; px++ {
			src := b.Pix[px*b.Channels:]
			dst := img.Pix[px*4:]
			dst[0], dst[1], dst[2], dst[3] = sample(src[0]), sample(src[1]), sample(src[2]), 0xff
			if b.Channels == 4 {
				dst[3] = sample(src[3])
			}
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", b.Channels)
	}
}

func sample(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xff
	}
	return uint8(v * 255)
}

// ToWireString converts a media value to what a media parameter accepts.
// Data URIs and http(s) URLs pass through; images, pixel buffers, encoded
// bytes and local file paths become PNG data URIs.
func ToWireString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		switch {
		case strings.HasPrefix(x, "data:image"), IsURL(x):
			return x, nil
		case x == "":
			return "", fmt.Errorf("empty media value")
		}
		data, err := os.ReadFile(x)
		if err != nil {
			return "", fmt.Errorf("reading media file: %w", err)
		}
		return ToWireString(data)
	case []byte:
		img, _, err := image.Decode(bytes.NewReader(x))
		if err != nil {
			return "", fmt.Errorf("decoding media: %w", err)
		}
		return EncodeImage(img)
	case image.Image:
		return EncodeImage(x)
	case PixelBuffer:
		img, err := x.Image()
		if err != nil {
			return "", err
		}
		return EncodeImage(img)
	case *PixelBuffer:
		if x == nil {
			return "", fmt.Errorf("nil pixel buffer")
		}
		return ToWireString(*x)
	default:
		return "", fmt.Errorf("unsupported media type %T", v)
	}
}

// ToRemoteWireString is ToWireString without local file access, for media
// that arrives over the network.
func ToRemoteWireString(v any) (string, error) {
	if x, ok := v.(string); ok && !strings.HasPrefix(x, "data:image") && !IsURL(x) {
		return "", fmt.Errorf("media must be a data URI or an http(s) URL")
	}
	return ToWireString(v)
}

// EncodeImage downscales img to MaxEdge and returns it as a PNG data URI.
func EncodeImage(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Downscale(img, MaxEdge)); err != nil {
		return "", fmt.Errorf("encoding png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Downscale shrinks img so its long edge is at most maxEdge, keeping the
// aspect ratio. Smaller images are returned unchanged.
func Downscale(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	long := max(w, h)
	if maxEdge <= 0 || long <= maxEdge {
		return img
	}
	nw := max(1, w*maxEdge/long)
	nh := max(1, h*maxEdge/long)

	var dst draw.Image
	if img.ColorModel() == color.GrayModel {
		dst = image.NewGray(image.Rect(0, 0, nw, nh))
	} else {
		dst = image.NewNRGBA(image.Rect(0, 0, nw, nh))
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// IsURL reports whether s is an http(s) URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
