// Package images decodes, rotates and thumbnails stored bitmaps, and keeps
// a disk cache of rendered thumbnails.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/manualshelf/manualshelf-server/internal/domain"
)

// ErrInvalid is returned for data that does not decode as an image.
var ErrInvalid = errors.New("images: invalid image")

// jpegQuality is used whenever an image is re-encoded as JPEG.
const jpegQuality = 90

// Info describes a decoded image.
type Info struct {
	Width    int
	Height   int
	Format   string
	BlurHash string
}

// Decode decodes data in any registered format.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return img, format, nil
}

// Inspect decodes data and computes its BlurHash placeholder.
// A BlurHash failure is not fatal; the hash is left empty.
func Inspect(data []byte) (Info, error) {
	img, format, err := Decode(data)
	if err != nil {
		return Info{}, err
	}
	b := img.Bounds()
	info := Info{Width: b.Dx(), Height: b.Dy(), Format: format}
	info.BlurHash, _ = ComputeBlurHash(img)
	return info, nil
}

// Rotate turns img clockwise by r using an affine transform.
func Rotate(img image.Image, r domain.Rotation) image.Image {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	var (
		m   f64.Aff3
		dst *image.RGBA
	)
	switch r {
	case 90:
		m = f64.Aff3{0, -1, h, 1, 0, 0}
		dst = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	case 180:
		m = f64.Aff3{-1, 0, w, 0, -1, h}
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	case 270:
		m = f64.Aff3{0, 1, 0, -1, 0, w}
		dst = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	default:
		return img
	}

	// Translate the source origin to zero before turning.
	m[2] -= m[0]*float64(b.Min.X) + m[1]*float64(b.Min.Y)
	m[5] -= m[3]*float64(b.Min.X) + m[4]*float64(b.Min.Y)

	draw.NearestNeighbor.Transform(dst, m, img, b, draw.Src, nil)
	return dst
}

// Encode writes img in the format of t. Unknown types are encoded as PNG.
func Encode(img image.Image, t domain.FileType) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if t == domain.FileTypeJPEG {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return buf.Bytes(), nil
}

// Render returns data rotated by r and re-encoded as t.
// A zero rotation returns data unchanged.
func Render(data []byte, t domain.FileType, r domain.Rotation) ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("images: invalid rotation %d", r)
	}
	if r == 0 {
		return data, nil
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Encode(Rotate(img, r), t)
}
