package images

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/manualshelf/manualshelf-server/internal/domain"
)

// DefaultThumbnailSize bounds the longer edge of generated thumbnails.
const DefaultThumbnailSize = 320

// Fit scales img down so its longer edge is at most size, keeping the
// aspect ratio. Smaller images are returned as-is.
func Fit(img image.Image, size int, scaler draw.Scaler) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return img
	}

	var dw, dh int
	if w > h {
		dw = size
		dh = max(h*size/w, 1)
	} else {
		dh = size
		dw = max(w*size/h, 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	scaler.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Thumbnail decodes data, applies the rotation and scales the result to
// fit size. The thumbnail is always JPEG.
func Thumbnail(data []byte, r domain.Rotation, size int) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	img = Rotate(img, r)
	return Encode(Fit(img, size, draw.CatmullRom), domain.FileTypeJPEG)
}
