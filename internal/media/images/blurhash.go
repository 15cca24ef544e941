package images

import (
	"fmt"
	"image"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
)

// blurHashSize is the target size for BlurHash computation.
// A small thumbnail produces nearly identical hashes in a fraction of the time.
const blurHashSize = 64

// ComputeBlurHash generates a BlurHash string for img.
// Uses 4x3 components, roughly 20-30 characters.
func ComputeBlurHash(img image.Image) (string, error) {
	hash, err := blurhash.Encode(4, 3, Fit(img, blurHashSize, draw.ApproxBiLinear))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}
