package domain

import "fmt"

// Rotation is a display rotation in degrees: one of 0, 90, 180 or 270.
type Rotation int

// Quarter turns accepted by Rotate.
const (
	RotateLeft  = -90
	RotateRight = 90
)

// Rotate applies a quarter turn to current and wraps the result into [0, 360).
// Rotate(270, +90) == 0 and Rotate(0, -90) == 270.
func (r Rotation) Rotate(delta int) (Rotation, error) {
	if delta != RotateLeft && delta != RotateRight {
		return r, fmt.Errorf("rotation delta must be -90 or 90, got %d", delta)
	}
	return Rotation(((int(r)+delta)%360 + 360) % 360), nil
}

// NormalizeRotation folds any multiple of 90 into {0, 90, 180, 270}.
func NormalizeRotation(deg int) (Rotation, error) {
	if deg%90 != 0 {
		return 0, fmt.Errorf("rotation must be a multiple of 90, got %d", deg)
	}
	return Rotation((deg%360 + 360) % 360), nil
}

// Valid reports whether r is one of the four normalized angles.
func (r Rotation) Valid() bool {
	return r == 0 || r == 90 || r == 180 || r == 270
}
