package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/media/mediatest"
)

func TestInspect(t *testing.T) {
	info, err := Inspect(mediatest.PDF(3))
	require.NoError(t, err)
	assert.Equal(t, 3, info.PageCount)
}

func TestInspect_Invalid(t *testing.T) {
	tests := map[string][]byte{
		"empty":     nil,
		"not a pdf": []byte("hello world"),
		"png":       mediatest.PNG(4, 4),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Inspect(data)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestRotate(t *testing.T) {
	src := mediatest.PDF(2)

	same, err := Rotate(src, 0)
	require.NoError(t, err)
	assert.Equal(t, src, same)

	for _, r := range []int{90, 180, 270} {
		out, err := Rotate(src, domain.Rotation(r))
		require.NoError(t, err)
		assert.NotEqual(t, src, out)

		info, err := Inspect(out)
		require.NoError(t, err)
		assert.Equal(t, 2, info.PageCount)
	}
}

func TestRotate_InvalidAngle(t *testing.T) {
	_, err := Rotate(mediatest.PDF(1), domain.Rotation(45))
	assert.Error(t, err)
}

func TestRotate_InvalidDocument(t *testing.T) {
	_, err := Rotate([]byte("garbage"), domain.Rotation(90))
	assert.ErrorIs(t, err, ErrInvalid)
}
