// Package filetype identifies uploaded files by their content.
package filetype

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/manualshelf/manualshelf-server/internal/domain"
)

// Result is the outcome of sniffing a payload.
type Result struct {
	Type domain.FileType
	MIME string
}

// Detect sniffs data and maps it onto a supported file type. Content that is
// not a PDF, JPEG or PNG yields an error naming the detected MIME type.
func Detect(data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("empty file")
	}

	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/pdf"):
		return Result{Type: domain.FileTypePDF, MIME: mt.String()}, nil
	case mt.Is("image/jpeg"):
		return Result{Type: domain.FileTypeJPEG, MIME: mt.String()}, nil
	case mt.Is("image/png"):
		return Result{Type: domain.FileTypePNG, MIME: mt.String()}, nil
	default:
		return Result{MIME: mt.String()}, fmt.Errorf("unsupported content type %s", mt.String())
	}
}

// Resolve picks the stored type for an upload by sniffing data alone. The
// extension of name is ignored; name only labels the error.
func Resolve(name string, data []byte) (domain.FileType, error) {
	res, err := Detect(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return res.Type, nil
}
