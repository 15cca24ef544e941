// Package pdf validates, counts and rotates PDF documents with pdfcpu.
package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/manualshelf/manualshelf-server/internal/domain"
)

// ErrInvalid is returned for data pdfcpu cannot read as a PDF.
var ErrInvalid = errors.New("pdf: invalid document")

func init() {
	// Keep pdfcpu from creating a config directory under the user's home.
	api.DisableConfigDir()
}

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Info describes a validated document.
type Info struct {
	PageCount int
}

// Inspect validates data and returns its page count.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, fmt.Errorf("%w: empty", ErrInvalid)
	}

	conf := newConfig()
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return Info{}, fmt.Errorf("%w: page count: %v", ErrInvalid, err)
	}
	return Info{PageCount: pages}, nil
}

// Rotate returns data with every page turned clockwise by r.
// A zero rotation returns data unchanged.
func Rotate(data []byte, r domain.Rotation) ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("pdf: invalid rotation %d", r)
	}
	if r == 0 {
		return data, nil
	}

	var out bytes.Buffer
	if err := api.Rotate(bytes.NewReader(data), &out, int(r), nil, newConfig()); err != nil {
		return nil, fmt.Errorf("%w: rotate: %v", ErrInvalid, err)
	}
	return out.Bytes(), nil
}
