package images

import (
	"log/slog"

	"github.com/manualshelf/manualshelf-server/internal/domain"
)

// Processor serves thumbnails from the cache, rendering them on a miss.
type Processor struct {
	storage *Storage
	size    int
	logger  *slog.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(storage *Storage, logger *slog.Logger) *Processor {
	return &Processor{
		storage: storage,
		size:    DefaultThumbnailSize,
		logger:  logger,
	}
}

// Thumbnail returns the thumbnail of an image file at its current rotation.
// data is only read on a cache miss.
func (p *Processor) Thumbnail(f *domain.ManualFile, data func() ([]byte, error)) ([]byte, error) {
	r := f.Rotation()
	if cached, err := p.storage.Get(f.ID, r); err == nil {
		return cached, nil
	}

	src, err := data()
	if err != nil {
		return nil, err
	}

	thumb, err := Thumbnail(src, r, p.size)
	if err != nil {
		return nil, err
	}

	if err := p.storage.Save(f.ID, r, thumb); err != nil {
		// A cache write failure still serves the rendered thumbnail.
		p.logger.Warn("failed to cache thumbnail", "file_id", f.ID, "error", err)
	}

	p.logger.Debug("rendered thumbnail", "file_id", f.ID, "rotation", int(r), "size", len(thumb))
	return thumb, nil
}

// Forget drops every cached thumbnail of fileID.
func (p *Processor) Forget(fileID string) {
	if err := p.storage.Delete(fileID); err != nil {
		p.logger.Warn("failed to delete thumbnails", "file_id", fileID, "error", err)
	}
}
