package providers

import (
	"fmt"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/manualshelf/manualshelf-server/internal/config"
	"github.com/manualshelf/manualshelf-server/internal/logger"
	"github.com/manualshelf/manualshelf-server/internal/media/images"
)

// ProvideThumbnailStorage provides the on-disk thumbnail cache.
func ProvideThumbnailStorage(i do.Injector) (*images.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)

	storage, err := images.NewStorage(filepath.Join(cfg.Data.Path, "thumbnails"))
	if err != nil {
		return nil, fmt.Errorf("thumbnail storage: %w", err)
	}
	return storage, nil
}

// ProvideImageProcessor provides the thumbnail renderer.
func ProvideImageProcessor(i do.Injector) (*images.Processor, error) {
	storage := do.MustInvoke[*images.Storage](i)
	log := do.MustInvoke[*logger.Logger](i)

	return images.NewProcessor(storage, log.Logger), nil
}
