package service

import (
	"context"
	"errors"

	domainerrors "github.com/manualshelf/manualshelf-server/internal/errors"
	"github.com/manualshelf/manualshelf-server/internal/store"
)

// readError translates a failed store read for entity into a coded error.
func readError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFoundf("%s not found", entity)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return domainerrors.Wrapf(err, domainerrors.CodeInternal, "failed to load %s", entity)
	}
}

// writeError translates a failed store write. Anything that is not a known
// sentinel is a persistence failure carrying the store's message.
func writeError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFoundf("%s not found", entity)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Conflictf("%s already exists", entity)
	case errors.Is(err, store.ErrLastFile):
		return domainerrors.Conflict("a manual must keep at least one file; delete the manual instead")
	default:
		return domainerrors.Persistence(err, entity+" could not be saved")
	}
}
