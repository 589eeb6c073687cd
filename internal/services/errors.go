package services

import (
	"errors"

	"github.com/prudhvinik1/medsync/internal/repositories"
	"github.com/prudhvinik1/medsync/internal/xerrors"
)

// translate maps store sentinels onto the business taxonomy and passes
// everything else through untouched.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return xerrors.ErrResourceNotFound
	case errors.Is(err, repositories.ErrVersionConflict):
		return xerrors.ErrConcurrentModification
	case errors.Is(err, repositories.ErrDuplicate):
		return xerrors.ErrDuplicateEntry
	}
	return err
}
