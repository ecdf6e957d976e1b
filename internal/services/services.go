package services

import (
	stderrors "errors"
	"strings"

	"github.com/neetpractice/neetpractice/internal/errors"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/store"
)

// storeError translates gateway failures into AppErrors. Anything
// unrecognized is logged and reported as internal.
func storeError(log *logger.Logger, resource string, id any, err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, store.ErrNotFound):
		return errors.NewNotFoundError(resource, id)
	case stderrors.Is(err, store.ErrDuplicate):
		return errors.NewConflictError(resource, id)
	case stderrors.Is(err, store.ErrInvalidField):
		return errors.NewBadRequestError(err.Error())
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	log.Error("%s store operation failed: %v", resource, err)
	return errors.NewInternalError(err)
}

// requireText trims v and rejects an empty result.
func requireText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errors.NewValidationError(field, "cannot be empty")
	}
	return v, nil
}

// referenceError reports a missing parent record as a validation failure on field.
func referenceError(log *logger.Logger, field, resource string, id int64, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.NewValidationError(field, resource+" does not exist")
	}
	return storeError(log, resource, id, err)
}
