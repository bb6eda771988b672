package service

import (
	"errors"
	"fmt"

	"github.com/civicdesk/api/internal/workflow"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limit exceeded")

	ErrReasonRequired = fmt.Errorf("%w: rejection requires a reason", ErrValidation)

	ErrInvalidTransition = workflow.ErrInvalidTransition
	ErrUnknownStatus     = workflow.ErrUnknownStatus
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(entity string, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
}
