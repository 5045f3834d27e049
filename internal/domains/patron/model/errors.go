package model

import (
	"fmt"

	"github.com/google/uuid"

	"library-backend/internal/shared/apperr"
)

var (
	ErrPatronNotFound = apperr.NotFound("PATRON_NOT_FOUND", "patron not found")

	// ErrPatronInactive is returned when an inactive (soft-deleted) patron is used
	ErrPatronInactive = apperr.Precondition("PATRON_INACTIVE", "patron is not active")
)

func NewPatronNotFoundError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrPatronNotFound, id)
}

func NewPatronInactiveError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrPatronInactive, id)
}
