package model

import (
	"fmt"

	"github.com/google/uuid"

	"library-backend/internal/shared/apperr"
)

var (
	ErrCatalogItemNotFound = apperr.NotFound("CATALOG_ITEM_NOT_FOUND", "catalog item not found")
	ErrCopyNotFound        = apperr.NotFound("COPY_NOT_FOUND", "copy not found")

	// ErrCopyNotAvailable is returned when a checkout targets a copy that is not loanable
	ErrCopyNotAvailable = apperr.Conflict("COPY_NOT_AVAILABLE", "copy is not available")

	// ErrInvalidTransition is returned when the copy state machine rejects a move
	ErrInvalidTransition = apperr.Conflict("INVALID_STATUS_TRANSITION", "copy status transition not allowed")

	// ErrCopyNotDeletable is returned when deleting a copy outside available/damaged/lost
	ErrCopyNotDeletable = apperr.Conflict("COPY_NOT_DELETABLE", "copy can only be deleted when available, damaged or lost")

	// ErrItemHasLoans is returned when deleting an item that still has copies on loan
	ErrItemHasLoans = apperr.Conflict("CATALOG_ITEM_HAS_LOANS", "catalog item has copies checked out")

	// ErrNotAwaitingReshelve is returned when reshelving a copy that is not in returned state
	ErrNotAwaitingReshelve = apperr.Precondition("COPY_NOT_RETURNED", "copy is not awaiting reshelve")
)

func NewCatalogItemNotFoundError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrCatalogItemNotFound, id)
}

func NewCopyNotFoundError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrCopyNotFound, id)
}

func NewCopyNotAvailableError(id uuid.UUID, status CopyStatus) error {
	return fmt.Errorf("%w: id=%s, status=%s", ErrCopyNotAvailable, id, status)
}

func NewInvalidTransitionError(id uuid.UUID, from, to CopyStatus, trigger Trigger) error {
	return fmt.Errorf("%w: copy=%s, %s -> %s (%s)", ErrInvalidTransition, id, from, to, trigger)
}

func NewCopyNotDeletableError(id uuid.UUID, status CopyStatus) error {
	return fmt.Errorf("%w: id=%s, status=%s", ErrCopyNotDeletable, id, status)
}
