package model

import (
	"fmt"

	"github.com/google/uuid"

	"library-backend/internal/shared/apperr"
)

var (
	ErrReservationNotFound = apperr.NotFound("RESERVATION_NOT_FOUND", "reservation not found")

	ErrDuplicateReservation = apperr.Conflict("DUPLICATE_RESERVATION", "duplicate reservation")

	// ErrCopiesAvailable: reservations only manage scarcity
	ErrCopiesAvailable = apperr.Conflict("COPIES_AVAILABLE", "item has available copies - no reservation needed")

	ErrReservationNotActive = apperr.Conflict("RESERVATION_NOT_ACTIVE", "reservation is not active")

	ErrNoAvailableCopy = apperr.Conflict("NO_AVAILABLE_COPY", "no available copy to fulfil reservation")

	ErrReservationNotExpired = apperr.Precondition("RESERVATION_NOT_EXPIRED", "reservation has not reached its expiry date")
)

func NewReservationNotFoundError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrReservationNotFound, id)
}

func NewDuplicateReservationError(itemID, patronID uuid.UUID) error {
	return fmt.Errorf("%w: library_item_id=%s, patron_id=%s", ErrDuplicateReservation, itemID, patronID)
}

func NewCopiesAvailableError(itemID uuid.UUID, available int) error {
	return fmt.Errorf("%w: library_item_id=%s, available=%d", ErrCopiesAvailable, itemID, available)
}

func NewReservationNotActiveError(id uuid.UUID, status Status) error {
	return fmt.Errorf("%w: id=%s, status=%s", ErrReservationNotActive, id, status)
}

func NewNoAvailableCopyError(itemID uuid.UUID) error {
	return fmt.Errorf("%w: library_item_id=%s", ErrNoAvailableCopy, itemID)
}
