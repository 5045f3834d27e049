package model

import (
	"fmt"

	"github.com/google/uuid"

	"library-backend/internal/shared/apperr"
)

var (
	ErrTransactionNotFound = apperr.NotFound("TRANSACTION_NOT_FOUND", "transaction not found")

	// ErrNoActiveLoan is returned by check-in when the copy has no active transaction
	ErrNoActiveLoan = apperr.NotFound("NO_ACTIVE_TRANSACTION", "no active transaction for copy")

	// ErrTransactionNotActive is returned when renewing a returned transaction
	ErrTransactionNotActive = apperr.Conflict("TRANSACTION_NOT_ACTIVE", "transaction is not active")

	// ErrPendingReservations blocks renewal while others wait for the title
	ErrPendingReservations = apperr.Conflict("PENDING_RESERVATIONS", "cannot renew: pending reservations")

	// ErrCopyHeldForOtherPatron is returned when collecting a reserved copy held for someone else
	ErrCopyHeldForOtherPatron = apperr.Conflict("COPY_HELD_FOR_OTHER_PATRON", "copy is reserved for another patron")

	ErrDueDateInPast = apperr.Validation("DUE_DATE_IN_PAST", "due_date must be in the future")
)

func NewTransactionNotFoundError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrTransactionNotFound, id)
}

func NewNoActiveLoanError(copyID uuid.UUID) error {
	return fmt.Errorf("%w: copy_id=%s", ErrNoActiveLoan, copyID)
}

func NewPendingReservationsError(itemID uuid.UUID, count int) error {
	return fmt.Errorf("%w: catalog_item_id=%s, active=%d", ErrPendingReservations, itemID, count)
}

func NewTransactionNotActiveError(id uuid.UUID, status TransactionStatus) error {
	return fmt.Errorf("%w: id=%s, status=%s", ErrTransactionNotActive, id, status)
}

func NewCopyHeldForOtherPatronError(copyID, reservationID uuid.UUID) error {
	return fmt.Errorf("%w: copy=%s, reservation=%s", ErrCopyHeldForOtherPatron, copyID, reservationID)
}
