package model

import (
	"fmt"

	"github.com/google/uuid"

	"library-backend/internal/shared/apperr"
)

var (
	ErrFineNotFound = apperr.NotFound("FINE_NOT_FOUND", "fine not found")

	ErrFineAlreadyPaid = apperr.Conflict("FINE_ALREADY_PAID", "fine is already paid")

	ErrInvalidAmount = apperr.Validation("INVALID_FINE_AMOUNT", "fine amount must be positive")

	// ErrTransactionPatronMismatch: a manual fine must belong to the transaction's patron
	ErrTransactionPatronMismatch = apperr.Validation("FINE_PATRON_MISMATCH", "transaction belongs to a different patron")
)

func NewFineNotFoundError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrFineNotFound, id)
}

func NewFineAlreadyPaidError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrFineAlreadyPaid, id)
}

func NewTransactionPatronMismatchError(transactionID, patronID uuid.UUID) error {
	return fmt.Errorf("%w: transaction=%s, patron=%s", ErrTransactionPatronMismatch, transactionID, patronID)
}
