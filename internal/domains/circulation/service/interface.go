package service

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/circulation/model"
	"library-backend/internal/ledger"
)

// ServiceInterface is the circulation engine: checkout, check-in and renewal.
// Each operation is one store transaction; a failure leaves nothing behind.
type ServiceInterface interface {
	// Checkout lends a copy to a patron
	// Returns ErrCopyNotFound / ErrPatronNotFound for absent entities
	// Returns ErrCopyNotAvailable if the copy is not loanable
	// Returns ErrCopyHeldForOtherPatron if a reserved copy is held for someone else
	// Returns ErrPatronInactive for a soft-deleted patron
	Checkout(ctx context.Context, req model.CheckoutRequest) (*model.TransactionResponse, error)

	// Checkin closes the copy's active loan, assessing a late fine when overdue
	// Returns ErrNoActiveLoan if the copy is not on loan
	Checkin(ctx context.Context, req model.CheckinRequest) (*model.CheckinResponse, error)

	// Renew extends an active loan by the renewal period from its current due date
	// Returns ErrPendingReservations while the title has an active queue
	Renew(ctx context.Context, id uuid.UUID) (*model.RenewResponse, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*model.TransactionResponse, error)

	ListTransactions(ctx context.Context, req model.ListTransactionsRequest) ([]model.TransactionResponse, error)

	// ListOverdue lists active loans past their due date
	ListOverdue(ctx context.Context, page ledger.Page) ([]model.TransactionResponse, error)

	// ListPatronTransactions lists one patron's loans, newest first
	ListPatronTransactions(ctx context.Context, patronID uuid.UUID, req model.ListTransactionsRequest) ([]model.TransactionResponse, error)
}
