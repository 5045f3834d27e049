package service

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/fine/model"
)

// ServiceInterface is the fine ledger. Every mutation moves the patron
// balance in the same store transaction as the fine row, so the balance
// always equals the sum of the patron's unpaid fines.
type ServiceInterface interface {
	// CreateFine records a manual fine and adds its amount to the balance
	// Returns ErrPatronNotFound / ErrTransactionNotFound for absent references
	// Returns ErrTransactionPatronMismatch if the transaction is someone else's
	CreateFine(ctx context.Context, req model.CreateFineRequest) (*model.FineResult, error)

	// PayFine marks the fine paid and subtracts its amount
	// Returns ErrFineAlreadyPaid on a second payment
	PayFine(ctx context.Context, id uuid.UUID, req model.PayFineRequest) (*model.FineResult, error)

	// DeleteFine removes the fine; an unpaid fine's amount leaves the balance
	DeleteFine(ctx context.Context, id uuid.UUID) (*model.DeleteResult, error)

	GetFine(ctx context.Context, id uuid.UUID) (*model.Fine, error)

	ListFines(ctx context.Context, req model.ListFinesRequest) ([]model.Fine, error)

	// ListPatronFines lists one patron's fines, newest first
	ListPatronFines(ctx context.Context, patronID uuid.UUID, req model.ListFinesRequest) ([]model.Fine, error)
}
