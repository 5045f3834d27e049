package service

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/patron/model"
)

// ServiceInterface manages library members
type ServiceInterface interface {
	// CreatePatron registers an active member with a zero balance
	// Returns ErrDuplicate if the email is taken
	CreatePatron(ctx context.Context, req model.CreatePatronRequest) (*model.PatronResponse, error)

	GetPatron(ctx context.Context, id uuid.UUID) (*model.PatronResponse, error)

	// UpdatePatron changes profile fields; the balance is never writable here
	UpdatePatron(ctx context.Context, id uuid.UUID, req model.UpdatePatronRequest) (*model.PatronResponse, error)

	// DeletePatron deactivates the member, history is kept
	DeletePatron(ctx context.Context, id uuid.UUID) error

	ListPatrons(ctx context.Context, req model.ListPatronsRequest) ([]model.PatronResponse, int, error)
}
