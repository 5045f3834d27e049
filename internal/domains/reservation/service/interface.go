package service

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/reservation/model"
)

// ServiceInterface is the reservation queue manager. Per catalog item the
// active reservations always hold positions 1..N; every operation that
// removes one from the queue renumbers the rest in the same transaction.
type ServiceInterface interface {
	// Create appends the patron to the item's queue
	// Returns ErrDuplicateReservation if the patron already waits for the item
	// Returns ErrCopiesAvailable when a copy could be checked out instead
	Create(ctx context.Context, req model.CreateReservationRequest) (*model.ReservationResponse, error)

	// Fulfill earmarks the oldest available copy for the reservation
	// Returns ErrNoAvailableCopy if nothing is on the shelf
	Fulfill(ctx context.Context, id uuid.UUID) (*model.FulfillResponse, error)

	// Cancel withdraws an active reservation
	Cancel(ctx context.Context, id uuid.UUID) (*model.ReservationResponse, error)

	// Expire marks one overdue active reservation expired
	// Returns ErrReservationNotExpired before its expiry date
	Expire(ctx context.Context, id uuid.UUID) (*model.ReservationResponse, error)

	// ExpireDue expires every active reservation past its expiry date
	ExpireDue(ctx context.Context) (*model.ExpireResponse, error)

	Get(ctx context.Context, id uuid.UUID) (*model.ReservationResponse, error)

	List(ctx context.Context, req model.ListReservationsRequest) ([]model.ReservationResponse, error)
}
