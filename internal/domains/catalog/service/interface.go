package service

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/catalog/model"
	reservationModel "library-backend/internal/domains/reservation/model"
)

// ServiceInterface covers catalog items, their copies and the copy state machine
type ServiceInterface interface {
	// CreateItem creates a title-level catalog record
	CreateItem(ctx context.Context, req model.CreateCatalogItemRequest) (*model.CatalogItem, error)

	// GetItem returns ErrCatalogItemNotFound if not exists
	GetItem(ctx context.Context, id uuid.UUID) (*model.CatalogItem, error)

	UpdateItem(ctx context.Context, id uuid.UUID, req model.UpdateCatalogItemRequest) (*model.CatalogItem, error)

	// DeleteItem removes the item with its copies and reservations.
	// Returns ErrItemHasLoans while any copy is checked out
	DeleteItem(ctx context.Context, id uuid.UUID) error

	ListItems(ctx context.Context, req model.ListCatalogItemsRequest) (*model.ListCatalogItemsResponse, error)

	// GetAvailability summarises copy counts per status (read-through cache)
	GetAvailability(ctx context.Context, itemID uuid.UUID) (*model.Availability, error)

	// ListItemCopies lists every copy of the item, oldest acquisition first
	ListItemCopies(ctx context.Context, itemID uuid.UUID) ([]model.Copy, error)

	// ListItemQueue returns the active reservation queue of the item in queue order
	ListItemQueue(ctx context.Context, itemID uuid.UUID) ([]reservationModel.ReservationResponse, error)

	// CreateCopy adds a physical copy; branches and item must exist
	CreateCopy(ctx context.Context, req model.CreateCopyRequest) (*model.Copy, error)

	GetCopy(ctx context.Context, id uuid.UUID) (*model.Copy, error)

	// UpdateCopy changes descriptive fields only, never status or owning item
	UpdateCopy(ctx context.Context, id uuid.UUID, req model.UpdateCopyRequest) (*model.Copy, error)

	// DeleteCopy is allowed from available, damaged or lost only
	// Returns ErrCopyNotDeletable otherwise
	DeleteCopy(ctx context.Context, id uuid.UUID) error

	// ChangeStatus applies a manual operator transition and records it in history
	// Returns ErrInvalidTransition if the state machine rejects the move
	ChangeStatus(ctx context.Context, id uuid.UUID, req model.ChangeStatusRequest) (*model.Copy, error)

	// Reshelve moves a returned copy back to available
	// Returns ErrNotAwaitingReshelve if the copy is not in returned state
	Reshelve(ctx context.Context, id uuid.UUID, req model.ReshelveRequest) (*model.Copy, error)

	// CopyHistory lists the status transitions of a copy, oldest first
	CopyHistory(ctx context.Context, id uuid.UUID) ([]model.CopyEvent, error)
}
