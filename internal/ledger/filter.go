package ledger

import (
	"time"

	"github.com/google/uuid"

	catalogModel "library-backend/internal/domains/catalog/model"
	circulationModel "library-backend/internal/domains/circulation/model"
	reservationModel "library-backend/internal/domains/reservation/model"
)

// Page is a 1-based page window. Zero Limit means no limit.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type CatalogItemFilter struct {
	Type  *catalogModel.ItemType
	Title string // case-insensitive substring
	Page
}

type CopyFilter struct {
	CatalogItemID *uuid.UUID
	BranchID      *uuid.UUID // current branch
	Status        *catalogModel.CopyStatus
	Page
}

type PatronFilter struct {
	Name   string // case-insensitive substring
	Active *bool
	Page
}

type TransactionFilter struct {
	PatronID *uuid.UUID
	CopyID   *uuid.UUID
	Status   *circulationModel.TransactionStatus
	// DueBefore keeps active loans whose due date is before the instant
	DueBefore *time.Time
	Page
}

type FineFilter struct {
	PatronID *uuid.UUID
	Paid     *bool
	Page
}

// ReservationFilter results are ordered by reservation date, then queue
// position, which for one item's active queue is queue order.
type ReservationFilter struct {
	CatalogItemID *uuid.UUID
	PatronID      *uuid.UUID
	Status        *reservationModel.Status
	Page
}
