// Package ledger defines the Ledger Store contract: durable, transactional
// storage of branches, catalog items, copies, patrons, transactions, fines
// and reservations.
//
// Every mutating engine operation runs inside Store.WithTx. Implementations
// commit all writes made through the Tx or none of them.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	branchModel "library-backend/internal/domains/branch/model"
	catalogModel "library-backend/internal/domains/catalog/model"
	circulationModel "library-backend/internal/domains/circulation/model"
	fineModel "library-backend/internal/domains/fine/model"
	patronModel "library-backend/internal/domains/patron/model"
	reservationModel "library-backend/internal/domains/reservation/model"
)

// Queries are the non-locking reads. Get* methods return the domain
// NotFound sentinel of the entity when the row is absent.
type Queries interface {
	GetBranch(ctx context.Context, id uuid.UUID) (*branchModel.Branch, error)
	ListBranches(ctx context.Context) ([]branchModel.Branch, error)

	GetCatalogItem(ctx context.Context, id uuid.UUID) (*catalogModel.CatalogItem, error)
	ListCatalogItems(ctx context.Context, filter CatalogItemFilter) ([]catalogModel.CatalogItem, int, error)
	CountCopiesByStatus(ctx context.Context, catalogItemID uuid.UUID) (map[catalogModel.CopyStatus]int, error)

	GetCopy(ctx context.Context, id uuid.UUID) (*catalogModel.Copy, error)
	ListCopies(ctx context.Context, filter CopyFilter) ([]catalogModel.Copy, error)
	ListCopyEvents(ctx context.Context, copyID uuid.UUID) ([]catalogModel.CopyEvent, error)

	GetPatron(ctx context.Context, id uuid.UUID) (*patronModel.Patron, error)
	ListPatrons(ctx context.Context, filter PatronFilter) ([]patronModel.Patron, int, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*circulationModel.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]circulationModel.Transaction, error)

	GetFine(ctx context.Context, id uuid.UUID) (*fineModel.Fine, error)
	ListFines(ctx context.Context, filter FineFilter) ([]fineModel.Fine, error)
	SumUnpaidFines(ctx context.Context, patronID uuid.UUID) (decimal.Decimal, error)

	GetReservation(ctx context.Context, id uuid.UUID) (*reservationModel.Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]reservationModel.Reservation, error)
}

// Tx is the handle of one atomic unit of work.
//
// Lock* methods read a row and hold it until the unit ends. LockCatalogItem
// is the serialization point of an item's reservation queue, LockCopy of a
// copy's circulation.
type Tx interface {
	Queries

	LockCatalogItem(ctx context.Context, id uuid.UUID) (*catalogModel.CatalogItem, error)
	LockCopy(ctx context.Context, id uuid.UUID) (*catalogModel.Copy, error)
	LockPatron(ctx context.Context, id uuid.UUID) (*patronModel.Patron, error)
	LockTransaction(ctx context.Context, id uuid.UUID) (*circulationModel.Transaction, error)
	LockFine(ctx context.Context, id uuid.UUID) (*fineModel.Fine, error)
	LockReservation(ctx context.Context, id uuid.UUID) (*reservationModel.Reservation, error)

	// Branches
	InsertBranch(ctx context.Context, b *branchModel.Branch) error
	UpdateBranch(ctx context.Context, b *branchModel.Branch) error
	DeleteBranch(ctx context.Context, id uuid.UUID) error
	CountCopiesAtBranch(ctx context.Context, branchID uuid.UUID) (int, error)

	// Catalog items; DeleteCatalogItem cascades to copies and reservations
	InsertCatalogItem(ctx context.Context, item *catalogModel.CatalogItem) error
	UpdateCatalogItem(ctx context.Context, item *catalogModel.CatalogItem) error
	DeleteCatalogItem(ctx context.Context, id uuid.UUID) error

	// Copies
	InsertCopy(ctx context.Context, c *catalogModel.Copy) error
	UpdateCopy(ctx context.Context, c *catalogModel.Copy) error
	DeleteCopy(ctx context.Context, id uuid.UUID) error
	InsertCopyEvent(ctx context.Context, e *catalogModel.CopyEvent) error
	// LockAvailableCopy locks the oldest available copy of the item, NotFound if none.
	LockAvailableCopy(ctx context.Context, catalogItemID uuid.UUID) (*catalogModel.Copy, error)

	// Patrons
	InsertPatron(ctx context.Context, p *patronModel.Patron) error
	UpdatePatron(ctx context.Context, p *patronModel.Patron) error
	// AdjustPatronBalance adds delta (signed), stamps updated_at with at and
	// returns the new balance.
	AdjustPatronBalance(ctx context.Context, patronID uuid.UUID, delta decimal.Decimal, at time.Time) (decimal.Decimal, error)

	// Transactions
	InsertTransaction(ctx context.Context, t *circulationModel.Transaction) error
	UpdateTransaction(ctx context.Context, t *circulationModel.Transaction) error
	// LockActiveTransactionForCopy returns the most recent active loan of the copy.
	LockActiveTransactionForCopy(ctx context.Context, copyID uuid.UUID) (*circulationModel.Transaction, error)

	// Fines
	InsertFine(ctx context.Context, f *fineModel.Fine) error
	UpdateFine(ctx context.Context, f *fineModel.Fine) error
	DeleteFine(ctx context.Context, id uuid.UUID) error

	// Reservations
	InsertReservation(ctx context.Context, r *reservationModel.Reservation) error
	UpdateReservation(ctx context.Context, r *reservationModel.Reservation) error
	CountActiveReservations(ctx context.Context, catalogItemID uuid.UUID) (int, error)
	HasActiveReservation(ctx context.Context, catalogItemID, patronID uuid.UUID) (bool, error)
	MaxActiveQueuePosition(ctx context.Context, catalogItemID uuid.UUID) (int, error)
	// CloseQueueGap decrements every active position greater than position
	// and stamps the shifted rows with at.
	CloseQueueGap(ctx context.Context, catalogItemID uuid.UUID, position int, at time.Time) error
	// FindHoldForCopy returns the fulfilled reservation holding the copy, NotFound if none.
	FindHoldForCopy(ctx context.Context, copyID uuid.UUID) (*reservationModel.Reservation, error)
	ListExpiredReservations(ctx context.Context, asOf time.Time) ([]reservationModel.Reservation, error)
}

// Store is the Ledger Store handle threaded through every engine operation.
type Store interface {
	Queries

	// WithTx runs fn in one atomic unit: commit when fn returns nil,
	// rollback on error or panic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	Close()
}
