// Package memory is an in-process Ledger Store. All writers are serialized
// by one mutex; each unit of work mutates a private copy of the state which
// is published on commit and dropped on rollback.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	branchModel "library-backend/internal/domains/branch/model"
	catalogModel "library-backend/internal/domains/catalog/model"
	circulationModel "library-backend/internal/domains/circulation/model"
	fineModel "library-backend/internal/domains/fine/model"
	patronModel "library-backend/internal/domains/patron/model"
	reservationModel "library-backend/internal/domains/reservation/model"
	"library-backend/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type state struct {
	branches     map[uuid.UUID]branchModel.Branch
	items        map[uuid.UUID]catalogModel.CatalogItem
	copies       map[uuid.UUID]catalogModel.Copy
	events       map[uuid.UUID][]catalogModel.CopyEvent
	patrons      map[uuid.UUID]patronModel.Patron
	transactions map[uuid.UUID]circulationModel.Transaction
	fines        map[uuid.UUID]fineModel.Fine
	reservations map[uuid.UUID]reservationModel.Reservation

	// seq records insertion order, the final tie-breaker of every listing
	seq     map[uuid.UUID]int64
	nextSeq int64
}

func newState() *state {
	return &state{
		branches:     map[uuid.UUID]branchModel.Branch{},
		items:        map[uuid.UUID]catalogModel.CatalogItem{},
		copies:       map[uuid.UUID]catalogModel.Copy{},
		events:       map[uuid.UUID][]catalogModel.CopyEvent{},
		patrons:      map[uuid.UUID]patronModel.Patron{},
		transactions: map[uuid.UUID]circulationModel.Transaction{},
		fines:        map[uuid.UUID]fineModel.Fine{},
		reservations: map[uuid.UUID]reservationModel.Reservation{},
		seq:          map[uuid.UUID]int64{},
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	events := make(map[uuid.UUID][]catalogModel.CopyEvent, len(s.events))
	for k, v := range s.events {
		events[k] = append([]catalogModel.CopyEvent(nil), v...)
	}
	return &state{
		branches:     cloneMap(s.branches),
		items:        cloneMap(s.items),
		copies:       cloneMap(s.copies),
		events:       events,
		patrons:      cloneMap(s.patrons),
		transactions: cloneMap(s.transactions),
		fines:        cloneMap(s.fines),
		reservations: cloneMap(s.reservations),
		seq:          cloneMap(s.seq),
		nextSeq:      s.nextSeq,
	}
}

func (s *state) stamp(id uuid.UUID) {
	s.nextSeq++
	s.seq[id] = s.nextSeq
}

// Store is safe for concurrent use.
type Store struct {
	writer sync.Mutex // held for the whole unit of work

	mu        sync.RWMutex
	committed *state
}

func NewStore() *Store {
	return &Store{committed: newState()}
}

func (s *Store) snapshot() reader {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return reader{st: s.committed}
}

// WithTx runs fn against a private copy of the state. The copy replaces the
// committed state only when fn returns nil; a panic propagates after the
// writer lock is released and nothing is published.
func (s *Store) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writer.Lock()
	defer s.writer.Unlock()

	working := s.snapshot().st.clone()
	if err := fn(&tx{reader: reader{st: working}}); err != nil {
		return err
	}

	s.mu.Lock()
	s.committed = working
	s.mu.Unlock()
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}

// ========================================
// Queries on committed state
// ========================================

func (s *Store) GetBranch(ctx context.Context, id uuid.UUID) (*branchModel.Branch, error) {
	return s.snapshot().GetBranch(ctx, id)
}

func (s *Store) ListBranches(ctx context.Context) ([]branchModel.Branch, error) {
	return s.snapshot().ListBranches(ctx)
}

func (s *Store) GetCatalogItem(ctx context.Context, id uuid.UUID) (*catalogModel.CatalogItem, error) {
	return s.snapshot().GetCatalogItem(ctx, id)
}

func (s *Store) ListCatalogItems(ctx context.Context, f ledger.CatalogItemFilter) ([]catalogModel.CatalogItem, int, error) {
	return s.snapshot().ListCatalogItems(ctx, f)
}

func (s *Store) CountCopiesByStatus(ctx context.Context, itemID uuid.UUID) (map[catalogModel.CopyStatus]int, error) {
	return s.snapshot().CountCopiesByStatus(ctx, itemID)
}

func (s *Store) GetCopy(ctx context.Context, id uuid.UUID) (*catalogModel.Copy, error) {
	return s.snapshot().GetCopy(ctx, id)
}

func (s *Store) ListCopies(ctx context.Context, f ledger.CopyFilter) ([]catalogModel.Copy, error) {
	return s.snapshot().ListCopies(ctx, f)
}

func (s *Store) ListCopyEvents(ctx context.Context, copyID uuid.UUID) ([]catalogModel.CopyEvent, error) {
	return s.snapshot().ListCopyEvents(ctx, copyID)
}

func (s *Store) GetPatron(ctx context.Context, id uuid.UUID) (*patronModel.Patron, error) {
	return s.snapshot().GetPatron(ctx, id)
}

func (s *Store) ListPatrons(ctx context.Context, f ledger.PatronFilter) ([]patronModel.Patron, int, error) {
	return s.snapshot().ListPatrons(ctx, f)
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*circulationModel.Transaction, error) {
	return s.snapshot().GetTransaction(ctx, id)
}

func (s *Store) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]circulationModel.Transaction, error) {
	return s.snapshot().ListTransactions(ctx, f)
}

func (s *Store) GetFine(ctx context.Context, id uuid.UUID) (*fineModel.Fine, error) {
	return s.snapshot().GetFine(ctx, id)
}

func (s *Store) ListFines(ctx context.Context, f ledger.FineFilter) ([]fineModel.Fine, error) {
	return s.snapshot().ListFines(ctx, f)
}

func (s *Store) SumUnpaidFines(ctx context.Context, patronID uuid.UUID) (decimal.Decimal, error) {
	return s.snapshot().SumUnpaidFines(ctx, patronID)
}

func (s *Store) GetReservation(ctx context.Context, id uuid.UUID) (*reservationModel.Reservation, error) {
	return s.snapshot().GetReservation(ctx, id)
}

func (s *Store) ListReservations(ctx context.Context, f ledger.ReservationFilter) ([]reservationModel.Reservation, error) {
	return s.snapshot().ListReservations(ctx, f)
}
