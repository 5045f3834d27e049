// Package ledgertest seeds an in-memory ledger for engine and handler tests.
package ledgertest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	branchModel "library-backend/internal/domains/branch/model"
	catalogModel "library-backend/internal/domains/catalog/model"
	patronModel "library-backend/internal/domains/patron/model"
	reservationModel "library-backend/internal/domains/reservation/model"
	"library-backend/internal/ledger"
	"library-backend/internal/ledger/memory"
)

// Epoch is the default start of every test clock.
var Epoch = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Fixture wraps a fresh memory store with seeding helpers.
type Fixture struct {
	t     testing.TB
	Store *memory.Store
	Clock *Clock
}

func New(t testing.TB) *Fixture {
	t.Helper()
	return &Fixture{t: t, Store: memory.NewStore(), Clock: NewClock(Epoch)}
}

func (f *Fixture) write(fn func(tx ledger.Tx) error) {
	f.t.Helper()
	require.NoError(f.t, f.Store.WithTx(context.Background(), fn))
}

func (f *Fixture) Branch(name string) *branchModel.Branch {
	f.t.Helper()
	now := f.Clock.Now()
	b := &branchModel.Branch{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	f.write(func(tx ledger.Tx) error { return tx.InsertBranch(context.Background(), b) })
	return b
}

func (f *Fixture) Item(title string) *catalogModel.CatalogItem {
	f.t.Helper()
	now := f.Clock.Now()
	item := &catalogModel.CatalogItem{
		ID:        uuid.New(),
		Title:     title,
		Type:      catalogModel.ItemTypeBook,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.write(func(tx ledger.Tx) error { return tx.InsertCatalogItem(context.Background(), item) })
	return item
}

// Copy inserts an available copy. Copies of one item are acquired one
// minute apart so "oldest available" is deterministic.
func (f *Fixture) Copy(itemID, branchID uuid.UUID) *catalogModel.Copy {
	return f.CopyWithStatus(itemID, branchID, catalogModel.StatusAvailable)
}

func (f *Fixture) CopyWithStatus(itemID, branchID uuid.UUID, status catalogModel.CopyStatus) *catalogModel.Copy {
	f.t.Helper()
	now := f.Clock.Now()
	existing, err := f.Store.ListCopies(context.Background(), ledger.CopyFilter{CatalogItemID: &itemID})
	require.NoError(f.t, err)

	c := &catalogModel.Copy{
		ID:              uuid.New(),
		CatalogItemID:   itemID,
		OwningBranchID:  branchID,
		CurrentBranchID: branchID,
		Condition:       catalogModel.ConditionGood,
		Status:          status,
		Cost:            decimal.RequireFromString("25.00"),
		AcquisitionDate: now.Add(time.Duration(len(existing)) * time.Minute),
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.write(func(tx ledger.Tx) error { return tx.InsertCopy(context.Background(), c) })
	return c
}

func (f *Fixture) Patron(name string) *patronModel.Patron {
	f.t.Helper()
	now := f.Clock.Now()
	p := &patronModel.Patron{
		ID:        uuid.New(),
		Name:      name,
		Balance:   decimal.Zero,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.write(func(tx ledger.Tx) error { return tx.InsertPatron(context.Background(), p) })
	return p
}

func (f *Fixture) InactivePatron(name string) *patronModel.Patron {
	f.t.Helper()
	p := f.Patron(name)
	p.IsActive = false
	f.write(func(tx ledger.Tx) error { return tx.UpdatePatron(context.Background(), p) })
	return p
}

// MustCopy re-reads a copy from the committed state.
func (f *Fixture) MustCopy(id uuid.UUID) *catalogModel.Copy {
	f.t.Helper()
	c, err := f.Store.GetCopy(context.Background(), id)
	require.NoError(f.t, err)
	return c
}

func (f *Fixture) MustPatron(id uuid.UUID) *patronModel.Patron {
	f.t.Helper()
	p, err := f.Store.GetPatron(context.Background(), id)
	require.NoError(f.t, err)
	return p
}

// RequireBalanceMatchesFines asserts balance == sum of unpaid fine amounts.
func (f *Fixture) RequireBalanceMatchesFines(patronID uuid.UUID) {
	f.t.Helper()
	sum, err := f.Store.SumUnpaidFines(context.Background(), patronID)
	require.NoError(f.t, err)
	p := f.MustPatron(patronID)
	require.True(f.t, p.Balance.Equal(sum), "balance %s != unpaid fines %s", p.Balance, sum)
}

// ActiveQueue returns the patron ids of the item's active queue in order and
// asserts positions are exactly 1..N.
func (f *Fixture) ActiveQueue(itemID uuid.UUID) []uuid.UUID {
	f.t.Helper()
	active := reservationModel.StatusActive
	queue, err := f.Store.ListReservations(context.Background(), ledger.ReservationFilter{
		CatalogItemID: &itemID,
		Status:        &active,
	})
	require.NoError(f.t, err)

	positions := make(map[int]bool, len(queue))
	patrons := make([]uuid.UUID, len(queue))
	for _, r := range queue {
		require.GreaterOrEqual(f.t, r.QueuePosition, 1)
		require.LessOrEqual(f.t, r.QueuePosition, len(queue), "queue position out of range")
		require.False(f.t, positions[r.QueuePosition], "duplicate queue position %d", r.QueuePosition)
		positions[r.QueuePosition] = true
		patrons[r.QueuePosition-1] = r.PatronID
	}
	return patrons
}
