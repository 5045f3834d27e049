package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	branchModel "library-backend/internal/domains/branch/model"
	catalogModel "library-backend/internal/domains/catalog/model"
	patronModel "library-backend/internal/domains/patron/model"
	reservationModel "library-backend/internal/domains/reservation/model"
	"library-backend/internal/ledger"
)

var now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type fixture struct {
	branch branchModel.Branch
	item   catalogModel.CatalogItem
	copy   catalogModel.Copy
	patron patronModel.Patron
}

func seed(t *testing.T, s *Store) fixture {
	t.Helper()
	f := fixture{
		branch: branchModel.Branch{ID: uuid.New(), Name: "Main", IsMain: true},
		item:   catalogModel.CatalogItem{ID: uuid.New(), Title: "Dune", Type: catalogModel.ItemTypeBook},
		patron: patronModel.Patron{ID: uuid.New(), Name: "Ada", IsActive: true, Balance: decimal.Zero},
	}
	f.copy = catalogModel.Copy{
		ID: uuid.New(), CatalogItemID: f.item.ID, OwningBranchID: f.branch.ID, CurrentBranchID: f.branch.ID,
		Status: catalogModel.StatusAvailable, Condition: catalogModel.ConditionGood, AcquisitionDate: now,
	}
	err := s.WithTx(context.Background(), func(tx ledger.Tx) error {
		ctx := context.Background()
		require.NoError(t, tx.InsertBranch(ctx, &f.branch))
		require.NoError(t, tx.InsertCatalogItem(ctx, &f.item))
		require.NoError(t, tx.InsertPatron(ctx, &f.patron))
		return tx.InsertCopy(ctx, &f.copy)
	})
	require.NoError(t, err)
	return f
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := NewStore()
	f := seed(t, s)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx ledger.Tx) error {
		c, err := tx.LockCopy(ctx, f.copy.ID)
		require.NoError(t, err)
		c.Notes = "changed"
		require.NoError(t, tx.UpdateCopy(ctx, c))
		_, err = tx.AdjustPatronBalance(ctx, f.patron.ID, decimal.NewFromInt(5), now)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := s.GetCopy(ctx, f.copy.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Notes)
	p, err := s.GetPatron(ctx, f.patron.ID)
	require.NoError(t, err)
	assert.True(t, p.Balance.IsZero())
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	s := NewStore()
	f := seed(t, s)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(tx ledger.Tx) error {
			_, _ = tx.AdjustPatronBalance(ctx, f.patron.ID, decimal.NewFromInt(5), now)
			panic("half way")
		})
	})

	p, err := s.GetPatron(ctx, f.patron.ID)
	require.NoError(t, err)
	assert.True(t, p.Balance.IsZero())

	// the writer lock was released
	require.NoError(t, s.WithTx(ctx, func(tx ledger.Tx) error { return nil }))
}

func TestReturnedRowsDoNotAliasState(t *testing.T) {
	s := NewStore()
	f := seed(t, s)
	ctx := context.Background()

	c, err := s.GetCopy(ctx, f.copy.ID)
	require.NoError(t, err)
	c.Status = catalogModel.StatusLost

	again, err := s.GetCopy(ctx, f.copy.ID)
	require.NoError(t, err)
	assert.Equal(t, catalogModel.StatusAvailable, again.Status)
}

func TestInsertCopyRejectsBrokenLoanInvariant(t *testing.T) {
	s := NewStore()
	f := seed(t, s)
	ctx := context.Background()

	bad := f.copy
	bad.ID = uuid.New()
	bad.Status = catalogModel.StatusCheckedOut

	err := s.WithTx(ctx, func(tx ledger.Tx) error { return tx.InsertCopy(ctx, &bad) })
	assert.Error(t, err)
}

func TestDeleteCatalogItemCascades(t *testing.T) {
	s := NewStore()
	f := seed(t, s)
	ctx := context.Background()

	res := reservationModel.Reservation{
		ID: uuid.New(), CatalogItemID: f.item.ID, PatronID: f.patron.ID,
		ReservationDate: now, Status: reservationModel.StatusActive, QueuePosition: 1,
	}
	require.NoError(t, s.WithTx(ctx, func(tx ledger.Tx) error { return tx.InsertReservation(ctx, &res) }))
	require.NoError(t, s.WithTx(ctx, func(tx ledger.Tx) error { return tx.DeleteCatalogItem(ctx, f.item.ID) }))

	_, err := s.GetCopy(ctx, f.copy.ID)
	assert.ErrorIs(t, err, catalogModel.ErrCopyNotFound)
	_, err = s.GetReservation(ctx, res.ID)
	assert.ErrorIs(t, err, reservationModel.ErrReservationNotFound)
}

func TestDeleteBranchWithCopiesRejected(t *testing.T) {
	s := NewStore()
	f := seed(t, s)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx ledger.Tx) error { return tx.DeleteBranch(ctx, f.branch.ID) })
	assert.ErrorIs(t, err, branchModel.ErrBranchHasCopies)
}

func TestCloseQueueGap(t *testing.T) {
	s := NewStore()
	f := seed(t, s)
	ctx := context.Background()

	ids := make([]uuid.UUID, 3)
	shifted := now.Add(time.Hour)
	require.NoError(t, s.WithTx(ctx, func(tx ledger.Tx) error {
		for i := range ids {
			p := patronModel.Patron{ID: uuid.New(), Name: "P", IsActive: true}
			require.NoError(t, tx.InsertPatron(ctx, &p))
			r := reservationModel.Reservation{
				ID: uuid.New(), CatalogItemID: f.item.ID, PatronID: p.ID,
				ReservationDate: now, Status: reservationModel.StatusActive, QueuePosition: i + 1,
			}
			ids[i] = r.ID
			require.NoError(t, tx.InsertReservation(ctx, &r))
		}
		middle, err := tx.LockReservation(ctx, ids[1])
		require.NoError(t, err)
		middle.Status = reservationModel.StatusCancelled
		require.NoError(t, tx.UpdateReservation(ctx, middle))
		return tx.CloseQueueGap(ctx, f.item.ID, middle.QueuePosition, shifted)
	}))

	active := reservationModel.StatusActive
	queue, err := s.ListReservations(ctx, ledger.ReservationFilter{CatalogItemID: &f.item.ID, Status: &active})
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, ids[0], queue[0].ID)
	assert.Equal(t, 1, queue[0].QueuePosition)
	assert.Equal(t, ids[2], queue[1].ID)
	assert.Equal(t, 2, queue[1].QueuePosition)

	// only the rows that moved take the caller's timestamp
	assert.True(t, queue[0].UpdatedAt.IsZero())
	assert.Equal(t, shifted, queue[1].UpdatedAt)
}

func TestDuplicateActiveReservationRejected(t *testing.T) {
	s := NewStore()
	f := seed(t, s)
	ctx := context.Background()

	first := reservationModel.Reservation{ID: uuid.New(), CatalogItemID: f.item.ID, PatronID: f.patron.ID,
		Status: reservationModel.StatusActive, QueuePosition: 1}
	second := first
	second.ID = uuid.New()
	second.QueuePosition = 2

	require.NoError(t, s.WithTx(ctx, func(tx ledger.Tx) error { return tx.InsertReservation(ctx, &first) }))
	err := s.WithTx(ctx, func(tx ledger.Tx) error { return tx.InsertReservation(ctx, &second) })
	assert.ErrorIs(t, err, reservationModel.ErrDuplicateReservation)
}

func TestListCatalogItemsPaginates(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx ledger.Tx) error {
		for _, title := range []string{"C", "A", "B"} {
			item := catalogModel.CatalogItem{ID: uuid.New(), Title: title, Type: catalogModel.ItemTypeBook}
			require.NoError(t, tx.InsertCatalogItem(ctx, &item))
		}
		return nil
	}))

	items, total, err := s.ListCatalogItems(ctx, ledger.CatalogItemFilter{Page: ledger.Page{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "C", items[0].Title)
}
