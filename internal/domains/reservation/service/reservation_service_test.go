package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/config"
	catalogModel "library-backend/internal/domains/catalog/model"
	catalogService "library-backend/internal/domains/catalog/service"
	patronModel "library-backend/internal/domains/patron/model"
	"library-backend/internal/domains/reservation/model"
	"library-backend/internal/ledger"
	"library-backend/internal/ledger/ledgertest"
	"library-backend/internal/shared/apperr"
)

type env struct {
	fx     *ledgertest.Fixture
	svc    ServiceInterface
	item   *catalogModel.CatalogItem
	branch uuid.UUID
	copyID uuid.UUID
}

// setup seeds one item whose only copy is damaged, so the item has no
// available copies and reservations are accepted.
func setup(t *testing.T) *env {
	fx := ledgertest.New(t)
	item := fx.Item("Dune")
	branch := fx.Branch("Central")
	c := fx.CopyWithStatus(item.ID, branch.ID, catalogModel.StatusDamaged)
	return &env{
		fx:     fx,
		svc:    NewService(fx.Store, config.DefaultPolicy(), catalogService.NewAvailabilityCache(nil), WithClock(fx.Clock.Now)),
		item:   item,
		branch: branch.ID,
		copyID: c.ID,
	}
}

func (e *env) reserve(t *testing.T, patronID uuid.UUID) *model.ReservationResponse {
	t.Helper()
	r, err := e.svc.Create(context.Background(), model.CreateReservationRequest{CatalogItemID: e.item.ID, PatronID: patronID})
	require.NoError(t, err)
	return r
}

// repair puts the damaged copy back on the shelf.
func (e *env) repair(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.fx.Store.WithTx(ctx, func(tx ledger.Tx) error {
		c, err := tx.LockCopy(ctx, e.copyID)
		if err != nil {
			return err
		}
		if _, err := c.Transition(catalogModel.StatusAvailable, catalogModel.TriggerManual, "repaired", e.fx.Clock.Now()); err != nil {
			return err
		}
		return tx.UpdateCopy(ctx, c)
	}))
}

func TestCreateAppendsToQueue(t *testing.T) {
	e := setup(t)
	a, b, c := e.fx.Patron("A"), e.fx.Patron("B"), e.fx.Patron("C")

	ra := e.reserve(t, a.ID)
	e.fx.Clock.Advance(time.Minute)
	rb := e.reserve(t, b.ID)
	e.fx.Clock.Advance(time.Minute)
	rc := e.reserve(t, c.ID)

	assert.Equal(t, 1, ra.QueuePosition)
	assert.Equal(t, 2, rb.QueuePosition)
	assert.Equal(t, 3, rc.QueuePosition)
	assert.Equal(t, model.StatusActive, ra.Status)
	require.NotNil(t, ra.ExpiryDate)
	assert.Equal(t, ledgertest.Epoch.AddDate(0, 0, 7), *ra.ExpiryDate)
	assert.False(t, ra.IsExpired)

	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, e.fx.ActiveQueue(e.item.ID))
}

func TestCreateRejections(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.fx.Patron("A")
	e.reserve(t, p.ID)

	_, err := e.svc.Create(ctx, model.CreateReservationRequest{CatalogItemID: e.item.ID, PatronID: p.ID})
	assert.True(t, errors.Is(err, model.ErrDuplicateReservation))
	assert.True(t, apperr.IsConflict(err))

	_, err = e.svc.Create(ctx, model.CreateReservationRequest{CatalogItemID: uuid.New(), PatronID: p.ID})
	assert.True(t, errors.Is(err, catalogModel.ErrCatalogItemNotFound))

	_, err = e.svc.Create(ctx, model.CreateReservationRequest{CatalogItemID: e.item.ID, PatronID: uuid.New()})
	assert.True(t, errors.Is(err, patronModel.ErrPatronNotFound))

	inactive := e.fx.InactivePatron("Gone")
	_, err = e.svc.Create(ctx, model.CreateReservationRequest{CatalogItemID: e.item.ID, PatronID: inactive.ID})
	assert.True(t, errors.Is(err, patronModel.ErrPatronInactive))

	e.repair(t)
	other := e.fx.Patron("B")
	_, err = e.svc.Create(ctx, model.CreateReservationRequest{CatalogItemID: e.item.ID, PatronID: other.ID})
	assert.True(t, errors.Is(err, model.ErrCopiesAvailable))

	assert.Equal(t, []uuid.UUID{p.ID}, e.fx.ActiveQueue(e.item.ID))
}

func TestCancelRenumbers(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, b, c := e.fx.Patron("A"), e.fx.Patron("B"), e.fx.Patron("C")
	e.reserve(t, a.ID)
	rb := e.reserve(t, b.ID)
	rc := e.reserve(t, c.ID)

	e.fx.Clock.Advance(time.Hour)
	cancelled, err := e.svc.Cancel(ctx, rb.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, 2, cancelled.QueuePosition)

	assert.Equal(t, []uuid.UUID{a.ID, c.ID}, e.fx.ActiveQueue(e.item.ID))
	got, err := e.svc.Get(ctx, rc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.QueuePosition)
	assert.True(t, got.UpdatedAt.Equal(e.fx.Clock.Now()))

	_, err = e.svc.Cancel(ctx, rb.ID)
	assert.True(t, errors.Is(err, model.ErrReservationNotActive))
}

func TestFulfillEarmarksCopy(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, b := e.fx.Patron("A"), e.fx.Patron("B")
	ra := e.reserve(t, a.ID)
	rb := e.reserve(t, b.ID)

	_, err := e.svc.Fulfill(ctx, ra.ID)
	assert.True(t, errors.Is(err, model.ErrNoAvailableCopy))
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, e.fx.ActiveQueue(e.item.ID))

	e.repair(t)
	e.fx.Clock.Advance(time.Hour)
	resp, err := e.svc.Fulfill(ctx, ra.ID)
	require.NoError(t, err)
	assert.Equal(t, e.copyID, resp.CopyID)

	c := e.fx.MustCopy(e.copyID)
	assert.Equal(t, catalogModel.StatusReserved, c.Status)

	got, err := e.svc.Get(ctx, ra.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFulfilled, got.Status)
	require.NotNil(t, got.NotificationSent)
	assert.Equal(t, e.fx.Clock.Now(), *got.NotificationSent)
	assert.Equal(t, &e.copyID, got.CopyID)

	assert.Equal(t, []uuid.UUID{b.ID}, e.fx.ActiveQueue(e.item.ID))
	next, err := e.svc.Get(ctx, rb.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next.QueuePosition)

	_, err = e.svc.Fulfill(ctx, ra.ID)
	assert.True(t, errors.Is(err, model.ErrReservationNotActive))
}

func TestFulfillPicksOldestAvailableCopy(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p := e.fx.Patron("A")
	r := e.reserve(t, p.ID)

	older := e.fx.Copy(e.item.ID, e.branch)
	e.fx.Copy(e.item.ID, e.branch)

	resp, err := e.svc.Fulfill(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, resp.CopyID)
}

func TestExpire(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, b := e.fx.Patron("A"), e.fx.Patron("B")
	ra := e.reserve(t, a.ID)
	e.reserve(t, b.ID)

	_, err := e.svc.Expire(ctx, ra.ID)
	assert.True(t, errors.Is(err, model.ErrReservationNotExpired))
	assert.True(t, apperr.IsPrecondition(err))

	e.fx.Clock.Advance(8 * 24 * time.Hour)
	got, err := e.svc.Get(ctx, ra.ID)
	require.NoError(t, err)
	assert.True(t, got.IsExpired)

	expired, err := e.svc.Expire(ctx, ra.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, expired.Status)
	assert.False(t, expired.IsExpired)
	assert.Equal(t, []uuid.UUID{b.ID}, e.fx.ActiveQueue(e.item.ID))
}

func TestExpireDueSweep(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, b, c := e.fx.Patron("A"), e.fx.Patron("B"), e.fx.Patron("C")
	ra := e.reserve(t, a.ID)
	rb := e.reserve(t, b.ID)
	e.fx.Clock.Advance(3 * 24 * time.Hour)
	e.reserve(t, c.ID)

	resp, err := e.svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)

	// A and B are past expiry, C is not
	e.fx.Clock.Advance(5 * 24 * time.Hour)
	resp, err = e.svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.ElementsMatch(t, []uuid.UUID{ra.ID, rb.ID}, resp.Expired)

	assert.Equal(t, []uuid.UUID{c.ID}, e.fx.ActiveQueue(e.item.ID))
}

func TestListReservations(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, b := e.fx.Patron("A"), e.fx.Patron("B")
	e.reserve(t, a.ID)
	rb := e.reserve(t, b.ID)
	_, err := e.svc.Cancel(ctx, rb.ID)
	require.NoError(t, err)

	all, err := e.svc.List(ctx, model.ListReservationsRequest{CatalogItemID: e.item.ID.String()})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := e.svc.List(ctx, model.ListReservationsRequest{Status: string(model.StatusActive)})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].PatronID)

	_, err = e.svc.List(ctx, model.ListReservationsRequest{PatronID: "not-a-uuid"})
	assert.True(t, apperr.IsValidation(err))
}

func TestConcurrentQueueOperationsStayContiguous(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	const n = 12
	patrons := make([]uuid.UUID, n)
	for i := range patrons {
		patrons[i] = e.fx.Patron("p").ID
	}

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, n)
	for i, p := range patrons {
		wg.Add(1)
		go func(i int, patronID uuid.UUID) {
			defer wg.Done()
			r, err := e.svc.Create(ctx, model.CreateReservationRequest{CatalogItemID: e.item.ID, PatronID: patronID})
			if assert.NoError(t, err) {
				ids[i] = r.ID
			}
		}(i, p)
	}
	wg.Wait()
	require.Len(t, e.fx.ActiveQueue(e.item.ID), n)

	for i := 0; i < n; i += 2 {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := e.svc.Cancel(ctx, id)
			assert.NoError(t, err)
		}(ids[i])
	}
	wg.Wait()

	assert.Len(t, e.fx.ActiveQueue(e.item.ID), n/2)
}
