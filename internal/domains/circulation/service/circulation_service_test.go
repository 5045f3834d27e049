package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/config"
	catalogModel "library-backend/internal/domains/catalog/model"
	catalogService "library-backend/internal/domains/catalog/service"
	"library-backend/internal/domains/circulation/model"
	patronModel "library-backend/internal/domains/patron/model"
	reservationModel "library-backend/internal/domains/reservation/model"
	"library-backend/internal/ledger"
	"library-backend/internal/ledger/ledgertest"
	"library-backend/internal/shared/apperr"
)

type env struct {
	fx     *ledgertest.Fixture
	svc    ServiceInterface
	item   *catalogModel.CatalogItem
	copy   *catalogModel.Copy
	patron *patronModel.Patron
}

func setup(t *testing.T, mutate ...func(*config.Policy)) *env {
	fx := ledgertest.New(t)
	policy := config.DefaultPolicy()
	for _, m := range mutate {
		m(&policy)
	}
	item := fx.Item("Dune")
	return &env{
		fx:     fx,
		svc:    NewService(fx.Store, policy, catalogService.NewAvailabilityCache(nil), WithClock(fx.Clock.Now)),
		item:   item,
		copy:   fx.Copy(item.ID, fx.Branch("Central").ID),
		patron: fx.Patron("Ada"),
	}
}

func (e *env) checkout(t *testing.T) *model.TransactionResponse {
	t.Helper()
	loan, err := e.svc.Checkout(context.Background(), model.CheckoutRequest{PatronID: e.patron.ID, CopyID: e.copy.ID})
	require.NoError(t, err)
	return loan
}

func (e *env) transactions(t *testing.T) []model.Transaction {
	t.Helper()
	txs, err := e.fx.Store.ListTransactions(context.Background(), ledger.TransactionFilter{})
	require.NoError(t, err)
	return txs
}

// hold earmarks the copy for patronID the way reservation fulfilment does.
func (e *env) hold(t *testing.T, patronID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	now := e.fx.Clock.Now()
	require.NoError(t, e.fx.Store.WithTx(ctx, func(tx ledger.Tx) error {
		c, err := tx.LockCopy(ctx, e.copy.ID)
		if err != nil {
			return err
		}
		if _, err := c.Transition(catalogModel.StatusReserved, catalogModel.TriggerReserve, "hold", now); err != nil {
			return err
		}
		if err := tx.UpdateCopy(ctx, c); err != nil {
			return err
		}
		return tx.InsertReservation(ctx, &reservationModel.Reservation{
			ID:               uuid.New(),
			CatalogItemID:    e.item.ID,
			PatronID:         patronID,
			ReservationDate:  now,
			Status:           reservationModel.StatusFulfilled,
			QueuePosition:    1,
			NotificationSent: &now,
			CopyID:           &c.ID,
		})
	}))
}

func TestCheckoutLendsCopy(t *testing.T) {
	e := setup(t)

	loan := e.checkout(t)

	assert.Equal(t, model.StatusActive, loan.Status)
	assert.Equal(t, model.TypeCheckout, loan.Type)
	assert.Equal(t, ledgertest.Epoch.AddDate(0, 0, 14), loan.DueDate)
	assert.False(t, loan.IsOverdue)

	c := e.fx.MustCopy(e.copy.ID)
	assert.Equal(t, catalogModel.StatusCheckedOut, c.Status)
	require.NotNil(t, c.CheckedOutBy)
	assert.Equal(t, e.patron.ID, *c.CheckedOutBy)
	require.NotNil(t, c.DueDate)
	assert.Equal(t, loan.DueDate, *c.DueDate)

	history, err := e.fx.Store.ListCopyEvents(context.Background(), e.copy.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, catalogModel.TriggerCheckout, history[0].Trigger)
}

func TestCheckoutExplicitDueDate(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	past := ledgertest.Epoch.Add(-time.Hour)
	_, err := e.svc.Checkout(ctx, model.CheckoutRequest{PatronID: e.patron.ID, CopyID: e.copy.ID, DueDate: &past})
	assert.True(t, errors.Is(err, model.ErrDueDateInPast))

	due := ledgertest.Epoch.AddDate(0, 0, 3)
	loan, err := e.svc.Checkout(ctx, model.CheckoutRequest{PatronID: e.patron.ID, CopyID: e.copy.ID, DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, due, loan.DueDate)
}

func TestCheckoutUnavailableCopyChangesNothing(t *testing.T) {
	e := setup(t)
	e.checkout(t)
	other := e.fx.Patron("Grace")

	_, err := e.svc.Checkout(context.Background(), model.CheckoutRequest{PatronID: other.ID, CopyID: e.copy.ID})
	assert.True(t, errors.Is(err, catalogModel.ErrCopyNotAvailable))
	assert.True(t, apperr.IsConflict(err))

	assert.Len(t, e.transactions(t), 1)
	assert.Equal(t, e.patron.ID, *e.fx.MustCopy(e.copy.ID).CheckedOutBy)
}

func TestCheckoutMissingEntities(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	_, err := e.svc.Checkout(ctx, model.CheckoutRequest{PatronID: e.patron.ID, CopyID: uuid.New()})
	assert.True(t, errors.Is(err, catalogModel.ErrCopyNotFound))

	_, err = e.svc.Checkout(ctx, model.CheckoutRequest{PatronID: uuid.New(), CopyID: e.copy.ID})
	assert.True(t, errors.Is(err, patronModel.ErrPatronNotFound))

	assert.Empty(t, e.transactions(t))
	assert.Equal(t, catalogModel.StatusAvailable, e.fx.MustCopy(e.copy.ID).Status)
}

func TestCheckoutInactivePatron(t *testing.T) {
	e := setup(t)
	inactive := e.fx.InactivePatron("Gone")

	_, err := e.svc.Checkout(context.Background(), model.CheckoutRequest{PatronID: inactive.ID, CopyID: e.copy.ID})
	assert.True(t, errors.Is(err, patronModel.ErrPatronInactive))
	assert.True(t, apperr.IsPrecondition(err))
	assert.Equal(t, catalogModel.StatusAvailable, e.fx.MustCopy(e.copy.ID).Status)
}

func TestCheckinOnTimeHasNoFine(t *testing.T) {
	e := setup(t)
	e.checkout(t)
	e.fx.Clock.Advance(14 * 24 * time.Hour) // exactly at due

	resp, err := e.svc.Checkin(context.Background(), model.CheckinRequest{CopyID: e.copy.ID})
	require.NoError(t, err)

	assert.Equal(t, 0, resp.DaysOverdue)
	assert.True(t, resp.FineAmount.IsZero())
	assert.Nil(t, resp.FineID)
	assert.Equal(t, catalogModel.StatusAvailable, resp.CopyStatus)

	c := e.fx.MustCopy(e.copy.ID)
	assert.Nil(t, c.CheckedOutBy)
	assert.Nil(t, c.DueDate)
	assert.True(t, e.fx.MustPatron(e.patron.ID).Balance.IsZero())
}

func TestCheckinLateAssessesFine(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.checkout(t)
	// two days and one hour late rounds up to three
	e.fx.Clock.Advance(16*24*time.Hour + time.Hour)

	cond := catalogModel.ConditionFair
	resp, err := e.svc.Checkin(ctx, model.CheckinRequest{CopyID: e.copy.ID, NewCondition: &cond})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.DaysOverdue)
	assert.True(t, resp.FineAmount.Equal(decimal.RequireFromString("1.50")))
	require.NotNil(t, resp.FineID)

	f, err := e.fx.Store.GetFine(ctx, *resp.FineID)
	require.NoError(t, err)
	assert.Equal(t, "Late return - 3 days overdue", f.Reason)
	assert.Equal(t, resp.TransactionID, *f.TransactionID)
	assert.False(t, f.IsPaid)

	assert.True(t, e.fx.MustPatron(e.patron.ID).Balance.Equal(decimal.RequireFromString("1.50")))
	e.fx.RequireBalanceMatchesFines(e.patron.ID)

	loan, err := e.fx.Store.GetTransaction(ctx, resp.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReturned, loan.Status)
	assert.Equal(t, model.TypeCheckin, loan.Type)
	assert.True(t, loan.FineAmount.Equal(resp.FineAmount))
	assert.Equal(t, catalogModel.ConditionFair, e.fx.MustCopy(e.copy.ID).Condition)
}

func TestCheckinWithReshelvePolicy(t *testing.T) {
	e := setup(t, func(p *config.Policy) { p.ReshelveOnCheckin = true })
	e.checkout(t)

	resp, err := e.svc.Checkin(context.Background(), model.CheckinRequest{CopyID: e.copy.ID})
	require.NoError(t, err)
	assert.Equal(t, catalogModel.StatusReturned, resp.CopyStatus)

	_, err = e.svc.Checkout(context.Background(), model.CheckoutRequest{PatronID: e.patron.ID, CopyID: e.copy.ID})
	assert.True(t, errors.Is(err, catalogModel.ErrCopyNotAvailable))
}

func TestCheckinWithoutLoan(t *testing.T) {
	e := setup(t)

	_, err := e.svc.Checkin(context.Background(), model.CheckinRequest{CopyID: e.copy.ID})
	assert.True(t, errors.Is(err, model.ErrNoActiveLoan))
	assert.True(t, apperr.IsNotFound(err))
}

func TestRenewExtendsFromDueDate(t *testing.T) {
	e := setup(t)
	loan := e.checkout(t)
	e.fx.Clock.Advance(10 * 24 * time.Hour)

	resp, err := e.svc.Renew(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.DueDate.AddDate(0, 0, 14), resp.NewDueDate)
	assert.Equal(t, 1, resp.RenewalCount)

	c := e.fx.MustCopy(e.copy.ID)
	assert.Equal(t, resp.NewDueDate, *c.DueDate)

	got, err := e.svc.GetTransaction(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TypeRenewal, got.Type)
	assert.Equal(t, model.StatusActive, got.Status)
}

func TestRenewBlockedByQueue(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	loan := e.checkout(t)
	waiting := e.fx.Patron("Grace")
	expiry := ledgertest.Epoch.AddDate(0, 0, 7)

	require.NoError(t, e.fx.Store.WithTx(ctx, func(tx ledger.Tx) error {
		return tx.InsertReservation(ctx, &reservationModel.Reservation{
			ID:              uuid.New(),
			CatalogItemID:   e.item.ID,
			PatronID:        waiting.ID,
			ReservationDate: ledgertest.Epoch,
			ExpiryDate:      &expiry,
			Status:          reservationModel.StatusActive,
			QueuePosition:   1,
		})
	}))

	_, err := e.svc.Renew(ctx, loan.ID)
	assert.True(t, errors.Is(err, model.ErrPendingReservations))

	got, err := e.svc.GetTransaction(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.DueDate, got.DueDate)
	assert.Equal(t, 0, got.RenewalCount)
}

func TestRenewReturnedLoan(t *testing.T) {
	e := setup(t)
	loan := e.checkout(t)
	_, err := e.svc.Checkin(context.Background(), model.CheckinRequest{CopyID: e.copy.ID})
	require.NoError(t, err)

	_, err = e.svc.Renew(context.Background(), loan.ID)
	assert.True(t, errors.Is(err, model.ErrTransactionNotActive))

	_, err = e.svc.Renew(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, model.ErrTransactionNotFound))
}

func TestCheckoutReservedCopy(t *testing.T) {
	e := setup(t)
	holder := e.fx.Patron("Grace")
	e.hold(t, holder.ID)

	_, err := e.svc.Checkout(context.Background(), model.CheckoutRequest{PatronID: e.patron.ID, CopyID: e.copy.ID})
	assert.True(t, errors.Is(err, model.ErrCopyHeldForOtherPatron))

	loan, err := e.svc.Checkout(context.Background(), model.CheckoutRequest{PatronID: holder.ID, CopyID: e.copy.ID})
	require.NoError(t, err)
	assert.Equal(t, holder.ID, loan.PatronID)
}

func TestOverdueListing(t *testing.T) {
	e := setup(t)
	e.checkout(t)

	overdue, err := e.svc.ListOverdue(context.Background(), ledger.Page{})
	require.NoError(t, err)
	assert.Empty(t, overdue)

	e.fx.Clock.Advance(15 * 24 * time.Hour)
	overdue, err = e.svc.ListOverdue(context.Background(), ledger.Page{})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.True(t, overdue[0].IsOverdue)
	assert.Equal(t, 1, overdue[0].DaysOverdue)

	mine, err := e.svc.ListPatronTransactions(context.Background(), e.patron.ID, model.ListTransactionsRequest{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestConcurrentCheckoutSingleWinner(t *testing.T) {
	e := setup(t)
	const callers = 16

	patrons := make([]uuid.UUID, callers)
	for i := range patrons {
		patrons[i] = e.fx.Patron("p").ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, id := range patrons {
		wg.Add(1)
		go func(patronID uuid.UUID) {
			defer wg.Done()
			_, err := e.svc.Checkout(context.Background(), model.CheckoutRequest{PatronID: patronID, CopyID: e.copy.ID})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, catalogModel.ErrCopyNotAvailable))
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Len(t, e.transactions(t), 1)
}
