package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	circulationModel "library-backend/internal/domains/circulation/model"
	"library-backend/internal/domains/fine/model"
	patronModel "library-backend/internal/domains/patron/model"
	"library-backend/internal/ledger"
	"library-backend/internal/ledger/ledgertest"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T) (*ledgertest.Fixture, ServiceInterface) {
	fx := ledgertest.New(t)
	return fx, NewService(fx.Store, WithClock(fx.Clock.Now))
}

func TestCreatePayDeleteKeepsBalance(t *testing.T) {
	fx, svc := newTestService(t)
	ctx := context.Background()
	p := fx.Patron("Ada")

	first, err := svc.CreateFine(ctx, model.CreateFineRequest{PatronID: p.ID, Amount: dec("3.00"), Reason: "Damaged cover"})
	require.NoError(t, err)
	assert.True(t, first.PatronBalance.Equal(dec("3.00")))

	second, err := svc.CreateFine(ctx, model.CreateFineRequest{PatronID: p.ID, Amount: dec("1.25"), Reason: "Lost barcode"})
	require.NoError(t, err)
	assert.True(t, second.PatronBalance.Equal(dec("4.25")))
	fx.RequireBalanceMatchesFines(p.ID)

	fx.Clock.Advance(time.Hour)
	paid, err := svc.PayFine(ctx, first.Fine.ID, model.PayFineRequest{PaymentMethod: "cash"})
	require.NoError(t, err)
	assert.True(t, paid.Fine.IsPaid)
	require.NotNil(t, paid.Fine.PaidDate)
	assert.Equal(t, fx.Clock.Now(), *paid.Fine.PaidDate)
	assert.True(t, paid.PatronBalance.Equal(dec("1.25")))
	fx.RequireBalanceMatchesFines(p.ID)

	// deleting a paid fine leaves the balance alone
	del, err := svc.DeleteFine(ctx, first.Fine.ID)
	require.NoError(t, err)
	assert.True(t, del.BalanceChange.IsZero())
	assert.True(t, del.PatronBalance.Equal(dec("1.25")))

	// deleting an unpaid fine takes its amount back out
	del, err = svc.DeleteFine(ctx, second.Fine.ID)
	require.NoError(t, err)
	assert.True(t, del.BalanceChange.Equal(dec("-1.25")))
	assert.True(t, del.PatronBalance.IsZero())
	fx.RequireBalanceMatchesFines(p.ID)
}

func TestPayFineTwice(t *testing.T) {
	fx, svc := newTestService(t)
	ctx := context.Background()
	p := fx.Patron("Ada")

	res, err := svc.CreateFine(ctx, model.CreateFineRequest{PatronID: p.ID, Amount: dec("2.00"), Reason: "x"})
	require.NoError(t, err)
	_, err = svc.PayFine(ctx, res.Fine.ID, model.PayFineRequest{PaymentMethod: "card"})
	require.NoError(t, err)

	_, err = svc.PayFine(ctx, res.Fine.ID, model.PayFineRequest{PaymentMethod: "card"})
	assert.True(t, errors.Is(err, model.ErrFineAlreadyPaid))
	assert.True(t, fx.MustPatron(p.ID).Balance.IsZero())
}

func TestCreateFineReferences(t *testing.T) {
	fx, svc := newTestService(t)
	ctx := context.Background()
	owner := fx.Patron("Ada")
	other := fx.Patron("Grace")
	c := fx.Copy(fx.Item("Dune").ID, fx.Branch("Central").ID)

	loan := &circulationModel.Transaction{
		ID:           uuid.New(),
		CopyID:       &c.ID,
		PatronID:     owner.ID,
		Type:         circulationModel.TypeCheckout,
		CheckoutDate: ledgertest.Epoch,
		DueDate:      ledgertest.Epoch.AddDate(0, 0, 14),
		Status:       circulationModel.StatusReturned,
	}
	require.NoError(t, fx.Store.WithTx(ctx, func(tx ledger.Tx) error {
		return tx.InsertTransaction(ctx, loan)
	}))

	_, err := svc.CreateFine(ctx, model.CreateFineRequest{PatronID: uuid.New(), Amount: dec("1"), Reason: "x"})
	assert.True(t, errors.Is(err, patronModel.ErrPatronNotFound))

	missing := uuid.New()
	_, err = svc.CreateFine(ctx, model.CreateFineRequest{PatronID: owner.ID, TransactionID: &missing, Amount: dec("1"), Reason: "x"})
	assert.True(t, errors.Is(err, circulationModel.ErrTransactionNotFound))

	_, err = svc.CreateFine(ctx, model.CreateFineRequest{PatronID: other.ID, TransactionID: &loan.ID, Amount: dec("1"), Reason: "x"})
	assert.True(t, errors.Is(err, model.ErrTransactionPatronMismatch))
	assert.True(t, fx.MustPatron(other.ID).Balance.IsZero())

	res, err := svc.CreateFine(ctx, model.CreateFineRequest{PatronID: owner.ID, TransactionID: &loan.ID, Amount: dec("4.50"), Reason: "Water damage"})
	require.NoError(t, err)
	assert.Equal(t, &loan.ID, res.Fine.TransactionID)
}

func TestAssessFineRollsBackWithCaller(t *testing.T) {
	fx, _ := newTestService(t)
	ctx := context.Background()
	p := fx.Patron("Ada")

	boom := errors.New("boom")
	err := fx.Store.WithTx(ctx, func(tx ledger.Tx) error {
		balance, err := AssessFine(ctx, tx, &model.Fine{ID: uuid.New(), PatronID: p.ID, Amount: dec("5"), Reason: "x"})
		require.NoError(t, err)
		assert.True(t, balance.Equal(dec("5")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.True(t, fx.MustPatron(p.ID).Balance.IsZero())
	fines, err := fx.Store.ListFines(ctx, ledger.FineFilter{PatronID: &p.ID})
	require.NoError(t, err)
	assert.Empty(t, fines)
}

func TestAssessFineRejectsNonPositive(t *testing.T) {
	fx, _ := newTestService(t)
	ctx := context.Background()
	p := fx.Patron("Ada")

	err := fx.Store.WithTx(ctx, func(tx ledger.Tx) error {
		_, err := AssessFine(ctx, tx, &model.Fine{ID: uuid.New(), PatronID: p.ID, Amount: decimal.Zero})
		return err
	})
	assert.True(t, errors.Is(err, model.ErrInvalidAmount))
}

func TestListPatronFines(t *testing.T) {
	fx, svc := newTestService(t)
	ctx := context.Background()
	p := fx.Patron("Ada")
	q := fx.Patron("Grace")

	for _, id := range []uuid.UUID{p.ID, p.ID, q.ID} {
		_, err := svc.CreateFine(ctx, model.CreateFineRequest{PatronID: id, Amount: dec("1"), Reason: "x"})
		require.NoError(t, err)
		fx.Clock.Advance(time.Minute)
	}

	fines, err := svc.ListPatronFines(ctx, p.ID, model.ListFinesRequest{})
	require.NoError(t, err)
	assert.Len(t, fines, 2)

	unpaid := false
	fines, err = svc.ListFines(ctx, model.ListFinesRequest{Paid: &unpaid})
	require.NoError(t, err)
	assert.Len(t, fines, 3)

	_, err = svc.ListPatronFines(ctx, uuid.New(), model.ListFinesRequest{})
	assert.True(t, errors.Is(err, patronModel.ErrPatronNotFound))
}
