package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"library-backend/internal/domains/fine/model"
	"library-backend/internal/infrastructure/metrics"
	"library-backend/internal/ledger"
	"library-backend/internal/shared/apperr"
)

type FineService struct {
	store   ledger.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*FineService)

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *FineService) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *FineService) { s.metrics = m }
}

// NewService creates a new fine ledger service
func NewService(store ledger.Store, opts ...Option) ServiceInterface {
	s := &FineService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssessFine inserts an unpaid fine and adds it to the patron balance inside
// an already open store transaction. Check-in uses it for late fees.
func AssessFine(ctx context.Context, tx ledger.Tx, f *model.Fine) (decimal.Decimal, error) {
	if !f.Amount.IsPositive() {
		return decimal.Zero, model.ErrInvalidAmount
	}
	f.IsPaid = false
	f.PaidDate = nil
	if err := tx.InsertFine(ctx, f); err != nil {
		return decimal.Zero, err
	}
	return tx.AdjustPatronBalance(ctx, f.PatronID, f.Amount, f.CreatedAt)
}

// CreateFine implements Service.CreateFine
func (s *FineService) CreateFine(ctx context.Context, req model.CreateFineRequest) (*model.FineResult, error) {
	now := s.now()
	f := &model.Fine{
		ID:            uuid.New(),
		TransactionID: req.TransactionID,
		PatronID:      req.PatronID,
		Amount:        req.Amount,
		Reason:        req.Reason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var balance decimal.Decimal
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.LockPatron(ctx, req.PatronID); err != nil {
			return err
		}
		if req.TransactionID != nil {
			loan, err := tx.GetTransaction(ctx, *req.TransactionID)
			if err != nil {
				return err
			}
			if loan.PatronID != req.PatronID {
				return model.NewTransactionPatronMismatchError(loan.ID, req.PatronID)
			}
		}
		var err error
		balance, err = AssessFine(ctx, tx, f)
		return err
	})
	s.metrics.ObserveOperation("fine_create", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveFine("assessed", f.Amount)
	log.Info().
		Str("fine_id", f.ID.String()).
		Str("patron_id", f.PatronID.String()).
		Str("amount", f.Amount.StringFixed(2)).
		Msg("fine created")
	return &model.FineResult{Fine: f, PatronBalance: balance}, nil
}

// PayFine implements Service.PayFine
func (s *FineService) PayFine(ctx context.Context, id uuid.UUID, req model.PayFineRequest) (*model.FineResult, error) {
	var (
		f       *model.Fine
		balance decimal.Decimal
	)
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		f, err = tx.LockFine(ctx, id)
		if err != nil {
			return err
		}
		if f.IsPaid {
			return model.NewFineAlreadyPaidError(id)
		}

		now := s.now()
		f.IsPaid = true
		f.PaidDate = &now
		f.PaymentMethod = req.PaymentMethod
		f.UpdatedAt = now
		if err := tx.UpdateFine(ctx, f); err != nil {
			return err
		}
		balance, err = tx.AdjustPatronBalance(ctx, f.PatronID, f.Amount.Neg(), now)
		return err
	})
	s.metrics.ObserveOperation("fine_pay", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveFine("paid", f.Amount)
	log.Info().
		Str("fine_id", f.ID.String()).
		Str("patron_id", f.PatronID.String()).
		Str("method", f.PaymentMethod).
		Msg("fine paid")
	return &model.FineResult{Fine: f, PatronBalance: balance}, nil
}

// DeleteFine implements Service.DeleteFine
func (s *FineService) DeleteFine(ctx context.Context, id uuid.UUID) (*model.DeleteResult, error) {
	var (
		f      *model.Fine
		result model.DeleteResult
	)
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		f, err = tx.LockFine(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteFine(ctx, id); err != nil {
			return err
		}

		result.FineID = id
		result.BalanceChange = f.BalanceContribution().Neg()
		if result.BalanceChange.IsZero() {
			p, err := tx.GetPatron(ctx, f.PatronID)
			if err != nil {
				return err
			}
			result.PatronBalance = p.Balance
			return nil
		}
		result.PatronBalance, err = tx.AdjustPatronBalance(ctx, f.PatronID, result.BalanceChange, s.now())
		return err
	})
	s.metrics.ObserveOperation("fine_delete", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	if !result.BalanceChange.IsZero() {
		s.metrics.ObserveFine("deleted", f.Amount)
	}
	log.Info().
		Str("fine_id", id.String()).
		Str("patron_id", f.PatronID.String()).
		Str("balance_change", result.BalanceChange.StringFixed(2)).
		Msg("fine deleted")
	return &result, nil
}

// GetFine implements Service.GetFine
func (s *FineService) GetFine(ctx context.Context, id uuid.UUID) (*model.Fine, error) {
	return s.store.GetFine(ctx, id)
}

// ListFines implements Service.ListFines
func (s *FineService) ListFines(ctx context.Context, req model.ListFinesRequest) ([]model.Fine, error) {
	req.Normalize()
	filter := ledger.FineFilter{
		Paid: req.Paid,
		Page: ledger.Page{Page: req.Page, Limit: req.Limit},
	}
	if req.PatronID != "" {
		patronID, err := uuid.Parse(req.PatronID)
		if err != nil {
			return nil, apperr.Validationf("patron_id: %v", err)
		}
		filter.PatronID = &patronID
	}
	return s.store.ListFines(ctx, filter)
}

// ListPatronFines implements Service.ListPatronFines
func (s *FineService) ListPatronFines(ctx context.Context, patronID uuid.UUID, req model.ListFinesRequest) ([]model.Fine, error) {
	if _, err := s.store.GetPatron(ctx, patronID); err != nil {
		return nil, err
	}
	req.PatronID = patronID.String()
	return s.ListFines(ctx, req)
}
