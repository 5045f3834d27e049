package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"library-backend/internal/config"
	catalogModel "library-backend/internal/domains/catalog/model"
	catalogService "library-backend/internal/domains/catalog/service"
	"library-backend/internal/domains/circulation/model"
	fineModel "library-backend/internal/domains/fine/model"
	fineService "library-backend/internal/domains/fine/service"
	patronModel "library-backend/internal/domains/patron/model"
	reservationModel "library-backend/internal/domains/reservation/model"
	"library-backend/internal/infrastructure/metrics"
	"library-backend/internal/ledger"
	"library-backend/internal/shared/apperr"
)

type CirculationService struct {
	store   ledger.Store
	policy  config.Policy
	cache   *catalogService.AvailabilityCache
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*CirculationService)

// WithClock overrides the wall clock; fine arithmetic uses it.
func WithClock(now func() time.Time) Option {
	return func(s *CirculationService) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CirculationService) { s.metrics = m }
}

// NewService creates a new circulation engine
func NewService(store ledger.Store, policy config.Policy, cache *catalogService.AvailabilityCache, opts ...Option) ServiceInterface {
	s := &CirculationService{
		store:  store,
		policy: policy,
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout implements Service.Checkout
func (s *CirculationService) Checkout(ctx context.Context, req model.CheckoutRequest) (*model.TransactionResponse, error) {
	now := s.now()
	dueDate := now.Add(s.policy.LoanPeriod())
	if req.DueDate != nil {
		dueDate = req.DueDate.UTC()
		if !dueDate.After(now) {
			return nil, model.ErrDueDateInPast
		}
	}

	var (
		loan  *model.Transaction
		cp    *catalogModel.Copy
		event *catalogModel.CopyEvent
	)
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		cp, err = tx.LockCopy(ctx, req.CopyID)
		if err != nil {
			return err
		}
		patron, err := tx.GetPatron(ctx, req.PatronID)
		if err != nil {
			return err
		}

		switch cp.Status {
		case catalogModel.StatusAvailable:
		case catalogModel.StatusReserved:
			if err := s.checkHold(ctx, tx, cp, patron.ID); err != nil {
				return err
			}
		default:
			return catalogModel.NewCopyNotAvailableError(cp.ID, cp.Status)
		}

		if !patron.IsActive {
			return patronModel.NewPatronInactiveError(patron.ID)
		}

		event, err = cp.Lend(patron.ID, dueDate, now)
		if err != nil {
			return err
		}
		branchID := cp.CurrentBranchID
		loan = &model.Transaction{
			ID:           uuid.New(),
			CopyID:       &cp.ID,
			PatronID:     patron.ID,
			BranchID:     &branchID,
			Type:         model.TypeCheckout,
			CheckoutDate: now,
			DueDate:      dueDate,
			Status:       model.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := tx.UpdateCopy(ctx, cp); err != nil {
			return err
		}
		if err := tx.InsertCopyEvent(ctx, event); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, loan)
	})
	s.metrics.ObserveOperation("checkout", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(event.FromStatus), string(event.ToStatus), string(event.Trigger))
	s.cache.Invalidate(ctx, cp.CatalogItemID)
	log.Info().
		Str("transaction_id", loan.ID.String()).
		Str("copy_id", cp.ID.String()).
		Str("patron_id", loan.PatronID.String()).
		Time("due_date", loan.DueDate).
		Msg("copy checked out")

	resp := loan.ToResponse(now)
	return &resp, nil
}

// checkHold lets a reserved copy go only to the patron whose fulfilled
// reservation pulled it.
func (s *CirculationService) checkHold(ctx context.Context, tx ledger.Tx, cp *catalogModel.Copy, patronID uuid.UUID) error {
	hold, err := tx.FindHoldForCopy(ctx, cp.ID)
	if errors.Is(err, reservationModel.ErrReservationNotFound) {
		return catalogModel.NewCopyNotAvailableError(cp.ID, cp.Status)
	}
	if err != nil {
		return err
	}
	if hold.PatronID != patronID {
		return model.NewCopyHeldForOtherPatronError(cp.ID, hold.ID)
	}
	return nil
}

// Checkin implements Service.Checkin
func (s *CirculationService) Checkin(ctx context.Context, req model.CheckinRequest) (*model.CheckinResponse, error) {
	now := s.now()
	target := catalogModel.StatusAvailable
	if s.policy.ReshelveOnCheckin {
		target = catalogModel.StatusReturned
	}

	var (
		resp  model.CheckinResponse
		cp    *catalogModel.Copy
		loan  *model.Transaction
		event *catalogModel.CopyEvent
	)
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		cp, err = tx.LockCopy(ctx, req.CopyID)
		if err != nil {
			return err
		}
		loan, err = tx.LockActiveTransactionForCopy(ctx, cp.ID)
		if err != nil {
			return err
		}

		days := model.DaysOverdue(loan.DueDate, now)
		fee := model.LateFee(days, s.policy.FinePerDay)

		returned := now
		loan.ReturnDate = &returned
		loan.FineAmount = fee
		loan.Type = model.TypeCheckin
		loan.Status = model.StatusReturned
		loan.UpdatedAt = now

		event, err = cp.Transition(target, catalogModel.TriggerCheckin, "checked in", now)
		if err != nil {
			return err
		}
		if req.NewCondition != nil {
			cp.Condition = *req.NewCondition
		}
		if req.Notes != nil {
			cp.Notes = *req.Notes
		}

		if err := tx.UpdateCopy(ctx, cp); err != nil {
			return err
		}
		if err := tx.InsertCopyEvent(ctx, event); err != nil {
			return err
		}
		if err := tx.UpdateTransaction(ctx, loan); err != nil {
			return err
		}

		resp = model.CheckinResponse{
			TransactionID: loan.ID,
			CopyID:        cp.ID,
			ReturnDate:    now,
			FineAmount:    fee,
			DaysOverdue:   days,
			CopyStatus:    cp.Status,
		}
		if !fee.IsPositive() {
			return nil
		}

		fine := &fineModel.Fine{
			ID:            uuid.New(),
			TransactionID: &loan.ID,
			PatronID:      loan.PatronID,
			Amount:        fee,
			Reason:        model.LateReturnReason(days),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if _, err := fineService.AssessFine(ctx, tx, fine); err != nil {
			return err
		}
		resp.FineID = &fine.ID
		return nil
	})
	s.metrics.ObserveOperation("checkin", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(event.FromStatus), string(event.ToStatus), string(event.Trigger))
	if resp.FineID != nil {
		s.metrics.ObserveLateFine(resp.FineAmount)
	}
	s.cache.Invalidate(ctx, cp.CatalogItemID)
	log.Info().
		Str("transaction_id", loan.ID.String()).
		Str("copy_id", cp.ID.String()).
		Int("days_overdue", resp.DaysOverdue).
		Str("fine", resp.FineAmount.StringFixed(2)).
		Msg("copy checked in")
	return &resp, nil
}

// Renew implements Service.Renew
func (s *CirculationService) Renew(ctx context.Context, id uuid.UUID) (*model.RenewResponse, error) {
	var loan *model.Transaction
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		// lock the copy before the loan, like check-in
		peek, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if peek.Status != model.StatusActive || peek.CopyID == nil {
			return model.NewTransactionNotActiveError(id, peek.Status)
		}
		cp, err := tx.LockCopy(ctx, *peek.CopyID)
		if err != nil {
			return err
		}
		loan, err = tx.LockTransaction(ctx, id)
		if err != nil {
			return err
		}
		if loan.Status != model.StatusActive {
			return model.NewTransactionNotActiveError(id, loan.Status)
		}

		if _, err := tx.LockCatalogItem(ctx, cp.CatalogItemID); err != nil {
			return err
		}
		waiting, err := tx.CountActiveReservations(ctx, cp.CatalogItemID)
		if err != nil {
			return err
		}
		if waiting > 0 {
			return model.NewPendingReservationsError(cp.CatalogItemID, waiting)
		}

		now := s.now()
		loan.DueDate = loan.DueDate.Add(s.policy.RenewalPeriod())
		loan.RenewalCount++
		loan.Type = model.TypeRenewal
		loan.UpdatedAt = now

		due := loan.DueDate
		cp.DueDate = &due
		cp.UpdatedAt = now
		if err := tx.UpdateCopy(ctx, cp); err != nil {
			return err
		}
		return tx.UpdateTransaction(ctx, loan)
	})
	s.metrics.ObserveOperation("renew", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction_id", loan.ID.String()).
		Time("due_date", loan.DueDate).
		Int("renewal_count", loan.RenewalCount).
		Msg("loan renewed")
	return &model.RenewResponse{
		TransactionID: loan.ID,
		NewDueDate:    loan.DueDate,
		RenewalCount:  loan.RenewalCount,
	}, nil
}

// GetTransaction implements Service.GetTransaction
func (s *CirculationService) GetTransaction(ctx context.Context, id uuid.UUID) (*model.TransactionResponse, error) {
	loan, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := loan.ToResponse(s.now())
	return &resp, nil
}

// ListTransactions implements Service.ListTransactions
func (s *CirculationService) ListTransactions(ctx context.Context, req model.ListTransactionsRequest) ([]model.TransactionResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperr.Validationf("%v", err)
	}

	filter := ledger.TransactionFilter{Page: ledger.Page{Page: req.Page, Limit: req.Limit}}
	if req.PatronID != "" {
		patronID := uuid.MustParse(req.PatronID)
		filter.PatronID = &patronID
	}
	if req.CopyID != "" {
		copyID := uuid.MustParse(req.CopyID)
		filter.CopyID = &copyID
	}
	if req.Status != "" {
		status := model.TransactionStatus(req.Status)
		filter.Status = &status
	}

	loans, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}
	return model.ToResponseList(loans, s.now()), nil
}

// ListOverdue implements Service.ListOverdue
func (s *CirculationService) ListOverdue(ctx context.Context, page ledger.Page) ([]model.TransactionResponse, error) {
	now := s.now()
	loans, err := s.store.ListTransactions(ctx, ledger.TransactionFilter{DueBefore: &now, Page: page})
	if err != nil {
		return nil, err
	}
	return model.ToResponseList(loans, now), nil
}

// ListPatronTransactions implements Service.ListPatronTransactions
func (s *CirculationService) ListPatronTransactions(ctx context.Context, patronID uuid.UUID, req model.ListTransactionsRequest) ([]model.TransactionResponse, error) {
	if _, err := s.store.GetPatron(ctx, patronID); err != nil {
		return nil, err
	}
	req.PatronID = patronID.String()
	return s.ListTransactions(ctx, req)
}
