package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"library-backend/internal/domains/patron/model"
	"library-backend/internal/infrastructure/metrics"
	"library-backend/internal/ledger"
)

type PatronService struct {
	store   ledger.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*PatronService)

func WithClock(now func() time.Time) Option {
	return func(s *PatronService) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *PatronService) { s.metrics = m }
}

// NewService creates a new patron service
func NewService(store ledger.Store, opts ...Option) ServiceInterface {
	s := &PatronService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePatron implements Service.CreatePatron
func (s *PatronService) CreatePatron(ctx context.Context, req model.CreatePatronRequest) (*model.PatronResponse, error) {
	now := s.now()
	p := &model.Patron{
		ID:                 uuid.New(),
		Name:               strings.TrimSpace(req.Name),
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:              req.Phone,
		Address:            req.Address,
		Balance:            decimal.Zero,
		CardExpirationDate: req.CardExpirationDate,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		return tx.InsertPatron(ctx, p)
	})
	s.metrics.ObserveOperation("patron_create", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	log.Info().Str("patron_id", p.ID.String()).Msg("patron created")
	resp := p.ToResponse(now)
	return &resp, nil
}

// GetPatron implements Service.GetPatron
func (s *PatronService) GetPatron(ctx context.Context, id uuid.UUID) (*model.PatronResponse, error) {
	p, err := s.store.GetPatron(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := p.ToResponse(s.now())
	return &resp, nil
}

// UpdatePatron implements Service.UpdatePatron
func (s *PatronService) UpdatePatron(ctx context.Context, id uuid.UUID, req model.UpdatePatronRequest) (*model.PatronResponse, error) {
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &email
	}

	var p *model.Patron
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		p, err = tx.LockPatron(ctx, id)
		if err != nil {
			return err
		}
		req.Apply(p)
		p.UpdatedAt = s.now()
		return tx.UpdatePatron(ctx, p)
	})
	s.metrics.ObserveOperation("patron_update", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	resp := p.ToResponse(s.now())
	return &resp, nil
}

// DeletePatron implements Service.DeletePatron
func (s *PatronService) DeletePatron(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		p, err := tx.LockPatron(ctx, id)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return nil
		}
		p.IsActive = false
		p.UpdatedAt = s.now()
		return tx.UpdatePatron(ctx, p)
	})
	s.metrics.ObserveOperation("patron_delete", metrics.Outcome(err))
	if err != nil {
		return err
	}

	log.Info().Str("patron_id", id.String()).Msg("patron deactivated")
	return nil
}

// ListPatrons implements Service.ListPatrons
func (s *PatronService) ListPatrons(ctx context.Context, req model.ListPatronsRequest) ([]model.PatronResponse, int, error) {
	req.Normalize()
	patrons, total, err := s.store.ListPatrons(ctx, ledger.PatronFilter{
		Name:   req.Name,
		Active: req.Active,
		Page:   ledger.Page{Page: req.Page, Limit: req.Limit},
	})
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	out := make([]model.PatronResponse, 0, len(patrons))
	for i := range patrons {
		out = append(out, patrons[i].ToResponse(now))
	}
	return out, total, nil
}
