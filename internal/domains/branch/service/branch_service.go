package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"library-backend/internal/domains/branch/model"
	"library-backend/internal/infrastructure/metrics"
	"library-backend/internal/ledger"
)

type BranchService struct {
	store   ledger.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*BranchService)

func WithClock(now func() time.Time) Option {
	return func(s *BranchService) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *BranchService) { s.metrics = m }
}

// NewService creates a new branch service
func NewService(store ledger.Store, opts ...Option) ServiceInterface {
	s := &BranchService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBranch implements Service.CreateBranch
func (s *BranchService) CreateBranch(ctx context.Context, req model.CreateBranchRequest) (*model.Branch, error) {
	now := s.now()
	b := &model.Branch{
		ID:        uuid.New(),
		Name:      req.Name,
		Address:   req.Address,
		IsMain:    req.IsMain,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		return tx.InsertBranch(ctx, b)
	})
	s.metrics.ObserveOperation("branch_create", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	log.Info().Str("branch_id", b.ID.String()).Str("name", b.Name).Msg("branch created")
	return b, nil
}

// GetBranch implements Service.GetBranch
func (s *BranchService) GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	return s.store.GetBranch(ctx, id)
}

// UpdateBranch implements Service.UpdateBranch
func (s *BranchService) UpdateBranch(ctx context.Context, id uuid.UUID, req model.UpdateBranchRequest) (*model.Branch, error) {
	var b *model.Branch
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		b, err = tx.GetBranch(ctx, id)
		if err != nil {
			return err
		}
		req.Apply(b)
		b.UpdatedAt = s.now()
		return tx.UpdateBranch(ctx, b)
	})
	s.metrics.ObserveOperation("branch_update", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBranch implements Service.DeleteBranch
func (s *BranchService) DeleteBranch(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.GetBranch(ctx, id); err != nil {
			return err
		}
		n, err := tx.CountCopiesAtBranch(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return model.NewBranchHasCopiesError(id, n)
		}
		return tx.DeleteBranch(ctx, id)
	})
	s.metrics.ObserveOperation("branch_delete", metrics.Outcome(err))
	if err != nil {
		return err
	}

	log.Info().Str("branch_id", id.String()).Msg("branch deleted")
	return nil
}

// ListBranches implements Service.ListBranches
func (s *BranchService) ListBranches(ctx context.Context) ([]model.Branch, error) {
	return s.store.ListBranches(ctx)
}
