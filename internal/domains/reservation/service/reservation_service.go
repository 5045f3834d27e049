package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"library-backend/internal/config"
	catalogModel "library-backend/internal/domains/catalog/model"
	catalogService "library-backend/internal/domains/catalog/service"
	patronModel "library-backend/internal/domains/patron/model"
	"library-backend/internal/domains/reservation/model"
	"library-backend/internal/infrastructure/metrics"
	"library-backend/internal/ledger"
	"library-backend/internal/shared/apperr"
)

type ReservationService struct {
	store   ledger.Store
	policy  config.Policy
	cache   *catalogService.AvailabilityCache
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*ReservationService)

// WithClock overrides the wall clock; expiry decisions use it.
func WithClock(now func() time.Time) Option {
	return func(s *ReservationService) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ReservationService) { s.metrics = m }
}

// NewService creates a new reservation queue manager
func NewService(store ledger.Store, policy config.Policy, cache *catalogService.AvailabilityCache, opts ...Option) ServiceInterface {
	s := &ReservationService{
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

// Create implements Service.Create
func (s *ReservationService) Create(ctx context.Context, req model.CreateReservationRequest) (*model.ReservationResponse, error) {
	now := s.now()
	expiry := now.Add(s.policy.ReservationExpiry())
	r := &model.Reservation{
		ID:              uuid.New(),
		CatalogItemID:   req.CatalogItemID,
		PatronID:        req.PatronID,
		ReservationDate: now,
		ExpiryDate:      &expiry,
		Status:          model.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.LockCatalogItem(ctx, req.CatalogItemID); err != nil {
			return err
		}
		patron, err := tx.GetPatron(ctx, req.PatronID)
		if err != nil {
			return err
		}
		if !patron.IsActive {
			return patronModel.NewPatronInactiveError(patron.ID)
		}

		held, err := tx.HasActiveReservation(ctx, req.CatalogItemID, req.PatronID)
		if err != nil {
			return err
		}
		if held {
			return model.NewDuplicateReservationError(req.CatalogItemID, req.PatronID)
		}

		counts, err := tx.CountCopiesByStatus(ctx, req.CatalogItemID)
		if err != nil {
			return err
		}
		if available := counts[catalogModel.StatusAvailable]; available > 0 {
			return model.NewCopiesAvailableError(req.CatalogItemID, available)
		}

		last, err := tx.MaxActiveQueuePosition(ctx, req.CatalogItemID)
		if err != nil {
			return err
		}
		r.QueuePosition = last + 1
		return tx.InsertReservation(ctx, r)
	})
	s.metrics.ObserveOperation("reservation_create", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveQueue("joined")
	log.Info().
		Str("reservation_id", r.ID.String()).
		Str("catalog_item_id", r.CatalogItemID.String()).
		Str("patron_id", r.PatronID.String()).
		Int("queue_position", r.QueuePosition).
		Msg("reservation created")

	resp := r.ToResponse(now)
	return &resp, nil
}

// Fulfill implements Service.Fulfill
func (s *ReservationService) Fulfill(ctx context.Context, id uuid.UUID) (*model.FulfillResponse, error) {
	var (
		r     *model.Reservation
		event *catalogModel.CopyEvent
	)
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		r, err = s.leaveQueue(ctx, tx, id, model.StatusFulfilled, func(r *model.Reservation, now time.Time) error {
			c, err := tx.LockAvailableCopy(ctx, r.CatalogItemID)
			if errors.Is(err, catalogModel.ErrCopyNotFound) {
				return model.NewNoAvailableCopyError(r.CatalogItemID)
			}
			if err != nil {
				return err
			}

			event, err = c.Transition(catalogModel.StatusReserved, catalogModel.TriggerReserve,
				fmt.Sprintf("held for reservation %s", r.ID), now)
			if err != nil {
				return err
			}
			if err := tx.UpdateCopy(ctx, c); err != nil {
				return err
			}
			if err := tx.InsertCopyEvent(ctx, event); err != nil {
				return err
			}

			r.NotificationSent = &now
			r.CopyID = &c.ID
			return nil
		})
		return err
	})
	s.metrics.ObserveOperation("reservation_fulfill", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveQueue("fulfilled")
	s.metrics.ObserveTransition(string(event.FromStatus), string(event.ToStatus), string(event.Trigger))
	s.cache.Invalidate(ctx, r.CatalogItemID)
	log.Info().
		Str("reservation_id", r.ID.String()).
		Str("copy_id", r.CopyID.String()).
		Str("patron_id", r.PatronID.String()).
		Msg("reservation fulfilled")

	return &model.FulfillResponse{ReservationID: r.ID, CopyID: *r.CopyID}, nil
}

// Cancel implements Service.Cancel
func (s *ReservationService) Cancel(ctx context.Context, id uuid.UUID) (*model.ReservationResponse, error) {
	var r *model.Reservation
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		r, err = s.leaveQueue(ctx, tx, id, model.StatusCancelled, nil)
		return err
	})
	s.metrics.ObserveOperation("reservation_cancel", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveQueue("cancelled")
	log.Info().Str("reservation_id", r.ID.String()).Msg("reservation cancelled")

	resp := r.ToResponse(s.now())
	return &resp, nil
}

// Expire implements Service.Expire
func (s *ReservationService) Expire(ctx context.Context, id uuid.UUID) (*model.ReservationResponse, error) {
	var r *model.Reservation
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		r, err = s.leaveQueue(ctx, tx, id, model.StatusExpired, func(r *model.Reservation, now time.Time) error {
			if !r.IsExpired(now) {
				return fmt.Errorf("%w: id=%s", model.ErrReservationNotExpired, r.ID)
			}
			return nil
		})
		return err
	})
	s.metrics.ObserveOperation("reservation_expire", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveQueue("expired")
	log.Info().Str("reservation_id", r.ID.String()).Msg("reservation expired")

	resp := r.ToResponse(s.now())
	return &resp, nil
}

// ExpireDue implements Service.ExpireDue
func (s *ReservationService) ExpireDue(ctx context.Context) (*model.ExpireResponse, error) {
	resp := &model.ExpireResponse{Expired: []uuid.UUID{}}
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		resp.Expired = resp.Expired[:0]

		due, err := tx.ListExpiredReservations(ctx, s.now())
		if err != nil {
			return err
		}

		// lock items in a stable order so concurrent sweeps cannot deadlock
		byItem := make(map[uuid.UUID][]uuid.UUID)
		items := make([]uuid.UUID, 0)
		for _, r := range due {
			if _, seen := byItem[r.CatalogItemID]; !seen {
				items = append(items, r.CatalogItemID)
			}
			byItem[r.CatalogItemID] = append(byItem[r.CatalogItemID], r.ID)
		}
		sort.Slice(items, func(i, j int) bool { return items[i].String() < items[j].String() })

		for _, itemID := range items {
			if _, err := tx.LockCatalogItem(ctx, itemID); err != nil {
				return err
			}
			for _, id := range byItem[itemID] {
				r, err := tx.LockReservation(ctx, id)
				if err != nil {
					return err
				}
				if !r.IsExpired(s.now()) {
					continue
				}
				if err := s.dequeue(ctx, tx, r, model.StatusExpired); err != nil {
					return err
				}
				resp.Expired = append(resp.Expired, r.ID)
			}
		}
		return nil
	})
	s.metrics.ObserveOperation("reservation_expire_due", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	resp.Count = len(resp.Expired)
	for range resp.Expired {
		s.metrics.ObserveQueue("expired")
	}
	if resp.Count > 0 {
		log.Info().Int("count", resp.Count).Msg("expired overdue reservations")
	}
	return resp, nil
}

// leaveQueue moves an active reservation out of its item's queue. The item
// row is locked first so the renumbering cannot race another queue change;
// hook runs on the locked reservation before it is written.
func (s *ReservationService) leaveQueue(
	ctx context.Context,
	tx ledger.Tx,
	id uuid.UUID,
	to model.Status,
	hook func(r *model.Reservation, now time.Time) error,
) (*model.Reservation, error) {
	peek, err := tx.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.LockCatalogItem(ctx, peek.CatalogItemID); err != nil {
		return nil, err
	}
	r, err := tx.LockReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.StatusActive {
		return nil, model.NewReservationNotActiveError(r.ID, r.Status)
	}

	if hook != nil {
		if err := hook(r, s.now()); err != nil {
			return nil, err
		}
	}
	if err := s.dequeue(ctx, tx, r, to); err != nil {
		return nil, err
	}
	return r, nil
}

// dequeue writes the new status and closes the gap left behind.
func (s *ReservationService) dequeue(ctx context.Context, tx ledger.Tx, r *model.Reservation, to model.Status) error {
	r.Status = to
	r.UpdatedAt = s.now()
	if err := tx.UpdateReservation(ctx, r); err != nil {
		return err
	}
	return tx.CloseQueueGap(ctx, r.CatalogItemID, r.QueuePosition, r.UpdatedAt)
}

// Get implements Service.Get
func (s *ReservationService) Get(ctx context.Context, id uuid.UUID) (*model.ReservationResponse, error) {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := r.ToResponse(s.now())
	return &resp, nil
}

// List implements Service.List
func (s *ReservationService) List(ctx context.Context, req model.ListReservationsRequest) ([]model.ReservationResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperr.Validationf("%v", err)
	}

	filter := ledger.ReservationFilter{Page: ledger.Page{Page: req.Page, Limit: req.Limit}}
	if req.CatalogItemID != "" {
		itemID := uuid.MustParse(req.CatalogItemID)
		filter.CatalogItemID = &itemID
	}
	if req.PatronID != "" {
		patronID := uuid.MustParse(req.PatronID)
		filter.PatronID = &patronID
	}
	if req.Status != "" {
		status := model.Status(req.Status)
		filter.Status = &status
	}

	items, err := s.store.ListReservations(ctx, filter)
	if err != nil {
		return nil, err
	}
	return model.ToResponseList(items, s.now()), nil
}
