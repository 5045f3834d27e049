package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"library-backend/internal/domains/catalog/model"
	reservationModel "library-backend/internal/domains/reservation/model"
	"library-backend/internal/infrastructure/metrics"
	"library-backend/internal/ledger"
	"library-backend/internal/shared/apperr"
)

type CatalogService struct {
	store   ledger.Store
	cache   *AvailabilityCache
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*CatalogService)

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *CatalogService) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CatalogService) { s.metrics = m }
}

// NewService creates a new catalog service
func NewService(store ledger.Store, cache *AvailabilityCache, opts ...Option) ServiceInterface {
	s := &CatalogService{
		store: store,
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ========================================
// CATALOG ITEMS
// ========================================

// CreateItem implements Service.CreateItem
func (s *CatalogService) CreateItem(ctx context.Context, req model.CreateCatalogItemRequest) (*model.CatalogItem, error) {
	now := s.now()
	item := &model.CatalogItem{
		ID:              uuid.New(),
		Title:           req.Title,
		Type:            req.Type,
		PublicationYear: req.PublicationYear,
		Description:     req.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		return tx.InsertCatalogItem(ctx, item)
	})
	s.metrics.ObserveOperation("catalog_item_create", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	log.Info().Str("catalog_item_id", item.ID.String()).Str("title", item.Title).Msg("catalog item created")
	return item, nil
}

// GetItem implements Service.GetItem
func (s *CatalogService) GetItem(ctx context.Context, id uuid.UUID) (*model.CatalogItem, error) {
	return s.store.GetCatalogItem(ctx, id)
}

// UpdateItem implements Service.UpdateItem
func (s *CatalogService) UpdateItem(ctx context.Context, id uuid.UUID, req model.UpdateCatalogItemRequest) (*model.CatalogItem, error) {
	var item *model.CatalogItem
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		item, err = tx.LockCatalogItem(ctx, id)
		if err != nil {
			return err
		}
		req.Apply(item)
		item.UpdatedAt = s.now()
		return tx.UpdateCatalogItem(ctx, item)
	})
	s.metrics.ObserveOperation("catalog_item_update", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem implements Service.DeleteItem
func (s *CatalogService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.LockCatalogItem(ctx, id); err != nil {
			return err
		}
		counts, err := tx.CountCopiesByStatus(ctx, id)
		if err != nil {
			return err
		}
		if counts[model.StatusCheckedOut] > 0 {
			return model.ErrItemHasLoans
		}
		return tx.DeleteCatalogItem(ctx, id)
	})
	s.metrics.ObserveOperation("catalog_item_delete", metrics.Outcome(err))
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, id)
	log.Info().Str("catalog_item_id", id.String()).Msg("catalog item deleted")
	return nil
}

// ListItems implements Service.ListItems
func (s *CatalogService) ListItems(ctx context.Context, req model.ListCatalogItemsRequest) (*model.ListCatalogItemsResponse, error) {
	req.Normalize()

	filter := ledger.CatalogItemFilter{
		Title: req.Title,
		Page:  ledger.Page{Page: req.Page, Limit: req.Limit},
	}
	if req.Type != "" {
		itemType := model.ItemType(req.Type)
		if !isValidItemType(itemType) {
			return nil, apperr.Validationf("type: unknown item type %q", req.Type)
		}
		filter.Type = &itemType
	}

	items, total, err := s.store.ListCatalogItems(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + req.Limit - 1) / req.Limit
	}
	return &model.ListCatalogItemsResponse{
		Items:      items,
		TotalItems: total,
		TotalPages: totalPages,
		Page:       req.Page,
		Limit:      req.Limit,
	}, nil
}

// GetAvailability implements Service.GetAvailability
func (s *CatalogService) GetAvailability(ctx context.Context, itemID uuid.UUID) (*model.Availability, error) {
	if cached, ok := s.cache.get(ctx, itemID); ok {
		return cached, nil
	}

	if _, err := s.store.GetCatalogItem(ctx, itemID); err != nil {
		return nil, err
	}
	counts, err := s.store.CountCopiesByStatus(ctx, itemID)
	if err != nil {
		return nil, err
	}

	av := model.NewAvailability(itemID, counts)
	s.cache.put(ctx, av)
	return &av, nil
}

// ListItemCopies implements Service.ListItemCopies
func (s *CatalogService) ListItemCopies(ctx context.Context, itemID uuid.UUID) ([]model.Copy, error) {
	if _, err := s.store.GetCatalogItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.store.ListCopies(ctx, ledger.CopyFilter{CatalogItemID: &itemID})
}

// ListItemQueue implements Service.ListItemQueue
func (s *CatalogService) ListItemQueue(ctx context.Context, itemID uuid.UUID) ([]reservationModel.ReservationResponse, error) {
	if _, err := s.store.GetCatalogItem(ctx, itemID); err != nil {
		return nil, err
	}
	active := reservationModel.StatusActive
	queue, err := s.store.ListReservations(ctx, ledger.ReservationFilter{
		CatalogItemID: &itemID,
		Status:        &active,
	})
	if err != nil {
		return nil, err
	}
	return reservationModel.ToResponseList(queue, s.now()), nil
}

// ========================================
// COPIES
// ========================================

// CreateCopy implements Service.CreateCopy
func (s *CatalogService) CreateCopy(ctx context.Context, req model.CreateCopyRequest) (*model.Copy, error) {
	now := s.now()
	c := &model.Copy{
		ID:               uuid.New(),
		CatalogItemID:    req.CatalogItemID,
		OwningBranchID:   req.OwningBranchID,
		CurrentBranchID:  req.OwningBranchID,
		ReturnToBranchID: req.ReturnToBranchID,
		Condition:        req.Condition,
		Status:           req.Status,
		Cost:             req.Cost,
		Notes:            req.Notes,
		AcquisitionDate:  now,
		StatusChangedAt:  now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.CurrentBranchID != nil {
		c.CurrentBranchID = *req.CurrentBranchID
	}
	if req.AcquisitionDate != nil {
		c.AcquisitionDate = req.AcquisitionDate.UTC()
	}
	if c.Condition == "" {
		c.Condition = model.ConditionGood
	}
	if c.Status == "" {
		c.Status = model.StatusAvailable
	}

	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.LockCatalogItem(ctx, c.CatalogItemID); err != nil {
			return err
		}
		if err := s.checkBranches(ctx, tx, c.OwningBranchID, &c.CurrentBranchID, c.ReturnToBranchID); err != nil {
			return err
		}
		return tx.InsertCopy(ctx, c)
	})
	s.metrics.ObserveOperation("copy_create", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, c.CatalogItemID)
	log.Info().
		Str("copy_id", c.ID.String()).
		Str("catalog_item_id", c.CatalogItemID.String()).
		Str("status", string(c.Status)).
		Msg("copy created")
	return c, nil
}

// GetCopy implements Service.GetCopy
func (s *CatalogService) GetCopy(ctx context.Context, id uuid.UUID) (*model.Copy, error) {
	return s.store.GetCopy(ctx, id)
}

// UpdateCopy implements Service.UpdateCopy
func (s *CatalogService) UpdateCopy(ctx context.Context, id uuid.UUID, req model.UpdateCopyRequest) (*model.Copy, error) {
	var c *model.Copy
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		c, err = tx.LockCopy(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkBranches(ctx, tx, uuid.Nil, req.CurrentBranchID, req.ReturnToBranchID); err != nil {
			return err
		}
		req.Apply(c)
		c.UpdatedAt = s.now()
		return tx.UpdateCopy(ctx, c)
	})
	s.metrics.ObserveOperation("copy_update", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCopy implements Service.DeleteCopy
func (s *CatalogService) DeleteCopy(ctx context.Context, id uuid.UUID) error {
	var itemID uuid.UUID
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		c, err := tx.LockCopy(ctx, id)
		if err != nil {
			return err
		}
		if !c.Status.CanDelete() {
			return model.NewCopyNotDeletableError(id, c.Status)
		}
		itemID = c.CatalogItemID
		return tx.DeleteCopy(ctx, id)
	})
	s.metrics.ObserveOperation("copy_delete", metrics.Outcome(err))
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, itemID)
	log.Info().Str("copy_id", id.String()).Msg("copy deleted")
	return nil
}

// ChangeStatus implements Service.ChangeStatus
func (s *CatalogService) ChangeStatus(ctx context.Context, id uuid.UUID, req model.ChangeStatusRequest) (*model.Copy, error) {
	return s.transition(ctx, "copy_status_change", id, func(c *model.Copy) (*model.CopyEvent, error) {
		return c.Transition(req.Status, model.TriggerManual, req.Note, s.now())
	})
}

// Reshelve implements Service.Reshelve
func (s *CatalogService) Reshelve(ctx context.Context, id uuid.UUID, req model.ReshelveRequest) (*model.Copy, error) {
	return s.transition(ctx, "copy_reshelve", id, func(c *model.Copy) (*model.CopyEvent, error) {
		if c.Status != model.StatusReturned {
			return nil, model.ErrNotAwaitingReshelve
		}
		note := req.Note
		if note == "" {
			note = "reshelved"
		}
		return c.Transition(model.StatusAvailable, model.TriggerReshelve, note, s.now())
	})
}

// CopyHistory implements Service.CopyHistory
func (s *CatalogService) CopyHistory(ctx context.Context, id uuid.UUID) ([]model.CopyEvent, error) {
	return s.store.ListCopyEvents(ctx, id)
}

// transition locks the copy, applies move and persists copy plus history
// event in one store transaction.
func (s *CatalogService) transition(ctx context.Context, operation string, id uuid.UUID, move func(*model.Copy) (*model.CopyEvent, error)) (*model.Copy, error) {
	var (
		c     *model.Copy
		event *model.CopyEvent
	)
	err := s.store.WithTx(ctx, func(tx ledger.Tx) error {
		var err error
		c, err = tx.LockCopy(ctx, id)
		if err != nil {
			return err
		}
		event, err = move(c)
		if err != nil {
			return err
		}
		if err := tx.UpdateCopy(ctx, c); err != nil {
			return err
		}
		return tx.InsertCopyEvent(ctx, event)
	})
	s.metrics.ObserveOperation(operation, metrics.Outcome(err))
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(event.FromStatus), string(event.ToStatus), string(event.Trigger))
	s.cache.Invalidate(ctx, c.CatalogItemID)
	log.Info().
		Str("copy_id", c.ID.String()).
		Str("from", string(event.FromStatus)).
		Str("to", string(event.ToStatus)).
		Str("trigger", string(event.Trigger)).
		Msg("copy status changed")
	return c, nil
}

// checkBranches verifies that every referenced branch exists. Zero and nil
// ids are skipped.
func (s *CatalogService) checkBranches(ctx context.Context, tx ledger.Tx, owning uuid.UUID, refs ...*uuid.UUID) error {
	ids := make([]uuid.UUID, 0, len(refs)+1)
	if owning != uuid.Nil {
		ids = append(ids, owning)
	}
	for _, ref := range refs {
		if ref != nil && *ref != uuid.Nil {
			ids = append(ids, *ref)
		}
	}
	for _, id := range ids {
		if _, err := tx.GetBranch(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func isValidItemType(t model.ItemType) bool {
	for _, v := range model.ValidItemTypes {
		if v == t {
			return true
		}
	}
	return false
}
