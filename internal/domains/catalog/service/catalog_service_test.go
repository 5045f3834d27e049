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

	"library-backend/internal/domains/catalog/model"
	"library-backend/internal/ledger"
	"library-backend/internal/ledger/ledgertest"
	"library-backend/internal/shared/apperr"
)

// mapCache is an in-process pkg/cache.Cache that records deletions.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]model.Availability
	deleted []string
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]model.Availability{}}
}

func (m *mapCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	*dest.(*model.Availability) = v
	return true, nil
}

func (m *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value.(model.Availability)
	return nil
}

func (m *mapCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}

func (m *mapCache) Ping(context.Context) error { return nil }

func newTestService(t *testing.T) (*ledgertest.Fixture, ServiceInterface, *mapCache) {
	fx := ledgertest.New(t)
	mc := newMapCache()
	svc := NewService(fx.Store, NewAvailabilityCache(mc), WithClock(fx.Clock.Now))
	return fx, svc, mc
}

func TestCreateCopyDefaults(t *testing.T) {
	fx, svc, _ := newTestService(t)
	ctx := context.Background()
	branch := fx.Branch("Central")
	item := fx.Item("Dune")

	c, err := svc.CreateCopy(ctx, model.CreateCopyRequest{
		CatalogItemID:  item.ID,
		OwningBranchID: branch.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusAvailable, c.Status)
	assert.Equal(t, model.ConditionGood, c.Condition)
	assert.Equal(t, branch.ID, c.CurrentBranchID)
	assert.Equal(t, ledgertest.Epoch, c.AcquisitionDate)
}

func TestCreateCopyUnknownReferences(t *testing.T) {
	fx, svc, _ := newTestService(t)
	ctx := context.Background()
	branch := fx.Branch("Central")
	item := fx.Item("Dune")

	_, err := svc.CreateCopy(ctx, model.CreateCopyRequest{CatalogItemID: uuid.New(), OwningBranchID: branch.ID})
	assert.True(t, errors.Is(err, model.ErrCatalogItemNotFound))

	_, err = svc.CreateCopy(ctx, model.CreateCopyRequest{CatalogItemID: item.ID, OwningBranchID: uuid.New()})
	assert.True(t, apperr.IsNotFound(err))
}

func TestChangeStatusRecordsHistory(t *testing.T) {
	fx, svc, _ := newTestService(t)
	ctx := context.Background()
	c := fx.Copy(fx.Item("Dune").ID, fx.Branch("Central").ID)

	_, err := svc.ChangeStatus(ctx, c.ID, model.ChangeStatusRequest{Status: model.StatusInMaintenance, Note: "spine repair"})
	require.NoError(t, err)
	fx.Clock.Advance(time.Hour)
	updated, err := svc.ChangeStatus(ctx, c.ID, model.ChangeStatusRequest{Status: model.StatusAvailable, Note: "repaired"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, updated.Status)

	history, err := svc.CopyHistory(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.StatusInMaintenance, history[0].ToStatus)
	assert.Equal(t, "spine repair", history[0].Note)
	assert.Equal(t, model.StatusInMaintenance, history[1].FromStatus)
	assert.Equal(t, model.TriggerManual, history[1].Trigger)
}

func TestChangeStatusRejectsLostCopy(t *testing.T) {
	fx, svc, _ := newTestService(t)
	ctx := context.Background()
	c := fx.CopyWithStatus(fx.Item("Dune").ID, fx.Branch("Central").ID, model.StatusLost)

	_, err := svc.ChangeStatus(ctx, c.ID, model.ChangeStatusRequest{Status: model.StatusAvailable, Note: "found it"})
	assert.True(t, errors.Is(err, model.ErrInvalidTransition))
	assert.Equal(t, model.StatusLost, fx.MustCopy(c.ID).Status)

	history, err := svc.CopyHistory(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestReshelve(t *testing.T) {
	fx, svc, _ := newTestService(t)
	ctx := context.Background()
	item := fx.Item("Dune")
	branch := fx.Branch("Central")

	available := fx.Copy(item.ID, branch.ID)
	_, err := svc.Reshelve(ctx, available.ID, model.ReshelveRequest{})
	assert.True(t, errors.Is(err, model.ErrNotAwaitingReshelve))

	returned := fx.CopyWithStatus(item.ID, branch.ID, model.StatusReturned)
	c, err := svc.Reshelve(ctx, returned.ID, model.ReshelveRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, c.Status)
	assert.Equal(t, "reshelved", c.StatusNote)
}

func TestDeleteCopyOnlyFromTerminalishStates(t *testing.T) {
	fx, svc, _ := newTestService(t)
	ctx := context.Background()
	item := fx.Item("Dune")
	branch := fx.Branch("Central")

	processing := fx.CopyWithStatus(item.ID, branch.ID, model.StatusProcessing)
	err := svc.DeleteCopy(ctx, processing.ID)
	assert.True(t, errors.Is(err, model.ErrCopyNotDeletable))

	damaged := fx.CopyWithStatus(item.ID, branch.ID, model.StatusDamaged)
	require.NoError(t, svc.DeleteCopy(ctx, damaged.ID))
	_, err = svc.GetCopy(ctx, damaged.ID)
	assert.True(t, errors.Is(err, model.ErrCopyNotFound))
}

func TestDeleteItemBlockedByLoans(t *testing.T) {
	fx, svc, _ := newTestService(t)
	ctx := context.Background()
	item := fx.Item("Dune")
	branch := fx.Branch("Central")
	patron := fx.Patron("Ada")
	c := fx.Copy(item.ID, branch.ID)

	require.NoError(t, fx.Store.WithTx(ctx, func(tx ledger.Tx) error {
		locked, err := tx.LockCopy(ctx, c.ID)
		if err != nil {
			return err
		}
		if _, err := locked.Lend(patron.ID, ledgertest.Epoch.AddDate(0, 0, 14), ledgertest.Epoch); err != nil {
			return err
		}
		return tx.UpdateCopy(ctx, locked)
	}))

	err := svc.DeleteItem(ctx, item.ID)
	assert.True(t, errors.Is(err, model.ErrItemHasLoans))

	_, err = svc.GetItem(ctx, item.ID)
	assert.NoError(t, err)
}

func TestDeleteItemCascadesCopies(t *testing.T) {
	fx, svc, _ := newTestService(t)
	ctx := context.Background()
	item := fx.Item("Dune")
	c := fx.Copy(item.ID, fx.Branch("Central").ID)

	require.NoError(t, svc.DeleteItem(ctx, item.ID))

	_, err := svc.GetCopy(ctx, c.ID)
	assert.True(t, errors.Is(err, model.ErrCopyNotFound))
}

func TestAvailabilityIsCachedAndInvalidated(t *testing.T) {
	fx, svc, mc := newTestService(t)
	ctx := context.Background()
	item := fx.Item("Dune")
	branch := fx.Branch("Central")
	c := fx.Copy(item.ID, branch.ID)
	fx.CopyWithStatus(item.ID, branch.ID, model.StatusDamaged)

	av, err := svc.GetAvailability(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, av.TotalCopies)
	assert.Equal(t, 1, av.Available)
	assert.Contains(t, mc.entries, model.AvailabilityCacheKey(item.ID))

	_, err = svc.ChangeStatus(ctx, c.ID, model.ChangeStatusRequest{Status: model.StatusInMaintenance, Note: "repair"})
	require.NoError(t, err)
	assert.NotContains(t, mc.entries, model.AvailabilityCacheKey(item.ID))

	av, err = svc.GetAvailability(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, av.Available)
	assert.Equal(t, 1, av.ByStatus[model.StatusInMaintenance])
}

func TestAvailabilityWithoutCacheBackend(t *testing.T) {
	fx := ledgertest.New(t)
	svc := NewService(fx.Store, NewAvailabilityCache(nil))
	item := fx.Item("Dune")

	av, err := svc.GetAvailability(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, av.TotalCopies)
}

func TestListItemsFilters(t *testing.T) {
	fx, svc, _ := newTestService(t)
	ctx := context.Background()
	fx.Item("Dune")
	fx.Item("Dune Messiah")
	fx.Item("Neuromancer")

	resp, err := svc.ListItems(ctx, model.ListCatalogItemsRequest{Title: "dune", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalItems)
	assert.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Items, 1)

	_, err = svc.ListItems(ctx, model.ListCatalogItemsRequest{Type: "scroll"})
	assert.True(t, apperr.IsValidation(err))
}

func TestUpdateCopyKeepsStatus(t *testing.T) {
	fx, svc, _ := newTestService(t)
	ctx := context.Background()
	c := fx.Copy(fx.Item("Dune").ID, fx.Branch("Central").ID)
	other := fx.Branch("East")

	cond := model.ConditionFair
	updated, err := svc.UpdateCopy(ctx, c.ID, model.UpdateCopyRequest{Condition: &cond, CurrentBranchID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, model.ConditionFair, updated.Condition)
	assert.Equal(t, other.ID, updated.CurrentBranchID)
	assert.Equal(t, model.StatusAvailable, updated.Status)

	missing := uuid.New()
	_, err = svc.UpdateCopy(ctx, c.ID, model.UpdateCopyRequest{ReturnToBranchID: &missing})
	assert.True(t, apperr.IsNotFound(err))
}
