package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"library-backend/internal/domains/catalog/model"
	"library-backend/pkg/cache"
)

const availabilityTTL = 10 * time.Minute

// AvailabilityCache caches per-item availability summaries. A nil cache
// backend turns every call into a miss / no-op.
type AvailabilityCache struct {
	cache cache.Cache
}

func NewAvailabilityCache(c cache.Cache) *AvailabilityCache {
	return &AvailabilityCache{cache: c}
}

func (a *AvailabilityCache) get(ctx context.Context, itemID uuid.UUID) (*model.Availability, bool) {
	if a == nil || a.cache == nil {
		return nil, false
	}
	var out model.Availability
	found, err := a.cache.Get(ctx, model.AvailabilityCacheKey(itemID), &out)
	if err != nil {
		log.Warn().Err(err).Str("catalog_item_id", itemID.String()).Msg("availability cache read failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &out, true
}

func (a *AvailabilityCache) put(ctx context.Context, av model.Availability) {
	if a == nil || a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, model.AvailabilityCacheKey(av.CatalogItemID), av, availabilityTTL); err != nil {
		log.Warn().Err(err).Str("catalog_item_id", av.CatalogItemID.String()).Msg("availability cache write failed")
	}
}

// Invalidate drops the cached summaries of the given items. Call it after
// the store transaction that changed their copies has committed.
func (a *AvailabilityCache) Invalidate(ctx context.Context, itemIDs ...uuid.UUID) {
	if a == nil || a.cache == nil || len(itemIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		keys = append(keys, model.AvailabilityCacheKey(id))
	}
	if err := a.cache.Delete(ctx, keys...); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("availability cache invalidation failed")
	}
}
