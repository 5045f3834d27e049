package model

import (
	"time"

	"github.com/google/uuid"
)

// ItemType classifies a catalog item
type ItemType string

const (
	ItemTypeBook      ItemType = "book"
	ItemTypeVideo     ItemType = "video"
	ItemTypeAudiobook ItemType = "audiobook"
	ItemTypeMagazine  ItemType = "magazine"
	ItemTypeMusic     ItemType = "music"
	ItemTypeOther     ItemType = "other"
)

var ValidItemTypes = []interface{}{
	ItemTypeBook, ItemTypeVideo, ItemTypeAudiobook, ItemTypeMagazine, ItemTypeMusic, ItemTypeOther,
}

// CatalogItem is a title-level record; physical instances are Copies.
type CatalogItem struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Type            ItemType  `json:"type" db:"item_type"`
	PublicationYear *int      `json:"publication_year,omitempty" db:"publication_year"`
	Description     string    `json:"description" db:"description"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Availability summarises the copies of one catalog item by status.
type Availability struct {
	CatalogItemID uuid.UUID          `json:"catalog_item_id"`
	TotalCopies   int                `json:"total_copies"`
	Available     int                `json:"available"`
	ByStatus      map[CopyStatus]int `json:"by_status"`
}

// NewAvailability builds the summary from per-status counts.
func NewAvailability(itemID uuid.UUID, counts map[CopyStatus]int) Availability {
	total := 0
	for _, n := range counts {
		total += n
	}
	if counts == nil {
		counts = map[CopyStatus]int{}
	}
	return Availability{
		CatalogItemID: itemID,
		TotalCopies:   total,
		Available:     counts[StatusAvailable],
		ByStatus:      counts,
	}
}

// AvailabilityCacheKey is the cache key of an item's availability summary.
func AvailabilityCacheKey(itemID uuid.UUID) string {
	return "catalog:availability:" + itemID.String()
}
