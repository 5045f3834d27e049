package model

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

var ValidStatuses = []interface{}{
	string(StatusActive), string(StatusFulfilled), string(StatusCancelled), string(StatusExpired),
}

// Reservation is one patron's place in a catalog item's waitlist.
//
// Among active reservations of one catalog item, QueuePosition values are
// exactly 1..N. Rows that leave the queue keep the position they left from.
type Reservation struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	CatalogItemID    uuid.UUID  `json:"library_item_id" db:"catalog_item_id"`
	PatronID         uuid.UUID  `json:"patron_id" db:"patron_id"`
	ReservationDate  time.Time  `json:"reservation_date" db:"reservation_date"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty" db:"expiry_date"` // nil only on legacy rows
	Status           Status     `json:"status" db:"status"`
	QueuePosition    int        `json:"queue_position" db:"queue_position"`
	NotificationSent *time.Time `json:"notification_sent,omitempty" db:"notification_sent"`
	CopyID           *uuid.UUID `json:"copy_id,omitempty" db:"copy_id"` // copy pulled on fulfilment
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// IsExpired is computed lazily from expiry_date; no timer updates the row.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == StatusActive && r.ExpiryDate != nil && r.ExpiryDate.Before(now)
}

type ReservationResponse struct {
	Reservation
	IsExpired bool `json:"is_expired"`
}

func (r *Reservation) ToResponse(now time.Time) ReservationResponse {
	return ReservationResponse{Reservation: *r, IsExpired: r.IsExpired(now)}
}

func ToResponseList(items []Reservation, now time.Time) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(items))
	for i := range items {
		out = append(out, items[i].ToResponse(now))
	}
	return out
}
