package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Patron is a library member.
//
// Balance tracks the sum of unpaid fine amounts; it is only ever moved by
// the fine ledger, in the same store transaction as the fine row change.
type Patron struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	Name               string          `json:"name" db:"name"`
	Email              string          `json:"email" db:"email"`
	Phone              string          `json:"phone" db:"phone"`
	Address            string          `json:"address" db:"address"`
	Balance            decimal.Decimal `json:"balance" db:"balance"`
	CardExpirationDate *time.Time      `json:"card_expiration_date,omitempty" db:"card_expiration_date"`
	IsActive           bool            `json:"is_active" db:"is_active"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// CardExpired is derived at read time, never stored.
func (p *Patron) CardExpired(now time.Time) bool {
	return p.CardExpirationDate != nil && p.CardExpirationDate.Before(now)
}

// PatronResponse adds read-time fields to a patron
type PatronResponse struct {
	Patron
	CardExpired bool `json:"card_expired"`
}

func (p *Patron) ToResponse(now time.Time) PatronResponse {
	return PatronResponse{Patron: *p, CardExpired: p.CardExpired(now)}
}
