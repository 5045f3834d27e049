package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fine is a monetary penalty against a patron. While unpaid its amount is
// part of the patron's balance; paying or deleting it takes it back out.
type Fine struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty" db:"transaction_id"`
	PatronID      uuid.UUID       `json:"patron_id" db:"patron_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Reason        string          `json:"reason" db:"reason"`
	IsPaid        bool            `json:"is_paid" db:"is_paid"`
	PaidDate      *time.Time      `json:"paid_date,omitempty" db:"paid_date"`
	PaymentMethod string          `json:"payment_method,omitempty" db:"payment_method"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// BalanceContribution is what the fine currently adds to the patron balance.
func (f *Fine) BalanceContribution() decimal.Decimal {
	if f.IsPaid {
		return decimal.Zero
	}
	return f.Amount
}

// FineResult echoes the patron balance after a fine mutation
type FineResult struct {
	Fine          *Fine           `json:"fine"`
	PatronBalance decimal.Decimal `json:"patron_balance"`
}

type DeleteResult struct {
	FineID        uuid.UUID       `json:"fine_id"`
	BalanceChange decimal.Decimal `json:"balance_change"`
	PatronBalance decimal.Decimal `json:"patron_balance"`
}
