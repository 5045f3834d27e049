package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType reflects the last lifecycle event applied to the loan row
type TransactionType string

const (
	TypeCheckout TransactionType = "checkout"
	TypeRenewal  TransactionType = "renewal"
	TypeCheckin  TransactionType = "checkin"
)

type TransactionStatus string

const (
	StatusActive   TransactionStatus = "active"
	StatusReturned TransactionStatus = "returned"
)

// Transaction is one loan. Checkout inserts the row, renewal moves DueDate
// in place and check-in closes the same row.
type Transaction struct {
	ID           uuid.UUID         `json:"id" db:"id"`
	CopyID       *uuid.UUID        `json:"copy_id" db:"copy_id"` // nil once the copy is deleted
	PatronID     uuid.UUID         `json:"patron_id" db:"patron_id"`
	BranchID     *uuid.UUID        `json:"branch_id,omitempty" db:"branch_id"`
	Type         TransactionType   `json:"type" db:"transaction_type"`
	CheckoutDate time.Time         `json:"checkout_date" db:"checkout_date"`
	DueDate      time.Time         `json:"due_date" db:"due_date"`
	ReturnDate   *time.Time        `json:"return_date,omitempty" db:"return_date"`
	FineAmount   decimal.Decimal   `json:"fine_amount" db:"fine_amount"`
	RenewalCount int               `json:"renewal_count" db:"renewal_count"`
	Status       TransactionStatus `json:"status" db:"status"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// IsOverdue is derived from the stored due date at read time.
func (t *Transaction) IsOverdue(now time.Time) bool {
	return t.Status == StatusActive && t.DueDate.Before(now)
}

// TransactionResponse adds the read-time overdue fields
type TransactionResponse struct {
	Transaction
	IsOverdue   bool `json:"is_overdue"`
	DaysOverdue int  `json:"days_overdue"`
}

func (t *Transaction) ToResponse(now time.Time) TransactionResponse {
	resp := TransactionResponse{Transaction: *t}
	if t.Status == StatusActive {
		resp.IsOverdue = t.IsOverdue(now)
		resp.DaysOverdue = DaysOverdue(t.DueDate, now)
	}
	return resp
}

func ToResponseList(txs []Transaction, now time.Time) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, txs[i].ToResponse(now))
	}
	return out
}
