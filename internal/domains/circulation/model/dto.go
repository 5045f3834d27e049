package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogModel "library-backend/internal/domains/catalog/model"
	"library-backend/internal/shared/utils"
)

// CheckoutRequest - POST /transactions/checkout
type CheckoutRequest struct {
	PatronID uuid.UUID  `json:"patron_id"`
	CopyID   uuid.UUID  `json:"copy_id"`
	DueDate  *time.Time `json:"due_date"`
}

func (r CheckoutRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PatronID, utils.RequiredUUID),
		validation.Field(&r.CopyID, utils.RequiredUUID),
	)
}

// CheckinRequest - POST /transactions/checkin
type CheckinRequest struct {
	CopyID       uuid.UUID               `json:"copy_id"`
	NewCondition *catalogModel.Condition `json:"new_condition"`
	Notes        *string                 `json:"notes"`
}

func (r CheckinRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CopyID, utils.RequiredUUID),
		validation.Field(&r.NewCondition, validation.NilOrNotEmpty, validation.In(catalogModel.ValidConditions...)),
		validation.Field(&r.Notes, validation.Length(0, 2000)),
	)
}

type CheckinResponse struct {
	TransactionID uuid.UUID               `json:"transaction_id"`
	CopyID        uuid.UUID               `json:"copy_id"`
	ReturnDate    time.Time               `json:"return_date"`
	FineAmount    decimal.Decimal         `json:"fine_amount"`
	DaysOverdue   int                     `json:"days_overdue"`
	FineID        *uuid.UUID              `json:"fine_id,omitempty"`
	CopyStatus    catalogModel.CopyStatus `json:"copy_status"`
}

type RenewResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	NewDueDate    time.Time `json:"new_due_date"`
	RenewalCount  int       `json:"renewal_count"`
}

type ListTransactionsRequest struct {
	PatronID string `form:"patron_id"`
	CopyID   string `form:"copy_id"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

func (r *ListTransactionsRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 || r.Limit > 100 {
		r.Limit = 50
	}
}

func (r ListTransactionsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PatronID, is.UUID),
		validation.Field(&r.CopyID, is.UUID),
		validation.Field(&r.Status, validation.In(string(StatusActive), string(StatusReturned))),
	)
}
