package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"library-backend/internal/shared/utils"
)

var PaymentMethods = []interface{}{"cash", "card", "check", "online", "waived"}

// CreateFineRequest - POST /fines (manual fine)
type CreateFineRequest struct {
	PatronID      uuid.UUID       `json:"patron_id"`
	TransactionID *uuid.UUID      `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason"`
}

func (r CreateFineRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PatronID, utils.RequiredUUID),
		validation.Field(&r.Amount, utils.PositiveDecimal, utils.Money),
		validation.Field(&r.Reason, validation.Required.Error("reason is required"), validation.Length(1, 500)),
	)
}

// PayFineRequest - PUT /fines/:id/pay
type PayFineRequest struct {
	PaymentMethod string `json:"payment_method"`
}

func (r PayFineRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PaymentMethod, validation.Required, validation.In(PaymentMethods...)),
	)
}

type ListFinesRequest struct {
	PatronID string `form:"patron_id"`
	Paid     *bool  `form:"paid"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

func (r *ListFinesRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 || r.Limit > 100 {
		r.Limit = 50
	}
}
