package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"library-backend/internal/shared/utils"
)

// CreateReservationRequest - POST /reservations
type CreateReservationRequest struct {
	CatalogItemID uuid.UUID `json:"library_item_id"`
	PatronID      uuid.UUID `json:"patron_id"`
}

func (r CreateReservationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CatalogItemID, utils.RequiredUUID),
		validation.Field(&r.PatronID, utils.RequiredUUID),
	)
}

type FulfillResponse struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	CopyID        uuid.UUID `json:"copy_id"`
}

type ExpireResponse struct {
	Expired []uuid.UUID `json:"expired"`
	Count   int         `json:"count"`
}

type ListReservationsRequest struct {
	CatalogItemID string `form:"library_item_id"`
	PatronID      string `form:"patron_id"`
	Status        string `form:"status"`
	Limit         int    `form:"limit"`
	Page          int    `form:"page"`
}

func (r *ListReservationsRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 || r.Limit > 100 {
		r.Limit = 50
	}
}

func (r ListReservationsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CatalogItemID, is.UUID),
		validation.Field(&r.PatronID, is.UUID),
		validation.Field(&r.Status, validation.In(ValidStatuses...)),
	)
}
