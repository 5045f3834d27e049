package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"library-backend/internal/shared/utils"
)

// ========================================
// CATALOG ITEM DTOs
// ========================================

type CreateCatalogItemRequest struct {
	Title           string   `json:"title"`
	Type            ItemType `json:"type"`
	PublicationYear *int     `json:"publication_year"`
	Description     string   `json:"description"`
}

func (r CreateCatalogItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required.Error("title is required"), validation.Length(1, 500)),
		validation.Field(&r.Type, validation.Required, validation.In(ValidItemTypes...)),
		validation.Field(&r.PublicationYear, validation.Min(0), validation.Max(9999)),
		validation.Field(&r.Description, validation.Length(0, 5000)),
	)
}

type UpdateCatalogItemRequest struct {
	Title           *string   `json:"title"`
	Type            *ItemType `json:"type"`
	PublicationYear *int      `json:"publication_year"`
	Description     *string   `json:"description"`
}

func (r UpdateCatalogItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(1, 500)),
		validation.Field(&r.Type, validation.NilOrNotEmpty, validation.In(ValidItemTypes...)),
		validation.Field(&r.PublicationYear, validation.Min(0), validation.Max(9999)),
		validation.Field(&r.Description, validation.Length(0, 5000)),
	)
}

func (r UpdateCatalogItemRequest) Apply(item *CatalogItem) {
	if r.Title != nil {
		item.Title = *r.Title
	}
	if r.Type != nil {
		item.Type = *r.Type
	}
	if r.PublicationYear != nil {
		year := *r.PublicationYear
		item.PublicationYear = &year
	}
	if r.Description != nil {
		item.Description = *r.Description
	}
}

type ListCatalogItemsRequest struct {
	Type  string `form:"type"`
	Title string `form:"title"`
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
}

func (r *ListCatalogItemsRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 || r.Limit > 100 {
		r.Limit = 20
	}
}

type ListCatalogItemsResponse struct {
	Items      []CatalogItem `json:"items"`
	TotalItems int           `json:"total_items"`
	TotalPages int           `json:"total_pages"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
}

// ========================================
// COPY DTOs
// ========================================

type CreateCopyRequest struct {
	CatalogItemID    uuid.UUID       `json:"catalog_item_id"`
	OwningBranchID   uuid.UUID       `json:"owning_branch_id"`
	CurrentBranchID  *uuid.UUID      `json:"current_branch_id"`
	ReturnToBranchID *uuid.UUID      `json:"return_to_branch_id"`
	Condition        Condition       `json:"condition"`
	Status           CopyStatus      `json:"status"`
	Cost             decimal.Decimal `json:"cost"`
	Notes            string          `json:"notes"`
	AcquisitionDate  *time.Time      `json:"acquisition_date"`
}

func (r CreateCopyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CatalogItemID, utils.RequiredUUID),
		validation.Field(&r.OwningBranchID, utils.RequiredUUID),
		validation.Field(&r.Condition, validation.In(ValidConditions...)),
		validation.Field(&r.Status, validation.In(InitialStatuses...)),
		validation.Field(&r.Cost, utils.NonNegativeDecimal, utils.Money),
		validation.Field(&r.Notes, validation.Length(0, 2000)),
	)
}

// UpdateCopyRequest carries the descriptive fields only. Status moves go
// through ChangeStatusRequest; the owning catalog item is immutable.
type UpdateCopyRequest struct {
	CurrentBranchID  *uuid.UUID       `json:"current_branch_id"`
	ReturnToBranchID *uuid.UUID       `json:"return_to_branch_id"`
	Condition        *Condition       `json:"condition"`
	Cost             *decimal.Decimal `json:"cost"`
	Notes            *string          `json:"notes"`
}

func (r UpdateCopyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Condition, validation.NilOrNotEmpty, validation.In(ValidConditions...)),
		validation.Field(&r.Cost, utils.NonNegativeDecimal, utils.Money),
		validation.Field(&r.Notes, validation.Length(0, 2000)),
	)
}

func (r UpdateCopyRequest) Apply(c *Copy) {
	if r.CurrentBranchID != nil {
		c.CurrentBranchID = *r.CurrentBranchID
	}
	if r.ReturnToBranchID != nil {
		id := *r.ReturnToBranchID
		c.ReturnToBranchID = &id
	}
	if r.Condition != nil {
		c.Condition = *r.Condition
	}
	if r.Cost != nil {
		c.Cost = *r.Cost
	}
	if r.Notes != nil {
		c.Notes = *r.Notes
	}
}

// ChangeStatusRequest - manual operator transition, a note is mandatory
type ChangeStatusRequest struct {
	Status CopyStatus `json:"status"`
	Note   string     `json:"note"`
}

func (r ChangeStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(ManualTargets...)),
		validation.Field(&r.Note, validation.Required.Error("note is required"), validation.Length(1, 1000)),
	)
}

type ReshelveRequest struct {
	Note string `json:"note"`
}
