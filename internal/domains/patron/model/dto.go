package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type CreatePatronRequest struct {
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone"`
	Address            string     `json:"address"`
	CardExpirationDate *time.Time `json:"card_expiration_date"`
}

func (r CreatePatronRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error("name is required"), validation.Length(2, 200)),
		validation.Field(&r.Email, is.EmailFormat.Error("invalid email format"), validation.Length(0, 255)),
		validation.Field(&r.Phone, validation.Length(0, 32)),
		validation.Field(&r.Address, validation.Length(0, 500)),
	)
}

// UpdatePatronRequest - balance is deliberately absent, it moves only with fines
type UpdatePatronRequest struct {
	Name               *string    `json:"name"`
	Email              *string    `json:"email"`
	Phone              *string    `json:"phone"`
	Address            *string    `json:"address"`
	CardExpirationDate *time.Time `json:"card_expiration_date"`
	IsActive           *bool      `json:"is_active"`
}

func (r UpdatePatronRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(2, 200)),
		validation.Field(&r.Email, is.EmailFormat.Error("invalid email format"), validation.Length(0, 255)),
		validation.Field(&r.Phone, validation.Length(0, 32)),
		validation.Field(&r.Address, validation.Length(0, 500)),
	)
}

func (r UpdatePatronRequest) Apply(p *Patron) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Email != nil {
		p.Email = *r.Email
	}
	if r.Phone != nil {
		p.Phone = *r.Phone
	}
	if r.Address != nil {
		p.Address = *r.Address
	}
	if r.CardExpirationDate != nil {
		exp := *r.CardExpirationDate
		p.CardExpirationDate = &exp
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
}

type ListPatronsRequest struct {
	Name   string `form:"name"`
	Active *bool  `form:"active"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

func (r *ListPatronsRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 || r.Limit > 100 {
		r.Limit = 20
	}
}
