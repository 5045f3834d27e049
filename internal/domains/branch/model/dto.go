package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type CreateBranchRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	IsMain  bool   `json:"is_main"`
}

func (r CreateBranchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error("name is required"), validation.Length(2, 200)),
		validation.Field(&r.Address, validation.Length(0, 500)),
	)
}

// UpdateBranchRequest - nil fields are left unchanged
type UpdateBranchRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	IsMain  *bool   `json:"is_main"`
}

func (r UpdateBranchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(2, 200)),
		validation.Field(&r.Address, validation.Length(0, 500)),
	)
}

// Apply copies the set fields onto b.
func (r UpdateBranchRequest) Apply(b *Branch) {
	if r.Name != nil {
		b.Name = *r.Name
	}
	if r.Address != nil {
		b.Address = *r.Address
	}
	if r.IsMain != nil {
		b.IsMain = *r.IsMain
	}
}
