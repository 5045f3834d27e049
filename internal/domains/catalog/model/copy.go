package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Condition is the physical condition of a copy
type Condition string

const (
	ConditionNew       Condition = "new"
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

var ValidConditions = []interface{}{
	ConditionNew, ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor,
}

// Copy is one physical instance of a catalog item.
//
// Invariant: Status == StatusCheckedOut iff CheckedOutBy != nil and DueDate != nil.
// CatalogItemID never changes after creation.
type Copy struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	CatalogItemID    uuid.UUID       `json:"catalog_item_id" db:"catalog_item_id"`
	OwningBranchID   uuid.UUID       `json:"owning_branch_id" db:"owning_branch_id"`
	CurrentBranchID  uuid.UUID       `json:"current_branch_id" db:"current_branch_id"`
	ReturnToBranchID *uuid.UUID      `json:"return_to_branch_id,omitempty" db:"return_to_branch_id"`
	Condition        Condition       `json:"condition" db:"condition"`
	Status           CopyStatus      `json:"status" db:"status"`
	Cost             decimal.Decimal `json:"cost" db:"cost"`
	Notes            string          `json:"notes" db:"notes"`
	AcquisitionDate  time.Time       `json:"acquisition_date" db:"acquisition_date"`
	DueDate          *time.Time      `json:"due_date,omitempty" db:"due_date"`
	CheckedOutBy     *uuid.UUID      `json:"checked_out_by,omitempty" db:"checked_out_by"`
	StatusNote       string          `json:"status_note,omitempty" db:"status_note"`
	StatusChangedAt  time.Time       `json:"status_changed_at" db:"status_changed_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// IsLoanConsistent reports whether the checked-out invariant holds.
func (c *Copy) IsLoanConsistent() bool {
	loaned := c.CheckedOutBy != nil && c.DueDate != nil
	return (c.Status == StatusCheckedOut) == loaned
}

// CopyEvent is one entry of a copy's status history
type CopyEvent struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	CopyID     uuid.UUID  `json:"copy_id" db:"copy_id"`
	FromStatus CopyStatus `json:"from_status" db:"from_status"`
	ToStatus   CopyStatus `json:"to_status" db:"to_status"`
	Trigger    Trigger    `json:"trigger" db:"trigger"`
	Note       string     `json:"note" db:"note"`
	ChangedAt  time.Time  `json:"changed_at" db:"changed_at"`
}
