package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CopyStatus is the lifecycle state of one copy
type CopyStatus string

const (
	StatusAvailable     CopyStatus = "available"
	StatusCheckedOut    CopyStatus = "checked_out"
	StatusReserved      CopyStatus = "reserved" // earmarked for a fulfilled reservation
	StatusProcessing    CopyStatus = "processing"
	StatusInMaintenance CopyStatus = "in_maintenance"
	StatusDamaged       CopyStatus = "damaged"
	StatusLost          CopyStatus = "lost"
	StatusReturned      CopyStatus = "returned" // checked in, awaiting reshelve
)

var AllStatuses = []CopyStatus{
	StatusAvailable, StatusCheckedOut, StatusReserved, StatusProcessing,
	StatusInMaintenance, StatusDamaged, StatusLost, StatusReturned,
}

// Trigger names what caused a transition
type Trigger string

const (
	TriggerCheckout Trigger = "checkout"
	TriggerCheckin  Trigger = "checkin"
	TriggerReshelve Trigger = "reshelve"
	TriggerReserve  Trigger = "reserve"
	TriggerManual   Trigger = "manual"
)

// InitialStatuses are the states a copy may be created in.
var InitialStatuses = []interface{}{StatusAvailable, StatusProcessing}

// ManualTargets are the states an operator may request through ChangeStatus.
var ManualTargets = []interface{}{
	StatusAvailable, StatusProcessing, StatusInMaintenance, StatusDamaged, StatusLost,
}

// manualTransitions: Lost is terminal. Every other state may be sent to
// Damaged or InMaintenance except CheckedOut, which is left only through
// check-in so the copy never loses its borrower while a loan is open.
var manualTransitions = map[CopyStatus][]CopyStatus{
	StatusAvailable:     {StatusProcessing, StatusInMaintenance, StatusDamaged, StatusLost},
	StatusReserved:      {StatusAvailable, StatusInMaintenance, StatusDamaged, StatusLost},
	StatusReturned:      {StatusInMaintenance, StatusDamaged, StatusLost},
	StatusProcessing:    {StatusAvailable, StatusInMaintenance, StatusDamaged, StatusLost},
	StatusInMaintenance: {StatusAvailable, StatusDamaged, StatusLost},
	StatusDamaged:       {StatusAvailable, StatusInMaintenance, StatusLost},
}

// IsValid reports whether s is a known status.
func (s CopyStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s CopyStatus) IsTerminal() bool {
	return s == StatusLost
}

// IsLoanable reports whether a checkout may start from s.
// Reserved copies are loanable only to the patron they are held for.
func (s CopyStatus) IsLoanable() bool {
	return s == StatusAvailable || s == StatusReserved
}

// CanDelete reports whether a copy in status s may be removed.
func (s CopyStatus) CanDelete() bool {
	return s == StatusAvailable || s == StatusDamaged || s == StatusLost
}

// CanTransition checks a transition against the copy state machine.
func CanTransition(from, to CopyStatus, trigger Trigger) bool {
	switch trigger {
	case TriggerCheckout:
		return from.IsLoanable() && to == StatusCheckedOut
	case TriggerCheckin:
		return from == StatusCheckedOut && (to == StatusAvailable || to == StatusReturned)
	case TriggerReshelve:
		return from == StatusReturned && to == StatusAvailable
	case TriggerReserve:
		return from == StatusAvailable && to == StatusReserved
	case TriggerManual:
		for _, allowed := range manualTransitions[from] {
			if allowed == to {
				return true
			}
		}
	}
	return false
}

// Transition moves c to status `to`, maintaining the loan invariant and
// returning the history event to persist. It does not touch the store.
func (c *Copy) Transition(to CopyStatus, trigger Trigger, note string, at time.Time) (*CopyEvent, error) {
	if !CanTransition(c.Status, to, trigger) {
		return nil, NewInvalidTransitionError(c.ID, c.Status, to, trigger)
	}

	event := &CopyEvent{
		ID:         uuid.New(),
		CopyID:     c.ID,
		FromStatus: c.Status,
		ToStatus:   to,
		Trigger:    trigger,
		Note:       note,
		ChangedAt:  at,
	}

	c.Status = to
	c.StatusNote = note
	c.StatusChangedAt = at
	c.UpdatedAt = at
	if to != StatusCheckedOut {
		c.CheckedOutBy = nil
		c.DueDate = nil
	}

	return event, nil
}

// Lend applies the checkout transition and records the borrower.
func (c *Copy) Lend(patronID uuid.UUID, dueDate time.Time, at time.Time) (*CopyEvent, error) {
	event, err := c.Transition(StatusCheckedOut, TriggerCheckout, fmt.Sprintf("checked out to %s", patronID), at)
	if err != nil {
		return nil, err
	}
	due := dueDate
	c.CheckedOutBy = &patronID
	c.DueDate = &due
	return event, nil
}
