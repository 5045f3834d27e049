package utils

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// uuid.UUID is a driver.Valuer, so validation.Required never sees it as
// empty. These rules check the zero UUID explicitly.

// RequiredUUID rejects uuid.Nil.
var RequiredUUID = validation.By(func(value interface{}) error {
	switch v := value.(type) {
	case uuid.UUID:
		if v == uuid.Nil {
			return errors.New("cannot be blank")
		}
	case *uuid.UUID:
		if v == nil || *v == uuid.Nil {
			return errors.New("cannot be blank")
		}
	}
	return nil
})

// PositiveDecimal rejects zero and negative amounts.
var PositiveDecimal = validation.By(func(value interface{}) error {
	d, ok := decimalValue(value)
	if ok && !d.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
})

// NonNegativeDecimal rejects negative amounts. Nil pointers pass.
var NonNegativeDecimal = validation.By(func(value interface{}) error {
	d, ok := decimalValue(value)
	if ok && d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
})

// maxMoney is the first value that no longer fits NUMERIC(10,2).
var maxMoney = decimal.New(1, 8)

// Money rejects sub-cent precision and amounts too large for the ledger columns.
var Money = validation.By(func(value interface{}) error {
	d, ok := decimalValue(value)
	if !ok {
		return nil
	}
	if !d.Equal(d.Round(2)) {
		return errors.New("must have at most 2 decimal places")
	}
	if d.Abs().GreaterThanOrEqual(maxMoney) {
		return errors.New("is too large")
	}
	return nil
})

func decimalValue(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	}
	return decimal.Zero, false
}
