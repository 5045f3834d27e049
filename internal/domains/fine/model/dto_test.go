package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCreateFineRequestAmount(t *testing.T) {
	req := CreateFineRequest{PatronID: uuid.New(), Reason: "Water damage"}

	req.Amount = decimal.RequireFromString("2.50")
	assert.NoError(t, req.Validate())

	for _, bad := range []string{"0", "-1.00", "0.004", "3.333"} {
		req.Amount = decimal.RequireFromString(bad)
		assert.Error(t, req.Validate(), bad)
	}
}
