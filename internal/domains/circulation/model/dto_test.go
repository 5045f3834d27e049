package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestListTransactionsRequestValidate(t *testing.T) {
	assert.NoError(t, ListTransactionsRequest{}.Validate())
	assert.NoError(t, ListTransactionsRequest{
		PatronID: uuid.NewString(),
		CopyID:   uuid.NewString(),
		Status:   string(StatusActive),
	}.Validate())

	assert.Error(t, ListTransactionsRequest{PatronID: "not-a-uuid"}.Validate())
	assert.Error(t, ListTransactionsRequest{CopyID: "7"}.Validate())
}
