package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestListReservationsRequestValidate(t *testing.T) {
	assert.NoError(t, ListReservationsRequest{}.Validate())
	assert.NoError(t, ListReservationsRequest{
		CatalogItemID: uuid.NewString(),
		PatronID:      uuid.NewString(),
	}.Validate())

	assert.Error(t, ListReservationsRequest{CatalogItemID: "shelf-3"}.Validate())
	assert.Error(t, ListReservationsRequest{PatronID: "42"}.Validate())
	assert.Error(t, ListReservationsRequest{Status: "someday"}.Validate())
}
