package model

import (
	"fmt"

	"github.com/google/uuid"

	"library-backend/internal/shared/apperr"
)

var (
	ErrBranchNotFound = apperr.NotFound("BRANCH_NOT_FOUND", "branch not found")

	// ErrBranchHasCopies is returned when deleting a branch that copies still reference
	ErrBranchHasCopies = apperr.Conflict("BRANCH_HAS_COPIES", "branch still has copies attached")
)

func NewBranchNotFoundError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrBranchNotFound, id)
}

func NewBranchHasCopiesError(id uuid.UUID, count int) error {
	return fmt.Errorf("%w: id=%s, copies=%d", ErrBranchHasCopies, id, count)
}
