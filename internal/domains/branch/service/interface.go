package service

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/branch/model"
)

// ServiceInterface manages library branches
type ServiceInterface interface {
	CreateBranch(ctx context.Context, req model.CreateBranchRequest) (*model.Branch, error)
	GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error)
	UpdateBranch(ctx context.Context, id uuid.UUID, req model.UpdateBranchRequest) (*model.Branch, error)

	// DeleteBranch returns ErrBranchHasCopies while any copy references the branch
	DeleteBranch(ctx context.Context, id uuid.UUID) error

	ListBranches(ctx context.Context) ([]model.Branch, error)
}
