package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/domains/branch/model"
	"library-backend/internal/domains/branch/service"
	"library-backend/internal/shared/request"
	"library-backend/internal/shared/response"
)

type Handler struct {
	service service.ServiceInterface
}

// NewHandler creates a new branch handler
func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// CreateBranch handles POST /api/v1/branches
func (h *Handler) CreateBranch(c *gin.Context) {
	var req model.CreateBranchRequest
	if !request.BindJSON(c, &req) {
		return
	}

	b, err := h.service.CreateBranch(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, b)
}

// GetBranch handles GET /api/v1/branches/:id
func (h *Handler) GetBranch(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.GetBranch(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

// UpdateBranch handles PUT /api/v1/branches/:id
func (h *Handler) UpdateBranch(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateBranchRequest
	if !request.BindJSON(c, &req) {
		return
	}

	b, err := h.service.UpdateBranch(c.Request.Context(), id, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

// DeleteBranch handles DELETE /api/v1/branches/:id
func (h *Handler) DeleteBranch(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteBranch(c.Request.Context(), id); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

// ListBranches handles GET /api/v1/branches
func (h *Handler) ListBranches(c *gin.Context) {
	branches, err := h.service.ListBranches(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, branches)
}
