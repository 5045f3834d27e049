package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/domains/patron/model"
	"library-backend/internal/domains/patron/service"
	"library-backend/internal/shared/request"
	"library-backend/internal/shared/response"
)

type Handler struct {
	service service.ServiceInterface
}

// NewHandler creates a new patron handler
func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// CreatePatron handles POST /api/v1/patrons
func (h *Handler) CreatePatron(c *gin.Context) {
	var req model.CreatePatronRequest
	if !request.BindJSON(c, &req) {
		return
	}

	p, err := h.service.CreatePatron(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, p)
}

// GetPatron handles GET /api/v1/patrons/:id
func (h *Handler) GetPatron(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetPatron(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

// UpdatePatron handles PUT /api/v1/patrons/:id
func (h *Handler) UpdatePatron(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdatePatronRequest
	if !request.BindJSON(c, &req) {
		return
	}

	p, err := h.service.UpdatePatron(c.Request.Context(), id, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

// DeletePatron handles DELETE /api/v1/patrons/:id (soft delete)
func (h *Handler) DeletePatron(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeletePatron(c.Request.Context(), id); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "is_active": false})
}

// ListPatrons handles GET /api/v1/patrons?name=ada&active=true
func (h *Handler) ListPatrons(c *gin.Context) {
	var req model.ListPatronsRequest
	if !request.BindQuery(c, &req) {
		return
	}

	patrons, total, err := h.service.ListPatrons(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	req.Normalize()
	response.SuccessWithMeta(c, http.StatusOK, patrons, &response.Meta{Page: req.Page, Limit: req.Limit, Total: total})
}
