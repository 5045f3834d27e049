package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/domains/fine/model"
	"library-backend/internal/domains/fine/service"
	"library-backend/internal/shared/request"
	"library-backend/internal/shared/response"
)

type Handler struct {
	service service.ServiceInterface
}

// NewHandler creates a new fine handler
func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// CreateFine handles POST /api/v1/fines
func (h *Handler) CreateFine(c *gin.Context) {
	var req model.CreateFineRequest
	if !request.BindJSON(c, &req) {
		return
	}

	res, err := h.service.CreateFine(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// PayFine handles PUT /api/v1/fines/:id/pay
func (h *Handler) PayFine(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.PayFineRequest
	if !request.BindJSON(c, &req) {
		return
	}

	res, err := h.service.PayFine(c.Request.Context(), id, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// DeleteFine handles DELETE /api/v1/fines/:id
func (h *Handler) DeleteFine(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.service.DeleteFine(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// GetFine handles GET /api/v1/fines/:id
func (h *Handler) GetFine(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	f, err := h.service.GetFine(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

// ListFines handles GET /api/v1/fines?patron_id=&paid=
func (h *Handler) ListFines(c *gin.Context) {
	var req model.ListFinesRequest
	if !request.BindQuery(c, &req) {
		return
	}

	fines, err := h.service.ListFines(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, fines)
}

// ListPatronFines handles GET /api/v1/patrons/:id/fines
func (h *Handler) ListPatronFines(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.ListFinesRequest
	if !request.BindQuery(c, &req) {
		return
	}

	fines, err := h.service.ListPatronFines(c.Request.Context(), id, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, fines)
}
