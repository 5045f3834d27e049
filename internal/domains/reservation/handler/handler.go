package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/domains/reservation/model"
	"library-backend/internal/domains/reservation/service"
	"library-backend/internal/shared/request"
	"library-backend/internal/shared/response"
)

type Handler struct {
	service service.ServiceInterface
}

// NewHandler creates a new reservation handler
func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// Create handles POST /api/v1/reservations
func (h *Handler) Create(c *gin.Context) {
	var req model.CreateReservationRequest
	if !request.BindJSON(c, &req) {
		return
	}

	r, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, r)
}

// Get handles GET /api/v1/reservations/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	r, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

// List handles GET /api/v1/reservations?library_item_id=&patron_id=&status=
func (h *Handler) List(c *gin.Context) {
	var req model.ListReservationsRequest
	if !request.BindQuery(c, &req) {
		return
	}

	items, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// Fulfill handles PUT /api/v1/reservations/:id/fulfill
func (h *Handler) Fulfill(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.service.Fulfill(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Cancel handles DELETE /api/v1/reservations/:id
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	r, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

// Expire handles PUT /api/v1/reservations/:id/expire
func (h *Handler) Expire(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	r, err := h.service.Expire(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

// ExpireDue handles POST /api/v1/reservations/expire
func (h *Handler) ExpireDue(c *gin.Context) {
	res, err := h.service.ExpireDue(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}
