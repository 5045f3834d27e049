package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/domains/catalog/model"
	"library-backend/internal/domains/catalog/service"
	"library-backend/internal/shared/request"
	"library-backend/internal/shared/response"
)

type Handler struct {
	service service.ServiceInterface
}

// NewHandler creates a new catalog handler
func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// ========================================
// CATALOG ITEMS
// ========================================

// CreateItem handles POST /api/v1/catalog-items
func (h *Handler) CreateItem(c *gin.Context) {
	var req model.CreateCatalogItemRequest
	if !request.BindJSON(c, &req) {
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, item)
}

// GetItem handles GET /api/v1/catalog-items/:id
func (h *Handler) GetItem(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	item, err := h.service.GetItem(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// UpdateItem handles PUT /api/v1/catalog-items/:id
func (h *Handler) UpdateItem(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateCatalogItemRequest
	if !request.BindJSON(c, &req) {
		return
	}

	item, err := h.service.UpdateItem(c.Request.Context(), id, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/v1/catalog-items/:id
func (h *Handler) DeleteItem(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteItem(c.Request.Context(), id); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

// ListItems handles GET /api/v1/catalog-items?type=book&title=dune&page=1&limit=20
func (h *Handler) ListItems(c *gin.Context) {
	var req model.ListCatalogItemsRequest
	if !request.BindQuery(c, &req) {
		return
	}

	res, err := h.service.ListItems(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, res.Items, &response.Meta{
		Page:  res.Page,
		Limit: res.Limit,
		Total: res.TotalItems,
	})
}

// GetAvailability handles GET /api/v1/catalog-items/:id/availability
func (h *Handler) GetAvailability(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	av, err := h.service.GetAvailability(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, av)
}

// ListItemCopies handles GET /api/v1/catalog-items/:id/copies
func (h *Handler) ListItemCopies(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	copies, err := h.service.ListItemCopies(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, copies)
}

// ListItemQueue handles GET /api/v1/catalog-items/:id/reservations
func (h *Handler) ListItemQueue(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	queue, err := h.service.ListItemQueue(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, queue)
}

// ========================================
// COPIES
// ========================================

// CreateCopy handles POST /api/v1/copies
func (h *Handler) CreateCopy(c *gin.Context) {
	var req model.CreateCopyRequest
	if !request.BindJSON(c, &req) {
		return
	}

	cp, err := h.service.CreateCopy(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, cp)
}

// GetCopy handles GET /api/v1/copies/:id
func (h *Handler) GetCopy(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	cp, err := h.service.GetCopy(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cp)
}

// UpdateCopy handles PUT /api/v1/copies/:id
func (h *Handler) UpdateCopy(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateCopyRequest
	if !request.BindJSON(c, &req) {
		return
	}

	cp, err := h.service.UpdateCopy(c.Request.Context(), id, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cp)
}

// DeleteCopy handles DELETE /api/v1/copies/:id
func (h *Handler) DeleteCopy(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteCopy(c.Request.Context(), id); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

// ChangeStatus handles PUT /api/v1/copies/:id/status
func (h *Handler) ChangeStatus(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.ChangeStatusRequest
	if !request.BindJSON(c, &req) {
		return
	}

	cp, err := h.service.ChangeStatus(c.Request.Context(), id, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cp)
}

// Reshelve handles PUT /api/v1/copies/:id/reshelve. The body is optional.
func (h *Handler) Reshelve(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.ReshelveRequest
	if c.Request.ContentLength > 0 && !request.BindJSON(c, &req) {
		return
	}

	cp, err := h.service.Reshelve(c.Request.Context(), id, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cp)
}

// CopyHistory handles GET /api/v1/copies/:id/history
func (h *Handler) CopyHistory(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	events, err := h.service.CopyHistory(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}
