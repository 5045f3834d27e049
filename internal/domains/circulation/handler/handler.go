package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/domains/circulation/model"
	"library-backend/internal/domains/circulation/service"
	"library-backend/internal/ledger"
	"library-backend/internal/shared/request"
	"library-backend/internal/shared/response"
)

type Handler struct {
	service service.ServiceInterface
}

// NewHandler creates a new circulation handler
func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// Checkout handles POST /api/v1/transactions/checkout
func (h *Handler) Checkout(c *gin.Context) {
	var req model.CheckoutRequest
	if !request.BindJSON(c, &req) {
		return
	}

	loan, err := h.service.Checkout(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, loan)
}

// Checkin handles POST /api/v1/transactions/checkin
func (h *Handler) Checkin(c *gin.Context) {
	var req model.CheckinRequest
	if !request.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Checkin(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Renew handles PUT /api/v1/transactions/:id/renew
func (h *Handler) Renew(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.service.Renew(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// GetTransaction handles GET /api/v1/transactions/:id
func (h *Handler) GetTransaction(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}

	loan, err := h.service.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, loan)
}

// ListTransactions handles GET /api/v1/transactions?patron_id=&copy_id=&status=
func (h *Handler) ListTransactions(c *gin.Context) {
	var req model.ListTransactionsRequest
	if !request.BindQuery(c, &req) {
		return
	}

	loans, err := h.service.ListTransactions(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, loans)
}

type pageQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// ListOverdue handles GET /api/v1/transactions/overdue
func (h *Handler) ListOverdue(c *gin.Context) {
	var q pageQuery
	if !request.BindQuery(c, &q) {
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 50
	}

	loans, err := h.service.ListOverdue(c.Request.Context(), ledger.Page{Page: q.Page, Limit: q.Limit})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, loans)
}

// ListPatronTransactions handles GET /api/v1/patrons/:id/transactions
func (h *Handler) ListPatronTransactions(c *gin.Context) {
	id, ok := request.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.ListTransactionsRequest
	if !request.BindQuery(c, &req) {
		return
	}

	loans, err := h.service.ListPatronTransactions(c.Request.Context(), id, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, loans)
}
