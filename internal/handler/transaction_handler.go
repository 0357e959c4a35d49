package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sparkaj/sparkaj-api/internal/models"
	"github.com/sparkaj/sparkaj-api/internal/service"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
	"github.com/sparkaj/sparkaj-api/pkg/response"
)

// TransactionHandler exposes payment history endpoints.
type TransactionHandler struct {
	service *service.TransactionService
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(svc *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: svc}
}

// History godoc
// @Summary Transaction history
// @Description The caller's transactions, newest first
// @Tags Transactions
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param paid query bool false "Paid filter"
// @Param from query string false "From date (RFC 3339)"
// @Param to query string false "To date (RFC 3339)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /transactions [get]
func (h *TransactionHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.TransactionFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if raw := c.Query("paid"); raw != "" {
		if paid, err := strconv.ParseBool(raw); err == nil {
			filter.Paid = &paid
		}
	}
	if raw := c.Query("from"); raw != "" {
		if from, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &from
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &to
		}
	}

	transactions, pagination, err := h.service.History(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transactions, pagination)
}

// Get godoc
// @Summary Transaction detail
// @Description One of the caller's transactions
// @Tags Transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	txn, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, txn, nil)
}

// ExportCSV godoc
// @Summary Export transactions
// @Description Download the caller's full transaction history as CSV
// @Tags Transactions
// @Produce text/csv
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /transactions/export [get]
func (h *TransactionHandler) ExportCSV(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, filename, err := h.service.ExportCSV(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}
