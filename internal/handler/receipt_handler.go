package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sparkaj/sparkaj-api/internal/service"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
	"github.com/sparkaj/sparkaj-api/pkg/response"
)

// ReceiptHandler serves receipt status and PDF downloads.
type ReceiptHandler struct {
	service *service.ReceiptService
}

// NewReceiptHandler creates a new receipt handler.
func NewReceiptHandler(svc *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{service: svc}
}

// Status godoc
// @Summary Receipt status
// @Description Status of the receipt generated for a transaction
// @Tags Receipts
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /transactions/{id}/receipt [get]
func (h *ReceiptHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	job, err := h.service.StatusForTransaction(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download receipt
// @Description Stream the receipt PDF for a signed token
// @Tags Receipts
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /receipts/download [get]
func (h *ReceiptHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	download, err := h.service.Download(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, download.File)
}
