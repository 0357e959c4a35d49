package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sparkaj/sparkaj-api/internal/models"
	"github.com/sparkaj/sparkaj-api/internal/service"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
	"github.com/sparkaj/sparkaj-api/pkg/response"
)

// CheckoutHandler drives the reservation purchase flow.
type CheckoutHandler struct {
	service *service.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(svc *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: svc}
}

// Start godoc
// @Summary Start checkout
// @Description Price the slot selection and open a payment intent
// @Tags Checkout
// @Accept json
// @Produce json
// @Param payload body models.StartCheckoutRequest true "Slot selection"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 402 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /checkout [post]
func (h *CheckoutHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.StartCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid checkout payload"))
		return
	}

	result, err := h.service.Start(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Checkout session state
// @Description Return the current state of a checkout session
// @Tags Checkout
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /checkout/{id} [get]
func (h *CheckoutHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Confirm godoc
// @Summary Confirm checkout
// @Description Verify the payment and commit the reservations
// @Tags Checkout
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 402 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /checkout/{id}/confirm [post]
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.Confirm(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel checkout
// @Description Abandon a checkout session and return to slot selection
// @Tags Checkout
// @Produce json
// @Param id path string true "Session ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /checkout/{id} [delete]
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
