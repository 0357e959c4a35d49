package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sparkaj/sparkaj-api/internal/models"
	"github.com/sparkaj/sparkaj-api/internal/service"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
	"github.com/sparkaj/sparkaj-api/pkg/response"
)

// ReservationHandler exposes read endpoints over committed reservations.
type ReservationHandler struct {
	service *service.ReservationService
}

// NewReservationHandler creates a new reservation handler.
func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: svc}
}

// ListOwn godoc
// @Summary List own reservations
// @Description The caller's reservations with listing context, newest first
// @Tags Reservations
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param upcoming query bool false "Only reservations that have not ended"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reservations [get]
func (h *ReservationHandler) ListOwn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.ReservationFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if raw := c.Query("upcoming"); raw != "" {
		if upcoming, err := strconv.ParseBool(raw); err == nil && upcoming {
			now := time.Now().UTC()
			filter.From = &now
		}
	}

	reservations, pagination, err := h.service.ListOwn(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservations, pagination)
}

// Intervals godoc
// @Summary Reserved intervals
// @Description Raw reserved intervals of a listing inside a half-open window
// @Tags Reservations
// @Produce json
// @Param id path string true "Listing ID"
// @Param from query string true "Window start (RFC 3339)"
// @Param to query string true "Window end (RFC 3339)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /listings/{id}/reservations [get]
func (h *ReservationHandler) Intervals(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be an RFC 3339 timestamp"))
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be an RFC 3339 timestamp"))
		return
	}

	intervals, err := h.service.Intervals(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, intervals, nil)
}
