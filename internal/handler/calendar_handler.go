package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sparkaj/sparkaj-api/internal/service"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
	"github.com/sparkaj/sparkaj-api/pkg/response"
)

// CalendarHandler serves the weekly availability grid.
type CalendarHandler struct {
	availability *service.AvailabilityService
}

// NewCalendarHandler creates a new calendar handler.
func NewCalendarHandler(availability *service.AvailabilityService) *CalendarHandler {
	return &CalendarHandler{availability: availability}
}

// Week godoc
// @Summary Weekly availability grid
// @Description Monday-through-Sunday hour grid for the week containing the anchor date
// @Tags Calendar
// @Produce json
// @Param id path string true "Listing ID"
// @Param anchor query string false "Any date inside the requested week (2006-01-02, defaults to today)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /listings/{id}/calendar [get]
func (h *CalendarHandler) Week(c *gin.Context) {
	anchor := time.Now().UTC()
	if raw := c.Query("anchor"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "anchor must be a 2006-01-02 date"))
			return
		}
		anchor = parsed
	}

	week, err := h.availability.Week(c.Request.Context(), c.Param("id"), anchor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, week, nil)
}
