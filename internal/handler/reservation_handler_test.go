package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkaj/sparkaj-api/internal/middleware"
	"github.com/sparkaj/sparkaj-api/internal/models"
	"github.com/sparkaj/sparkaj-api/internal/service"
)

type fakeReservationRepo struct {
	reservations []models.ReservationDetail
	intervals    []models.ReservationInterval
	lastFilter   models.ReservationFilter
}

func (f *fakeReservationRepo) List(_ context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, int, error) {
	f.lastFilter = filter
	return f.reservations, len(f.reservations), nil
}

func (f *fakeReservationRepo) ListIntervals(context.Context, string, time.Time, time.Time) ([]models.ReservationInterval, error) {
	return f.intervals, nil
}

func TestReservationHandlerIntervalsMissingWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReservationHandler(service.NewReservationService(&fakeReservationRepo{}, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/listings/listing-1/reservations?from=2030-01-01T00:00:00Z", nil)
	c.Params = gin.Params{{Key: "id", Value: "listing-1"}}

	handler.Intervals(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReservationHandlerIntervalsSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeReservationRepo{intervals: []models.ReservationInterval{
		{
			StartTime: time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2030, 1, 1, 11, 0, 0, 0, time.UTC),
		},
	}}
	handler := NewReservationHandler(service.NewReservationService(repo, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/listings/listing-1/reservations?from=2030-01-01T00:00:00Z&to=2030-01-08T00:00:00Z", nil)
	c.Params = gin.Params{{Key: "id", Value: "listing-1"}}

	handler.Intervals(c)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []models.ReservationInterval `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, repo.intervals[0].StartTime, envelope.Data[0].StartTime)
}

func TestReservationHandlerListOwnScopesToCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeReservationRepo{}
	handler := NewReservationHandler(service.NewReservationService(repo, nil))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/reservations?page=2&page_size=5", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleUser})

	handler.ListOwn(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", repo.lastFilter.UserID)
	assert.Equal(t, 2, repo.lastFilter.Page)
	assert.Equal(t, 5, repo.lastFilter.PageSize)
}
