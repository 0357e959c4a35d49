package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sparkaj/sparkaj-api/internal/models"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
)

type reservationListRepository interface {
	List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, int, error)
	ListIntervals(ctx context.Context, listingID string, from, to time.Time) ([]models.ReservationInterval, error)
}

// ReservationService exposes read use cases over committed reservations.
// Creation happens exclusively through the checkout flow.
type ReservationService struct {
	repo   reservationListRepository
	logger *zap.Logger
}

// NewReservationService constructs a ReservationService instance.
func NewReservationService(repo reservationListRepository, logger *zap.Logger) *ReservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{repo: repo, logger: logger}
}

// ListOwn returns the caller's reservations with listing context.
func (s *ReservationService) ListOwn(ctx context.Context, userID string, filter models.ReservationFilter) ([]models.ReservationDetail, *models.Pagination, error) {
	filter.UserID = userID
	filter.ListingID = ""
	reservations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return reservations, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Intervals returns the raw reserved intervals of a listing inside the
// half-open window, the form calendar clients consume.
func (s *ReservationService) Intervals(ctx context.Context, listingID string, from, to time.Time) ([]models.ReservationInterval, error) {
	if !from.Before(to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid time window")
	}
	intervals, err := s.repo.ListIntervals(ctx, listingID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservation intervals")
	}
	return intervals, nil
}
