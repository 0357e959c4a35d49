package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sparkaj/sparkaj-api/internal/models"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
)

type reviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ExistsForReservation(ctx context.Context, reservationID string) (bool, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Review, error)
	Delete(ctx context.Context, id string) error
}

type reviewReservationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
}

type ratingUpdater interface {
	UpdateRating(ctx context.Context, listingID string) error
}

// ReviewService enforces the review rules: one review per reservation, and
// only after the reserved interval has fully elapsed.
type ReviewService struct {
	repo         reviewRepository
	reservations reviewReservationRepository
	ratings      ratingUpdater
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewReviewService constructs a ReviewService instance.
func NewReviewService(repo reviewRepository, reservations reviewReservationRepository, ratings ratingUpdater, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReviewService{repo: repo, reservations: reservations, ratings: ratings, validator: validate, logger: logger, now: time.Now}
}

// Create posts a review for a completed reservation and refreshes the
// listing's aggregate rating.
func (s *ReviewService) Create(ctx context.Context, userID string, req models.CreateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	reservation, err := s.reservations.FindByID(ctx, req.ReservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	if reservation.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "reservation belongs to another user")
	}
	if reservation.EndTime.After(s.now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "reservation has not finished yet")
	}

	exists, err := s.repo.ExistsForReservation(ctx, reservation.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing review")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "reservation already reviewed")
	}

	review := &models.Review{
		ListingID:     reservation.ListingID,
		ReservationID: reservation.ID,
		UserID:        userID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}

	if err := s.ratings.UpdateRating(ctx, reservation.ListingID); err != nil {
		s.logger.Warn("failed to refresh listing rating", zap.Error(err), zap.String("listing_id", reservation.ListingID))
	}
	return review, nil
}

// ListByListing returns the reviews shown on a listing page.
func (s *ReviewService) ListByListing(ctx context.Context, listingID string, page, pageSize int) ([]models.ReviewDetail, *models.Pagination, error) {
	return s.list(ctx, models.ReviewFilter{ListingID: listingID, Page: page, PageSize: pageSize})
}

// ListByUser returns the caller's own reviews.
func (s *ReviewService) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.ReviewDetail, *models.Pagination, error) {
	return s.list(ctx, models.ReviewFilter{UserID: userID, Page: page, PageSize: pageSize})
}

func (s *ReviewService) list(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewDetail, *models.Pagination, error) {
	reviews, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return reviews, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Delete removes a review. Authors can delete their own; admins any.
func (s *ReviewService) Delete(ctx context.Context, callerID string, isAdmin bool, id string) error {
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	if !isAdmin && review.UserID != callerID {
		return appErrors.Clone(appErrors.ErrForbidden, "not the review author")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}
	if err := s.ratings.UpdateRating(ctx, review.ListingID); err != nil {
		s.logger.Warn("failed to refresh listing rating", zap.Error(err), zap.String("listing_id", review.ListingID))
	}
	return nil
}
