package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparkaj/sparkaj-api/internal/models"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
)

type mockReviewRepo struct {
	reviews       map[string]*models.Review
	byReservation map[string]bool
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{reviews: make(map[string]*models.Review), byReservation: make(map[string]bool)}
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	m.reviews[review.ID] = review
	m.byReservation[review.ReservationID] = true
	return nil
}

func (m *mockReviewRepo) ExistsForReservation(ctx context.Context, reservationID string) (bool, error) {
	return m.byReservation[reservationID], nil
}

func (m *mockReviewRepo) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewDetail, int, error) {
	var out []models.ReviewDetail
	for _, review := range m.reviews {
		if filter.ListingID != "" && review.ListingID != filter.ListingID {
			continue
		}
		if filter.UserID != "" && review.UserID != filter.UserID {
			continue
		}
		out = append(out, models.ReviewDetail{Review: *review})
	}
	return out, len(out), nil
}

func (m *mockReviewRepo) FindByID(ctx context.Context, id string) (*models.Review, error) {
	review, ok := m.reviews[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return review, nil
}

func (m *mockReviewRepo) Delete(ctx context.Context, id string) error {
	if review, ok := m.reviews[id]; ok {
		delete(m.byReservation, review.ReservationID)
	}
	delete(m.reviews, id)
	return nil
}

type mockReviewReservations struct {
	reservations map[string]*models.Reservation
}

func (m *mockReviewReservations) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, ok := m.reservations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return reservation, nil
}

type mockRatingUpdater struct {
	refreshed []string
}

func (m *mockRatingUpdater) UpdateRating(ctx context.Context, listingID string) error {
	m.refreshed = append(m.refreshed, listingID)
	return nil
}

const testReservationID = "0d9f5a88-3c1e-4f7b-9a2d-6e5c4b3a2f10"

func reviewFixture(endTime time.Time) (*ReviewService, *mockReviewRepo, *mockRatingUpdater) {
	repo := newMockReviewRepo()
	reservations := &mockReviewReservations{reservations: map[string]*models.Reservation{
		testReservationID: {
			ID:        testReservationID,
			ListingID: testListingID,
			UserID:    testUserID,
			StartTime: endTime.Add(-2 * time.Hour),
			EndTime:   endTime,
		},
	}}
	ratings := &mockRatingUpdater{}
	svc := NewReviewService(repo, reservations, ratings, validator.New(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC) }
	return svc, repo, ratings
}

func TestReviewCreate(t *testing.T) {
	svc, repo, ratings := reviewFixture(time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC))

	review, err := svc.Create(context.Background(), testUserID, models.CreateReviewRequest{
		ReservationID: testReservationID,
		Rating:        5,
		Comment:       "easy access, well lit",
	})
	require.NoError(t, err)
	assert.Equal(t, testListingID, review.ListingID)
	assert.Equal(t, 5, review.Rating)
	assert.Contains(t, repo.reviews, review.ID)
	assert.Equal(t, []string{testListingID}, ratings.refreshed)
}

func TestReviewCreateBeforeReservationEnds(t *testing.T) {
	svc, _, _ := reviewFixture(time.Date(2024, 6, 11, 12, 0, 0, 0, time.UTC))

	_, err := svc.Create(context.Background(), testUserID, models.CreateReviewRequest{
		ReservationID: testReservationID,
		Rating:        4,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestReviewCreateDuplicate(t *testing.T) {
	svc, _, _ := reviewFixture(time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC))

	_, err := svc.Create(context.Background(), testUserID, models.CreateReviewRequest{ReservationID: testReservationID, Rating: 5})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), testUserID, models.CreateReviewRequest{ReservationID: testReservationID, Rating: 3})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestReviewCreateWrongUser(t *testing.T) {
	svc, _, _ := reviewFixture(time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC))

	_, err := svc.Create(context.Background(), "someone-else", models.CreateReviewRequest{ReservationID: testReservationID, Rating: 4})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestReviewCreateInvalidRating(t *testing.T) {
	svc, _, _ := reviewFixture(time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC))

	_, err := svc.Create(context.Background(), testUserID, models.CreateReviewRequest{ReservationID: testReservationID, Rating: 6})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestReviewDelete(t *testing.T) {
	svc, repo, ratings := reviewFixture(time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC))
	review, err := svc.Create(context.Background(), testUserID, models.CreateReviewRequest{ReservationID: testReservationID, Rating: 5})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "other-user", false, review.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), testUserID, false, review.ID)
	require.NoError(t, err)
	assert.NotContains(t, repo.reviews, review.ID)
	assert.Len(t, ratings.refreshed, 2)
}
