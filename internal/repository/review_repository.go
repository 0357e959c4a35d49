package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sparkaj/sparkaj-api/internal/models"
)

// ReviewRepository manages persistence for listing reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs a ReviewRepository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now
	const query = `INSERT INTO reviews (id, listing_id, reservation_id, user_id, rating, comment, created_at, updated_at)
        VALUES (:id, :listing_id, :reservation_id, :user_id, :rating, :comment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// ExistsForReservation reports whether a review was already left for the
// reservation.
func (r *ReviewRepository) ExistsForReservation(ctx context.Context, reservationID string) (bool, error) {
	const query = `SELECT 1 FROM reviews WHERE reservation_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, reservationID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check review exists: %w", err)
	}
	return true, nil
}

// List returns reviews matching the filter with reviewer names.
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]models.ReviewDetail, int, error) {
	base := "FROM reviews v JOIN users u ON u.id = v.user_id"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.ListingID != "" {
		conditions = append(conditions, fmt.Sprintf("v.listing_id = $%d", len(args)+1))
		args = append(args, filter.ListingID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("v.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT v.id, v.listing_id, v.reservation_id, v.user_id, v.rating, v.comment, v.created_at, v.updated_at,
        u.full_name AS reviewer_name
        %s ORDER BY v.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var reviews []models.ReviewDetail
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	return reviews, total, nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM reviews WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// FindByID fetches a review by identifier.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	const query = `SELECT id, listing_id, reservation_id, user_id, rating, comment, created_at, updated_at FROM reviews WHERE id = $1`
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, id); err != nil {
		return nil, err
	}
	return &review, nil
}
