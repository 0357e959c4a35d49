package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sparkaj/sparkaj-api/internal/models"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
)

// ReservationRepository manages persistence for committed rental intervals.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository constructs a ReservationRepository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// ListIntervals returns the reservation intervals for a listing touching the
// given half-open window. The window bounds use the same overlap predicate as
// the conflict guard.
func (r *ReservationRepository) ListIntervals(ctx context.Context, listingID string, from, to time.Time) ([]models.ReservationInterval, error) {
	const query = `SELECT start_time, end_time FROM reservations
        WHERE listing_id = $1 AND start_time < $3 AND end_time > $2
        ORDER BY start_time`
	var intervals []models.ReservationInterval
	if err := r.db.SelectContext(ctx, &intervals, query, listingID, from, to); err != nil {
		return nil, fmt.Errorf("list reservation intervals: %w", err)
	}
	return intervals, nil
}

// List returns reservations matching the filter with listing context.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, int, error) {
	base := "FROM reservations r JOIN listings l ON l.id = r.listing_id"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.ListingID != "" {
		conditions = append(conditions, fmt.Sprintf("r.listing_id = $%d", len(args)+1))
		args = append(args, filter.ListingID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("r.end_time > $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("r.start_time < $%d", len(args)+1))
		args = append(args, *filter.To)
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

	query := fmt.Sprintf(`SELECT r.id, r.listing_id, r.user_id, r.start_time, r.end_time, r.amount_minor, r.currency, r.transaction_id, r.created_at,
        l.title AS listing_title, l.city AS listing_city
        %s ORDER BY r.start_time DESC LIMIT %d OFFSET %d`, base, size, offset)

	var reservations []models.ReservationDetail
	if err := r.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}
	return reservations, total, nil
}

// FindByID fetches a single reservation.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	const query = `SELECT id, listing_id, user_id, start_time, end_time, amount_minor, currency, transaction_id, created_at FROM reservations WHERE id = $1`
	var reservation models.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, id); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// CreateBatch inserts all reservations in one transaction. Each insert is
// guarded against overlapping rows already committed for the same listing, so
// a slot taken by a concurrent checkout fails the whole batch with
// ErrSlotUnavailable and nothing is written.
func (r *ReservationRepository) CreateBatch(ctx context.Context, reservations []*models.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reservation tx: %w", err)
	}
	defer tx.Rollback()

	// serialize concurrent batches per listing: under READ COMMITTED two
	// transactions could otherwise both pass the overlap subquery before
	// either commits
	const lockQuery = `SELECT id FROM listings WHERE id = $1 FOR UPDATE`
	var lockedID string
	if err := tx.GetContext(ctx, &lockedID, lockQuery, reservations[0].ListingID); err != nil {
		return fmt.Errorf("lock listing: %w", err)
	}

	const query = `INSERT INTO reservations (id, listing_id, user_id, start_time, end_time, amount_minor, currency, transaction_id, created_at)
        SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
        WHERE NOT EXISTS (
            SELECT 1 FROM reservations
            WHERE listing_id = $2 AND start_time < $5 AND end_time > $4
        )`

	now := time.Now().UTC()
	for _, reservation := range reservations {
		if reservation.ID == "" {
			reservation.ID = uuid.NewString()
		}
		if reservation.CreatedAt.IsZero() {
			reservation.CreatedAt = now
		}
		res, err := tx.ExecContext(ctx, query,
			reservation.ID, reservation.ListingID, reservation.UserID,
			reservation.StartTime, reservation.EndTime,
			reservation.AmountMinor, reservation.Currency,
			reservation.TransactionID, reservation.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert reservation result: %w", err)
		}
		if affected == 0 {
			return appErrors.ErrSlotUnavailable
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reservations: %w", err)
	}
	return nil
}

// HasCompleted reports whether the user holds a reservation on the listing
// whose interval has fully elapsed. Reviews require one.
func (r *ReservationRepository) HasCompleted(ctx context.Context, userID, listingID string, now time.Time) (bool, error) {
	const query = `SELECT COUNT(*) FROM reservations WHERE user_id = $1 AND listing_id = $2 AND end_time <= $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, listingID, now); err != nil {
		return false, fmt.Errorf("check completed reservation: %w", err)
	}
	return count > 0, nil
}
