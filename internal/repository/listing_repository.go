package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sparkaj/sparkaj-api/internal/models"
)

// ListingRepository manages persistence for parking-spot listings.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository constructs a ListingRepository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// List returns listings matching the provided filters with total count.
func (r *ListingRepository) List(ctx context.Context, filter models.ListingFilter) ([]models.ListingDetail, int, error) {
	base := "FROM listings l JOIN users u ON u.id = l.owner_id"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(l.city) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.City))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(l.title) LIKE $%d OR LOWER(l.address) LIKE $%d OR LOWER(l.city) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.PriceMin != nil {
		conditions = append(conditions, fmt.Sprintf("l.price_per_hour >= $%d", len(args)+1))
		args = append(args, *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		conditions = append(conditions, fmt.Sprintf("l.price_per_hour <= $%d", len(args)+1))
		args = append(args, *filter.PriceMax)
	}
	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("l.owner_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("l.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"price":      "l.price_per_hour",
		"rating":     "l.average_rating",
		"created_at": "l.created_at",
		"city":       "l.city",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "l.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT l.id, l.owner_id, l.title, l.description, l.city, l.address, l.price_per_hour, l.currency, l.image_path, l.average_rating, l.review_count, l.active, l.created_at, l.updated_at,
        u.full_name AS owner_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var listings []models.ListingDetail
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}
	return listings, total, nil
}

// FindByID fetches a listing with owner context.
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*models.ListingDetail, error) {
	const query = `SELECT l.id, l.owner_id, l.title, l.description, l.city, l.address, l.price_per_hour, l.currency, l.image_path, l.average_rating, l.review_count, l.active, l.created_at, l.updated_at,
        u.full_name AS owner_name
        FROM listings l JOIN users u ON u.id = l.owner_id WHERE l.id = $1`
	var detail models.ListingDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Cities returns the distinct cities with at least one active listing.
func (r *ListingRepository) Cities(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT city FROM listings WHERE active = TRUE ORDER BY city`
	var cities []string
	if err := r.db.SelectContext(ctx, &cities, query); err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}

// Create inserts a new listing record.
func (r *ListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	listing.UpdatedAt = now
	const query = `INSERT INTO listings (id, owner_id, title, description, city, address, price_per_hour, currency, image_path, average_rating, review_count, active, created_at, updated_at)
        VALUES (:id, :owner_id, :title, :description, :city, :address, :price_per_hour, :currency, :image_path, :average_rating, :review_count, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, listing); err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

// Update modifies an existing listing.
func (r *ListingRepository) Update(ctx context.Context, listing *models.Listing) error {
	listing.UpdatedAt = time.Now().UTC()
	const query = `UPDATE listings SET title = :title, description = :description, city = :city, address = :address, price_per_hour = :price_per_hour, currency = :currency, image_path = :image_path, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, listing); err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	return nil
}

// Deactivate hides a listing from the public catalog.
func (r *ListingRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE listings SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate listing: %w", err)
	}
	return nil
}

// UpdateRating recomputes the aggregate rating columns from the reviews table.
func (r *ListingRepository) UpdateRating(ctx context.Context, listingID string) error {
	const query = `UPDATE listings SET
        average_rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE listing_id = $1), 0),
        review_count = (SELECT COUNT(*) FROM reviews WHERE listing_id = $1),
        updated_at = $2
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, listingID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update listing rating: %w", err)
	}
	return nil
}

// SetImagePath records the stored image location for a listing.
func (r *ListingRepository) SetImagePath(ctx context.Context, id, path string) error {
	const query = `UPDATE listings SET image_path = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, path, time.Now().UTC()); err != nil {
		return fmt.Errorf("set listing image: %w", err)
	}
	return nil
}
