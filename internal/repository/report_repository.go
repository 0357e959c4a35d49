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

// ReportRepository persists moderation reports filed against listings.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report in the OPEN state.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Status == "" {
		report.Status = models.ReportStatusOpen
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reports (id, listing_id, reporter_id, reason, status, resolved_by, resolved_at, created_at)
        VALUES (:id, :listing_id, :reporter_id, :reason, :status, :resolved_by, :resolved_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// FindByID fetches a report by identifier.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.Report, error) {
	const query = `SELECT id, listing_id, reporter_id, reason, status, resolved_by, resolved_at, created_at FROM reports WHERE id = $1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns reports matching the filter with reporter and listing context.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, int, error) {
	base := "FROM reports p JOIN users u ON u.id = p.reporter_id JOIN listings l ON l.id = p.listing_id"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.ListingID != "" {
		conditions = append(conditions, fmt.Sprintf("p.listing_id = $%d", len(args)+1))
		args = append(args, filter.ListingID)
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

	query := fmt.Sprintf(`SELECT p.id, p.listing_id, p.reporter_id, p.reason, p.status, p.resolved_by, p.resolved_at, p.created_at,
        u.full_name AS reporter_name, l.title AS listing_title
        %s ORDER BY p.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var reports []models.ReportDetail
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}
	return reports, total, nil
}

// Resolve flips a report to RESOLVED and records who handled it.
func (r *ReportRepository) Resolve(ctx context.Context, id, adminID string, resolvedAt time.Time) error {
	const query = `UPDATE reports SET status = $2, resolved_by = $3, resolved_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportStatusResolved, adminID, resolvedAt); err != nil {
		return fmt.Errorf("resolve report: %w", err)
	}
	return nil
}

// Delete removes a report.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM reports WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}
