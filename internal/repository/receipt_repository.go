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

// ReceiptRepository persists receipt generation job metadata.
type ReceiptRepository struct {
	db *sqlx.DB
}

// NewReceiptRepository constructs the repository.
func NewReceiptRepository(db *sqlx.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Create inserts a new receipt job row with generated defaults.
func (r *ReceiptRepository) Create(ctx context.Context, job *models.ReceiptJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReceiptStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO receipt_jobs (id, transaction_id, params, status, result_url, created_by, created_at, finished_at, error_message)
VALUES (:id, :transaction_id, :params, :status, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create receipt job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *ReceiptRepository) GetByID(ctx context.Context, id string) (*models.ReceiptJob, error) {
	const query = `SELECT id, transaction_id, params, status, result_url, created_by, created_at, finished_at, error_message
FROM receipt_jobs WHERE id = $1`
	var job models.ReceiptJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get receipt job: %w", err)
	}
	return &job, nil
}

// FindByTransaction returns the most recent job for a transaction, if any.
func (r *ReceiptRepository) FindByTransaction(ctx context.Context, transactionID string) (*models.ReceiptJob, error) {
	const query = `SELECT id, transaction_id, params, status, result_url, created_by, created_at, finished_at, error_message
FROM receipt_jobs WHERE transaction_id = $1 ORDER BY created_at DESC LIMIT 1`
	var job models.ReceiptJob
	if err := r.db.GetContext(ctx, &job, query, transactionID); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateReceiptJobParams defines the mutable fields of a job row.
type UpdateReceiptJobParams struct {
	Status       *models.ReceiptStatus
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *ReceiptRepository) Update(ctx context.Context, id string, params UpdateReceiptJobParams) error {
	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.ResultURL != nil {
		set = append(set, fmt.Sprintf("result_url = $%d", argPos))
		args = append(args, *params.ResultURL)
		argPos++
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", argPos))
		args = append(args, *params.ErrorMessage)
		argPos++
	}
	if params.FinishedAt != nil {
		set = append(set, fmt.Sprintf("finished_at = $%d", argPos))
		args = append(args, *params.FinishedAt)
		argPos++
	}
	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE receipt_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update receipt job: %w", err)
	}
	return nil
}

// ListStale returns finished jobs older than the cutoff, for storage cleanup.
func (r *ReceiptRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.ReceiptJob, error) {
	const query = `SELECT id, transaction_id, params, status, result_url, created_by, created_at, finished_at, error_message
FROM receipt_jobs WHERE status = $1 AND finished_at < $2 ORDER BY finished_at LIMIT $3`
	var jobs []models.ReceiptJob
	if err := r.db.SelectContext(ctx, &jobs, query, models.ReceiptStatusFinished, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list stale receipt jobs: %w", err)
	}
	return jobs, nil
}
