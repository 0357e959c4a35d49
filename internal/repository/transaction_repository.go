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

// TransactionRepository manages persistence for payment transactions.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository constructs a TransactionRepository.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction record.
func (r *TransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO transactions (id, user_id, listing_id, payment_intent_id, amount_minor, currency, paid, paid_at, created_at)
        VALUES (:id, :user_id, :listing_id, :payment_intent_id, :amount_minor, :currency, :paid, :paid_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, txn); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// FindByID fetches a transaction by identifier.
func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	const query = `SELECT id, user_id, listing_id, payment_intent_id, amount_minor, currency, paid, paid_at, created_at FROM transactions WHERE id = $1`
	var txn models.Transaction
	if err := r.db.GetContext(ctx, &txn, query, id); err != nil {
		return nil, err
	}
	return &txn, nil
}

// List returns transactions matching the filter with listing context.
func (r *TransactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.TransactionDetail, int, error) {
	base := "FROM transactions t JOIN listings l ON l.id = t.listing_id"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("t.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Paid != nil {
		conditions = append(conditions, fmt.Sprintf("t.paid = $%d", len(args)+1))
		args = append(args, *filter.Paid)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("t.created_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("t.created_at < $%d", len(args)+1))
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

	query := fmt.Sprintf(`SELECT t.id, t.user_id, t.listing_id, t.payment_intent_id, t.amount_minor, t.currency, t.paid, t.paid_at, t.created_at,
        l.title AS listing_title
        %s ORDER BY t.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var transactions []models.TransactionDetail
	if err := r.db.SelectContext(ctx, &transactions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}
	return transactions, total, nil
}

// MarkPaid flips the paid flag once the payment provider confirms.
func (r *TransactionRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	const query = `UPDATE transactions SET paid = TRUE, paid_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, paidAt); err != nil {
		return fmt.Errorf("mark transaction paid: %w", err)
	}
	return nil
}
