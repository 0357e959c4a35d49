package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sparkaj/sparkaj-api/internal/models"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
	"github.com/sparkaj/sparkaj-api/pkg/export"
)

type transactionRepository interface {
	List(ctx context.Context, filter models.TransactionFilter) ([]models.TransactionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Transaction, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// TransactionService exposes payment history use cases.
type TransactionService struct {
	repo   transactionRepository
	csv    csvRenderer
	logger *zap.Logger
}

// NewTransactionService constructs a TransactionService instance.
func NewTransactionService(repo transactionRepository, csv csvRenderer, logger *zap.Logger) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{repo: repo, csv: csv, logger: logger}
}

// History returns the caller's transactions newest first.
func (s *TransactionService) History(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.TransactionDetail, *models.Pagination, error) {
	filter.UserID = userID
	transactions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transactions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return transactions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one of the caller's transactions.
func (s *TransactionService) Get(ctx context.Context, userID, id string) (*models.Transaction, error) {
	txn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
	}
	if txn.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "transaction belongs to another user")
	}
	return txn, nil
}

// ExportCSV renders the caller's full transaction history as CSV.
func (s *TransactionService) ExportCSV(ctx context.Context, userID string) ([]byte, string, error) {
	filter := models.TransactionFilter{UserID: userID, Page: 1, PageSize: 100}
	var all []models.TransactionDetail
	for {
		batch, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transactions")
		}
		all = append(all, batch...)
		if len(all) >= total || len(batch) == 0 {
			break
		}
		filter.Page++
	}

	headers := []string{"date", "listing", "payment_intent", "amount", "currency", "paid"}
	rows := make([]map[string]string, len(all))
	for i, txn := range all {
		rows[i] = map[string]string{
			"date":           txn.CreatedAt.Format(time.RFC3339),
			"listing":        txn.ListingTitle,
			"payment_intent": txn.PaymentIntentID,
			"amount":         fmt.Sprintf("%.2f", float64(txn.AmountMinor)/100),
			"currency":       strings.ToUpper(txn.Currency),
			"paid":           fmt.Sprintf("%t", txn.Paid),
		}
	}

	payload, err := s.csv.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("transactions-%s.csv", time.Now().UTC().Format("20060102"))
	return payload, filename, nil
}
