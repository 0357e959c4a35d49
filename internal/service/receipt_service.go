package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sparkaj/sparkaj-api/internal/calendar"
	"github.com/sparkaj/sparkaj-api/internal/models"
	"github.com/sparkaj/sparkaj-api/internal/repository"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
	"github.com/sparkaj/sparkaj-api/pkg/export"
	"github.com/sparkaj/sparkaj-api/pkg/jobs"
	"github.com/sparkaj/sparkaj-api/pkg/storage"
)

type receiptJobStore interface {
	Create(ctx context.Context, job *models.ReceiptJob) error
	GetByID(ctx context.Context, id string) (*models.ReceiptJob, error)
	FindByTransaction(ctx context.Context, transactionID string) (*models.ReceiptJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReceiptJobParams) error
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.ReceiptJob, error)
}

type receiptDispatcher interface {
	Enqueue(job jobs.Job) error
}

type receiptRenderer interface {
	Render(data export.ReceiptData) ([]byte, error)
}

type receiptStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// ReceiptDownload aggregates resolved download data.
type ReceiptDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

// ReceiptServiceConfig governs result retention.
type ReceiptServiceConfig struct {
	ResultTTL time.Duration
}

// ReceiptService generates PDF receipts for paid transactions in the
// background and serves them through signed URLs.
type ReceiptService struct {
	repo     receiptJobStore
	queue    receiptDispatcher
	renderer receiptRenderer
	store    receiptStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ReceiptServiceConfig
}

// NewReceiptService constructs the receipt service.
func NewReceiptService(repo receiptJobStore, queue receiptDispatcher, renderer receiptRenderer, store receiptStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg ReceiptServiceConfig) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReceiptService{repo: repo, queue: queue, renderer: renderer, store: store, signer: signer, logger: logger, cfg: cfg}
}

// EnqueueForTransaction persists a receipt job for the paid transaction and
// schedules its generation.
func (s *ReceiptService) EnqueueForTransaction(ctx context.Context, txn *models.Transaction, listing *models.ListingDetail, buyer *models.User, segments []calendar.Segment) error {
	paidAt := time.Now().UTC()
	if txn.PaidAt != nil {
		paidAt = *txn.PaidAt
	}
	lines := make([]string, len(segments))
	for i, segment := range segments {
		lines[i] = fmt.Sprintf("%s - %s (%d h)",
			segment.Start.Format("02 Jan 2006 15:04"),
			segment.End.Format("02 Jan 2006 15:04"),
			segment.Hours())
	}

	job := &models.ReceiptJob{
		TransactionID: txn.ID,
		CreatedBy:     buyer.ID,
		Params: models.ReceiptParams{
			BuyerName:    buyer.FullName,
			BuyerEmail:   buyer.Email,
			ListingTitle: listing.Title,
			ListingCity:  listing.City,
			AmountMinor:  txn.AmountMinor,
			Currency:     txn.Currency,
			PaidAt:       paidAt,
			Segments:     lines,
		},
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return fmt.Errorf("create receipt job: %w", err)
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "receipt"}); err != nil {
		status := models.ReceiptStatusFailed
		msg := "failed to enqueue receipt job"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReceiptJobParams{Status: &status, ErrorMessage: &msg, FinishedAt: &now})
		return fmt.Errorf("enqueue receipt job: %w", err)
	}
	return nil
}

// HandleJob is the queue handler: it renders and stores the PDF.
func (s *ReceiptService) HandleJob(ctx context.Context, queued jobs.Job) error {
	job, err := s.repo.GetByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load receipt job: %w", err)
	}
	if job.Status == models.ReceiptStatusFinished {
		return nil
	}

	processing := models.ReceiptStatusProcessing
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReceiptJobParams{Status: &processing}); err != nil {
		return fmt.Errorf("mark receipt job processing: %w", err)
	}

	data := export.ReceiptData{
		ReceiptNumber: strings.ToUpper(job.ID[:8]),
		IssuedAt:      job.Params.PaidAt,
		BuyerName:     job.Params.BuyerName,
		BuyerEmail:    job.Params.BuyerEmail,
		ListingTitle:  job.Params.ListingTitle,
		ListingCity:   job.Params.ListingCity,
		Segments:      job.Params.Segments,
		AmountMinor:   job.Params.AmountMinor,
		Currency:      job.Params.Currency,
	}
	payload, err := s.renderer.Render(data)
	if err != nil {
		s.markFailed(ctx, job.ID, err)
		return fmt.Errorf("render receipt: %w", err)
	}

	filename := fmt.Sprintf("receipts/%s.pdf", job.ID)
	if _, err := s.store.Save(filename, payload); err != nil {
		s.markFailed(ctx, job.ID, err)
		return fmt.Errorf("store receipt: %w", err)
	}

	token, _, err := s.signer.Generate(job.ID, filename)
	if err != nil {
		s.markFailed(ctx, job.ID, err)
		return fmt.Errorf("sign receipt url: %w", err)
	}

	finished := models.ReceiptStatusFinished
	now := time.Now().UTC()
	resultURL := "/api/v1/receipts/download?token=" + token
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReceiptJobParams{Status: &finished, ResultURL: &resultURL, FinishedAt: &now}); err != nil {
		return fmt.Errorf("finish receipt job: %w", err)
	}

	s.logger.Info("receipt generated", zap.String("job_id", job.ID), zap.String("transaction_id", job.TransactionID))
	return nil
}

// StatusForTransaction returns the latest receipt job for the caller's
// transaction.
func (s *ReceiptService) StatusForTransaction(ctx context.Context, userID, transactionID string) (*models.ReceiptJob, error) {
	job, err := s.repo.FindByTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no receipt for this transaction")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receipt job")
	}
	if job.CreatedBy != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "receipt belongs to another user")
	}
	return job, nil
}

// Download resolves a signed token to the receipt file.
func (s *ReceiptService) Download(token string) (*ReceiptDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt file not found")
	}
	return &ReceiptDownload{File: file, Filename: jobID + ".pdf", ExpiresAt: expiresAt}, nil
}

// CleanupStale removes stored files for jobs past the retention TTL.
func (s *ReceiptService) CleanupStale(ctx context.Context, limit int) int {
	cutoff := time.Now().UTC().Add(-s.cfg.ResultTTL)
	jobs, err := s.repo.ListStale(ctx, cutoff, limit)
	if err != nil {
		s.logger.Warn("failed to list stale receipt jobs", zap.Error(err))
		return 0
	}
	removed := 0
	for _, job := range jobs {
		filename := fmt.Sprintf("receipts/%s.pdf", job.ID)
		if err := s.store.Delete(filename); err != nil {
			s.logger.Warn("failed to delete stale receipt", zap.Error(err), zap.String("job_id", job.ID))
			continue
		}
		removed++
	}
	return removed
}

func (s *ReceiptService) markFailed(ctx context.Context, jobID string, cause error) {
	status := models.ReceiptStatusFailed
	msg := cause.Error()
	now := time.Now().UTC()
	if err := s.repo.Update(ctx, jobID, repository.UpdateReceiptJobParams{Status: &status, ErrorMessage: &msg, FinishedAt: &now}); err != nil {
		s.logger.Error("failed to mark receipt job failed", zap.Error(err), zap.String("job_id", jobID))
	}
}
