package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparkaj/sparkaj-api/internal/calendar"
	"github.com/sparkaj/sparkaj-api/internal/models"
	"github.com/sparkaj/sparkaj-api/internal/repository"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
	"github.com/sparkaj/sparkaj-api/pkg/export"
	"github.com/sparkaj/sparkaj-api/pkg/jobs"
	"github.com/sparkaj/sparkaj-api/pkg/storage"
)

type mockReceiptStore struct {
	jobs map[string]*models.ReceiptJob
}

func newMockReceiptStore() *mockReceiptStore {
	return &mockReceiptStore{jobs: make(map[string]*models.ReceiptJob)}
}

func (m *mockReceiptStore) Create(ctx context.Context, job *models.ReceiptJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReceiptStatusQueued
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockReceiptStore) GetByID(ctx context.Context, id string) (*models.ReceiptJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (m *mockReceiptStore) FindByTransaction(ctx context.Context, transactionID string) (*models.ReceiptJob, error) {
	for _, job := range m.jobs {
		if job.TransactionID == transactionID {
			return job, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockReceiptStore) Update(ctx context.Context, id string, params repository.UpdateReceiptJobParams) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *mockReceiptStore) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.ReceiptJob, error) {
	var out []models.ReceiptJob
	for _, job := range m.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

type mockDispatcher struct {
	queued     []jobs.Job
	enqueueErr error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.queued = append(m.queued, job)
	return nil
}

type failingRenderer struct{}

func (failingRenderer) Render(data export.ReceiptData) ([]byte, error) {
	return nil, errors.New("render blew up")
}

func receiptFixture(t *testing.T) (*ReceiptService, *mockReceiptStore, *mockDispatcher, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newMockReceiptStore()
	dispatcher := &mockDispatcher{}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewReceiptService(repo, dispatcher, export.NewReceiptRenderer(), store, signer, zap.NewNop(), ReceiptServiceConfig{ResultTTL: 24 * time.Hour})
	return svc, repo, dispatcher, store
}

func enqueueSampleJob(t *testing.T, svc *ReceiptService, repo *mockReceiptStore) *models.ReceiptJob {
	t.Helper()
	paidAt := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	txn := &models.Transaction{ID: "txn-1", UserID: testUserID, AmountMinor: 750, Currency: "eur", Paid: true, PaidAt: &paidAt}
	listing := &models.ListingDetail{Listing: models.Listing{ID: testListingID, Title: "Garage near the arena", City: "Zagreb"}}
	buyer := &models.User{ID: testUserID, Email: "buyer@example.com", FullName: "Buyer"}
	segments := calendar.Compact([]calendar.Slot{
		calendar.NewSlot(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), 9),
		calendar.NewSlot(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), 10),
		calendar.NewSlot(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), 11),
	})

	err := svc.EnqueueForTransaction(context.Background(), txn, listing, buyer, segments)
	require.NoError(t, err)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		return job
	}
	return nil
}

func TestReceiptEnqueueForTransaction(t *testing.T) {
	svc, repo, dispatcher, _ := receiptFixture(t)

	job := enqueueSampleJob(t, svc, repo)
	assert.Equal(t, models.ReceiptStatusQueued, job.Status)
	assert.Equal(t, "txn-1", job.TransactionID)
	assert.Equal(t, testUserID, job.CreatedBy)
	assert.Equal(t, int64(750), job.Params.AmountMinor)
	require.Len(t, job.Params.Segments, 1)
	assert.Contains(t, job.Params.Segments[0], "(3 h)")

	require.Len(t, dispatcher.queued, 1)
	assert.Equal(t, job.ID, dispatcher.queued[0].ID)
	assert.Equal(t, "receipt", dispatcher.queued[0].Type)
}

func TestReceiptEnqueueFailureMarksJob(t *testing.T) {
	svc, repo, dispatcher, _ := receiptFixture(t)
	dispatcher.enqueueErr = errors.New("queue full")

	paidAt := time.Now().UTC()
	txn := &models.Transaction{ID: "txn-1", AmountMinor: 500, Currency: "eur", PaidAt: &paidAt}
	listing := &models.ListingDetail{Listing: models.Listing{ID: testListingID}}
	buyer := &models.User{ID: testUserID}

	err := svc.EnqueueForTransaction(context.Background(), txn, listing, buyer, nil)
	require.Error(t, err)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ReceiptStatusFailed, job.Status)
		require.NotNil(t, job.ErrorMessage)
	}
}

func TestReceiptHandleJob(t *testing.T) {
	svc, repo, _, store := receiptFixture(t)
	job := enqueueSampleJob(t, svc, repo)

	err := svc.HandleJob(context.Background(), jobs.Job{ID: job.ID, Type: "receipt"})
	require.NoError(t, err)

	finished := repo.jobs[job.ID]
	assert.Equal(t, models.ReceiptStatusFinished, finished.Status)
	require.NotNil(t, finished.ResultURL)
	assert.True(t, strings.HasPrefix(*finished.ResultURL, "/api/v1/receipts/download?token="))
	require.NotNil(t, finished.FinishedAt)

	file, err := store.Open("receipts/" + job.ID + ".pdf")
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func TestReceiptHandleJobRenderFailure(t *testing.T) {
	svc, repo, dispatcher, store := receiptFixture(t)
	job := enqueueSampleJob(t, svc, repo)

	failing := NewReceiptService(repo, dispatcher, failingRenderer{}, store, storage.NewSignedURLSigner("test-secret", time.Hour), zap.NewNop(), ReceiptServiceConfig{})
	err := failing.HandleJob(context.Background(), jobs.Job{ID: job.ID, Type: "receipt"})
	require.Error(t, err)

	assert.Equal(t, models.ReceiptStatusFailed, repo.jobs[job.ID].Status)
	require.NotNil(t, repo.jobs[job.ID].ErrorMessage)
	assert.Contains(t, *repo.jobs[job.ID].ErrorMessage, "render blew up")
}

func TestReceiptDownload(t *testing.T) {
	svc, repo, _, _ := receiptFixture(t)
	job := enqueueSampleJob(t, svc, repo)
	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: job.ID, Type: "receipt"}))

	token := strings.TrimPrefix(*repo.jobs[job.ID].ResultURL, "/api/v1/receipts/download?token=")
	download, err := svc.Download(token)
	require.NoError(t, err)
	assert.Equal(t, job.ID+".pdf", download.Filename)
	require.NoError(t, download.File.Close())

	_, err = svc.Download("garbage-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestReceiptStatusForTransaction(t *testing.T) {
	svc, repo, _, _ := receiptFixture(t)
	job := enqueueSampleJob(t, svc, repo)

	status, err := svc.StatusForTransaction(context.Background(), testUserID, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, status.ID)

	_, err = svc.StatusForTransaction(context.Background(), "intruder", "txn-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.StatusForTransaction(context.Background(), testUserID, "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReceiptCleanupStale(t *testing.T) {
	svc, repo, _, store := receiptFixture(t)
	job := enqueueSampleJob(t, svc, repo)
	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: job.ID, Type: "receipt"}))

	old := time.Now().UTC().Add(-48 * time.Hour)
	repo.jobs[job.ID].FinishedAt = &old

	removed := svc.CleanupStale(context.Background(), 10)
	assert.Equal(t, 1, removed)

	_, err := store.Open("receipts/" + job.ID + ".pdf")
	require.Error(t, err)
}
