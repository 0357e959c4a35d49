package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sparkaj/sparkaj-api/internal/models"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
)

type reportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, int, error)
	Resolve(ctx context.Context, id, adminID string, resolvedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type reportListingRepository interface {
	FindByID(ctx context.Context, id string) (*models.ListingDetail, error)
}

type reportAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ReportService handles user complaints against listings and the admin
// moderation queue.
type ReportService struct {
	repo      reportRepository
	listings  reportListingRepository
	auditor   reportAuditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs a ReportService instance.
func NewReportService(repo reportRepository, listings reportListingRepository, auditor reportAuditor, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{repo: repo, listings: listings, auditor: auditor, validator: validate, logger: logger}
}

// Create files a complaint against a listing.
func (s *ReportService) Create(ctx context.Context, reporterID string, req models.CreateReportRequest) (*models.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	listing, err := s.listings.FindByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	if listing.OwnerID == reporterID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot report your own listing")
	}

	report := &models.Report{
		ListingID:  req.ListingID,
		ReporterID: reporterID,
		Reason:     req.Reason,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}
	return report, nil
}

// List returns the moderation queue.
func (s *ReportService) List(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, *models.Pagination, error) {
	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return reports, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Resolve marks a report handled. Resolving an already resolved report is
// rejected so the queue stays truthful.
func (s *ReportService) Resolve(ctx context.Context, adminID, id string) (*models.Report, error) {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if report.Status == models.ReportStatusResolved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report is already resolved")
	}

	resolvedAt := time.Now().UTC()
	if err := s.repo.Resolve(ctx, id, adminID, resolvedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve report")
	}

	report.Status = models.ReportStatusResolved
	report.ResolvedBy = &adminID
	report.ResolvedAt = &resolvedAt

	if err := s.auditor.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionReportResolve,
		Resource:   "reports",
		ResourceID: &id,
	}); err != nil {
		s.logger.Warn("failed to record report audit log", zap.Error(err))
	}
	return report, nil
}

// Delete removes a report from the queue.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete report")
	}
	return nil
}
