package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sparkaj/sparkaj-api/internal/models"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
)

type listingRepository interface {
	List(ctx context.Context, filter models.ListingFilter) ([]models.ListingDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ListingDetail, error)
	Cities(ctx context.Context) ([]string, error)
	Create(ctx context.Context, listing *models.Listing) error
	Update(ctx context.Context, listing *models.Listing) error
	Deactivate(ctx context.Context, id string) error
	SetImagePath(ctx context.Context, id, path string) error
}

type listingAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateListingRequest is the payload for publishing a parking spot.
type CreateListingRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"max=4000"`
	City         string `json:"city" validate:"required,max=100"`
	Address      string `json:"address" validate:"required,max=300"`
	PricePerHour int64  `json:"price_per_hour" validate:"required,gt=0"`
	Currency     string `json:"currency" validate:"omitempty,len=3"`
}

// UpdateListingRequest mirrors the create payload plus the active flag.
type UpdateListingRequest struct {
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"max=4000"`
	City         string `json:"city" validate:"required,max=100"`
	Address      string `json:"address" validate:"required,max=300"`
	PricePerHour int64  `json:"price_per_hour" validate:"required,gt=0"`
	Active       *bool  `json:"active"`
}

// ListingService provides catalog use cases for parking-spot listings.
type ListingService struct {
	repo            listingRepository
	auditor         listingAuditor
	validator       *validator.Validate
	logger          *zap.Logger
	defaultCurrency string
}

// NewListingService constructs a ListingService instance.
func NewListingService(repo listingRepository, auditor listingAuditor, validate *validator.Validate, logger *zap.Logger, defaultCurrency string) *ListingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if defaultCurrency == "" {
		defaultCurrency = "eur"
	}
	return &ListingService{repo: repo, auditor: auditor, validator: validate, logger: logger, defaultCurrency: defaultCurrency}
}

// Search returns listings for the public catalog. Only active listings are
// visible regardless of the filter.
func (s *ListingService) Search(ctx context.Context, filter models.ListingFilter) ([]models.ListingDetail, *models.Pagination, error) {
	active := true
	filter.Active = &active
	return s.list(ctx, filter)
}

// ListOwned returns the caller's own listings, including inactive ones.
func (s *ListingService) ListOwned(ctx context.Context, ownerID string, filter models.ListingFilter) ([]models.ListingDetail, *models.Pagination, error) {
	filter.OwnerID = ownerID
	filter.Active = nil
	return s.list(ctx, filter)
}

func (s *ListingService) list(ctx context.Context, filter models.ListingFilter) ([]models.ListingDetail, *models.Pagination, error) {
	listings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list listings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return listings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one listing in the requested view. The public view hides
// inactive listings; the owner view requires ownership.
func (s *ListingService) Get(ctx context.Context, id, callerID string, view models.ListingView) (*models.ListingDetail, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}

	switch view {
	case models.ListingViewOwner:
		if listing.OwnerID != callerID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not the listing owner")
		}
	default:
		if !listing.Active && listing.OwnerID != callerID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
	}
	return listing, nil
}

// Cities returns all cities with at least one active listing.
func (s *ListingService) Cities(ctx context.Context) ([]string, error) {
	cities, err := s.repo.Cities(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cities")
	}
	return cities, nil
}

// Create publishes a new listing owned by the caller.
func (s *ListingService) Create(ctx context.Context, ownerID string, req CreateListingRequest) (*models.Listing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid listing payload")
	}

	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	listing := &models.Listing{
		OwnerID:      ownerID,
		Title:        req.Title,
		Description:  req.Description,
		City:         req.City,
		Address:      req.Address,
		PricePerHour: req.PricePerHour,
		Currency:     currency,
		Active:       true,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create listing")
	}

	s.audit(ctx, ownerID, models.AuditActionListingCreate, listing.ID)
	return listing, nil
}

// Update modifies a listing owned by the caller.
func (s *ListingService) Update(ctx context.Context, ownerID, id string, req UpdateListingRequest) (*models.Listing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid listing payload")
	}

	detail, err := s.Get(ctx, id, ownerID, models.ListingViewOwner)
	if err != nil {
		return nil, err
	}

	listing := detail.Listing
	listing.Title = req.Title
	listing.Description = req.Description
	listing.City = req.City
	listing.Address = req.Address
	listing.PricePerHour = req.PricePerHour
	if req.Active != nil {
		listing.Active = *req.Active
	}
	if err := s.repo.Update(ctx, &listing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update listing")
	}

	s.audit(ctx, ownerID, models.AuditActionListingUpdate, listing.ID)
	return &listing, nil
}

// Delete removes a listing from the catalog. Existing reservations keep
// their rows, so this is a deactivation rather than a hard delete.
func (s *ListingService) Delete(ctx context.Context, callerID string, isAdmin bool, id string) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	if !isAdmin && detail.OwnerID != callerID {
		return appErrors.Clone(appErrors.ErrForbidden, "not the listing owner")
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete listing")
	}

	s.audit(ctx, callerID, models.AuditActionListingDelete, id)
	return nil
}

// SetImage records the stored image location after an upload.
func (s *ListingService) SetImage(ctx context.Context, ownerID, id, path string) error {
	if _, err := s.Get(ctx, id, ownerID, models.ListingViewOwner); err != nil {
		return err
	}
	if err := s.repo.SetImagePath(ctx, id, path); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store listing image")
	}
	return nil
}

func (s *ListingService) audit(ctx context.Context, userID, action, listingID string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "listings",
		ResourceID: &listingID,
	}); err != nil {
		s.logger.Warn("failed to record listing audit log", zap.Error(err))
	}
}
