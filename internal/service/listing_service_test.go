package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparkaj/sparkaj-api/internal/models"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
)

type mockListingRepo struct {
	listings   map[string]*models.Listing
	lastFilter models.ListingFilter
	imagePaths map[string]string
}

func newMockListingRepo(listings ...*models.Listing) *mockListingRepo {
	m := &mockListingRepo{listings: make(map[string]*models.Listing), imagePaths: make(map[string]string)}
	for _, listing := range listings {
		m.listings[listing.ID] = listing
	}
	return m
}

func (m *mockListingRepo) List(ctx context.Context, filter models.ListingFilter) ([]models.ListingDetail, int, error) {
	m.lastFilter = filter
	var out []models.ListingDetail
	for _, listing := range m.listings {
		if filter.Active != nil && listing.Active != *filter.Active {
			continue
		}
		if filter.OwnerID != "" && listing.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, models.ListingDetail{Listing: *listing})
	}
	return out, len(out), nil
}

func (m *mockListingRepo) FindByID(ctx context.Context, id string) (*models.ListingDetail, error) {
	listing, ok := m.listings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.ListingDetail{Listing: *listing}, nil
}

func (m *mockListingRepo) Cities(ctx context.Context) ([]string, error) {
	return []string{"Split", "Zagreb"}, nil
}

func (m *mockListingRepo) Create(ctx context.Context, listing *models.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	m.listings[listing.ID] = listing
	return nil
}

func (m *mockListingRepo) Update(ctx context.Context, listing *models.Listing) error {
	m.listings[listing.ID] = listing
	return nil
}

func (m *mockListingRepo) Deactivate(ctx context.Context, id string) error {
	if listing, ok := m.listings[id]; ok {
		listing.Active = false
	}
	return nil
}

func (m *mockListingRepo) SetImagePath(ctx context.Context, id, path string) error {
	m.imagePaths[id] = path
	return nil
}

type mockListingAuditor struct {
	actions []string
}

func (m *mockListingAuditor) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.actions = append(m.actions, log.Action)
	return nil
}

func newListingService(repo *mockListingRepo) (*ListingService, *mockListingAuditor) {
	auditor := &mockListingAuditor{}
	return NewListingService(repo, auditor, validator.New(), zap.NewNop(), "eur"), auditor
}

func TestListingSearchOnlyActive(t *testing.T) {
	repo := newMockListingRepo(
		&models.Listing{ID: "l1", OwnerID: "o1", Active: true},
		&models.Listing{ID: "l2", OwnerID: "o1", Active: false},
	)
	svc, _ := newListingService(repo)

	listings, _, err := svc.Search(context.Background(), models.ListingFilter{})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "l1", listings[0].ID)
	require.NotNil(t, repo.lastFilter.Active)
	assert.True(t, *repo.lastFilter.Active)
}

func TestListingListOwnedIncludesInactive(t *testing.T) {
	repo := newMockListingRepo(
		&models.Listing{ID: "l1", OwnerID: "o1", Active: true},
		&models.Listing{ID: "l2", OwnerID: "o1", Active: false},
		&models.Listing{ID: "l3", OwnerID: "o2", Active: true},
	)
	svc, _ := newListingService(repo)

	listings, _, err := svc.ListOwned(context.Background(), "o1", models.ListingFilter{})
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestListingGetPublicHidesInactive(t *testing.T) {
	repo := newMockListingRepo(&models.Listing{ID: "l1", OwnerID: "o1", Active: false})
	svc, _ := newListingService(repo)

	_, err := svc.Get(context.Background(), "l1", "someone", models.ListingViewPublic)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	listing, err := svc.Get(context.Background(), "l1", "o1", models.ListingViewPublic)
	require.NoError(t, err)
	assert.Equal(t, "l1", listing.ID)
}

func TestListingGetOwnerViewRequiresOwnership(t *testing.T) {
	repo := newMockListingRepo(&models.Listing{ID: "l1", OwnerID: "o1", Active: true})
	svc, _ := newListingService(repo)

	_, err := svc.Get(context.Background(), "l1", "o2", models.ListingViewOwner)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestListingCreateDefaults(t *testing.T) {
	repo := newMockListingRepo()
	svc, auditor := newListingService(repo)

	listing, err := svc.Create(context.Background(), "o1", CreateListingRequest{
		Title:        "Covered spot, city center",
		City:         "Zagreb",
		Address:      "Ilica 1",
		PricePerHour: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, "eur", listing.Currency)
	assert.True(t, listing.Active)
	assert.Equal(t, "o1", listing.OwnerID)
	assert.Equal(t, []string{models.AuditActionListingCreate}, auditor.actions)
}

func TestListingCreateValidation(t *testing.T) {
	repo := newMockListingRepo()
	svc, _ := newListingService(repo)

	_, err := svc.Create(context.Background(), "o1", CreateListingRequest{Title: "No price", City: "Zagreb", Address: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestListingUpdate(t *testing.T) {
	repo := newMockListingRepo(&models.Listing{ID: "l1", OwnerID: "o1", Title: "Old", City: "Zagreb", Address: "Ilica 1", PricePerHour: 200, Currency: "eur", Active: true})
	svc, _ := newListingService(repo)

	inactive := false
	listing, err := svc.Update(context.Background(), "o1", "l1", UpdateListingRequest{
		Title:        "New title",
		City:         "Zagreb",
		Address:      "Ilica 1",
		PricePerHour: 250,
		Active:       &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "New title", listing.Title)
	assert.Equal(t, int64(250), listing.PricePerHour)
	assert.False(t, repo.listings["l1"].Active)
}

func TestListingDelete(t *testing.T) {
	repo := newMockListingRepo(&models.Listing{ID: "l1", OwnerID: "o1", Active: true})
	svc, _ := newListingService(repo)

	err := svc.Delete(context.Background(), "intruder", false, "l1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "admin", true, "l1"))
	assert.False(t, repo.listings["l1"].Active)
}

func TestListingSetImage(t *testing.T) {
	repo := newMockListingRepo(&models.Listing{ID: "l1", OwnerID: "o1", Active: true})
	svc, _ := newListingService(repo)

	require.NoError(t, svc.SetImage(context.Background(), "o1", "l1", "listings/l1.jpg"))
	assert.Equal(t, "listings/l1.jpg", repo.imagePaths["l1"])

	err := svc.SetImage(context.Background(), "o2", "l1", "listings/evil.jpg")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestListingCities(t *testing.T) {
	svc, _ := newListingService(newMockListingRepo())
	cities, err := svc.Cities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Split", "Zagreb"}, cities)
}
