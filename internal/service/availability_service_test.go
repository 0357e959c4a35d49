package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparkaj/sparkaj-api/internal/models"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
)

type fakeAvailabilityCache struct {
	entries  map[string][]byte
	getCalls int
	setCalls int
	patterns []string
}

func newFakeAvailabilityCache() *fakeAvailabilityCache {
	return &fakeAvailabilityCache{entries: make(map[string][]byte)}
}

func (f *fakeAvailabilityCache) Get(ctx context.Context, key string, dest interface{}) error {
	f.getCalls++
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeAvailabilityCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.setCalls++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeAvailabilityCache) DeleteByPattern(ctx context.Context, pattern string) error {
	f.patterns = append(f.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}

type fakeAvailabilityReservations struct {
	intervals []models.ReservationInterval
	calls     int
}

func (f *fakeAvailabilityReservations) ListIntervals(ctx context.Context, listingID string, from, to time.Time) ([]models.ReservationInterval, error) {
	f.calls++
	return f.intervals, nil
}

func newAvailabilityFixture(reservations *fakeAvailabilityReservations, cache availabilityCache) *AvailabilityService {
	listing := &models.ListingDetail{Listing: models.Listing{ID: testListingID, Active: true}}
	svc := NewAvailabilityService(&fakeCheckoutListingRepo{listing: listing}, reservations, cache, zap.NewNop(), time.Minute)
	svc.now = func() time.Time { return time.Date(2024, 6, 5, 10, 30, 0, 0, time.UTC) }
	return svc
}

func TestAvailabilityWeekGridStatuses(t *testing.T) {
	reservations := &fakeAvailabilityReservations{intervals: []models.ReservationInterval{{
		StartTime: time.Date(2024, 6, 6, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 6, 6, 16, 0, 0, 0, time.UTC),
	}}}
	svc := newAvailabilityFixture(reservations, nil)

	week, err := svc.Week(context.Background(), testListingID, time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "2024-06-03", week.WeekStart)
	assert.Equal(t, "2024-06-09", week.WeekEnd)
	require.Len(t, week.Days, 7)

	monday := week.Days[0]
	assert.Equal(t, "2024-06-03", monday.Date)
	assert.Equal(t, models.SlotStatePast, monday.Hours[23])

	wednesday := week.Days[2]
	assert.Equal(t, models.SlotStatePast, wednesday.Hours[9])
	assert.Equal(t, models.SlotStateAvailable, wednesday.Hours[11])

	thursday := week.Days[3]
	assert.Equal(t, models.SlotStateAvailable, thursday.Hours[13])
	assert.Equal(t, models.SlotStateReserved, thursday.Hours[14])
	assert.Equal(t, models.SlotStateReserved, thursday.Hours[15])
	assert.Equal(t, models.SlotStateAvailable, thursday.Hours[16])
}

func TestAvailabilityWeekUsesCache(t *testing.T) {
	reservations := &fakeAvailabilityReservations{}
	cache := newFakeAvailabilityCache()
	svc := newAvailabilityFixture(reservations, cache)
	anchor := time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)

	first, err := svc.Week(context.Background(), testListingID, anchor)
	require.NoError(t, err)
	assert.Equal(t, 1, reservations.calls)
	assert.Equal(t, 1, cache.setCalls)

	second, err := svc.Week(context.Background(), testListingID, anchor)
	require.NoError(t, err)
	assert.Equal(t, 1, reservations.calls)
	assert.Equal(t, first.WeekStart, second.WeekStart)
}

func TestAvailabilityWeekUnknownListing(t *testing.T) {
	svc := NewAvailabilityService(&fakeCheckoutListingRepo{}, &fakeAvailabilityReservations{}, nil, zap.NewNop(), time.Minute)

	_, err := svc.Week(context.Background(), "missing", time.Now())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAvailabilityInvalidate(t *testing.T) {
	cache := newFakeAvailabilityCache()
	cache.entries["calendar:"+testListingID+":2024-06-03"] = []byte("{}")
	svc := newAvailabilityFixture(&fakeAvailabilityReservations{}, cache)

	svc.Invalidate(context.Background(), testListingID)
	assert.Equal(t, []string{"calendar:" + testListingID + ":*"}, cache.patterns)
	assert.Empty(t, cache.entries)
}

func TestAvailabilityReserved(t *testing.T) {
	reservations := &fakeAvailabilityReservations{intervals: []models.ReservationInterval{{
		StartTime: time.Date(2024, 6, 6, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 6, 6, 16, 0, 0, 0, time.UTC),
	}}}
	svc := newAvailabilityFixture(reservations, nil)

	intervals, err := svc.Reserved(context.Background(), testListingID, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, intervals, 1)
	assert.Equal(t, time.Date(2024, 6, 6, 14, 0, 0, 0, time.UTC), intervals[0].Start)
}
