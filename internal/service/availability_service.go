package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sparkaj/sparkaj-api/internal/calendar"
	"github.com/sparkaj/sparkaj-api/internal/models"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
)

type availabilityListingRepository interface {
	FindByID(ctx context.Context, id string) (*models.ListingDetail, error)
}

type availabilityReservationRepository interface {
	ListIntervals(ctx context.Context, listingID string, from, to time.Time) ([]models.ReservationInterval, error)
}

type availabilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AvailabilityService projects committed reservations onto the weekly
// hour grid served to calendar clients.
type AvailabilityService struct {
	listings     availabilityListingRepository
	reservations availabilityReservationRepository
	cache        availabilityCache
	logger       *zap.Logger
	cacheTTL     time.Duration
	now          func() time.Time
}

// NewAvailabilityService constructs an AvailabilityService instance.
func NewAvailabilityService(listings availabilityListingRepository, reservations availabilityReservationRepository, cache availabilityCache, logger *zap.Logger, cacheTTL time.Duration) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &AvailabilityService{
		listings:     listings,
		reservations: reservations,
		cache:        cache,
		logger:       logger,
		cacheTTL:     cacheTTL,
		now:          time.Now,
	}
}

func calendarCacheKey(listingID string, weekStart time.Time) string {
	return fmt.Sprintf("calendar:%s:%s", listingID, weekStart.Format("2006-01-02"))
}

// Week returns the Monday-through-Sunday grid for the week containing the
// anchor instant. Any instant inside the week yields the same grid.
func (s *AvailabilityService) Week(ctx context.Context, listingID string, anchor time.Time) (*models.CalendarWeek, error) {
	if _, err := s.listings.FindByID(ctx, listingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}

	week := calendar.WeekOf(anchor)
	key := calendarCacheKey(listingID, week.Start)

	if s.cache != nil {
		var cached models.CalendarWeek
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("calendar cache read failed", zap.Error(err), zap.String("key", key))
		}
	}

	intervals, err := s.reservations.ListIntervals(ctx, listingID, week.Start, week.End())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservations")
	}

	grid := calendar.BuildGrid(week, toIntervals(intervals), s.now())
	payload := gridToWeek(listingID, grid)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
			s.logger.Warn("calendar cache write failed", zap.Error(err), zap.String("key", key))
		}
	}
	return payload, nil
}

// Invalidate drops every cached week for the listing. Called after a
// checkout commits new reservations.
func (s *AvailabilityService) Invalidate(ctx context.Context, listingID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "calendar:"+listingID+":*"); err != nil {
		s.logger.Warn("calendar cache invalidation failed", zap.Error(err), zap.String("listing_id", listingID))
	}
}

// Reserved returns the raw reservation intervals overlapping the window.
func (s *AvailabilityService) Reserved(ctx context.Context, listingID string, from, to time.Time) ([]calendar.Interval, error) {
	intervals, err := s.reservations.ListIntervals(ctx, listingID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservations")
	}
	return toIntervals(intervals), nil
}

func toIntervals(rows []models.ReservationInterval) []calendar.Interval {
	intervals := make([]calendar.Interval, len(rows))
	for i, row := range rows {
		intervals[i] = calendar.Interval{Start: row.StartTime, End: row.EndTime}
	}
	return intervals
}

func gridToWeek(listingID string, grid calendar.Grid) *models.CalendarWeek {
	week := &models.CalendarWeek{
		ListingID: listingID,
		WeekStart: grid.WeekStart.Format("2006-01-02"),
		WeekEnd:   grid.WeekEnd.Format("2006-01-02"),
		Days:      make([]models.CalendarDay, len(grid.Days)),
	}
	for i, day := range grid.Days {
		hours := make([]models.SlotState, len(day.Hours))
		for h, status := range day.Hours {
			switch status {
			case calendar.StatusReserved:
				hours[h] = models.SlotStateReserved
			case calendar.StatusPast:
				hours[h] = models.SlotStatePast
			default:
				hours[h] = models.SlotStateAvailable
			}
		}
		week.Days[i] = models.CalendarDay{Date: day.Date.Format("2006-01-02"), Hours: hours}
	}
	return week
}
