package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bookingRepo "courtside/database/repository/booking"
	"courtside/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AnalyticsService produces reports for venue owners.
type AnalyticsService interface {
	VenueReport(ctx context.Context, venueID string, period models.AnalyticsPeriod) (*models.AnalyticsReport, error)
}

// DefaultAnalyticsService reads the venue's resolved bookings from the store
// and aggregates on demand. Reports are cached briefly in Redis as an
// optimization; the cache is never a source of truth.
type DefaultAnalyticsService struct {
	Store    bookingRepo.BookingStore
	Cache    *redis.Client
	CacheTTL time.Duration
	Logger   *zap.Logger
}

func (s *DefaultAnalyticsService) VenueReport(ctx context.Context, venueID string, period models.AnalyticsPeriod) (*models.AnalyticsReport, error) {
	if venueID == "" {
		return nil, fmt.Errorf("venue id is required")
	}
	if !period.Valid() {
		return nil, fmt.Errorf("unknown reporting period %q", period)
	}

	cacheKey := fmt.Sprintf("analytics:%s:%s", venueID, period)
	if s.Cache != nil {
		if data, err := s.Cache.Get(ctx, cacheKey).Result(); err == nil {
			var cached models.AnalyticsReport
			if err := json.Unmarshal([]byte(data), &cached); err == nil {
				return &cached, nil
			}
			s.Logger.Warn("discarding malformed cached report", zap.String("venueId", venueID))
		}
	}

	bookings, err := s.Store.ListByVenue(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("load venue bookings: %w", err)
	}

	report := Aggregate(bookings, venueID, period, time.Now())

	if s.Cache != nil {
		if data, err := json.Marshal(report); err == nil {
			if err := s.Cache.Set(ctx, cacheKey, data, s.CacheTTL).Err(); err != nil {
				s.Logger.Warn("failed to cache analytics report", zap.Error(err))
			}
		}
	}

	return &report, nil
}
