package analytics

import (
	"context"
	"testing"
	"time"

	bookingRepo "courtside/database/repository/booking"
	"courtside/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVenueReportAggregatesStoreContents(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	ctx := context.Background()
	now := time.Now()

	b := venueBooking("1", models.StatusPendingPayment, now.Add(-2*time.Hour), 100)
	b.Version = 1
	b.CreatedAt = now.Add(-3 * time.Hour)
	require.NoError(t, repo.Insert(ctx, &b))

	confirmed := b.Clone()
	confirmed.SetStatus(models.StatusConfirmed, now.Add(-time.Hour))
	confirmed.Version = 2
	_, err := repo.CompareAndSwap(ctx, b.ID, 1, confirmed)
	require.NoError(t, err)

	svc := &DefaultAnalyticsService{Store: repo}
	report, err := svc.VenueReport(ctx, "venue-1", models.PeriodDay)
	require.NoError(t, err)

	assert.Equal(t, "venue-1", report.OwnerID)
	assert.Equal(t, 1, report.TotalBookings)
	assert.Equal(t, 1, report.ConfirmedCount)
	assert.Equal(t, 100.0, report.TotalRevenue)
}

func TestVenueReportValidation(t *testing.T) {
	svc := &DefaultAnalyticsService{Store: bookingRepo.NewMemoryBookingRepo()}

	_, err := svc.VenueReport(context.Background(), "", models.PeriodDay)
	assert.Error(t, err)

	_, err = svc.VenueReport(context.Background(), "venue-1", "QUARTER")
	assert.Error(t, err)
}
