package analytics

import (
	"testing"
	"time"

	"courtside/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportTime() time.Time {
	return time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
}

func venueBooking(id string, status models.BookingStatus, start time.Time, price float64) models.Booking {
	return models.Booking{
		ID:         id,
		CourtID:    "court-1",
		VenueID:    "venue-1",
		PayerID:    "payer-" + id,
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		TotalPrice: price,
		Status:     status,
	}
}

func TestAggregateCountsAndRevenue(t *testing.T) {
	now := reportTime()
	bookings := []models.Booking{
		venueBooking("1", models.StatusConfirmed, now.Add(-2*time.Hour), 100),
		venueBooking("2", models.StatusRejected, now.Add(-3*time.Hour), 80),
		venueBooking("3", models.StatusConfirmed, now.Add(-4*time.Hour), 150),
	}

	r := Aggregate(bookings, "venue-1", models.PeriodDay, now)

	assert.Equal(t, 3, r.TotalBookings)
	assert.Equal(t, 2, r.ConfirmedCount)
	assert.Equal(t, 1, r.RejectedCount)
	assert.Equal(t, 250.0, r.TotalRevenue)
	assert.Equal(t, 125.0, r.AverageBookingValue)
	assert.InDelta(t, 2.0/3.0, r.ConversionRate, 1e-9)
}

func TestAggregateEmptySet(t *testing.T) {
	r := Aggregate(nil, "venue-1", models.PeriodWeek, reportTime())

	assert.Equal(t, 0, r.TotalBookings)
	assert.Equal(t, 0.0, r.TotalRevenue)
	assert.Equal(t, 0.0, r.AverageBookingValue)
	assert.Equal(t, 0.0, r.ConversionRate)
	assert.Nil(t, r.BestVenue)
	assert.Nil(t, r.PeakHour)
	assert.Empty(t, r.RevenueByDay)
	assert.Empty(t, r.TopCustomers)
}

func TestAggregateFiltersByPeriod(t *testing.T) {
	now := reportTime()
	bookings := []models.Booking{
		venueBooking("in", models.StatusConfirmed, now.Add(-23*time.Hour), 100),
		venueBooking("before", models.StatusConfirmed, now.Add(-25*time.Hour), 100),
		venueBooking("future", models.StatusConfirmed, now.Add(time.Hour), 100),
	}

	r := Aggregate(bookings, "venue-1", models.PeriodDay, now)
	assert.Equal(t, 1, r.TotalBookings)

	// The same out-of-day booking falls inside the weekly window.
	r = Aggregate(bookings, "venue-1", models.PeriodWeek, now)
	assert.Equal(t, 2, r.TotalBookings)
}

func TestPeriodStartIsCalendarBased(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 30, 12, 0, 0, 0, time.UTC), PeriodStart(models.PeriodDay, now))
	assert.Equal(t, time.Date(2026, 3, 24, 12, 0, 0, 0, time.UTC), PeriodStart(models.PeriodWeek, now))
	// One month before March 31 normalizes past February's end.
	assert.Equal(t, time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC), PeriodStart(models.PeriodMonth, now))
	assert.Equal(t, time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC), PeriodStart(models.PeriodYear, now))
}

func TestOnlyApprovedBookingsEarnRevenue(t *testing.T) {
	now := reportTime()
	bookings := []models.Booking{
		venueBooking("1", models.StatusConfirmed, now.Add(-1*time.Hour), 100),
		venueBooking("2", models.StatusCompleted, now.Add(-2*time.Hour), 50),
		venueBooking("3", models.StatusCancelled, now.Add(-3*time.Hour), 999),
		venueBooking("4", models.StatusExpired, now.Add(-4*time.Hour), 999),
		venueBooking("5", models.StatusNoShow, now.Add(-5*time.Hour), 999),
		venueBooking("6", models.StatusPendingPayment, now.Add(-6*time.Hour), 999),
	}

	r := Aggregate(bookings, "venue-1", models.PeriodDay, now)

	assert.Equal(t, 6, r.TotalBookings)
	assert.Equal(t, 2, r.ConfirmedCount) // COMPLETED counts as converted
	assert.Equal(t, 1, r.CancelledCount)
	assert.Equal(t, 1, r.ExpiredCount)
	assert.Equal(t, 1, r.NoShowCount)
	assert.Equal(t, 150.0, r.TotalRevenue)
	assert.Equal(t, 75.0, r.AverageBookingValue)
}

func TestGroupingsAreSparseAndOrdered(t *testing.T) {
	now := reportTime()
	morning := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 13, 19, 0, 0, 0, time.UTC)
	bookings := []models.Booking{
		venueBooking("1", models.StatusConfirmed, morning, 100),
		venueBooking("2", models.StatusConfirmed, evening, 60),
		venueBooking("3", models.StatusConfirmed, evening.Add(30*time.Minute), 40),
	}

	r := Aggregate(bookings, "venue-1", models.PeriodWeek, now)

	require.Len(t, r.RevenueByDay, 2)
	assert.Equal(t, "2026-03-13", r.RevenueByDay[0].Date)
	assert.Equal(t, 100.0, r.RevenueByDay[0].Revenue)
	assert.Equal(t, "2026-03-14", r.RevenueByDay[1].Date)

	require.Len(t, r.BookingsByHour, 2)
	assert.Equal(t, 9, r.BookingsByHour[0].Hour)
	assert.Equal(t, 19, r.BookingsByHour[1].Hour)
	assert.Equal(t, 2, r.BookingsByHour[1].Bookings)

	require.NotNil(t, r.PeakHour)
	assert.Equal(t, 19, r.PeakHour.Hour)
}

func TestTopCustomersOrderedBySpend(t *testing.T) {
	now := reportTime()
	bookings := []models.Booking{
		venueBooking("1", models.StatusConfirmed, now.Add(-1*time.Hour), 100),
		venueBooking("2", models.StatusConfirmed, now.Add(-2*time.Hour), 300),
		venueBooking("3", models.StatusConfirmed, now.Add(-3*time.Hour), 100),
	}
	bookings[0].PayerID = "payer-b"
	bookings[1].PayerID = "payer-c"
	bookings[2].PayerID = "payer-a"

	r := Aggregate(bookings, "venue-1", models.PeriodDay, now)

	require.Len(t, r.TopCustomers, 3)
	assert.Equal(t, "payer-c", r.TopCustomers[0].PayerID)
	// Equal spend ties break on payer id.
	assert.Equal(t, "payer-a", r.TopCustomers[1].PayerID)
	assert.Equal(t, "payer-b", r.TopCustomers[2].PayerID)
}

func TestBestVenueTieBreaksOnID(t *testing.T) {
	now := reportTime()
	a := venueBooking("1", models.StatusConfirmed, now.Add(-1*time.Hour), 100)
	a.VenueID = "venue-b"
	b := venueBooking("2", models.StatusConfirmed, now.Add(-2*time.Hour), 100)
	b.VenueID = "venue-a"

	r := Aggregate([]models.Booking{a, b}, "owner-1", models.PeriodDay, now)

	require.NotNil(t, r.BestVenue)
	assert.Equal(t, "venue-a", r.BestVenue.VenueID)
	require.Len(t, r.VenueBreakdown, 2)
	assert.Equal(t, "venue-a", r.VenueBreakdown[0].VenueID)
}
