package analytics

import (
	"sort"
	"time"

	"courtside/models"
)

// topCustomersLimit caps the top-customers breakdown.
const topCustomersLimit = 10

// PeriodStart returns the beginning of the reporting window: one calendar
// day, week, month or year before now. Month and year subtraction is
// calendar-based, not a fixed multiple of 24 hours.
func PeriodStart(period models.AnalyticsPeriod, now time.Time) time.Time {
	switch period {
	case models.PeriodDay:
		return now.AddDate(0, 0, -1)
	case models.PeriodWeek:
		return now.AddDate(0, 0, -7)
	case models.PeriodMonth:
		return now.AddDate(0, -1, 0)
	case models.PeriodYear:
		return now.AddDate(-1, 0, 0)
	}
	return now
}

// countsRevenue reports whether a booking's price contributes to revenue
// figures. Only approved bookings do; everything else is counted but never
// summed.
func countsRevenue(s models.BookingStatus) bool {
	return s == models.StatusConfirmed || s == models.StatusCompleted
}

// Aggregate summarizes the given bookings into an operational report for one
// owner and period. It is a pure function: the caller supplies the booking
// set and the reference time, and the same inputs always produce the same
// report.
func Aggregate(bookings []models.Booking, ownerID string, period models.AnalyticsPeriod, now time.Time) models.AnalyticsReport {
	report := models.AnalyticsReport{
		OwnerID:     ownerID,
		Period:      period,
		PeriodStart: PeriodStart(period, now),
		GeneratedAt: now,
	}

	days := make(map[string]*models.DayStat)
	hours := make(map[int]*models.HourStat)
	venues := make(map[string]*models.VenueStat)
	customers := make(map[string]*models.CustomerStat)

	var revenueCount int
	for i := range bookings {
		b := &bookings[i]
		// Day and hour grouping uses the timestamp's own zone, which is the
		// venue's zone for court bookings.
		start := b.StartTime
		if start.Before(report.PeriodStart) || start.After(now) {
			continue
		}

		report.TotalBookings++
		switch b.Status {
		case models.StatusConfirmed, models.StatusCompleted:
			report.ConfirmedCount++
		case models.StatusRejected:
			report.RejectedCount++
		case models.StatusCancelled:
			report.CancelledCount++
		case models.StatusExpired:
			report.ExpiredCount++
		case models.StatusNoShow:
			report.NoShowCount++
		}

		revenue := 0.0
		if countsRevenue(b.Status) {
			revenue = b.TotalPrice
			report.TotalRevenue += revenue
			revenueCount++
		}

		dayKey := start.Format("2006-01-02")
		day := days[dayKey]
		if day == nil {
			day = &models.DayStat{Date: dayKey}
			days[dayKey] = day
		}
		day.Bookings++
		day.Revenue += revenue

		hour := hours[start.Hour()]
		if hour == nil {
			hour = &models.HourStat{Hour: start.Hour()}
			hours[start.Hour()] = hour
		}
		hour.Bookings++
		hour.Revenue += revenue

		venue := venues[b.VenueID]
		if venue == nil {
			venue = &models.VenueStat{VenueID: b.VenueID}
			venues[b.VenueID] = venue
		}
		venue.Bookings++
		venue.Revenue += revenue

		customer := customers[b.PayerID]
		if customer == nil {
			customer = &models.CustomerStat{PayerID: b.PayerID}
			customers[b.PayerID] = customer
		}
		customer.Bookings++
		customer.TotalSpend += revenue
	}

	if revenueCount > 0 {
		report.AverageBookingValue = report.TotalRevenue / float64(revenueCount)
	}
	// Zero denominator means zero, never NaN.
	if denom := report.ConfirmedCount + report.RejectedCount; denom > 0 {
		report.ConversionRate = float64(report.ConfirmedCount) / float64(denom)
	}

	report.RevenueByDay = sortedDays(days)
	report.BookingsByHour = sortedHours(hours)
	report.VenueBreakdown = sortedVenues(venues)
	report.TopCustomers = topCustomers(customers)

	// An empty collection yields no best venue or peak hour; the aggregator
	// never invents one.
	if len(report.VenueBreakdown) > 0 {
		best := report.VenueBreakdown[0]
		report.BestVenue = &best
	}
	if len(report.BookingsByHour) > 0 {
		peak := report.BookingsByHour[0]
		for _, h := range report.BookingsByHour[1:] {
			if h.Bookings > peak.Bookings {
				peak = h
			}
		}
		report.PeakHour = &peak
	}

	return report
}

func sortedDays(days map[string]*models.DayStat) []models.DayStat {
	out := make([]models.DayStat, 0, len(days))
	for _, d := range days {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func sortedHours(hours map[int]*models.HourStat) []models.HourStat {
	out := make([]models.HourStat, 0, len(hours))
	for _, h := range hours {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}

// sortedVenues orders venues by revenue descending, ties broken by venue id
// so the ordering is deterministic.
func sortedVenues(venues map[string]*models.VenueStat) []models.VenueStat {
	out := make([]models.VenueStat, 0, len(venues))
	for _, v := range venues {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].VenueID < out[j].VenueID
	})
	return out
}

// topCustomers orders payers by total spend descending, ties broken by payer
// id, truncated to the top ten.
func topCustomers(customers map[string]*models.CustomerStat) []models.CustomerStat {
	out := make([]models.CustomerStat, 0, len(customers))
	for _, c := range customers {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSpend != out[j].TotalSpend {
			return out[i].TotalSpend > out[j].TotalSpend
		}
		return out[i].PayerID < out[j].PayerID
	})
	if len(out) > topCustomersLimit {
		out = out[:topCustomersLimit]
	}
	return out
}
