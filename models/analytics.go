package models

import "time"

// AnalyticsPeriod selects the reporting window for an analytics report.
type AnalyticsPeriod string

const (
	PeriodDay   AnalyticsPeriod = "DAY"
	PeriodWeek  AnalyticsPeriod = "WEEK"
	PeriodMonth AnalyticsPeriod = "MONTH"
	PeriodYear  AnalyticsPeriod = "YEAR"
)

// Valid reports whether p is one of the defined reporting periods.
func (p AnalyticsPeriod) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// DayStat aggregates bookings that started on one calendar day.
type DayStat struct {
	Date     string  `json:"date"` // "2006-01-02" in the booking's zone
	Bookings int     `json:"bookings"`
	Revenue  float64 `json:"revenue"`
}

// HourStat aggregates bookings that started in one hour of day.
type HourStat struct {
	Hour     int     `json:"hour"` // 0..23
	Bookings int     `json:"bookings"`
	Revenue  float64 `json:"revenue"`
}

// VenueStat aggregates bookings for one venue.
type VenueStat struct {
	VenueID  string  `json:"venueId"`
	Bookings int     `json:"bookings"`
	Revenue  float64 `json:"revenue"`
}

// CustomerStat aggregates bookings made by one payer.
type CustomerStat struct {
	PayerID    string  `json:"payerId"`
	Bookings   int     `json:"bookings"`
	TotalSpend float64 `json:"totalSpend"`
}

// AnalyticsReport is a derived value object, recomputed on demand for an
// (owner, period) pair and never persisted as a source of truth.
type AnalyticsReport struct {
	OwnerID     string          `json:"ownerId"`
	Period      AnalyticsPeriod `json:"period"`
	PeriodStart time.Time       `json:"periodStart"`
	GeneratedAt time.Time       `json:"generatedAt"`

	TotalBookings  int `json:"totalBookings"`
	ConfirmedCount int `json:"confirmedCount"` // CONFIRMED plus COMPLETED
	RejectedCount  int `json:"rejectedCount"`
	CancelledCount int `json:"cancelledCount"`
	ExpiredCount   int `json:"expiredCount"`
	NoShowCount    int `json:"noShowCount"`

	// Revenue figures cover CONFIRMED and COMPLETED bookings only.
	TotalRevenue        float64 `json:"totalRevenue"`
	AverageBookingValue float64 `json:"averageBookingValue"`
	ConversionRate      float64 `json:"conversionRate"`

	// Grouping keys with zero bookings are absent, not zero-filled.
	RevenueByDay   []DayStat      `json:"revenueByDay"`
	BookingsByHour []HourStat     `json:"bookingsByHour"`
	VenueBreakdown []VenueStat    `json:"venueBreakdown"`
	TopCustomers   []CustomerStat `json:"topCustomers"`

	// Nil when the filtered booking set is empty.
	BestVenue *VenueStat `json:"bestVenue,omitempty"`
	PeakHour  *HourStat  `json:"peakHour,omitempty"`
}
