package booking

import (
	"time"

	"courtside/models"
)

// RemainingPaymentWindow returns how long the payer still has to upload
// proof, as a pure function of the booking and the current time. Zero for
// anything not pending or already past its deadline; clients render their
// countdown from this instead of running their own timer logic.
func RemainingPaymentWindow(b *models.Booking, now time.Time) time.Duration {
	if b.Status != models.StatusPendingPayment || b.ExpireAt == nil {
		return 0
	}
	remaining := b.ExpireAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
