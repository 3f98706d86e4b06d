package booking

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RecoverPendingTimers restores the expiry obligation after a process
// restart: bookings whose window already elapsed are expired immediately,
// the rest get their timers re-armed for the remaining duration.
func (e *Engine) RecoverPendingTimers(ctx context.Context) error {
	now := e.clock.Now()

	// Every live pending booking was created with the configured window, so
	// its deadline lies before now + window.
	pending, err := e.store.ListPending(ctx, now.Add(e.paymentWindow))
	if err != nil {
		return fmt.Errorf("list pending bookings: %w", err)
	}

	var expired, rearmed int
	for _, b := range pending {
		if b.ExpireAt == nil {
			// Should be unrepresentable; log it rather than trust the record.
			e.logger.Error("pending booking without expiry deadline", zap.String("bookingId", b.ID))
			continue
		}
		if !b.ExpireAt.After(now) {
			if err := e.ExpirePaymentWindow(ctx, b.ID); err != nil {
				e.logger.Warn("failed to expire overdue booking at startup",
					zap.String("bookingId", b.ID),
					zap.Error(err))
				continue
			}
			expired++
			continue
		}
		e.armTimer(b.ID, b.ExpireAt.Sub(now))
		rearmed++
	}

	e.logger.Info("recovered pending payment timers",
		zap.Int("expired", expired),
		zap.Int("rearmed", rearmed))
	return nil
}
