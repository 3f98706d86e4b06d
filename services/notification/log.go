package notification

import (
	"context"

	"courtside/models"

	"go.uber.org/zap"
)

// LogSink records booking events in the application log. It stands in for
// push delivery in development and tests.
type LogSink struct {
	Logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{Logger: logger}
}

func (s *LogSink) Notify(_ context.Context, userID string, event models.BookingEvent) error {
	s.Logger.Info("booking notification",
		zap.String("userId", userID),
		zap.String("bookingId", event.BookingID),
		zap.String("status", string(event.Status)),
		zap.String("reason", event.Reason))
	return nil
}
