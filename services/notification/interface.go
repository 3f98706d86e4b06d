package notification

import (
	"context"

	"courtside/models"
)

// Sink delivers user-facing booking events. Delivery is best effort: the
// engine logs failures and moves on, so implementations should be quick and
// must never panic.
type Sink interface {
	Notify(ctx context.Context, userID string, event models.BookingEvent) error
}

// TokenStore maps user ids to FCM device tokens.
type TokenStore interface {
	Token(ctx context.Context, userID string) (string, error)
	SetToken(ctx context.Context, userID, token string) error
}
