package notification

import (
	"context"
	"fmt"

	"courtside/models"

	"firebase.google.com/go/v4/messaging"
)

// FCMSink delivers booking events as Firebase push notifications. It looks
// the recipient's device token up per event so token rotation needs no
// restart.
type FCMSink struct {
	Client *messaging.Client
	Tokens TokenStore
}

func NewFCMSink(client *messaging.Client, tokens TokenStore) *FCMSink {
	return &FCMSink{Client: client, Tokens: tokens}
}

// statusTitles maps each booking status to the push notification headline.
var statusTitles = map[models.BookingStatus]string{
	models.StatusPendingPayment:  "Booking received",
	models.StatusPaymentUploaded: "Payment proof received",
	models.StatusConfirmed:       "Booking confirmed 🎉",
	models.StatusRejected:        "Payment rejected",
	models.StatusExpired:         "Booking expired",
	models.StatusCancelled:       "Booking cancelled",
	models.StatusCompleted:       "Thanks for playing!",
	models.StatusNoShow:          "Missed booking",
}

func (s *FCMSink) Notify(ctx context.Context, userID string, event models.BookingEvent) error {
	token, err := s.Tokens.Token(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up device token for %s: %w", userID, err)
	}
	if token == "" {
		return fmt.Errorf("user %s has no registered device token", userID)
	}

	title := statusTitles[event.Status]
	if title == "" {
		title = "Booking update"
	}
	body := fmt.Sprintf("Booking %s is now %s", event.BookingID, event.Status)
	if event.Reason != "" {
		body = fmt.Sprintf("%s: %s", body, event.Reason)
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"bookingId": event.BookingID,
			"venueId":   event.VenueID,
			"status":    string(event.Status),
		},
	}

	if _, err := s.Client.Send(ctx, msg); err != nil {
		return fmt.Errorf("send FCM message to %s: %w", userID, err)
	}
	return nil
}
