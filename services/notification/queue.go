package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"courtside/models"

	"github.com/hibiken/asynq"
)

// TypeBookingNotify is the asynq task type for queued booking notifications.
const TypeBookingNotify = "notify:booking"

// BookingNotifyPayload is the task body carried through the queue.
type BookingNotifyPayload struct {
	UserID string              `json:"userId"`
	Event  models.BookingEvent `json:"event"`
}

// NewBookingNotifyTask builds the asynq task for one notification.
func NewBookingNotifyTask(userID string, event models.BookingEvent) (*asynq.Task, error) {
	payload, err := json.Marshal(BookingNotifyPayload{UserID: userID, Event: event})
	if err != nil {
		return nil, fmt.Errorf("marshal notify payload: %w", err)
	}
	return asynq.NewTask(TypeBookingNotify, payload), nil
}

// QueueSink hands booking events to the asynq queue instead of delivering
// inline. The worker retries delivery, so a transient FCM outage does not
// lose notifications.
type QueueSink struct {
	Client *asynq.Client
}

func NewQueueSink(client *asynq.Client) *QueueSink {
	return &QueueSink{Client: client}
}

func (s *QueueSink) Notify(ctx context.Context, userID string, event models.BookingEvent) error {
	task, err := NewBookingNotifyTask(userID, event)
	if err != nil {
		return err
	}
	if _, err := s.Client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue booking notification: %w", err)
	}
	return nil
}
