package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingRepo "courtside/database/repository/booking"
	"courtside/models"
	"courtside/services/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// allowedTransitions is the state table the engine validates against. A
// status missing from the map accepts no transitions at all.
var allowedTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.StatusPendingPayment:  {models.StatusPaymentUploaded, models.StatusExpired, models.StatusCancelled},
	models.StatusPaymentUploaded: {models.StatusConfirmed, models.StatusRejected, models.StatusCancelled},
	models.StatusConfirmed:       {models.StatusCompleted, models.StatusNoShow},
}

func transitionAllowed(from, to models.BookingStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Config carries the engine's policy knobs. The payment window is always a
// configuration input, never a constant.
type Config struct {
	PaymentWindow time.Duration
	MaxCASRetries int
}

// CreateBookingInput is the caller-supplied part of a new booking.
type CreateBookingInput struct {
	CourtID    string    `json:"courtId"`
	VenueID    string    `json:"venueId"`
	PayerID    string    `json:"payerId"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	TotalPrice float64   `json:"totalPrice"`
}

// Engine is the booking lifecycle state machine. It owns the exclusive right
// to change a booking's status: every transition is validated against the
// state table and applied as a versioned compare-and-swap against the store,
// and every entry into PENDING_PAYMENT arms exactly one expiry timer.
type Engine struct {
	store  bookingRepo.BookingStore
	clock  Clock
	sink   notification.Sink
	broker *Broker
	logger *zap.Logger

	paymentWindow time.Duration
	maxRetries    int

	mu     sync.Mutex
	timers map[string]TimerHandle // bookingID -> pending expiry timer
}

// NewEngine assembles a lifecycle engine. The broker may be shared with a
// StatusWatcher so subscribers see every transition.
func NewEngine(store bookingRepo.BookingStore, clock Clock, sink notification.Sink, broker *Broker, logger *zap.Logger, cfg Config) *Engine {
	if cfg.MaxCASRetries <= 0 {
		cfg.MaxCASRetries = 5
	}
	return &Engine{
		store:         store,
		clock:         clock,
		sink:          sink,
		broker:        broker,
		logger:        logger,
		paymentWindow: cfg.PaymentWindow,
		maxRetries:    cfg.MaxCASRetries,
		timers:        make(map[string]TimerHandle),
	}
}

// CreateBooking validates the input, persists the booking in PENDING_PAYMENT
// with the payment window armed, and schedules the expiry callback. The
// overlap check and the insert run as one transactional unit inside the store.
func (e *Engine) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	if in.CourtID == "" || in.VenueID == "" || in.PayerID == "" {
		return nil, fmt.Errorf("court, venue and payer ids are required: %w", ErrInvalidArgument)
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, ErrInvalidInterval
	}
	if in.TotalPrice < 0 {
		return nil, fmt.Errorf("total price must not be negative: %w", ErrInvalidArgument)
	}

	now := e.clock.Now()
	expireAt := now.Add(e.paymentWindow)
	b := &models.Booking{
		ID:         uuid.New().String(),
		CourtID:    in.CourtID,
		VenueID:    in.VenueID,
		PayerID:    in.PayerID,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		TotalPrice: in.TotalPrice,
		ExpireAt:   &expireAt,
		Version:    1,
		CreatedAt:  now,
	}
	b.SetStatus(models.StatusPendingPayment, now)

	if err := e.store.Insert(ctx, b); err != nil {
		if errors.Is(err, bookingRepo.ErrSlotConflict) {
			return nil, fmt.Errorf("court %s is already booked for that interval: %w", in.CourtID, ErrSlotConflict)
		}
		return nil, fmt.Errorf("persist booking: %w", err)
	}

	e.armTimer(b.ID, e.paymentWindow)
	e.publish(b)

	e.logger.Info("booking created",
		zap.String("bookingId", b.ID),
		zap.String("courtId", b.CourtID),
		zap.Time("expireAt", expireAt))
	return b, nil
}

// UploadPaymentProof records the payer's proof of payment. It is valid only
// from PENDING_PAYMENT and only while the window is still open; the deadline
// is re-validated against the clock because the expiry timer and the upload
// can race.
func (e *Engine) UploadPaymentProof(ctx context.Context, bookingID, proofURL string) (*models.Booking, error) {
	if proofURL == "" {
		return nil, fmt.Errorf("proof url is required: %w", ErrInvalidArgument)
	}

	updated, err := e.transition(ctx, bookingID, func(b *models.Booking) error {
		if b.Status != models.StatusPendingPayment {
			return fmt.Errorf("cannot upload proof from %s: %w", b.Status, ErrInvalidTransition)
		}
		now := e.clock.Now()
		if b.ExpireAt != nil && !now.Before(*b.ExpireAt) {
			return fmt.Errorf("payment window closed at %s: %w", b.ExpireAt.Format(time.RFC3339), ErrWindowExpired)
		}
		b.PaymentProofURL = proofURL
		uploadedAt := now
		b.PaymentProofUploadedAt = &uploadedAt
		b.ExpireAt = nil
		b.SetStatus(models.StatusPaymentUploaded, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.dischargeTimer(bookingID)
	e.publish(updated)
	e.notify(updated.VenueID, updated, "")

	e.logger.Info("payment proof uploaded", zap.String("bookingId", bookingID))
	return updated, nil
}

// AcceptBooking confirms a booking whose proof the owner approved.
func (e *Engine) AcceptBooking(ctx context.Context, bookingID, actorID string) (*models.Booking, error) {
	updated, err := e.applyStatus(ctx, bookingID, models.StatusConfirmed, func(b *models.Booking) {})
	if err != nil {
		return nil, err
	}

	e.publish(updated)
	e.notify(updated.PayerID, updated, "")

	e.logger.Info("booking accepted",
		zap.String("bookingId", bookingID),
		zap.String("actorId", actorID))
	return updated, nil
}

// RejectBooking declines an uploaded proof. The reason is mandatory and is
// recorded on the booking for the payer to see.
func (e *Engine) RejectBooking(ctx context.Context, bookingID, actorID, reason string) (*models.Booking, error) {
	if reason == "" {
		return nil, fmt.Errorf("rejection reason is required: %w", ErrInvalidArgument)
	}

	updated, err := e.applyStatus(ctx, bookingID, models.StatusRejected, func(b *models.Booking) {
		b.RejectionReason = reason
	})
	if err != nil {
		return nil, err
	}

	e.publish(updated)
	e.notify(updated.PayerID, updated, reason)

	e.logger.Info("booking rejected",
		zap.String("bookingId", bookingID),
		zap.String("actorId", actorID))
	return updated, nil
}

// CancelBooking cancels before confirmation. Cancelling a CONFIRMED booking
// is a refund workflow that lives outside the engine.
func (e *Engine) CancelBooking(ctx context.Context, bookingID, actorID string) (*models.Booking, error) {
	updated, err := e.applyStatus(ctx, bookingID, models.StatusCancelled, func(b *models.Booking) {
		b.ExpireAt = nil
	})
	if err != nil {
		return nil, err
	}

	e.dischargeTimer(bookingID)
	e.publish(updated)
	e.notify(updated.PayerID, updated, "")

	e.logger.Info("booking cancelled",
		zap.String("bookingId", bookingID),
		zap.String("actorId", actorID))
	return updated, nil
}

// MarkCompleted records that the confirmed session took place.
func (e *Engine) MarkCompleted(ctx context.Context, bookingID string) (*models.Booking, error) {
	updated, err := e.applyStatus(ctx, bookingID, models.StatusCompleted, func(b *models.Booking) {})
	if err != nil {
		return nil, err
	}
	e.publish(updated)
	return updated, nil
}

// MarkNoShow records that the payer never showed up for a confirmed session.
func (e *Engine) MarkNoShow(ctx context.Context, bookingID string) (*models.Booking, error) {
	updated, err := e.applyStatus(ctx, bookingID, models.StatusNoShow, func(b *models.Booking) {})
	if err != nil {
		return nil, err
	}
	e.publish(updated)
	return updated, nil
}

// ExpirePaymentWindow is invoked by the clock, never by a caller. A booking
// that already left PENDING_PAYMENT makes this a silent no-op: a late-firing
// timer is expected, not an error.
func (e *Engine) ExpirePaymentWindow(ctx context.Context, bookingID string) error {
	updated, err := e.transition(ctx, bookingID, func(b *models.Booking) error {
		if b.Status != models.StatusPendingPayment {
			return errNoop
		}
		b.ExpireAt = nil
		b.SetStatus(models.StatusExpired, e.clock.Now())
		return nil
	})
	if errors.Is(err, errNoop) {
		return nil
	}
	if err != nil {
		return err
	}

	e.dischargeTimer(bookingID)
	e.publish(updated)
	e.notify(updated.PayerID, updated, "")

	e.logger.Info("payment window expired", zap.String("bookingId", bookingID))
	return nil
}

// applyStatus runs the common case: a transition whose only validation is the
// state table, plus an extra mutation.
func (e *Engine) applyStatus(ctx context.Context, bookingID string, to models.BookingStatus, mutate func(*models.Booking)) (*models.Booking, error) {
	return e.transition(ctx, bookingID, func(b *models.Booking) error {
		if !transitionAllowed(b.Status, to) {
			return fmt.Errorf("cannot move %s from %s to %s: %w", b.ID, b.Status, to, ErrInvalidTransition)
		}
		mutate(b)
		b.SetStatus(to, e.clock.Now())
		return nil
	})
}

// transition runs one read-validate-write cycle against the store, retrying
// on version conflicts up to the configured budget. Whoever wins the CAS
// determines the outcome; the loser re-reads and re-validates, so a racing
// writer surfaces as ErrInvalidTransition rather than corrupted state.
func (e *Engine) transition(ctx context.Context, bookingID string, apply func(*models.Booking) error) (*models.Booking, error) {
	if bookingID == "" {
		return nil, fmt.Errorf("booking id is required: %w", ErrInvalidArgument)
	}

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		current, err := e.store.Get(ctx, bookingID)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrNotFound) {
				return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
			}
			return nil, fmt.Errorf("read booking %s: %w", bookingID, err)
		}

		next := current.Clone()
		if err := apply(next); err != nil {
			return nil, err
		}
		next.Version = current.Version + 1

		stored, err := e.store.CompareAndSwap(ctx, bookingID, current.Version, next)
		if err != nil {
			if errors.Is(err, bookingRepo.ErrVersionConflict) {
				continue
			}
			if errors.Is(err, bookingRepo.ErrNotFound) {
				return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
			}
			return nil, fmt.Errorf("write booking %s: %w", bookingID, err)
		}
		return stored, nil
	}

	return nil, fmt.Errorf("booking %s: %w", bookingID, ErrConflict)
}

// armTimer schedules the expiry callback for a booking entering
// PENDING_PAYMENT. Exactly one timer exists per pending booking.
func (e *Engine) armTimer(bookingID string, d time.Duration) {
	handle := e.clock.After(d, func() { e.fireExpiry(bookingID) })

	e.mu.Lock()
	e.timers[bookingID] = handle
	e.mu.Unlock()
}

// dischargeTimer cancels a pending expiry timer, if any. Safe to call when
// the timer already fired or was never armed.
func (e *Engine) dischargeTimer(bookingID string) {
	e.mu.Lock()
	handle, ok := e.timers[bookingID]
	delete(e.timers, bookingID)
	e.mu.Unlock()

	if ok {
		e.clock.Cancel(handle)
	}
}

// fireExpiry is the clock callback. Errors never propagate back to the clock:
// anything that goes wrong is logged and the timer obligation is considered
// discharged so the timer cannot leak.
func (e *Engine) fireExpiry(bookingID string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("expiry callback panicked",
				zap.String("bookingId", bookingID),
				zap.Any("panic", r))
		}
	}()

	e.mu.Lock()
	delete(e.timers, bookingID)
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.ExpirePaymentWindow(ctx, bookingID); err != nil {
		e.logger.Warn("failed to expire payment window",
			zap.String("bookingId", bookingID),
			zap.Error(err))
	}
}

// publish pushes the transition to the event broker for status watchers.
func (e *Engine) publish(b *models.Booking) {
	if e.broker == nil {
		return
	}
	e.broker.Publish(*b.Clone())
}

// notify delivers a user-facing event. Delivery is best effort: failures are
// logged and never turn into an engine error.
func (e *Engine) notify(userID string, b *models.Booking, reason string) {
	if e.sink == nil || userID == "" {
		return
	}
	event := models.BookingEvent{
		BookingID:  b.ID,
		VenueID:    b.VenueID,
		PayerID:    b.PayerID,
		Status:     b.Status,
		Reason:     reason,
		OccurredAt: b.UpdatedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.sink.Notify(ctx, userID, event); err != nil {
			e.logger.Warn("notification delivery failed",
				zap.String("bookingId", b.ID),
				zap.String("userId", userID),
				zap.Error(err))
		}
	}()
}
