package bookingRepo

import (
	"context"
	"errors"
	"time"

	"courtside/models"
)

var (
	// ErrNotFound is returned when no booking exists for the given id.
	ErrNotFound = errors.New("booking not found")
	// ErrVersionConflict is returned when a CompareAndSwap loses the race.
	ErrVersionConflict = errors.New("booking version conflict")
	// ErrSlotConflict is returned when an insert would overlap a live booking
	// on the same court.
	ErrSlotConflict = errors.New("slot already booked")
)

// BookingStore is the durable keyed storage the lifecycle engine writes
// through. Every mutation after insert goes through CompareAndSwap; the store
// owns the authoritative overlap index for courts.
type BookingStore interface {
	// Insert persists a new booking, atomically checking that no
	// non-terminal booking overlaps the same court and interval.
	// Returns ErrSlotConflict on overlap.
	Insert(ctx context.Context, b *models.Booking) error

	// Get returns the booking with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Booking, error)

	// CompareAndSwap replaces the stored record only if its version still
	// equals expectedVersion, and returns the stored result. Returns
	// ErrVersionConflict when a concurrent writer won, ErrNotFound when the
	// id is unknown.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, updated *models.Booking) (*models.Booking, error)

	// ListPending returns all bookings in PENDING_PAYMENT whose payment
	// window expires before the given cutoff. Used at startup recovery.
	ListPending(ctx context.Context, before time.Time) ([]models.Booking, error)

	// ListByPayer returns the payer's bookings, newest first.
	ListByPayer(ctx context.Context, payerID string) ([]models.Booking, error)

	// ListByVenue returns the venue's bookings, newest first.
	ListByVenue(ctx context.Context, venueID string) ([]models.Booking, error)
}
