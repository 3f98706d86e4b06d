package bookingRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"courtside/models"
)

// MemoryBookingRepo is an in-memory BookingStore with the same CAS semantics
// as the Mongo implementation. It backs the engine tests and is usable as a
// single-process store in development.
type MemoryBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func NewMemoryBookingRepo() *MemoryBookingRepo {
	return &MemoryBookingRepo{bookings: make(map[string]*models.Booking)}
}

func (r *MemoryBookingRepo) Insert(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bookings {
		if existing.CourtID != b.CourtID || existing.Status.Terminal() {
			continue
		}
		if existing.Overlaps(b.StartTime, b.EndTime) {
			return ErrSlotConflict
		}
	}
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *MemoryBookingRepo) Get(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b.Clone(), nil
}

func (r *MemoryBookingRepo) CompareAndSwap(_ context.Context, id string, expectedVersion int64, updated *models.Booking) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	r.bookings[id] = updated.Clone()
	return updated.Clone(), nil
}

func (r *MemoryBookingRepo) ListPending(_ context.Context, before time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status == models.StatusPendingPayment && b.ExpireAt != nil && b.ExpireAt.Before(before) {
			out = append(out, *b.Clone())
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

func (r *MemoryBookingRepo) ListByPayer(_ context.Context, payerID string) ([]models.Booking, error) {
	return r.listWhere(func(b *models.Booking) bool { return b.PayerID == payerID })
}

func (r *MemoryBookingRepo) ListByVenue(_ context.Context, venueID string) ([]models.Booking, error) {
	return r.listWhere(func(b *models.Booking) bool { return b.VenueID == venueID })
}

func (r *MemoryBookingRepo) listWhere(match func(*models.Booking) bool) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Booking
	for _, b := range r.bookings {
		if match(b) {
			out = append(out, *b.Clone())
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

func sortByCreatedDesc(bookings []models.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
}
