package booking

import (
	"context"
	"testing"
	"time"

	bookingRepo "courtside/database/repository/booking"
	"courtside/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testStart() time.Time {
	return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T) (*Engine, *bookingRepo.MemoryBookingRepo, *VirtualClock) {
	t.Helper()
	repo := bookingRepo.NewMemoryBookingRepo()
	clock := NewVirtualClock(testStart())
	broker := NewBroker(zap.NewNop())
	engine := NewEngine(repo, clock, nil, broker, zap.NewNop(), Config{
		PaymentWindow: 30 * time.Minute,
		MaxCASRetries: 5,
	})
	return engine, repo, clock
}

func validInput() CreateBookingInput {
	return CreateBookingInput{
		CourtID:    "court-1",
		VenueID:    "venue-1",
		PayerID:    "payer-1",
		StartTime:  testStart().Add(2 * time.Hour),
		EndTime:    testStart().Add(3 * time.Hour),
		TotalPrice: 120,
	}
}

func TestCreateBookingStartsPendingWithDeadline(t *testing.T) {
	engine, _, clock := newTestEngine(t)

	b, err := engine.CreateBooking(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusPendingPayment, b.Status)
	assert.Equal(t, int64(1), b.Version)
	require.NotNil(t, b.ExpireAt)
	assert.Equal(t, clock.Now().Add(30*time.Minute), *b.ExpireAt)
	require.Len(t, b.StatusHistory, 1)
	assert.Equal(t, models.StatusPendingPayment, b.StatusHistory[0].Status)
}

func TestCreateBookingValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	in := validInput()
	in.CourtID = ""
	_, err := engine.CreateBooking(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	in = validInput()
	in.EndTime = in.StartTime
	_, err = engine.CreateBooking(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	in = validInput()
	in.TotalPrice = -1
	_, err = engine.CreateBooking(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	// Same court, interval shifted but still intersecting.
	in := validInput()
	in.StartTime = in.StartTime.Add(30 * time.Minute)
	in.EndTime = in.EndTime.Add(30 * time.Minute)
	_, err = engine.CreateBooking(ctx, in)
	assert.ErrorIs(t, err, ErrSlotConflict)

	// Different court is fine.
	in = validInput()
	in.CourtID = "court-2"
	_, err = engine.CreateBooking(ctx, in)
	assert.NoError(t, err)

	// Adjacent interval on the same court is fine: intervals are half-open.
	in = validInput()
	in.StartTime = validInput().EndTime
	in.EndTime = in.StartTime.Add(time.Hour)
	_, err = engine.CreateBooking(ctx, in)
	assert.NoError(t, err)
}

func TestHappyPathToCompleted(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	b, err := engine.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	b, err = engine.UploadPaymentProof(ctx, b.ID, "https://proofs.example/p.jpg")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentUploaded, b.Status)
	assert.Nil(t, b.ExpireAt)
	assert.Equal(t, "https://proofs.example/p.jpg", b.PaymentProofURL)
	require.NotNil(t, b.PaymentProofUploadedAt)

	b, err = engine.AcceptBooking(ctx, b.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, b.Status)

	b, err = engine.MarkCompleted(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, b.Status)
	assert.Equal(t, int64(4), b.Version)
	require.Len(t, b.StatusHistory, 4)
}

func TestRejectRecordsReason(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()

	b, err := engine.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	_, err = engine.UploadPaymentProof(ctx, b.ID, "https://proofs.example/p.jpg")
	require.NoError(t, err)

	_, err = engine.RejectBooking(ctx, b.ID, "owner-1", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	rejected, err := engine.RejectBooking(ctx, b.ID, "owner-1", "amount does not match")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "amount does not match", rejected.RejectionReason)

	stored, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "amount does not match", stored.RejectionReason)
}

func TestExpiryFiresAtDeadline(t *testing.T) {
	engine, repo, clock := newTestEngine(t)
	ctx := context.Background()

	b, err := engine.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	clock.Advance(29 * time.Minute)
	stored, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingPayment, stored.Status)

	clock.Advance(time.Minute)
	stored, err = repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, stored.Status)
	assert.Nil(t, stored.ExpireAt)
}

func TestUploadDischargesExpiryTimer(t *testing.T) {
	engine, repo, clock := newTestEngine(t)
	ctx := context.Background()

	b, err := engine.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	_, err = engine.UploadPaymentProof(ctx, b.ID, "https://proofs.example/p.jpg")
	require.NoError(t, err)

	// The deadline passing must not touch a booking that already left
	// PENDING_PAYMENT.
	clock.Advance(time.Hour)
	stored, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentUploaded, stored.Status)
}

func TestUploadAfterDeadlineIsWindowExpired(t *testing.T) {
	engine, repo, clock := newTestEngine(t)
	ctx := context.Background()

	// A pending booking whose deadline already passed but whose expiry has not
	// been processed yet.
	deadline := clock.Now()
	b := &models.Booking{
		ID:        "stale-1",
		CourtID:   "court-9",
		VenueID:   "venue-9",
		PayerID:   "payer-9",
		StartTime: clock.Now().Add(time.Hour),
		EndTime:   clock.Now().Add(2 * time.Hour),
		ExpireAt:  &deadline,
		Version:   1,
		CreatedAt: clock.Now().Add(-time.Hour),
	}
	b.SetStatus(models.StatusPendingPayment, b.CreatedAt)
	require.NoError(t, repo.Insert(ctx, b))

	_, err := engine.UploadPaymentProof(ctx, "stale-1", "https://proofs.example/p.jpg")
	assert.ErrorIs(t, err, ErrWindowExpired)
}

func TestUploadAfterExpiryIsInvalidTransition(t *testing.T) {
	engine, _, clock := newTestEngine(t)
	ctx := context.Background()

	b, err := engine.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	clock.Advance(31 * time.Minute)

	_, err = engine.UploadPaymentProof(ctx, b.ID, "https://proofs.example/p.jpg")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestExpiryAfterCancelIsNoop(t *testing.T) {
	engine, repo, clock := newTestEngine(t)
	ctx := context.Background()

	b, err := engine.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	_, err = engine.CancelBooking(ctx, b.ID, "payer-1")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	stored, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Equal(t, int64(2), stored.Version)
}

func TestCancelFromPendingAndUploaded(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	b, err := engine.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	cancelled, err := engine.CancelBooking(ctx, b.ID, "payer-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.ExpireAt)

	// Cancelling a confirmed booking is outside the engine's state table.
	in := validInput()
	in.CourtID = "court-2"
	b2, err := engine.CreateBooking(ctx, in)
	require.NoError(t, err)
	_, err = engine.UploadPaymentProof(ctx, b2.ID, "https://proofs.example/p.jpg")
	require.NoError(t, err)
	_, err = engine.AcceptBooking(ctx, b2.ID, "owner-1")
	require.NoError(t, err)
	_, err = engine.CancelBooking(ctx, b2.ID, "payer-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestInvalidTransitionsRejected(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	b, err := engine.CreateBooking(ctx, validInput())
	require.NoError(t, err)

	// Accept straight from PENDING_PAYMENT skips the proof step.
	_, err = engine.AcceptBooking(ctx, b.ID, "owner-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = engine.MarkCompleted(ctx, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = engine.MarkNoShow(ctx, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUnknownBookingIsNotFound(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.AcceptBooking(context.Background(), "no-such-id", "owner-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

// contestedStore makes every CompareAndSwap lose, as if a rival writer always
// got there first.
type contestedStore struct {
	bookingRepo.BookingStore
}

func (s *contestedStore) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, updated *models.Booking) (*models.Booking, error) {
	return nil, bookingRepo.ErrVersionConflict
}

func TestTransitionGivesUpAfterRetryBudget(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	clock := NewVirtualClock(testStart())
	engine := NewEngine(&contestedStore{BookingStore: repo}, clock, nil, nil, zap.NewNop(), Config{
		PaymentWindow: 30 * time.Minute,
		MaxCASRetries: 3,
	})

	b, err := engine.CreateBooking(context.Background(), validInput())
	require.NoError(t, err)

	_, err = engine.UploadPaymentProof(context.Background(), b.ID, "https://proofs.example/p.jpg")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestExpireAtPresentOnlyWhilePending(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()

	b, err := engine.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	require.NotNil(t, b.ExpireAt)

	_, err = engine.UploadPaymentProof(ctx, b.ID, "https://proofs.example/p.jpg")
	require.NoError(t, err)

	for _, step := range []func() (*models.Booking, error){
		func() (*models.Booking, error) { return engine.AcceptBooking(ctx, b.ID, "owner-1") },
		func() (*models.Booking, error) { return engine.MarkCompleted(ctx, b.ID) },
	} {
		updated, err := step()
		require.NoError(t, err)
		assert.Nil(t, updated.ExpireAt)
	}

	stored, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ExpireAt)
}

func TestRecoverPendingTimers(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	clock := NewVirtualClock(testStart())
	ctx := context.Background()

	overdue := clock.Now().Add(-time.Minute)
	live := clock.Now().Add(10 * time.Minute)
	for _, fixture := range []struct {
		id       string
		expireAt time.Time
	}{
		{"overdue-1", overdue},
		{"live-1", live},
	} {
		b := &models.Booking{
			ID:        fixture.id,
			CourtID:   "court-" + fixture.id,
			VenueID:   "venue-1",
			PayerID:   "payer-1",
			StartTime: clock.Now().Add(time.Hour),
			EndTime:   clock.Now().Add(2 * time.Hour),
			ExpireAt:  &fixture.expireAt,
			Version:   1,
			CreatedAt: clock.Now().Add(-time.Hour),
		}
		b.SetStatus(models.StatusPendingPayment, b.CreatedAt)
		require.NoError(t, repo.Insert(ctx, b))
	}

	engine := NewEngine(repo, clock, nil, nil, zap.NewNop(), Config{
		PaymentWindow: 30 * time.Minute,
		MaxCASRetries: 5,
	})
	require.NoError(t, engine.RecoverPendingTimers(ctx))

	// The overdue booking expires immediately.
	stored, err := repo.Get(ctx, "overdue-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, stored.Status)

	// The live one keeps its original deadline, not a fresh full window.
	stored, err = repo.Get(ctx, "live-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingPayment, stored.Status)

	clock.Advance(10 * time.Minute)
	stored, err = repo.Get(ctx, "live-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, stored.Status)
}

func TestRemainingPaymentWindow(t *testing.T) {
	engine, _, clock := newTestEngine(t)
	ctx := context.Background()

	b, err := engine.CreateBooking(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, RemainingPaymentWindow(b, clock.Now()))
	assert.Equal(t, 10*time.Minute, RemainingPaymentWindow(b, clock.Now().Add(20*time.Minute)))
	assert.Equal(t, time.Duration(0), RemainingPaymentWindow(b, clock.Now().Add(time.Hour)))

	uploaded, err := engine.UploadPaymentProof(ctx, b.ID, "https://proofs.example/p.jpg")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), RemainingPaymentWindow(uploaded, clock.Now()))
}
