package models

import "time"

// BookingStatus is the closed set of lifecycle states a booking can be in.
// Transitions between statuses are validated by the booking engine; nothing
// else is allowed to write the Status field.
type BookingStatus string

const (
	StatusPendingPayment  BookingStatus = "PENDING_PAYMENT"
	StatusPaymentUploaded BookingStatus = "PAYMENT_UPLOADED"
	StatusConfirmed       BookingStatus = "CONFIRMED"
	StatusRejected        BookingStatus = "REJECTED"
	StatusCancelled       BookingStatus = "CANCELLED"
	StatusExpired         BookingStatus = "EXPIRED"
	StatusCompleted       BookingStatus = "COMPLETED"
	StatusNoShow          BookingStatus = "NO_SHOW"
)

// Valid reports whether s is one of the defined booking statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPaymentUploaded, StatusConfirmed,
		StatusRejected, StatusCancelled, StatusExpired, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether no further payment-flow transition is possible.
// CONFIRMED is deliberately not terminal: it can still move to COMPLETED or
// NO_SHOW once the court session has happened.
func (s BookingStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusExpired, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// StatusChange is one entry of a booking's append-only status history.
type StatusChange struct {
	Status    BookingStatus `bson:"status" json:"status"`
	Timestamp time.Time     `bson:"timestamp" json:"timestamp"`
}

// Booking is the aggregate root of a court reservation. Identity, court,
// venue, payer, interval and price are immutable after creation; everything
// else is mutated only through engine-mediated transitions.
type Booking struct {
	ID         string  `bson:"id" json:"id"`
	CourtID    string  `bson:"court_id" json:"courtId"`
	VenueID    string  `bson:"venue_id" json:"venueId"`
	PayerID    string  `bson:"payer_id" json:"payerId"`
	TotalPrice float64 `bson:"total_price" json:"totalPrice"` // price at time of booking, never recomputed

	// Half-open interval [StartTime, EndTime); EndTime > StartTime.
	StartTime time.Time `bson:"start_time" json:"startTime"`
	EndTime   time.Time `bson:"end_time" json:"endTime"`

	Status        BookingStatus  `bson:"status" json:"status"`
	StatusHistory []StatusChange `bson:"status_history" json:"statusHistory"`

	// ExpireAt is non-nil iff Status == PENDING_PAYMENT.
	ExpireAt *time.Time `bson:"expire_at,omitempty" json:"expireAt,omitempty"`

	PaymentProofURL        string     `bson:"payment_proof_url,omitempty" json:"paymentProofUrl,omitempty"`
	PaymentProofUploadedAt *time.Time `bson:"payment_proof_uploaded_at,omitempty" json:"paymentProofUploadedAt,omitempty"`

	RejectionReason string `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`

	// Version backs optimistic-concurrency writes against the store.
	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// SetStatus moves the booking to the given status and appends the change to
// the history. It does not validate the transition; the engine does.
func (b *Booking) SetStatus(status BookingStatus, at time.Time) {
	b.Status = status
	b.StatusHistory = append(b.StatusHistory, StatusChange{Status: status, Timestamp: at})
	b.UpdatedAt = at
}

// Clone returns a deep copy so a retry loop can re-apply a transition against
// a fresh read without aliasing the previous attempt's slices.
func (b *Booking) Clone() *Booking {
	out := *b
	out.StatusHistory = make([]StatusChange, len(b.StatusHistory))
	copy(out.StatusHistory, b.StatusHistory)
	if b.ExpireAt != nil {
		t := *b.ExpireAt
		out.ExpireAt = &t
	}
	if b.PaymentProofUploadedAt != nil {
		t := *b.PaymentProofUploadedAt
		out.PaymentProofUploadedAt = &t
	}
	return &out
}

// Overlaps reports whether the booking's interval intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// BookingEvent is the payload published on every successful transition. It is
// what the status watcher streams and what the notification sink delivers.
type BookingEvent struct {
	BookingID  string        `json:"bookingId"`
	VenueID    string        `json:"venueId"`
	PayerID    string        `json:"payerId"`
	Status     BookingStatus `json:"status"`
	Reason     string        `json:"reason,omitempty"` // rejection reason, when applicable
	OccurredAt time.Time     `json:"occurredAt"`
}
