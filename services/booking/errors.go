package booking

import (
	"errors"
	"fmt"
)

// Engine error kinds. All of them are recoverable by the caller; the engine
// never treats one as a reason to crash. Callers classify with errors.Is.
var (
	// ErrInvalidArgument flags malformed input, e.g. an empty rejection
	// reason or a missing id.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidInterval flags a booking interval with endTime <= startTime.
	ErrInvalidInterval = fmt.Errorf("end time must be after start time: %w", ErrInvalidArgument)

	// ErrInvalidTransition flags an operation that is not legal from the
	// booking's current status.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrWindowExpired flags a proof upload after the payment window elapsed
	// even though the stored status had not flipped to EXPIRED yet.
	ErrWindowExpired = errors.New("payment window expired")

	// ErrSlotConflict flags an overlapping non-terminal booking on the same
	// court.
	ErrSlotConflict = errors.New("slot conflict")

	// ErrConflict is surfaced once the bounded CAS retry budget is exhausted.
	ErrConflict = errors.New("too many concurrent updates")

	// ErrNotFound flags an unknown booking id.
	ErrNotFound = errors.New("booking not found")
)

// errNoop is an internal signal: the transition found nothing to do and the
// operation should succeed silently (e.g. a late-firing expiry timer).
var errNoop = errors.New("no-op")
