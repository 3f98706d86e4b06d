package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualClockAdvanceFiresInDeadlineOrder(t *testing.T) {
	clock := NewVirtualClock(testStart())

	var fired []string
	clock.After(20*time.Minute, func() { fired = append(fired, "b") })
	clock.After(10*time.Minute, func() { fired = append(fired, "a") })
	clock.After(30*time.Minute, func() { fired = append(fired, "c") })

	clock.Advance(25 * time.Minute)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, testStart().Add(25*time.Minute), clock.Now())

	clock.Advance(5 * time.Minute)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
}

func TestVirtualClockCancel(t *testing.T) {
	clock := NewVirtualClock(testStart())

	fired := false
	handle := clock.After(time.Minute, func() { fired = true })
	clock.Cancel(handle)
	clock.Advance(time.Hour)
	assert.False(t, fired)

	// Cancelling twice is a no-op.
	clock.Cancel(handle)
}

func TestVirtualClockCallbackMaySchedule(t *testing.T) {
	clock := NewVirtualClock(testStart())

	var fired []string
	clock.After(10*time.Minute, func() {
		fired = append(fired, "outer")
		clock.After(5*time.Minute, func() { fired = append(fired, "inner") })
	})

	// The nested timer's deadline (t+15m) still falls inside this advance, so
	// it fires in the same call.
	clock.Advance(20 * time.Minute)
	assert.Equal(t, []string{"outer", "inner"}, fired)
}

func TestVirtualClockNowDuringCallback(t *testing.T) {
	clock := NewVirtualClock(testStart())

	var seen time.Time
	clock.After(10*time.Minute, func() { seen = clock.Now() })
	clock.Advance(time.Hour)

	// The callback observes its own deadline, not the advance target.
	require.Equal(t, testStart().Add(10*time.Minute), seen)
	assert.Equal(t, testStart().Add(time.Hour), clock.Now())
}

func TestRealClockFiresAndCancels(t *testing.T) {
	clock := NewRealClock()

	fired := make(chan struct{})
	clock.After(5*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	cancelled := make(chan struct{})
	handle := clock.After(50*time.Millisecond, func() { close(cancelled) })
	clock.Cancel(handle)
	select {
	case <-cancelled:
		t.Fatal("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}
