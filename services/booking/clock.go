package booking

import (
	"sort"
	"sync"
	"time"
)

// TimerHandle identifies a scheduled callback so it can be cancelled.
type TimerHandle uint64

// Clock supplies current time and schedules callbacks after a delay. The
// engine only ever talks to time through this interface so tests can drive a
// virtual clock instead of sleeping.
type Clock interface {
	Now() time.Time
	// After invokes fn once the duration has elapsed and returns a handle
	// for cancellation. fn runs on its own goroutine.
	After(d time.Duration, fn func()) TimerHandle
	// Cancel stops a scheduled callback. Cancelling an already-fired or
	// already-cancelled handle is a no-op.
	Cancel(handle TimerHandle)
}

// realClock implements Clock over time.AfterFunc.
type realClock struct {
	mu     sync.Mutex
	next   TimerHandle
	timers map[TimerHandle]*time.Timer
}

// NewRealClock returns a Clock backed by the wall clock.
func NewRealClock() Clock {
	return &realClock{timers: make(map[TimerHandle]*time.Timer)}
}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func (c *realClock) After(d time.Duration, fn func()) TimerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next++
	handle := c.next
	c.timers[handle] = time.AfterFunc(d, func() {
		c.mu.Lock()
		delete(c.timers, handle)
		c.mu.Unlock()
		fn()
	})
	return handle
}

func (c *realClock) Cancel(handle TimerHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[handle]; ok {
		t.Stop()
		delete(c.timers, handle)
	}
}

type virtualTimer struct {
	handle TimerHandle
	due    time.Time
	fn     func()
}

// VirtualClock is a deterministic Clock for tests: time only moves when
// Advance is called, and due callbacks fire synchronously on the advancing
// goroutine in deadline order.
type VirtualClock struct {
	mu     sync.Mutex
	now    time.Time
	next   TimerHandle
	timers []*virtualTimer
}

func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) After(d time.Duration, fn func()) TimerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next++
	c.timers = append(c.timers, &virtualTimer{handle: c.next, due: c.now.Add(d), fn: fn})
	return c.next
}

func (c *VirtualClock) Cancel(handle TimerHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, t := range c.timers {
		if t.handle == handle {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

// Advance moves the virtual time forward and fires every callback that came
// due, in deadline order. Callbacks run without the clock lock held so they
// may schedule or cancel timers themselves.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].due.Before(c.timers[j].due) })

		var due *virtualTimer
		for i, t := range c.timers {
			if !t.due.After(target) {
				due = t
				c.timers = append(c.timers[:i], c.timers[i+1:]...)
				break
			}
		}
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if due.due.After(c.now) {
			c.now = due.due
		}
		c.mu.Unlock()

		due.fn()
	}
}
