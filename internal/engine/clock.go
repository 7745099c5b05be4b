package engine

import (
	"context"
	"time"
)

// TimerHandle identifies a scheduled callback. The zero value is never
// issued, so callers can use it as "no timer".
type TimerHandle uint64

type timer struct {
	handle    TimerHandle
	seq       uint64 // tie-break for equal deadlines: scheduling order
	fn        func()
	deadline  time.Time
	interval  time.Duration // zero for one-shots
	remaining time.Duration // valid while suspended
	suspended bool
}

// Clock is the only source of time-driven mutation in the engine. Every
// timer callback and every external Call runs on a single logical
// thread, so the state they touch needs no locking.
//
// Two drivers share one timer queue: NewWallClock plus Run for
// production, and NewManualClock plus Advance for deterministic tests.
type Clock struct {
	manual     bool
	now        time.Time // virtual time, manual mode only
	timers     map[TimerHandle]*timer
	nextHandle TimerHandle
	nextSeq    uint64
	calls      chan func()
}

// NewWallClock creates a clock driven by real time. Call Run in a
// goroutine to start the simulation thread.
func NewWallClock() *Clock {
	return &Clock{
		timers: make(map[TimerHandle]*timer),
		calls:  make(chan func(), 64),
	}
}

// NewManualClock creates a clock under test control. Time only moves
// when Advance is called, and Call executes inline.
func NewManualClock(start time.Time) *Clock {
	return &Clock{
		manual: true,
		now:    start,
		timers: make(map[TimerHandle]*timer),
	}
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	if c.manual {
		return c.now
	}
	return time.Now()
}

// Call runs fn on the simulation thread and waits for it to finish. It
// is the entry point for the presentation layer. Never call it from
// inside a timer callback; callbacks are already on the thread.
func (c *Clock) Call(fn func()) {
	if c.manual {
		fn()
		return
	}
	done := make(chan struct{})
	c.calls <- func() {
		fn()
		close(done)
	}
	<-done
}

// ScheduleOnce registers fn to fire once after delay. Simulation thread
// only.
func (c *Clock) ScheduleOnce(delay time.Duration, fn func()) TimerHandle {
	if delay < 0 {
		delay = 0
	}
	return c.add(c.Now().Add(delay), 0, fn)
}

// ScheduleRepeating registers fn to fire every interval. Simulation
// thread only.
func (c *Clock) ScheduleRepeating(interval time.Duration, fn func()) TimerHandle {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return c.add(c.Now().Add(interval), interval, fn)
}

func (c *Clock) add(deadline time.Time, interval time.Duration, fn func()) TimerHandle {
	c.nextHandle++
	c.nextSeq++
	t := &timer{
		handle:   c.nextHandle,
		seq:      c.nextSeq,
		fn:       fn,
		deadline: deadline,
		interval: interval,
	}
	c.timers[t.handle] = t
	return t.handle
}

// Cancel removes a timer. Cancelling an already-fired or unknown handle
// is a no-op.
func (c *Clock) Cancel(h TimerHandle) {
	delete(c.timers, h)
}

// CancelAll drops every outstanding timer.
func (c *Clock) CancelAll() {
	c.timers = make(map[TimerHandle]*timer)
}

// Suspend freezes a timer, recording how much of its delay is left.
func (c *Clock) Suspend(h TimerHandle) {
	t, ok := c.timers[h]
	if !ok || t.suspended {
		return
	}
	t.remaining = t.deadline.Sub(c.Now())
	if t.remaining < 0 {
		t.remaining = 0
	}
	t.suspended = true
}

// Resume re-arms a suspended timer with its remaining delay, so paused
// wall time never counts against it.
func (c *Clock) Resume(h TimerHandle) {
	t, ok := c.timers[h]
	if !ok || !t.suspended {
		return
	}
	t.deadline = c.Now().Add(t.remaining)
	t.suspended = false
}

// SuspendAll freezes every outstanding timer.
func (c *Clock) SuspendAll() {
	for h := range c.timers {
		c.Suspend(h)
	}
}

// ResumeAll re-arms every suspended timer.
func (c *Clock) ResumeAll() {
	for h := range c.timers {
		c.Resume(h)
	}
}

// PendingTimers reports how many timers are outstanding. A stopped
// session must report zero.
func (c *Clock) PendingTimers() int {
	return len(c.timers)
}

// earliest returns the armed timer with the smallest deadline,
// scheduling order breaking ties.
func (c *Clock) earliest() *timer {
	var best *timer
	for _, t := range c.timers {
		if t.suspended {
			continue
		}
		if best == nil || t.deadline.Before(best.deadline) ||
			(t.deadline.Equal(best.deadline) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

// fire pops and runs a single due timer. Repeating timers are re-armed
// from their previous deadline so long advances do not drift.
func (c *Clock) fire(t *timer) {
	if t.interval > 0 {
		t.deadline = t.deadline.Add(t.interval)
		c.nextSeq++
		t.seq = c.nextSeq
	} else {
		delete(c.timers, t.handle)
	}
	t.fn()
}

// Advance moves virtual time forward, firing every due timer in
// deadline order. Callbacks observe Now() at their own deadline.
// Manual mode only.
func (c *Clock) Advance(d time.Duration) {
	target := c.now.Add(d)
	for {
		t := c.earliest()
		if t == nil || t.deadline.After(target) {
			break
		}
		c.now = t.deadline
		c.fire(t)
	}
	c.now = target
}

// Run drives the queue against the wall clock until ctx is cancelled.
// Wall mode only; call in a goroutine.
func (c *Clock) Run(ctx context.Context) {
	for {
		var timerC <-chan time.Time
		var tmr *time.Timer
		if t := c.earliest(); t != nil {
			wait := time.Until(t.deadline)
			if wait < 0 {
				wait = 0
			}
			tmr = time.NewTimer(wait)
			timerC = tmr.C
		}

		select {
		case <-ctx.Done():
			if tmr != nil {
				tmr.Stop()
			}
			return
		case fn := <-c.calls:
			fn()
		case <-timerC:
			// User intents queued before the expiry run first, keeping
			// the assignment-vs-abandonment ordering deterministic.
			c.drainCalls()
			c.fireDue(time.Now())
		}
		if tmr != nil {
			tmr.Stop()
		}
	}
}

func (c *Clock) drainCalls() {
	for {
		select {
		case fn := <-c.calls:
			fn()
		default:
			return
		}
	}
}

func (c *Clock) fireDue(now time.Time) {
	for {
		t := c.earliest()
		if t == nil || t.deadline.After(now) {
			return
		}
		c.fire(t)
	}
}
