package engine

import (
	"testing"
	"time"
)

func newTestClock() *Clock {
	return NewManualClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestScheduleOnceFiresAtDeadline(t *testing.T) {
	clock := newTestClock()
	fired := 0
	clock.ScheduleOnce(2*time.Second, func() { fired++ })

	clock.Advance(1 * time.Second)
	if fired != 0 {
		t.Errorf("Expected timer not to fire before its deadline")
	}

	clock.Advance(1 * time.Second)
	if fired != 1 {
		t.Errorf("Expected one fire at the deadline, got %d", fired)
	}

	clock.Advance(10 * time.Second)
	if fired != 1 {
		t.Errorf("Expected one-shot to fire exactly once, got %d", fired)
	}
	if clock.PendingTimers() != 0 {
		t.Errorf("Expected no pending timers after a one-shot fired, got %d", clock.PendingTimers())
	}
}

func TestScheduleRepeatingDoesNotDrift(t *testing.T) {
	clock := newTestClock()
	fired := 0
	clock.ScheduleRepeating(1*time.Second, func() { fired++ })

	// One long advance must catch up every missed interval.
	clock.Advance(5 * time.Second)
	if fired != 5 {
		t.Errorf("Expected 5 fires over 5s, got %d", fired)
	}
}

func TestTimersFireInDeadlineOrder(t *testing.T) {
	clock := newTestClock()
	var order []string
	clock.ScheduleOnce(3*time.Second, func() { order = append(order, "late") })
	clock.ScheduleOnce(1*time.Second, func() { order = append(order, "early") })
	clock.ScheduleOnce(3*time.Second, func() { order = append(order, "late2") })

	clock.Advance(5 * time.Second)

	if len(order) != 3 || order[0] != "early" || order[1] != "late" || order[2] != "late2" {
		t.Errorf("Expected fire order [early late late2], got %v", order)
	}
}

func TestCallbackObservesOwnDeadline(t *testing.T) {
	clock := newTestClock()
	start := clock.Now()
	var seen time.Time
	clock.ScheduleOnce(2*time.Second, func() { seen = clock.Now() })

	clock.Advance(10 * time.Second)

	if !seen.Equal(start.Add(2 * time.Second)) {
		t.Errorf("Expected callback to observe its deadline, got %v", seen)
	}
	if !clock.Now().Equal(start.Add(10 * time.Second)) {
		t.Errorf("Expected clock to land on the advance target, got %v", clock.Now())
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	clock := newTestClock()
	fired := false
	h := clock.ScheduleOnce(1*time.Second, func() { fired = true })

	clock.Cancel(h)
	clock.Cancel(h)
	clock.Advance(5 * time.Second)

	if fired {
		t.Errorf("Expected cancelled timer never to fire")
	}
}

func TestSuspendResumeKeepsRemainingDelay(t *testing.T) {
	clock := newTestClock()
	fired := false
	h := clock.ScheduleOnce(3*time.Second, func() { fired = true })

	clock.Advance(2 * time.Second)
	clock.Suspend(h)

	// Suspended time must not count against the timer.
	clock.Advance(10 * time.Second)
	if fired {
		t.Errorf("Expected suspended timer not to fire")
	}

	clock.Resume(h)
	clock.Advance(999 * time.Millisecond)
	if fired {
		t.Errorf("Expected timer to still hold 1s of delay after resume")
	}
	clock.Advance(1 * time.Millisecond)
	if !fired {
		t.Errorf("Expected timer to fire once its remaining delay elapsed")
	}
}

func TestCancelAllDropsEverything(t *testing.T) {
	clock := newTestClock()
	fired := 0
	clock.ScheduleOnce(1*time.Second, func() { fired++ })
	clock.ScheduleRepeating(1*time.Second, func() { fired++ })

	clock.CancelAll()
	clock.Advance(10 * time.Second)

	if fired != 0 {
		t.Errorf("Expected no fires after CancelAll, got %d", fired)
	}
	if clock.PendingTimers() != 0 {
		t.Errorf("Expected zero pending timers, got %d", clock.PendingTimers())
	}
}

func TestSchedulingInsideCallback(t *testing.T) {
	clock := newTestClock()
	var order []string
	clock.ScheduleOnce(1*time.Second, func() {
		order = append(order, "first")
		clock.ScheduleOnce(1*time.Second, func() { order = append(order, "second") })
	})

	clock.Advance(3 * time.Second)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Expected chained timers to fire in order, got %v", order)
	}
}
