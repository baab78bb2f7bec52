package steps

import (
	"sort"
	"time"
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop cancels the callback. It reports whether the call prevented the
	// callback from running.
	Stop() bool
}

// Scheduler runs a callback once after a delay. Implementations must run the
// callback on the same dispatch path as every other call into the engine
// that scheduled it; the engine itself holds no locks.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// DeferredScheduler waits on a real timer and hands the callback to Post
// instead of running it on the timer goroutine. Post is expected to queue
// the callback onto the owner's single dispatch path (a channel drained by
// the UI loop, or a function taking the session lock).
type DeferredScheduler struct {
	Post func(func())
}

// AfterFunc implements Scheduler.
func (s DeferredScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &deferredTimer{}
	t.timer = time.AfterFunc(d, func() {
		s.Post(func() {
			// Stop may have been called after the timer fired but before the
			// posted callback reached the dispatch path.
			if t.stopped {
				return
			}
			t.fired = true
			f()
		})
	})
	return t
}

type deferredTimer struct {
	timer *time.Timer
	// stopped and fired are only touched from the dispatch path.
	stopped bool
	fired   bool
}

func (t *deferredTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}

// ManualScheduler is a fake clock: callbacks run synchronously from Advance
// once enough time has been simulated. Used by tests and by the validator's
// scripted playthrough.
type ManualScheduler struct {
	now     time.Duration
	seq     int
	pending []*manualTimer
}

// NewManualScheduler returns a scheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

type manualTimer struct {
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// AfterFunc implements Scheduler.
func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.seq++
	t := &manualTimer{at: m.now + d, seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward by d and runs every callback that came due,
// in deadline order. Callbacks scheduled by a callback run too if they fall
// inside the window.
func (m *ManualScheduler) Advance(d time.Duration) {
	target := m.now + d
	for {
		next := m.nextDue(target)
		if next == nil {
			break
		}
		m.now = next.at
		next.fired = true
		next.f()
	}
	m.now = target
}

// Pending returns the number of callbacks that are scheduled and not stopped.
func (m *ManualScheduler) Pending() int {
	n := 0
	for _, t := range m.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Now returns the simulated time elapsed since creation.
func (m *ManualScheduler) Now() time.Duration {
	return m.now
}

func (m *ManualScheduler) nextDue(target time.Duration) *manualTimer {
	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.pending = live

	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].at != m.pending[j].at {
			return m.pending[i].at < m.pending[j].at
		}
		return m.pending[i].seq < m.pending[j].seq
	})
	if len(m.pending) == 0 || m.pending[0].at > target {
		return nil
	}
	return m.pending[0]
}

// Scaled returns a scheduler that multiplies every delay by factor. Used to
// speed up timed steps in demos and slow them down for classrooms.
func Scaled(inner Scheduler, factor float64) Scheduler {
	if factor == 1 {
		return inner
	}
	return scaledScheduler{inner: inner, factor: factor}
}

type scaledScheduler struct {
	inner  Scheduler
	factor float64
}

func (s scaledScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return s.inner.AfterFunc(time.Duration(float64(d)*s.factor), f)
}
