package dispatch

import (
	"time"

	"github.com/ayusman/gesturesynth/internal/timeutil"
)

// Debouncer is a trailing-edge scheduler. Each Push replaces the pending
// value and restarts the quiet period; the owner selects on C and calls Fire
// when it yields.
type Debouncer[T any] struct {
	// Interval is the quiet period after the last push.
	Interval time.Duration
	// MaxWait bounds the delay since the first undelivered push. Zero means
	// unbounded.
	MaxWait time.Duration

	clock   timeutil.Clock
	timer   timeutil.Timer
	pending Slot[T]
	first   time.Time
}

// NewDebouncer creates a Debouncer. A nil clock uses the real clock.
func NewDebouncer[T any](clock timeutil.Clock, interval, maxWait time.Duration) *Debouncer[T] {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Debouncer[T]{Interval: interval, MaxWait: maxWait, clock: clock}
}

// Push schedules v, reporting whether it superseded an undelivered value.
func (d *Debouncer[T]) Push(v T) bool {
	now := d.clock.Now()
	superseded := d.pending.Store(v)
	if !superseded {
		d.first = now
	}

	delay := d.Interval
	if d.MaxWait > 0 {
		if left := d.first.Add(d.MaxWait).Sub(now); left < delay {
			delay = max(left, 0)
		}
	}

	d.stop()
	d.timer = d.clock.NewTimer(delay)
	return superseded
}

// C returns the channel of the pending timer, or nil when nothing is
// scheduled. A nil channel blocks forever in a select.
func (d *Debouncer[T]) C() <-chan time.Time {
	if d.timer == nil {
		return nil
	}
	return d.timer.C()
}

// Fire takes the pending value and clears the schedule.
func (d *Debouncer[T]) Fire() (T, bool) {
	d.stop()
	return d.pending.Take()
}

// Cancel discards the pending value. A cancelled value is never returned by
// Fire.
func (d *Debouncer[T]) Cancel() bool {
	d.stop()
	_, had := d.pending.Take()
	return had
}

// Pending reports whether a value is waiting to fire.
func (d *Debouncer[T]) Pending() bool {
	return d.pending.Len() > 0
}

func (d *Debouncer[T]) stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
