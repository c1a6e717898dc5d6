package dispatch

import (
	"context"
	"time"

	log "github.com/echocat/slf4g"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ayusman/gesturesynth/internal/gesture"
	"github.com/ayusman/gesturesynth/internal/timeutil"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultInterval = 16 * time.Millisecond
	DefaultMaxWait  = 100 * time.Millisecond
)

// Consumer receives delivered snapshots.
type Consumer interface {
	Deliver(ctx context.Context, s gesture.Snapshot)
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, s gesture.Snapshot)

func (f ConsumerFunc) Deliver(ctx context.Context, s gesture.Snapshot) { f(ctx, s) }

// Options configures a Dispatcher.
type Options struct {
	Interval time.Duration
	// MaxWait bounds how long a burst can postpone delivery. Negative
	// disables the bound.
	MaxWait time.Duration
	Clock   timeutil.Clock
}

// Stats counts what happened to submitted snapshots.
type Stats struct {
	Submitted   uint64 `json:"submitted"`
	Stored      uint64 `json:"stored"`
	Overwritten uint64 `json:"overwritten"`
	Superseded  uint64 `json:"superseded"`
	Cancelled   uint64 `json:"cancelled"`
	Delivered   uint64 `json:"delivered"`
}

// Dispatcher routes snapshots to at most one consumer. While no consumer is
// attached only the newest snapshot is kept; while one is, bursts are
// debounced and only the newest snapshot of a burst is delivered.
//
// A Dispatcher is owned by a single goroutine that selects on Timer and calls
// Flush when it fires. It is not safe for concurrent use.
type Dispatcher struct {
	consumer Consumer
	slot     Slot[gesture.Snapshot]
	debounce *Debouncer[gesture.Snapshot]
	stats    Stats

	submitted metric.Int64Counter
	delivered metric.Int64Counter
	dropped   metric.Int64Counter
}

// New creates a Dispatcher with no consumer attached.
func New(opts Options) *Dispatcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	switch {
	case opts.MaxWait == 0:
		opts.MaxWait = DefaultMaxWait
	case opts.MaxWait < 0:
		opts.MaxWait = 0
	}

	d := &Dispatcher{
		debounce: NewDebouncer[gesture.Snapshot](opts.Clock, opts.Interval, opts.MaxWait),
	}
	d.submitted = counter("gesturesynth.dispatch.submitted", "Snapshots submitted to the dispatcher.")
	d.delivered = counter("gesturesynth.dispatch.delivered", "Snapshots delivered to a consumer.")
	d.dropped = counter("gesturesynth.dispatch.dropped", "Snapshots replaced or cancelled before delivery.")
	return d
}

func counter(name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		log.WithError(err).
			With("instrument", name).
			Warn("Cannot create counter.")
	}
	return c
}

// Submit hands a snapshot to the dispatcher.
func (d *Dispatcher) Submit(ctx context.Context, s gesture.Snapshot) {
	d.stats.Submitted++
	add(ctx, d.submitted, 1)

	if d.consumer == nil {
		d.stats.Stored++
		if d.slot.Store(s) {
			d.stats.Overwritten++
			add(ctx, d.dropped, 1, attribute.String("reason", "overwritten"))
		}
		return
	}

	if d.debounce.Push(s) {
		d.stats.Superseded++
		add(ctx, d.dropped, 1, attribute.String("reason", "superseded"))
	}
}

// Attach registers c and immediately delivers the snapshot stored while no
// consumer was attached. An already attached consumer is detached first.
func (d *Dispatcher) Attach(ctx context.Context, c Consumer) {
	if d.consumer != nil {
		d.Detach()
	}
	d.consumer = c

	if s, ok := d.slot.Take(); ok {
		log.With("sequence", s.Sequence()).
			Debug("Flushing stored snapshot to new consumer.")
		d.deliver(ctx, s)
	}
}

// Detach clears the consumer. A pending debounced delivery is cancelled and
// never reaches anyone.
func (d *Dispatcher) Detach() {
	d.consumer = nil
	if d.debounce.Cancel() {
		d.stats.Cancelled++
		add(context.Background(), d.dropped, 1, attribute.String("reason", "cancelled"))
	}
}

// Attached reports whether a consumer is registered.
func (d *Dispatcher) Attached() bool {
	return d.consumer != nil
}

// Timer returns the channel the owner waits on before calling Flush. It is
// nil while nothing is pending.
func (d *Dispatcher) Timer() <-chan time.Time {
	return d.debounce.C()
}

// Flush delivers the pending debounced snapshot, if any, reporting whether a
// delivery happened.
func (d *Dispatcher) Flush(ctx context.Context) bool {
	s, ok := d.debounce.Fire()
	if !ok || d.consumer == nil {
		return false
	}
	d.deliver(ctx, s)
	return true
}

// Pending reports whether a snapshot is waiting, either in the slot or in
// the debouncer.
func (d *Dispatcher) Pending() bool {
	return d.slot.Len() > 0 || d.debounce.Pending()
}

// Stats returns a copy of the counters.
func (d *Dispatcher) Stats() Stats {
	return d.stats
}

func (d *Dispatcher) deliver(ctx context.Context, s gesture.Snapshot) {
	ctx, span := tracer.Start(ctx, "deliver snapshot", trace.WithAttributes(
		attribute.Int64("snapshot.sequence", int64(s.Sequence())),
		attribute.Bool("snapshot.hands_present", s.HandsPresent()),
	))
	defer span.End()

	d.consumer.Deliver(ctx, s)
	d.stats.Delivered++
	add(ctx, d.delivered, 1)
}

func add(ctx context.Context, c metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attrs...))
}
