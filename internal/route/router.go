package route

import (
	"context"
	"fmt"

	log "github.com/echocat/slf4g"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ayusman/gesturesynth/internal/engine"
	"github.com/ayusman/gesturesynth/internal/gesture"
)

// Failure is a rule whose write the engine rejected.
type Failure struct {
	Target string
	Err    error
}

// Result reports what one Apply did, by rule target.
type Result struct {
	Applied []string
	// Skipped lists targets the engine has no parameter for.
	Skipped []string
	Failed  []Failure
}

// Router applies a rule table to snapshots against one engine attachment.
type Router struct {
	rules  []Rule
	eng    engine.Engine
	params engine.Table

	applied metric.Int64Counter
	skipped metric.Int64Counter
	failed  metric.Int64Counter
}

// NewRouter creates a Router for eng. The engine's parameter table is read
// once here and used for the lifetime of the router.
func NewRouter(table Table, eng engine.Engine) *Router {
	r := &Router{
		rules:  table.Rules(),
		eng:    eng,
		params: eng.Parameters(),
	}
	r.applied = counter("gesturesynth.route.applied", "Parameter writes accepted by the engine.")
	r.skipped = counter("gesturesynth.route.skipped", "Rules skipped because the engine lacks the target.")
	r.failed = counter("gesturesynth.route.failed", "Parameter writes the engine rejected.")

	for _, rule := range r.rules {
		if r.params.Resolve(rule.Target) == engine.Unresolved {
			log.With("target", rule.Target).
				With("source", rule.Source).
				Info("Engine has no such parameter, rule will be skipped.")
		}
	}
	return r
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

// Parameters returns the parameter table captured when the router was
// created.
func (r *Router) Parameters() engine.Table {
	return r.params.Clone()
}

// Deliver applies s and discards the result.
func (r *Router) Deliver(ctx context.Context, s gesture.Snapshot) {
	r.Apply(ctx, s)
}

// Apply writes every rule that has a value in s. A failing rule never stops
// the ones after it.
func (r *Router) Apply(ctx context.Context, s gesture.Snapshot) Result {
	ctx, span := tracer.Start(ctx, "apply snapshot")
	defer span.End()

	var res Result
	for _, rule := range r.rules {
		v, present, err := rule.Source.Value(s)
		if err != nil || !present {
			continue
		}

		id := r.params.Resolve(rule.Target)
		if id == engine.Unresolved {
			res.Skipped = append(res.Skipped, rule.Target)
			add(ctx, r.skipped, rule.Target)
			continue
		}

		v = rule.clamp(v)
		if p, ok := r.params.Lookup(id); ok {
			v = p.Clamp(v)
		}

		if err := r.set(id, v); err != nil {
			res.Failed = append(res.Failed, Failure{Target: rule.Target, Err: err})
			add(ctx, r.failed, rule.Target)
			span.RecordError(err, traceAttrs(rule.Target))
			log.WithError(err).
				With("target", rule.Target).
				With("value", v).
				Warn("Engine rejected parameter write.")
			continue
		}
		res.Applied = append(res.Applied, rule.Target)
		add(ctx, r.applied, rule.Target)
	}

	if len(res.Failed) > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d parameter writes failed", len(res.Failed)))
	}
	span.SetAttributes(
		attribute.Int64("snapshot.sequence", int64(s.Sequence())),
		attribute.Int("route.applied", len(res.Applied)),
		attribute.Int("route.skipped", len(res.Skipped)),
	)
	return res
}

// set calls the engine, turning a panic into an error.
func (r *Router) set(id engine.ParamID, v float64) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("engine panicked: %v", p)
		}
	}()
	return r.eng.SetParameter(id, v)
}

func add(ctx context.Context, c metric.Int64Counter, target string) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("target", target)))
}

func traceAttrs(target string) trace.EventOption {
	return trace.WithAttributes(attribute.String("target", target))
}
