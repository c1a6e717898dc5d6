package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/echocat/slf4g"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/ayusman/gesturesynth/internal/detector"
	"github.com/ayusman/gesturesynth/internal/engine"
	"github.com/ayusman/gesturesynth/internal/gesture"
	"github.com/ayusman/gesturesynth/internal/route"
)

var (
	framesCounter  = counter("gesturesynth.app.frames", "Detection frames processed")
	invalidCounter = counter("gesturesynth.app.frames.invalid", "Detection frames rejected as malformed")
	attachCounter  = counter("gesturesynth.app.engine.attachments", "Engine attachments")
)

func counter(name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		log.WithError(err).With("counter", name).Warn("Cannot create counter.")
	}
	return c
}

// Run executes the event loop until ctx is done. Detection, assembly,
// dispatch and engine writes all happen on the calling goroutine.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var tick <-chan time.Time
	if cam := a.config.Camera; cam != nil {
		if a.config.Detector == nil {
			return errors.New("camera source requires a detector")
		}
		if err := cam.Open(); err != nil {
			return fmt.Errorf("open camera: %w", err)
		}
		defer func() {
			if err := cam.Close(); err != nil {
				log.WithError(err).Warn("Cannot close camera.")
			}
		}()
		ticker := a.clock.NewTicker(a.config.FrameInterval)
		defer ticker.Stop()
		tick = ticker.C()
	}

	a.assembler.Subscribe(func(s gesture.Snapshot) {
		a.publish(ctx, s)
	})
	defer a.assembler.Subscribe(nil)

	attached := make(chan *engine.Attachment)
	go a.connect(ctx, attached, 0)

	var (
		att  *engine.Attachment
		done <-chan struct{}
	)
	defer func() {
		a.dispatcher.Detach()
		a.setEngine(nil, nil)
		if att != nil {
			if err := att.Close(); err != nil {
				log.WithError(err).With("attachment", att.ID).Warn("Cannot close engine.")
			}
		}
	}()

	log.With("source", a.sourceName()).
		With("engine", a.config.Engine.Kind).
		Info("Gesture pipeline started.")

	for {
		select {
		case <-ctx.Done():
			log.Info("Gesture pipeline stopped.")
			return nil

		case <-tick:
			if a.Tracking() {
				a.captureFrame(ctx)
			}

		case frame := <-a.frames:
			if a.Tracking() {
				a.process(ctx, frame)
			}

		case att = <-attached:
			router := route.NewRouter(a.config.Routes, att)
			a.setEngine(att, router)
			a.dispatcher.Attach(ctx, router)
			done = att.Done()
			attachCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", att.Kind)))
			log.With("attachment", att.ID).
				With("kind", att.Kind).
				With("parameters", len(router.Parameters())).
				Info("Engine attached.")

		case <-done:
			log.With("attachment", att.ID).Warn("Engine went away, reconnecting.")
			a.dispatcher.Detach()
			a.setEngine(nil, nil)
			if err := att.Close(); err != nil {
				log.WithError(err).With("attachment", att.ID).Debug("Engine close after teardown failed.")
			}
			att, done = nil, nil
			go a.connect(ctx, attached, a.config.ReconnectDelay)

		case <-a.dispatcher.Timer():
			a.dispatcher.Flush(ctx)
		}

		a.syncStats()
	}
}

// connect attaches an engine after delay and hands it to the loop.
func (a *App) connect(ctx context.Context, attached chan<- *engine.Attachment, delay time.Duration) {
	if delay > 0 {
		timer := a.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}
	}

	att, err := a.config.Connect(ctx, a.config.Engine)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Error("Cannot attach engine; running without one.")
		}
		return
	}

	select {
	case attached <- att:
	case <-ctx.Done():
		_ = att.Close()
	}
}

func (a *App) captureFrame(ctx context.Context) {
	mat, err := a.config.Camera.ReadFrame()
	if err != nil {
		log.WithError(err).Debug("Cannot read camera frame.")
		return
	}
	defer mat.Close()

	if p := a.config.Preview; p != nil {
		if err := p.Publish(mat); err != nil {
			log.WithError(err).Debug("Cannot publish preview frame.")
		}
	}

	frame, err := a.config.Detector.Detect(mat)
	if err != nil {
		log.WithError(err).Debug("Hand detection failed.")
		return
	}
	a.process(ctx, frame)
}

func (a *App) process(ctx context.Context, frame detector.DetectionFrame) {
	ctx, span := tracer.Start(ctx, "app.process")
	defer span.End()
	span.SetAttributes(attribute.Int("hands", len(frame.Hands)))

	if _, err := a.assembler.Process(frame); err != nil {
		a.invalid.Add(1)
		invalidCounter.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid frame")
		log.WithError(err).Debug("Dropping detection frame.")
		return
	}
	a.processed.Add(1)
	framesCounter.Add(ctx, 1)
}

// publish is the assembler's subscriber.
func (a *App) publish(ctx context.Context, s gesture.Snapshot) {
	a.dispatcher.Submit(ctx, s)

	a.mu.Lock()
	a.last = &s
	observers := a.observers
	a.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}

func (a *App) setEngine(att *engine.Attachment, router *route.Router) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attachment = att
	a.router = router
}

func (a *App) syncStats() {
	stats := a.dispatcher.Stats()
	a.mu.Lock()
	a.stats = stats
	a.mu.Unlock()
}

func (a *App) sourceName() string {
	if a.config.Camera != nil {
		return "camera"
	}
	return "push"
}
