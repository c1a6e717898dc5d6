// Package app runs the gesture pipeline: frames in, engine parameters out.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/gesturesynth/internal/capture"
	"github.com/ayusman/gesturesynth/internal/detector"
	"github.com/ayusman/gesturesynth/internal/dispatch"
	"github.com/ayusman/gesturesynth/internal/engine"
	"github.com/ayusman/gesturesynth/internal/gesture"
	"github.com/ayusman/gesturesynth/internal/route"
	"github.com/ayusman/gesturesynth/internal/timeutil"
)

// DefaultReconnectDelay is how long the app waits after an engine goes away
// before attaching again.
const DefaultReconnectDelay = time.Second

// Engine states reported by Status.
const (
	EngineAttached = "attached"
	EngineWaiting  = "waiting"
)

// Connector attaches an engine. engine.Connect is the production connector.
type Connector func(ctx context.Context, cfg engine.Config) (*engine.Attachment, error)

// Config holds configuration options for the application.
type Config struct {
	// Camera and Detector produce frames on every FrameInterval tick. When
	// Camera is nil frames only arrive through Push.
	Camera        capture.Camera
	Detector      detector.Detector
	FrameInterval time.Duration
	// Preview, if set, receives every captured camera frame.
	Preview *capture.Preview

	Routes   route.Table
	Engine   engine.Config
	Connect  Connector
	Dispatch dispatch.Options

	ReconnectDelay time.Duration
	Clock          timeutil.Clock
}

// Status is a point-in-time view of the app for the HTTP API and the tray.
type Status struct {
	Tracking     bool              `json:"tracking"`
	Engine       string            `json:"engine"`
	EngineKind   string            `json:"engineKind,omitempty"`
	AttachmentID string            `json:"attachmentId,omitempty"`
	Snapshot     *gesture.Snapshot `json:"snapshot,omitempty"`
	Dispatch     dispatch.Stats    `json:"dispatch"`
	Frames       uint64            `json:"frames"`
	Invalid      uint64            `json:"invalidFrames"`
	Dropped      uint64            `json:"droppedFrames"`
}

// App owns the event loop that ties detection, assembly, dispatch and the
// engine together.
type App struct {
	config     Config
	clock      timeutil.Clock
	assembler  *gesture.Assembler
	dispatcher *dispatch.Dispatcher
	frames     chan detector.DetectionFrame

	paused  atomic.Bool
	running atomic.Bool

	mu         sync.RWMutex
	attachment *engine.Attachment
	router     *route.Router
	last       *gesture.Snapshot
	stats      dispatch.Stats
	observers  []func(gesture.Snapshot)

	processed atomic.Uint64
	invalid   atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Clock == nil {
		config.Clock = timeutil.RealClock{}
	}
	if config.Connect == nil {
		config.Connect = engine.Connect
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = DefaultReconnectDelay
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = time.Second / capture.DefaultFPS
	}
	if config.Routes.Len() == 0 {
		config.Routes = route.DefaultTable()
	}
	config.Dispatch.Clock = config.Clock

	return &App{
		config:     config,
		clock:      config.Clock,
		assembler:  gesture.NewAssembler(config.Clock),
		dispatcher: dispatch.New(config.Dispatch),
		frames:     make(chan detector.DetectionFrame, 1),
	}
}

// SetTracking pauses or resumes tracking. While paused no frames are read
// and no snapshots are produced.
func (a *App) SetTracking(enabled bool) {
	a.paused.Store(!enabled)
}

// Tracking reports whether tracking is active.
func (a *App) Tracking() bool {
	return !a.paused.Load()
}

// Observe registers fn to be called with every snapshot, on the event loop.
// fn must not block.
func (a *App) Observe(fn func(gesture.Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, fn)
}

// Push hands a detection frame to the event loop. If the loop has not yet
// taken the previous frame, that frame is replaced.
func (a *App) Push(frame detector.DetectionFrame) {
	for {
		select {
		case a.frames <- frame:
			return
		default:
		}
		select {
		case <-a.frames:
			a.dropped.Add(1)
		default:
		}
	}
}

// Routes returns the route table in use.
func (a *App) Routes() route.Table {
	return a.config.Routes
}

// Parameters returns the parameter table of the attached engine.
func (a *App) Parameters() (engine.Table, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.router == nil {
		return nil, false
	}
	return a.router.Parameters(), true
}

// Status returns the current state.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Status{
		Tracking: a.Tracking(),
		Engine:   EngineWaiting,
		Dispatch: a.stats,
		Frames:   a.processed.Load(),
		Invalid:  a.invalid.Load(),
		Dropped:  a.dropped.Load(),
	}
	if a.attachment != nil {
		s.Engine = EngineAttached
		s.EngineKind = a.attachment.Kind
		s.AttachmentID = a.attachment.ID
	}
	if a.last != nil {
		snap := *a.last
		s.Snapshot = &snap
	}
	return s
}

// ErrAlreadyRunning is returned by Run when the event loop is already
// running.
var ErrAlreadyRunning = errors.New("app is already running")
