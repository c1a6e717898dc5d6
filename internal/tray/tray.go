// Package tray provides a system tray interface for the gesturesynth service.
package tray

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/gesturesynth/internal/app"
	"github.com/ayusman/gesturesynth/internal/gesture"
)

const refreshInterval = 500 * time.Millisecond

// Controller is the part of the app the tray drives and displays.
type Controller interface {
	Tracking() bool
	SetTracking(enabled bool)
	Status() app.Status
}

// Tray represents the system tray application.
type Tray struct {
	controller Controller
	onQuit     func()
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuEngine   *systray.MenuItem
	menuSnapshot *systray.MenuItem
}

// New creates a new Tray for controller.
func New(controller Controller) *Tray {
	return &Tray{controller: controller}
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray and calls run once it is ready. It blocks until
// run returns.
func (t *Tray) Run(ctx context.Context, run func(context.Context)) {
	systray.Run(func() {
		t.onReady(ctx)
		run(ctx)
		systray.Quit()
	}, nil)
}

// onReady sets up the menu structure.
func (t *Tray) onReady(ctx context.Context) {
	systray.SetTitle("gesturesynth")
	systray.SetTooltip("Hand gestures to synthesizer parameters")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.controller.Tracking()), "Toggle hand tracking")
	systray.AddSeparator()
	t.menuEngine = systray.AddMenuItem(engineTitle(app.Status{Engine: app.EngineWaiting}), "Synthesis engine")
	t.menuEngine.Disable()
	t.menuSnapshot = systray.AddMenuItem(snapshotTitle(nil), "Last snapshot")
	t.menuSnapshot.Disable()
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit gesturesynth")
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.refresh()
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	enabled := !t.controller.Tracking()
	t.controller.SetTracking(enabled)

	t.mu.RLock()
	defer t.mu.RUnlock()
	t.menuToggle.SetTitle(toggleTitle(enabled))
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) refresh() {
	status := t.controller.Status()

	t.mu.RLock()
	defer t.mu.RUnlock()
	t.menuToggle.SetTitle(toggleTitle(status.Tracking))
	t.menuEngine.SetTitle(engineTitle(status))
	t.menuSnapshot.SetTitle(snapshotTitle(status.Snapshot))
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

func engineTitle(s app.Status) string {
	if s.Engine != app.EngineAttached {
		return "Engine: waiting"
	}
	return fmt.Sprintf("Engine: %s (%d delivered)", s.EngineKind, s.Dispatch.Delivered)
}

func snapshotTitle(s *gesture.Snapshot) string {
	if s == nil {
		return "Last: none"
	}
	if !s.HandsPresent() {
		return fmt.Sprintf("Last: #%d no hands", s.Sequence())
	}
	title := fmt.Sprintf("Last: #%d", s.Sequence())
	if l, ok := s.LeftHand(); ok {
		title += fmt.Sprintf(" L open %.2f", l.Openness)
	}
	if r, ok := s.RightHand(); ok {
		title += fmt.Sprintf(" R open %.2f", r.Openness)
	}
	return title
}
