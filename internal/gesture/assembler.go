package gesture

import (
	"fmt"

	"github.com/ayusman/gesturesynth/internal/detector"
	"github.com/ayusman/gesturesynth/internal/feature"
	"github.com/ayusman/gesturesynth/internal/timeutil"
)

// Assembler converts detection frames into snapshots and notifies a single
// subscriber. It is not safe for concurrent use.
type Assembler struct {
	clock    timeutil.Clock
	seq      uint64
	onUpdate func(Snapshot)
}

// NewAssembler creates an Assembler. A nil clock uses the real clock.
func NewAssembler(clock timeutil.Clock) *Assembler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Assembler{clock: clock}
}

// Subscribe registers the downstream notification, replacing any earlier one.
func (a *Assembler) Subscribe(fn func(Snapshot)) {
	a.onUpdate = fn
}

// Process derives a snapshot from frame and notifies the subscriber before
// returning. Invalid frames return ErrInvalidFrame and notify nobody.
func (a *Assembler) Process(frame detector.DetectionFrame) (Snapshot, error) {
	if err := frame.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("assemble snapshot: %w", err)
	}

	var left, right *FeatureSet
	var leftWorld, rightWorld *detector.HandLandmarks

	for i := range frame.Hands {
		fs := Extract(frame.Hands[i], frame.World[i])
		world := &frame.World[i]

		// The first hand's label picks its slot; a second hand takes
		// whichever slot is left.
		putLeft := frame.Hands[i].IsLeft()
		if i > 0 {
			putLeft = left == nil
		}
		if putLeft {
			left, leftWorld = &fs, world
		} else {
			right, rightWorld = &fs, world
		}
	}

	var angle *float64
	if leftWorld != nil && rightWorld != nil {
		v := feature.HandAngleDifference(*rightWorld, *leftWorld)
		angle = &v
	}

	at := frame.Timestamp
	if at.IsZero() {
		at = a.clock.Now()
	}

	a.seq++
	s := NewSnapshot(left, right, angle, a.seq, at)
	if a.onUpdate != nil {
		a.onUpdate(s)
	}
	return s, nil
}
