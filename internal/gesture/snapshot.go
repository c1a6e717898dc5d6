// Package gesture turns detection frames into immutable gesture snapshots.
package gesture

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/gesturesynth/internal/detector"
	"github.com/ayusman/gesturesynth/internal/feature"
)

// ErrInvalidFrame is returned for structurally invalid detection frames.
var ErrInvalidFrame = detector.ErrInvalidFrame

// FeatureSet holds the normalized features of one hand. Every field lies in
// [-1, 1].
type FeatureSet struct {
	Openness       float64 `json:"openness"`
	ThumbProximity float64 `json:"thumbProximity"`
	WristZone      float64 `json:"wristZone"`
}

// Extract computes the feature set of one hand from its screen and world
// landmarks.
func Extract(screen, world detector.HandLandmarks) FeatureSet {
	return FeatureSet{
		Openness:       feature.Openness(world),
		ThumbProximity: feature.ThumbProximity(world),
		WristZone:      feature.WristZone(screen),
	}
}

// Snapshot is the gesture state derived from one detection frame. It is
// never mutated after construction; the accessors return copies.
type Snapshot struct {
	leftHand            *FeatureSet
	rightHand           *FeatureSet
	handAngleDifference *float64
	sequence            uint64
	capturedAt          time.Time
}

// NewSnapshot builds a snapshot. Nil arguments mark absent hands.
func NewSnapshot(left, right *FeatureSet, angle *float64, seq uint64, at time.Time) Snapshot {
	s := Snapshot{sequence: seq, capturedAt: at}
	if left != nil {
		l := *left
		s.leftHand = &l
	}
	if right != nil {
		r := *right
		s.rightHand = &r
	}
	if angle != nil {
		a := *angle
		s.handAngleDifference = &a
	}
	return s
}

// LeftHand returns the left hand features, if present.
func (s Snapshot) LeftHand() (FeatureSet, bool) {
	if s.leftHand == nil {
		return FeatureSet{}, false
	}
	return *s.leftHand, true
}

// RightHand returns the right hand features, if present.
func (s Snapshot) RightHand() (FeatureSet, bool) {
	if s.rightHand == nil {
		return FeatureSet{}, false
	}
	return *s.rightHand, true
}

// HandAngleDifference returns the signed angle between both hands. It is
// present only when both hands are.
func (s Snapshot) HandAngleDifference() (float64, bool) {
	if s.handAngleDifference == nil {
		return 0, false
	}
	return *s.handAngleDifference, true
}

// HandsPresent reports whether at least one hand is present.
func (s Snapshot) HandsPresent() bool {
	return s.leftHand != nil || s.rightHand != nil
}

func (s Snapshot) Sequence() uint64      { return s.sequence }
func (s Snapshot) CapturedAt() time.Time { return s.capturedAt }

// String summarizes the snapshot for logs and the tray.
func (s Snapshot) String() string {
	hand := func(f *FeatureSet) string {
		if f == nil {
			return "-"
		}
		return fmt.Sprintf("open=%.2f thumb=%.2f zone=%.2f", f.Openness, f.ThumbProximity, f.WristZone)
	}
	angle := "-"
	if s.handAngleDifference != nil {
		angle = fmt.Sprintf("%.2f", *s.handAngleDifference)
	}
	return fmt.Sprintf("#%d L[%s] R[%s] angle=%s", s.sequence, hand(s.leftHand), hand(s.rightHand), angle)
}

// snapshotJSON is the wire form sent to visualizers.
type snapshotJSON struct {
	LeftHand            *FeatureSet `json:"leftHand"`
	RightHand           *FeatureSet `json:"rightHand"`
	HandAngleDifference *float64    `json:"handAngleDifference"`
	Sequence            uint64      `json:"sequence"`
	CapturedAt          int64       `json:"capturedAt"`
}

// MarshalJSON encodes absent hands and angle as null.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		LeftHand:            s.leftHand,
		RightHand:           s.rightHand,
		HandAngleDifference: s.handAngleDifference,
		Sequence:            s.sequence,
		CapturedAt:          s.capturedAt.UnixMilli(),
	})
}
