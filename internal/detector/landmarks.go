// Package detector provides hand detection interfaces and types for gesture tracking.
package detector

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Handedness labels as reported by the detector. The labels are not
// guaranteed to be stable between frames.
const (
	Left  = "Left"
	Right = "Right"
)

// MaxHands is the largest number of hands a single frame may carry.
const MaxHands = 2

// ErrInvalidFrame is returned for frames that are structurally unusable.
var ErrInvalidFrame = errors.New("invalid detection frame")

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec returns the point as a gonum vector.
func (p Point3D) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
// Depending on where it came from, the points are either normalized
// screen coordinates in [0,1] or metric world coordinates centered on the hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// IsLeft reports whether the detector labeled the hand as the left one.
func (h *HandLandmarks) IsLeft() bool {
	return h.Handedness == Left
}

// DetectionFrame is one capture tick worth of detections: up to two hands in
// screen space and, in parallel, the same hands in world space. World[i]
// belongs to Hands[i].
type DetectionFrame struct {
	Hands     []HandLandmarks `json:"hands"`
	World     []HandLandmarks `json:"world"`
	Timestamp time.Time       `json:"timestamp"`
}

// Validate reports whether the frame can be turned into features.
func (f *DetectionFrame) Validate() error {
	if len(f.Hands) > MaxHands {
		return fmt.Errorf("%w: %d hands, at most %d supported", ErrInvalidFrame, len(f.Hands), MaxHands)
	}
	if len(f.World) != len(f.Hands) {
		return fmt.Errorf("%w: %d screen hands but %d world hands", ErrInvalidFrame, len(f.Hands), len(f.World))
	}
	return nil
}

// Empty reports whether no hand was detected.
func (f *DetectionFrame) Empty() bool {
	return len(f.Hands) == 0
}
