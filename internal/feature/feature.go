// Package feature computes normalized hand features from a single detection.
//
// Every function is pure and returns a value in [-1, 1].
package feature

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/gesturesynth/internal/detector"
)

// Empirical thumb-to-fingertip distance range, in meters.
const (
	ThumbDistanceNear = 0.05
	ThumbDistanceFar  = 0.18
)

// fingers lists the knuckle (MCP) and PIP joints of the four non-thumb fingers.
var fingers = [4][2]int{
	{detector.IndexMCP, detector.IndexPIP},
	{detector.MiddleMCP, detector.MiddlePIP},
	{detector.RingMCP, detector.RingPIP},
	{detector.PinkyMCP, detector.PinkyPIP},
}

var fingertips = [4]int{
	detector.IndexTip,
	detector.MiddleTip,
	detector.RingTip,
	detector.PinkyTip,
}

// Openness measures how extended the fingers are. It expects world
// landmarks. 1 means every finger bends a right angle away from the palm
// line, -1 means every finger continues the palm line.
func Openness(world detector.HandLandmarks) float64 {
	wrist := world.Points[detector.Wrist].Vec()

	var sum float64
	for _, f := range fingers {
		mcp := world.Points[f[0]].Vec()
		pip := world.Points[f[1]].Vec()
		sum += fingerAngle(r3.Sub(mcp, wrist), r3.Sub(pip, mcp))
	}

	return MapLinear(sum/float64(len(fingers)), 0, math.Pi/2, -1, 1)
}

// fingerAngle returns the angle between the palm and the proximal phalanx,
// measured in the plane orthogonal to the hand's lateral (x) axis and
// clamped to [0, π/2].
func fingerAngle(palm, phalanx r3.Vec) float64 {
	palm.X = 0
	phalanx.X = 0

	if r3.Norm(palm) == 0 || r3.Norm(phalanx) == 0 {
		return 0
	}

	angle := math.Acos(Clamp(r3.Cos(palm, phalanx), -1, 1))
	return Clamp(angle, 0, math.Pi/2)
}

// ThumbProximity measures how close the thumb tip is to the other fingertips.
// It expects world landmarks. A mean distance at or below ThumbDistanceNear
// yields 1, at or above ThumbDistanceFar yields -1.
func ThumbProximity(world detector.HandLandmarks) float64 {
	thumb := world.Points[detector.ThumbTip].Vec()

	var sum float64
	for _, tip := range fingertips {
		sum += r3.Norm(r3.Sub(world.Points[tip].Vec(), thumb))
	}
	mean := sum / float64(len(fingertips))

	return Clamp(MapLinear(mean, ThumbDistanceFar, ThumbDistanceNear, -1, 1), -1, 1)
}

// WristZone maps the wrist's normalized screen x coordinate onto a zone
// signal. It expects screen landmarks. The mapping is piecewise linear over
// four equal bands and continuous, forming a tent symmetric about the
// center: -1 at the screen edges, 0 at the quarter marks and 1 at the center.
func WristZone(screen detector.HandLandmarks) float64 {
	return wristZone(screen.Points[detector.Wrist].X)
}

func wristZone(x float64) float64 {
	var r float64
	switch {
	case x <= 0.25:
		r = MapLinear(x, 0, 0.25, -1, 0)
	case x <= 0.5:
		r = MapLinear(x, 0.25, 0.5, 0, 1)
	case x <= 0.75:
		r = MapLinear(x, 0.5, 0.75, 1, 0)
	default:
		r = MapLinear(x, 0.75, 1, 0, -1)
	}
	return Clamp(r, -1, 1)
}

// HandAngleDifference returns the signed angle between the two hands'
// pointing directions (wrist to middle knuckle) on the ground plane, mapped
// from [-π, π] to [-1, 1]. It expects world landmarks. The sign is positive
// when left is rotated counterclockwise from right; exactly opposite directions
// yield 1.
func HandAngleDifference(right, left detector.HandLandmarks) float64 {
	dr, okR := groundDirection(right)
	dl, okL := groundDirection(left)
	if !okR || !okL {
		return 0
	}

	angle := math.Acos(Clamp(r2.Dot(dr, dl), -1, 1))
	switch cross := r2.Cross(dr, dl); {
	case cross < 0:
		angle = -angle
	case cross == 0 && angle < math.Pi/2:
		angle = 0
	}

	angle = Clamp(angle, -math.Pi, math.Pi)
	return MapLinear(angle, -math.Pi, math.Pi, -1, 1)
}

// groundDirection projects the wrist to middle knuckle vector onto the XZ
// plane and normalizes it.
func groundDirection(world detector.HandLandmarks) (r2.Vec, bool) {
	wrist := world.Points[detector.Wrist]
	middle := world.Points[detector.MiddleMCP]

	d := r2.Vec{X: middle.X - wrist.X, Y: middle.Z - wrist.Z}
	if r2.Norm(d) == 0 {
		return r2.Vec{}, false
	}
	return r2.Unit(d), true
}

// MapLinear maps x from the range [a1, a2] to the range [b1, b2] without
// clamping.
func MapLinear(x, a1, a2, b1, b2 float64) float64 {
	return b1 + (x-a1)*(b2-b1)/(a2-a1)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
