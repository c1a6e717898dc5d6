package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/gesturesynth/internal/detector"
)

func world(p detector.HandPose) detector.HandLandmarks {
	_, w := p.Landmarks()
	return w
}

func screen(p detector.HandPose) detector.HandLandmarks {
	s, _ := p.Landmarks()
	return s
}

func TestOpenness(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
		want  float64
	}{
		{name: "fist", angle: 0, want: -1},
		{name: "fully open", angle: math.Pi / 2, want: 1},
		{name: "half open", angle: math.Pi / 4, want: 0},
		{name: "mostly open", angle: 0.45 * math.Pi, want: 0.8},
		{name: "over extended clamps", angle: 0.75 * math.Pi, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pose := detector.HandPose{Handedness: detector.Left, FingerAngle: tt.angle, ThumbSpread: 0.1, WristX: 0.5}
			assert.InDelta(t, tt.want, Openness(world(pose)), 1e-9)
		})
	}
}

func TestOpenness_IgnoresLateralSpread(t *testing.T) {
	w := world(detector.OpenHand(detector.Right))
	for _, f := range fingers {
		w.Points[f[1]].X += 0.03
	}
	assert.InDelta(t, 1, Openness(w), 1e-9)
}

func TestOpenness_DegenerateProjection(t *testing.T) {
	// Every joint collapsed onto the wrist: each finger contributes angle 0.
	var w detector.HandLandmarks
	assert.Equal(t, -1.0, Openness(w))
}

func TestThumbProximity(t *testing.T) {
	tests := []struct {
		name   string
		spread float64
		want   float64
	}{
		{name: "touching", spread: 0, want: 1},
		{name: "at near bound", spread: ThumbDistanceNear, want: 1},
		{name: "at far bound", spread: ThumbDistanceFar, want: -1},
		{name: "beyond far bound", spread: 0.3, want: -1},
		{name: "midway", spread: (ThumbDistanceNear + ThumbDistanceFar) / 2, want: 0},
		{name: "slightly apart", spread: 0.128, want: -0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pose := detector.HandPose{Handedness: detector.Left, FingerAngle: 0, ThumbSpread: tt.spread, WristX: 0.5}
			assert.InDelta(t, tt.want, ThumbProximity(world(pose)), 1e-9)
		})
	}
}

func TestThumbProximity_MonotonicInDistance(t *testing.T) {
	prev := math.Inf(1)
	for spread := 0.0; spread <= 0.25; spread += 0.005 {
		pose := detector.HandPose{Handedness: detector.Right, ThumbSpread: spread, WristX: 0.5}
		got := ThumbProximity(world(pose))
		assert.LessOrEqual(t, got, prev, "spread %.3f", spread)
		prev = got
	}
}

func TestWristZone(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
	}{
		{x: -0.2, want: -1},
		{x: 0, want: -1},
		{x: 0.125, want: -0.5},
		{x: 0.25, want: 0},
		{x: 0.375, want: 0.5},
		{x: 0.5, want: 1},
		{x: 0.625, want: 0.5},
		{x: 0.75, want: 0},
		{x: 0.875, want: -0.5},
		{x: 1, want: -1},
		{x: 1.4, want: -1},
	}

	for _, tt := range tests {
		var h detector.HandLandmarks
		h.Points[detector.Wrist].X = tt.x
		assert.InDelta(t, tt.want, WristZone(h), 1e-9, "x=%v", tt.x)
	}
}

func TestWristZone_ContinuousAndSymmetric(t *testing.T) {
	const eps = 1e-7
	for _, x := range []float64{0.25, 0.5, 0.75} {
		assert.InDelta(t, wristZone(x-eps), wristZone(x+eps), 1e-5, "jump at x=%v", x)
	}
	for x := 0.0; x <= 0.5; x += 0.01 {
		assert.InDelta(t, wristZone(x), wristZone(1-x), 1e-9, "x=%v", x)
	}
}

func TestWristZone_FromPose(t *testing.T) {
	pose := detector.OpenHand(detector.Left)
	pose.WristX = 0.375
	assert.InDelta(t, 0.5, WristZone(screen(pose)), 1e-9)
}

// pointing returns world landmarks whose wrist to middle knuckle direction is
// (x, z) on the ground plane.
func pointing(x, z float64) detector.HandLandmarks {
	var h detector.HandLandmarks
	h.Points[detector.MiddleMCP] = detector.Point3D{X: x, Y: 0.05, Z: z}
	return h
}

func TestHandAngleDifference(t *testing.T) {
	tests := []struct {
		name        string
		right, left detector.HandLandmarks
		want        float64
		delta       float64
	}{
		{name: "parallel", right: pointing(0, 1), left: pointing(0, 2), want: 0},
		{name: "counterclockwise quarter", right: pointing(1, 0), left: pointing(0, 1), want: 0.5},
		{name: "clockwise quarter", right: pointing(1, 0), left: pointing(0, -1), want: -0.5},
		{name: "exactly opposite", right: pointing(1, 0), left: pointing(-1, 0), want: 1},
		{name: "nearly opposite counterclockwise", right: pointing(1, 0), left: pointing(-1, 1e-9), want: 1, delta: 1e-6},
		{name: "nearly opposite clockwise", right: pointing(1, 0), left: pointing(-1, -1e-9), want: -1, delta: 1e-6},
		{name: "degenerate right", right: pointing(0, 0), left: pointing(1, 0), want: 0},
		{name: "degenerate left", right: pointing(1, 0), left: pointing(0, 0), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta := tt.delta
			if delta == 0 {
				delta = 1e-9
			}
			got := HandAngleDifference(tt.right, tt.left)
			assert.InDelta(t, tt.want, got, delta)
			assert.GreaterOrEqual(t, got, -1.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestHandAngleDifference_SamePose(t *testing.T) {
	got := HandAngleDifference(world(detector.OpenHand(detector.Right)), world(detector.Fist(detector.Left)))
	assert.InDelta(t, 0, got, 1e-9)
}

func TestFeaturesStayBounded(t *testing.T) {
	for angle := -math.Pi; angle <= math.Pi; angle += 0.1 {
		for spread := 0.0; spread <= 0.3; spread += 0.05 {
			for x := -0.5; x <= 1.5; x += 0.1 {
				pose := detector.HandPose{Handedness: detector.Left, FingerAngle: angle, ThumbSpread: spread, WristX: x}
				s, w := pose.Landmarks()
				for _, v := range []float64{Openness(w), ThumbProximity(w), WristZone(s)} {
					if v < -1 || v > 1 || math.IsNaN(v) {
						t.Fatalf("feature %v out of range for angle=%v spread=%v x=%v", v, angle, spread, x)
					}
				}
			}
		}
	}
}

func TestMapLinear(t *testing.T) {
	assert.InDelta(t, 0.0, MapLinear(5, 0, 10, -1, 1), 1e-12)
	assert.InDelta(t, 3.0, MapLinear(20, 0, 10, -1, 1), 1e-12)
	assert.InDelta(t, 1.0, MapLinear(0.05, 0.18, 0.05, -1, 1), 1e-12)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, -1.0, Clamp(-2, -1, 1))
	assert.Equal(t, 1.0, Clamp(2, -1, 1))
	assert.Equal(t, 0.25, Clamp(0.25, -1, 1))
}
