package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	frame DetectionFrame
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFrame sets the frame that will be returned by Detect.
func (m *MockDetector) SetFrame(frame DetectionFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = frame
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured frame or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (DetectionFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return DetectionFrame{}, m.err
	}
	return m.frame, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// HandPose describes a synthetic hand. Only the landmarks that feature
// extraction reads are placed anatomically; fingertips are arranged on a
// sphere around the thumb tip so the thumb spread is exact.
type HandPose struct {
	Handedness string
	// FingerAngle is the angle in radians between the palm (wrist to knuckle)
	// and the proximal phalanx (knuckle to PIP) of every non-thumb finger.
	FingerAngle float64
	// ThumbSpread is the distance in meters from the thumb tip to each of
	// the other fingertips.
	ThumbSpread float64
	// WristX is the normalized screen x coordinate of the wrist.
	WristX float64
}

// palmTilt tilts the palm out of the vertical so the wrist to middle knuckle
// direction has a component on the ground plane.
const palmTilt = 0.2

// Landmarks builds the screen and world landmarks for the pose.
func (p HandPose) Landmarks() (screen, world HandLandmarks) {
	world.Handedness = p.Handedness
	world.Score = 0.95
	screen.Handedness = p.Handedness
	screen.Score = 0.95

	const (
		palmLength    = 0.09
		phalanxLength = 0.04
	)

	fingers := []struct {
		mcp, pip int
		lateral  float64
	}{
		{IndexMCP, IndexPIP, 0.025},
		{MiddleMCP, MiddlePIP, 0},
		{RingMCP, RingPIP, -0.02},
		{PinkyMCP, PinkyPIP, -0.04},
	}

	py, pz := math.Cos(palmTilt), math.Sin(palmTilt)
	fy, fz := math.Cos(palmTilt+p.FingerAngle), math.Sin(palmTilt+p.FingerAngle)

	for _, f := range fingers {
		mcp := Point3D{X: f.lateral, Y: palmLength * py, Z: palmLength * pz}
		world.Points[f.mcp] = mcp
		world.Points[f.pip] = Point3D{
			X: mcp.X,
			Y: mcp.Y + phalanxLength*fy,
			Z: mcp.Z + phalanxLength*fz,
		}
		world.Points[f.pip+1] = world.Points[f.pip]
	}

	thumb := Point3D{X: 0.05, Y: 0.05, Z: 0}
	world.Points[ThumbCMC] = Point3D{X: 0.02, Y: 0.01, Z: 0}
	world.Points[ThumbMCP] = Point3D{X: 0.035, Y: 0.025, Z: 0}
	world.Points[ThumbIP] = Point3D{X: 0.045, Y: 0.04, Z: 0}
	world.Points[ThumbTip] = thumb

	offsets := []struct {
		tip     int
		x, y, z float64
	}{
		{IndexTip, 1, 0, 0},
		{MiddleTip, -1, 0, 0},
		{RingTip, 0, 1, 0},
		{PinkyTip, 0, 0, 1},
	}
	for _, o := range offsets {
		world.Points[o.tip] = Point3D{
			X: thumb.X + p.ThumbSpread*o.x,
			Y: thumb.Y + p.ThumbSpread*o.y,
			Z: thumb.Z + p.ThumbSpread*o.z,
		}
	}

	// Screen space: the wrist sits at WristX and the hand is drawn upwards
	// from it (screen y grows downwards).
	const scale = 2.0
	for i, wp := range world.Points {
		screen.Points[i] = Point3D{
			X: p.WristX + wp.X*scale,
			Y: 0.8 - wp.Y*scale,
			Z: wp.Z,
		}
	}

	return screen, world
}

// OpenHand returns a pose with fully extended fingers and a wide thumb.
func OpenHand(handedness string) HandPose {
	return HandPose{Handedness: handedness, FingerAngle: math.Pi / 2, ThumbSpread: 0.2, WristX: 0.5}
}

// Fist returns a pose with curled fingers and the thumb pressed against them.
func Fist(handedness string) HandPose {
	return HandPose{Handedness: handedness, FingerAngle: 0, ThumbSpread: 0.04, WristX: 0.5}
}

// FrameOf assembles a detection frame from poses, in order.
func FrameOf(poses ...HandPose) DetectionFrame {
	frame := DetectionFrame{}
	for _, p := range poses {
		screen, world := p.Landmarks()
		frame.Hands = append(frame.Hands, screen)
		frame.World = append(frame.World, world)
	}
	return frame
}
