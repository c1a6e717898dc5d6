package detector

import (
	"encoding/json"
	"fmt"
	"time"
)

// jsonFrame is the wire shape shared by the MediaPipe service and the
// websocket ingest endpoint.
type jsonFrame struct {
	Hands     []jsonHand `json:"hands"`
	Timestamp int64      `json:"timestamp,omitempty"` // unix milliseconds
}

type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	World      []jsonPoint `json:"world"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ParseFrame decodes a JSON detection message. Hands whose world landmarks
// are missing are kept in screen space only, which leaves the frame invalid
// for feature extraction; Validate reports it.
func ParseFrame(data []byte) (DetectionFrame, error) {
	var msg jsonFrame
	if err := json.Unmarshal(data, &msg); err != nil {
		return DetectionFrame{}, fmt.Errorf("parse detection frame: %w", err)
	}
	return msg.toFrame()
}

func (m jsonFrame) toFrame() (DetectionFrame, error) {
	frame := DetectionFrame{}
	if m.Timestamp > 0 {
		frame.Timestamp = time.UnixMilli(m.Timestamp)
	}

	for i, h := range m.Hands {
		if len(h.Points) != NumLandmarks {
			return DetectionFrame{}, fmt.Errorf("%w: hand %d has %d points, want %d", ErrInvalidFrame, i, len(h.Points), NumLandmarks)
		}
		frame.Hands = append(frame.Hands, h.toHandLandmarks(h.Points))

		switch len(h.World) {
		case 0:
		case NumLandmarks:
			frame.World = append(frame.World, h.toHandLandmarks(h.World))
		default:
			return DetectionFrame{}, fmt.Errorf("%w: hand %d has %d world points, want %d", ErrInvalidFrame, i, len(h.World), NumLandmarks)
		}
	}

	return frame, nil
}

func (h jsonHand) toHandLandmarks(points []jsonPoint) HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(points); i++ {
		lm.Points[i] = Point3D{
			X: points[i].X,
			Y: points[i].Y,
			Z: points[i].Z,
		}
	}

	return lm
}

// MarshalFrame encodes a frame in the wire shape understood by ParseFrame.
func MarshalFrame(f DetectionFrame) ([]byte, error) {
	msg := jsonFrame{Hands: make([]jsonHand, len(f.Hands))}
	if !f.Timestamp.IsZero() {
		msg.Timestamp = f.Timestamp.UnixMilli()
	}
	for i, h := range f.Hands {
		msg.Hands[i] = jsonHand{
			Points:     toJSONPoints(h.Points),
			Handedness: h.Handedness,
			Score:      h.Score,
		}
		if i < len(f.World) {
			msg.Hands[i].World = toJSONPoints(f.World[i].Points)
		}
	}
	return json.Marshal(msg)
}

func toJSONPoints(points [NumLandmarks]Point3D) []jsonPoint {
	out := make([]jsonPoint, NumLandmarks)
	for i, p := range points {
		out[i] = jsonPoint{X: p.X, Y: p.Y, Z: p.Z}
	}
	return out
}
