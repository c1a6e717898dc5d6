// Package route maps gesture snapshot features onto engine parameters.
package route

import (
	"errors"
	"fmt"

	"github.com/ayusman/gesturesynth/internal/gesture"
)

// ErrUnknownSource is returned for rules naming a feature that does not exist.
var ErrUnknownSource = errors.New("unknown route source")

// Source names a value that can be read from a snapshot.
type Source string

// Known sources.
const (
	LeftOpenness        Source = "leftHand.openness"
	LeftThumbProximity  Source = "leftHand.thumbProximity"
	LeftWristZone       Source = "leftHand.wristZone"
	RightOpenness       Source = "rightHand.openness"
	RightThumbProximity Source = "rightHand.thumbProximity"
	RightWristZone      Source = "rightHand.wristZone"
	HandAngleDifference Source = "handAngleDifference"
	HandsPresent        Source = "handsPresent"
)

type extractor func(gesture.Snapshot) (float64, bool)

func leftHand(pick func(gesture.FeatureSet) float64) extractor {
	return func(s gesture.Snapshot) (float64, bool) {
		fs, ok := s.LeftHand()
		if !ok {
			return 0, false
		}
		return pick(fs), true
	}
}

func rightHand(pick func(gesture.FeatureSet) float64) extractor {
	return func(s gesture.Snapshot) (float64, bool) {
		fs, ok := s.RightHand()
		if !ok {
			return 0, false
		}
		return pick(fs), true
	}
}

func openness(fs gesture.FeatureSet) float64       { return fs.Openness }
func thumbProximity(fs gesture.FeatureSet) float64 { return fs.ThumbProximity }
func wristZone(fs gesture.FeatureSet) float64      { return fs.WristZone }

var extractors = map[Source]extractor{
	LeftOpenness:        leftHand(openness),
	LeftThumbProximity:  leftHand(thumbProximity),
	LeftWristZone:       leftHand(wristZone),
	RightOpenness:       rightHand(openness),
	RightThumbProximity: rightHand(thumbProximity),
	RightWristZone:      rightHand(wristZone),
	HandAngleDifference: gesture.Snapshot.HandAngleDifference,
	HandsPresent: func(s gesture.Snapshot) (float64, bool) {
		if s.HandsPresent() {
			return 1, true
		}
		return 0, true
	},
}

// Valid reports whether s names a known source.
func (s Source) Valid() bool {
	_, ok := extractors[s]
	return ok
}

// Value reads the source from a snapshot. It reports false when the feature
// is absent, for example a hand that is not in view.
func (s Source) Value(snap gesture.Snapshot) (float64, bool, error) {
	ex, ok := extractors[s]
	if !ok {
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
	v, present := ex(snap)
	return v, present, nil
}

// Sources lists every known source.
func Sources() []Source {
	return []Source{
		LeftOpenness, LeftThumbProximity, LeftWristZone,
		RightOpenness, RightThumbProximity, RightWristZone,
		HandAngleDifference, HandsPresent,
	}
}
