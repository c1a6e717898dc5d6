package route

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/gesturesynth/internal/detector"
	"github.com/ayusman/gesturesynth/internal/engine"
	"github.com/ayusman/gesturesynth/internal/gesture"
)

func fs(open, thumb, zone float64) *gesture.FeatureSet {
	return &gesture.FeatureSet{Openness: open, ThumbProximity: thumb, WristZone: zone}
}

func TestSource_Value(t *testing.T) {
	angle := -0.3
	both := gesture.NewSnapshot(fs(0.1, 0.2, 0.3), fs(0.4, 0.5, 0.6), &angle, 1, epochZero)
	none := gesture.NewSnapshot(nil, nil, nil, 2, epochZero)

	want := map[Source]float64{
		LeftOpenness:        0.1,
		LeftThumbProximity:  0.2,
		LeftWristZone:       0.3,
		RightOpenness:       0.4,
		RightThumbProximity: 0.5,
		RightWristZone:      0.6,
		HandAngleDifference: -0.3,
		HandsPresent:        1,
	}
	for _, src := range Sources() {
		v, ok, err := src.Value(both)
		require.NoError(t, err)
		assert.True(t, ok, src)
		assert.Equal(t, want[src], v, src)

		v, ok, err = src.Value(none)
		require.NoError(t, err)
		if src == HandsPresent {
			assert.True(t, ok)
			assert.Equal(t, 0.0, v)
		} else {
			assert.False(t, ok, src)
		}
	}

	_, _, err := Source("leftHand.pinkiness").Value(both)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestNewTable(t *testing.T) {
	_, err := NewTable([]Rule{{Source: LeftOpenness, Target: "ipSpeed", Min: -1, Max: 1}})
	assert.NoError(t, err)

	tests := []struct {
		name string
		rule Rule
	}{
		{name: "unknown source", rule: Rule{Source: "nose.length", Target: "ipSpeed", Min: -1, Max: 1}},
		{name: "empty target", rule: Rule{Source: LeftOpenness, Min: -1, Max: 1}},
		{name: "inverted range", rule: Rule{Source: LeftOpenness, Target: "ipSpeed", Min: 1, Max: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable([]Rule{tt.rule})
			assert.Error(t, err)
		})
	}
}

func TestTable_IsACopy(t *testing.T) {
	rules := []Rule{{Source: LeftOpenness, Target: "ipSpeed", Min: -1, Max: 1}}
	table, err := NewTable(rules)
	require.NoError(t, err)

	rules[0].Target = "changed"
	got := table.Rules()
	got[0].Target = "changed too"

	assert.Equal(t, "ipSpeed", table.Rules()[0].Target)
}

func TestDefaultTable(t *testing.T) {
	rules := DefaultTable().Rules()
	require.Len(t, rules, 6)
	assert.Equal(t, Rule{Source: HandsPresent, Target: "ipState", Min: 0, Max: 1}, rules[0])

	var targets []string
	for _, r := range rules {
		assert.True(t, r.Source.Valid())
		targets = append(targets, r.Target)
	}
	assert.Equal(t, []string{"ipState", "ipSampleSize", "ipPitch", "ipDelayReverbDry", "ipSpeed", "ipDelayFeedback"}, targets)
}

func TestRouter_LeftHandOnly(t *testing.T) {
	a := gesture.NewAssembler(nil)
	s, err := a.Process(detector.FrameOf(detector.HandPose{
		Handedness:  detector.Left,
		FingerAngle: 0.45 * math.Pi,
		ThumbSpread: 0.128,
		WristX:      0.375,
	}))
	require.NoError(t, err)

	eng := engine.NewMemory(engine.DefaultParameters())
	r := NewRouter(DefaultTable(), eng)
	res := r.Apply(context.Background(), s)

	assert.Equal(t, []string{"ipState", "ipSampleSize", "ipPitch", "ipDelayReverbDry"}, res.Applied)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Failed)

	want := map[string]float64{
		"ipState":          1,
		"ipSampleSize":     0.8,
		"ipPitch":          0.5,
		"ipDelayReverbDry": -0.2,
		"ipSpeed":          0,
		"ipDelayFeedback":  0,
	}
	for name, v := range want {
		got, ok := eng.Value(name)
		require.True(t, ok, name)
		assert.InDelta(t, v, got, 1e-9, name)
	}

	calls := eng.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, engine.ParamID("0"), calls[0].ID, "run state is written first")
}

func TestRouter_NoHandsStopsTheEngine(t *testing.T) {
	eng := engine.NewMemory(engine.DefaultParameters())
	r := NewRouter(DefaultTable(), eng)

	res := r.Apply(context.Background(), gesture.NewSnapshot(nil, nil, nil, 1, epochZero))
	assert.Equal(t, []string{"ipState"}, res.Applied)
	assert.Equal(t, []engine.Call{{ID: "0", Value: 0}}, eng.Calls())
}

func TestRouter_SkipsUnresolvedTargets(t *testing.T) {
	eng := engine.NewMemory(engine.Table{{ID: "a", Name: "ipState", Min: 0, Max: 1}})
	r := NewRouter(DefaultTable(), eng)

	res := r.Apply(context.Background(), gesture.NewSnapshot(fs(0.5, 0.5, 0.5), nil, nil, 1, epochZero))
	assert.Equal(t, []string{"ipState"}, res.Applied)
	assert.Equal(t, []string{"ipSampleSize", "ipPitch", "ipDelayReverbDry"}, res.Skipped)
	assert.Len(t, eng.Calls(), 1)
}

func TestRouter_ClampsToRuleAndParameter(t *testing.T) {
	table, err := NewTable([]Rule{
		{Source: LeftOpenness, Target: "narrowRule", Min: -0.5, Max: 0.5},
		{Source: LeftOpenness, Target: "narrowParam", Min: -1, Max: 1},
	})
	require.NoError(t, err)

	eng := engine.NewMemory(engine.Table{
		{ID: "r", Name: "narrowRule", Min: -1, Max: 1},
		{ID: "p", Name: "narrowParam", Min: 0, Max: 0.25},
	})
	r := NewRouter(table, eng)
	r.Apply(context.Background(), gesture.NewSnapshot(fs(0.9, 0, 0), nil, nil, 1, epochZero))

	assert.Equal(t, []engine.Call{{ID: "r", Value: 0.5}, {ID: "p", Value: 0.25}}, eng.Calls())
}

// flakyEngine fails or panics for chosen ids and can change its table after
// a router captured it.
type flakyEngine struct {
	params engine.Table
	fail   map[engine.ParamID]error
	panics map[engine.ParamID]bool
	set    []engine.ParamID
}

func (e *flakyEngine) Parameters() engine.Table { return e.params.Clone() }

func (e *flakyEngine) SetParameter(id engine.ParamID, _ float64) error {
	if e.panics[id] {
		panic("device unplugged")
	}
	if err := e.fail[id]; err != nil {
		return err
	}
	e.set = append(e.set, id)
	return nil
}

func TestRouter_FailuresDoNotStopSiblings(t *testing.T) {
	boom := errors.New("boom")
	eng := &flakyEngine{
		params: engine.DefaultParameters(),
		fail:   map[engine.ParamID]error{"1": boom},
		panics: map[engine.ParamID]bool{"2": true},
	}
	r := NewRouter(DefaultTable(), eng)
	s := gesture.NewSnapshot(fs(0.1, 0.2, 0.3), fs(0.4, 0.5, 0.6), nil, 1, epochZero)

	res := r.Apply(context.Background(), s)
	assert.Equal(t, []string{"ipState", "ipDelayReverbDry", "ipSpeed", "ipDelayFeedback"}, res.Applied)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, "ipSampleSize", res.Failed[0].Target)
	assert.ErrorIs(t, res.Failed[0].Err, boom)
	assert.Equal(t, "ipPitch", res.Failed[1].Target)
	assert.ErrorContains(t, res.Failed[1].Err, "device unplugged")

	// The next snapshot is still routed.
	res = r.Apply(context.Background(), s)
	assert.Len(t, res.Applied, 4)
}

func TestRouter_ParameterTableCapturedOnce(t *testing.T) {
	eng := &flakyEngine{params: engine.Table{{ID: "a", Name: "ipState", Min: 0, Max: 1}}}
	r := NewRouter(DefaultTable(), eng)

	eng.params = engine.Table{{ID: "b", Name: "ipState", Min: 0, Max: 1}}
	r.Deliver(context.Background(), gesture.NewSnapshot(nil, nil, nil, 1, epochZero))

	assert.Equal(t, []engine.ParamID{"a"}, eng.set)
	assert.Equal(t, engine.ParamID("a"), r.Parameters().Resolve("ipState"))
}

var epochZero = time.Time{}
