package route

import (
	"errors"
	"fmt"
)

// Rule routes one source to one named engine parameter. The source value is
// clamped to [Min, Max] before it is written.
type Rule struct {
	Source Source  `json:"source" yaml:"source"`
	Target string  `json:"target" yaml:"target"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

func (r Rule) clamp(v float64) float64 {
	return min(max(v, r.Min), r.Max)
}

// Table is an ordered, immutable set of rules. Rules are applied in order.
type Table struct {
	rules []Rule
}

// NewTable validates rules and returns a table holding a copy of them.
func NewTable(rules []Rule) (Table, error) {
	var errs []error
	for i, r := range rules {
		if !r.Source.Valid() {
			errs = append(errs, fmt.Errorf("rule %d: %w: %q", i, ErrUnknownSource, r.Source))
		}
		if r.Target == "" {
			errs = append(errs, fmt.Errorf("rule %d: empty target", i))
		}
		if r.Min > r.Max {
			errs = append(errs, fmt.Errorf("rule %d: min %v above max %v", i, r.Min, r.Max))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Table{}, err
	}
	return Table{rules: append([]Rule(nil), rules...)}, nil
}

// DefaultTable returns the rule set of the bundled patch. The run-state
// parameter comes first so the engine starts before other values land.
func DefaultTable() Table {
	return Table{rules: []Rule{
		{Source: HandsPresent, Target: "ipState", Min: 0, Max: 1},
		{Source: LeftOpenness, Target: "ipSampleSize", Min: -1, Max: 1},
		{Source: LeftWristZone, Target: "ipPitch", Min: -1, Max: 1},
		{Source: LeftThumbProximity, Target: "ipDelayReverbDry", Min: -1, Max: 1},
		{Source: RightOpenness, Target: "ipSpeed", Min: -1, Max: 1},
		{Source: RightThumbProximity, Target: "ipDelayFeedback", Min: -1, Max: 1},
	}}
}

// Rules returns a copy of the rules in order.
func (t Table) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}

// Len returns the number of rules.
func (t Table) Len() int {
	return len(t.rules)
}
