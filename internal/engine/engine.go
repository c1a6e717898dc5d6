// Package engine talks to the synthesis engine that consumes control values.
//
// An engine exposes a fixed table of named, bounded parameters and accepts
// writes by id. Adapters exist for an in-process engine, a remote engine host
// over a websocket and an engine run as a subprocess.
package engine

import (
	"errors"
)

// Sentinel errors.
var (
	ErrClosed       = errors.New("engine closed")
	ErrQueueFull    = errors.New("engine outbound queue full")
	ErrNoParameters = errors.New("engine sent no parameter table")
	ErrUnknownParam = errors.New("unknown parameter")
)

// ParamID identifies a parameter within one engine attachment.
type ParamID string

// Unresolved is returned by Table.Resolve when no parameter has the name.
const Unresolved ParamID = ""

// Parameter describes one engine parameter.
type Parameter struct {
	ID    ParamID `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Clamp bounds v to the parameter's range.
func (p Parameter) Clamp(v float64) float64 {
	return min(max(v, p.Min), p.Max)
}

// Table is an engine's parameter table.
type Table []Parameter

// Resolve returns the id of the parameter called name, or Unresolved.
func (t Table) Resolve(name string) ParamID {
	for _, p := range t {
		if p.Name == name {
			return p.ID
		}
	}
	return Unresolved
}

// Lookup returns the parameter with the given id.
func (t Table) Lookup(id ParamID) (Parameter, bool) {
	for _, p := range t {
		if p.ID == id {
			return p, true
		}
	}
	return Parameter{}, false
}

// Clone returns a copy that shares no memory with t.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	return append(Table(nil), t...)
}

// Engine is a synthesis engine that accepts parameter writes. SetParameter
// must not block.
type Engine interface {
	Parameters() Table
	SetParameter(id ParamID, value float64) error
}

// Conn is an attached engine whose lifetime can end.
type Conn interface {
	Engine
	// Done is closed when the engine goes away.
	Done() <-chan struct{}
	Close() error
}

// DefaultParameters is the parameter table of the bundled patch.
func DefaultParameters() Table {
	return Table{
		{ID: "0", Name: "ipState", Min: 0, Max: 1},
		{ID: "1", Name: "ipSampleSize", Min: -1, Max: 1},
		{ID: "2", Name: "ipPitch", Min: -1, Max: 1},
		{ID: "3", Name: "ipDelayReverbDry", Min: -1, Max: 1},
		{ID: "4", Name: "ipSpeed", Min: -1, Max: 1},
		{ID: "5", Name: "ipDelayFeedback", Min: -1, Max: 1},
	}
}
