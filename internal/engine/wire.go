package engine

import (
	"encoding/json"
	"fmt"
)

// Message types exchanged with remote and subprocess engines.
const (
	msgParameters = "parameters"
	msgSet        = "set"
)

type message struct {
	Type       string   `json:"type"`
	Parameters Table    `json:"parameters,omitempty"`
	ID         ParamID  `json:"id,omitempty"`
	Value      *float64 `json:"value,omitempty"`
}

func encodeSet(id ParamID, value float64) ([]byte, error) {
	return json.Marshal(message{Type: msgSet, ID: id, Value: &value})
}

// decodeParameters parses the table announcement an engine sends first.
func decodeParameters(data []byte) (Table, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parse parameter table: %w", err)
	}
	if msg.Type != msgParameters {
		return nil, fmt.Errorf("%w: got message of type %q", ErrNoParameters, msg.Type)
	}
	if len(msg.Parameters) == 0 {
		return nil, ErrNoParameters
	}
	for _, p := range msg.Parameters {
		if p.ID == Unresolved {
			return nil, fmt.Errorf("parameter %q has no id", p.Name)
		}
		if p.Min > p.Max {
			return nil, fmt.Errorf("parameter %q has min %v above max %v", p.Name, p.Min, p.Max)
		}
	}
	return msg.Parameters, nil
}
