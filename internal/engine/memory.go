package engine

import (
	"fmt"
	"sync"
)

// Call records one SetParameter invocation on a Memory engine.
type Call struct {
	ID    ParamID
	Value float64
}

// Memory is an in-process engine. Writes are bounded to each parameter's
// range and stored back into the table.
type Memory struct {
	mu     sync.Mutex
	params Table
	calls  []Call
	fail   map[ParamID]error
	done   chan struct{}
	once   sync.Once
}

// NewMemory creates a Memory engine with the given table.
func NewMemory(params Table) *Memory {
	return &Memory{
		params: params.Clone(),
		fail:   make(map[ParamID]error),
		done:   make(chan struct{}),
	}
}

// Parameters returns a copy of the current table.
func (m *Memory) Parameters() Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params.Clone()
}

// SetParameter stores value, bounded to the parameter's range.
func (m *Memory) SetParameter(id ParamID, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return ErrClosed
	default:
	}

	m.calls = append(m.calls, Call{ID: id, Value: value})
	if err := m.fail[id]; err != nil {
		return err
	}

	for i := range m.params {
		if m.params[i].ID == id {
			m.params[i].Value = m.params[i].Clamp(value)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownParam, id)
}

// Value returns the stored value of the named parameter.
func (m *Memory) Value(name string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.params.Lookup(m.params.Resolve(name))
	return p.Value, ok
}

// Calls returns every SetParameter invocation so far, in order.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// FailOn makes writes to id return err. A nil err clears the failure.
func (m *Memory) FailOn(id ParamID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, id)
		return
	}
	m.fail[id] = err
}

func (m *Memory) Done() <-chan struct{} {
	return m.done
}

// Close detaches the engine. Later writes return ErrClosed.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}
