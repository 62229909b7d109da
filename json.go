package fsm

import (
	"encoding/json"
	"fmt"

	"github.com/enetx/g"
	"github.com/google/uuid"
)

// Snapshot is a serializable, diagnostic representation of a machine's state.
// It uses standard map types for robust JSON handling. The domain context is
// not part of it.
type Snapshot struct {
	ID      uuid.UUID            `json:"id"`
	Name    string               `json:"name"`
	Current State                `json:"current"`
	History g.Slice[State]       `json:"history"`
	Meta    g.Map[g.String, any] `json:"meta"`
}

// Snapshot captures the current state, history and metadata.
func (m *Machine[C]) Snapshot() Snapshot {
	return Snapshot{
		ID:      m.id,
		Name:    m.name,
		Current: m.Current(),
		History: m.History(),
		Meta:    m.meta.Iter().Collect(),
	}
}

// MarshalJSON implements the json.Marshaler interface.
func (m *Machine[C]) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
// The id of the receiving machine is kept.
func (m *Machine[C]) UnmarshalJSON(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal fsm snapshot: %w", err)
	}

	return m.Restore(s)
}

// Restore sets the current state and history from a snapshot and merges its
// metadata, without running any callback. Every state in the snapshot must be registered.
func (m *Machine[C]) Restore(s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reg.lookup(s.Current); !ok {
		return &ErrUnknownState{State: s.Current}
	}

	for _, state := range s.History {
		if _, ok := m.reg.lookup(state); !ok {
			return &ErrUnknownState{State: state}
		}
	}

	history := s.History.Clone()
	if history.Empty() {
		history = g.Slice[State]{s.Current}
	}

	m.current.Store(string(s.Current))

	m.hmu.Lock()
	m.history = history
	m.hmu.Unlock()

	for k, v := range s.Meta {
		m.meta.Set(k, v)
	}

	m.logger.Debug("Restored state machine from snapshot",
		"machine", m.name, "id", m.id, "current", s.Current, "history", history.Len())

	return nil
}
