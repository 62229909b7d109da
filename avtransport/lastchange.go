package avtransport

import (
	"sync"

	"github.com/enetx/g"
)

// Variable names an evented AVTransport state variable.
type Variable g.String

const (
	VarTransportState          Variable = "TransportState"
	VarTransportStatus         Variable = "TransportStatus"
	VarTransportPlaySpeed      Variable = "TransportPlaySpeed"
	VarCurrentTransportActions Variable = "CurrentTransportActions"
	VarAVTransportURI          Variable = "AVTransportURI"
	VarAVTransportURIMetaData  Variable = "AVTransportURIMetaData"
	VarNumberOfTracks          Variable = "NumberOfTracks"
	VarCurrentTrack            Variable = "CurrentTrack"
	VarCurrentTrackURI         Variable = "CurrentTrackURI"
	VarRelativeTimePosition    Variable = "RelativeTimePosition"
	VarAbsoluteTimePosition    Variable = "AbsoluteTimePosition"
)

// EventedValue is one changed variable.
type EventedValue struct {
	Name  Variable
	Value g.String
}

// Evented builds an EventedValue.
func Evented(name Variable, value g.String) EventedValue {
	return EventedValue{Name: name, Value: value}
}

// LastChange accumulates changed state variables per instance until the
// eventing layer drains them with Flush. A LastChange may be shared by
// several transports.
type LastChange struct {
	mu      sync.Mutex
	pending g.Map[uint32, g.Map[Variable, g.String]]
}

// NewLastChange returns an empty accumulator.
func NewLastChange() *LastChange {
	return &LastChange{pending: g.NewMap[uint32, g.Map[Variable, g.String]]()}
}

// Set records values for an instance, replacing earlier unflushed values of the same variables.
func (lc *LastChange) Set(instanceID uint32, values ...EventedValue) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	vars, ok := lc.pending[instanceID]
	if !ok {
		vars = g.NewMap[Variable, g.String]()
		lc.pending[instanceID] = vars
	}

	for _, v := range values {
		vars[v.Name] = v.Value
	}
}

// Get returns the pending value of a variable.
func (lc *LastChange) Get(instanceID uint32, name Variable) g.Option[g.String] {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	value, ok := lc.pending[instanceID][name]
	if !ok {
		return g.None[g.String]()
	}

	return g.Some(value)
}

// Dirty reports whether there are unflushed values.
func (lc *LastChange) Dirty() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	return len(lc.pending) > 0
}

// Flush returns every pending value and clears the accumulator.
func (lc *LastChange) Flush() g.Map[uint32, g.Map[Variable, g.String]] {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	flushed := lc.pending
	lc.pending = g.NewMap[uint32, g.Map[Variable, g.String]]()

	return flushed
}
