package fsm

import "github.com/enetx/g"

// Variant is one member of a machine's closed state set: its signal
// routes and its optional entry and exit callbacks.
// A variant is configured with its fluent methods inside a Factory and
// is cloned when the machine is built, so later changes have no effect.
type Variant[C any] struct {
	state   State
	routes  g.Map[Signal, g.Slice[route[C]]]
	signals g.Slice[Signal]
	onEntry g.Slice[Callback[C]]
	onExit  g.Slice[Callback[C]]
}

// NewVariant creates an empty variant for the given state.
func NewVariant[C any](state State) *Variant[C] {
	return &Variant[C]{
		state:  state,
		routes: g.NewMap[Signal, g.Slice[route[C]]](),
	}
}

// State returns the tag of the variant.
func (v *Variant[C]) State() State { return v.state }

// On adds an unguarded handler for a signal.
func (v *Variant[C]) On(signal Signal, h Handler[C]) *Variant[C] {
	return v.OnWhen(signal, nil, h)
}

// OnWhen adds a guarded handler for a signal.
// When several routes of one signal exist, exactly one guard must pass at dispatch time.
func (v *Variant[C]) OnWhen(signal Signal, guard GuardFunc[C], h Handler[C]) *Variant[C] {
	if _, ok := v.routes[signal]; !ok {
		v.signals.Push(signal)
	}

	v.routes[signal] = append(v.routes[signal], route[C]{guard: guard, handler: h})

	return v
}

// OnEntry registers a callback run when the variant becomes active.
func (v *Variant[C]) OnEntry(cb Callback[C]) *Variant[C] {
	v.onEntry.Push(cb)
	return v
}

// OnExit registers a callback run when the variant stops being active.
func (v *Variant[C]) OnExit(cb Callback[C]) *Variant[C] {
	v.onExit.Push(cb)
	return v
}

// Signals returns the signals the variant implements, in declaration order.
func (v *Variant[C]) Signals() g.Slice[Signal] { return v.signals.Clone() }

// Implements reports whether the variant has at least one route for the signal.
func (v *Variant[C]) Implements(signal Signal) bool {
	_, ok := v.routes[signal]
	return ok
}

// HasEntry reports whether entry callbacks are registered.
func (v *Variant[C]) HasEntry() bool { return v.onEntry.NotEmpty() }

// HasExit reports whether exit callbacks are registered.
func (v *Variant[C]) HasExit() bool { return v.onExit.NotEmpty() }

func (v *Variant[C]) clone() *Variant[C] {
	routes := g.NewMap[Signal, g.Slice[route[C]]]()
	for signal, rs := range v.routes {
		routes[signal] = rs.Clone()
	}

	return &Variant[C]{
		state:   v.state,
		routes:  routes,
		signals: v.signals.Clone(),
		onEntry: v.onEntry.Clone(),
		onExit:  v.onExit.Clone(),
	}
}
