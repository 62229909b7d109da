package fsm

import "github.com/enetx/g"

type (
	// State identifies one variant of a machine's closed state set.
	State g.String
	// Signal names an operation routed to the current variant.
	Signal g.String

	// Handler runs the domain logic of a signal for one variant.
	// The returned Outcome may name the next state.
	Handler[C any] func(ctx *Context[C]) (Outcome, error)
	// Callback is a function called on entering or exiting a state.
	Callback[C any] func(ctx *Context[C]) error
	// GuardFunc determines whether a route of a signal is allowed.
	GuardFunc[C any] func(ctx *Context[C]) bool
	// TransitionHook is a global callback called on every transition.
	// It runs after the state swap and before the entry callbacks of the new state.
	TransitionHook[C any] func(from, to State, signal Signal, ctx *Context[C]) error

	// Factory builds one variant from the shared domain context.
	// Every variant of a machine is constructed from the same value.
	Factory[C any] func(data C) (*Variant[C], error)
)

// Outcome is the result of a handler: an optional domain value and an
// optional next state.
type Outcome struct {
	Value any
	Next  g.Option[State]
}

// Stay keeps the machine in its current state.
func Stay() Outcome { return Outcome{Next: g.None[State]()} }

// Goto requests a transition to the given state.
func Goto(s State) Outcome { return Outcome{Next: g.Some(s)} }

// Return carries a value without requesting a transition.
func Return(v any) Outcome { return Outcome{Value: v, Next: g.None[State]()} }

// Then adds a transition to an outcome.
func (o Outcome) Then(s State) Outcome {
	o.Next = g.Some(s)
	return o
}

// Transitions reports whether the outcome requests a state change.
func (o Outcome) Transitions() bool { return o.Next.IsSome() }

// route is a single guarded handler of a signal.
type route[C any] struct {
	guard   GuardFunc[C]
	handler Handler[C]
}
