package fsm

import (
	"context"

	"github.com/enetx/g"
)

// StateMachine is the uniform invocation surface a protocol facade builds on.
type StateMachine[C any] interface {
	Dispatch(ctx context.Context, signal Signal, input ...any) (Outcome, error)
	Current() State
	ForceState(ctx context.Context, s State) error
	Reset(ctx context.Context) error
	Supports(signal Signal) bool
	Implements(s State, signal Signal) bool
	Inspect(fn func(data C))
	History() g.Slice[State]
	States() g.Slice[State]
	Signals() g.Slice[Signal]
	ToDOT() g.String
	MarshalJSON() ([]byte, error)
	UnmarshalJSON(data []byte) error
}

// Interface compliance check.
var _ StateMachine[any] = (*Machine[any])(nil)
