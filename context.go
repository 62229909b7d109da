package fsm

import (
	"context"
	"fmt"

	"github.com/enetx/g"
)

// Context is handed to handlers, guards and callbacks.
// Ctx carries request-scoped values (trace spans, loggers); it is never used for cancellation.
// State holds the state for which a handler or callback is being executed.
// Signal is empty for callbacks run by New, ForceState and Reset.
// Input holds data specific to the current dispatch and is NOT serialized.
// Data is the shared domain context every variant was built from.
// Meta is machine-level metadata and is serialized with the snapshot.
type Context[C any] struct {
	Ctx    context.Context
	State  State
	Signal Signal
	Input  any
	Data   C
	Meta   *g.MapSafe[g.String, any]
}

// InputAs returns the dispatch input as T.
func InputAs[T, C any](ctx *Context[C]) (T, error) {
	v, ok := ctx.Input.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("fsm: signal %q expects input of type %T, got %T", ctx.Signal, zero, ctx.Input)
	}

	return v, nil
}
