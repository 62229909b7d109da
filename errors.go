package fsm

import (
	"errors"
	"fmt"
)

// Hook types reported by ErrCallback.
const (
	HookEntry      = "OnEntry"
	HookExit       = "OnExit"
	HookTransition = "OnTransition"
	HookGuard      = "Guard"
)

// Configuration causes wrapped by ErrConfiguration.
var (
	ErrNoVariants          = errors.New("no variants declared")
	ErrNilVariant          = errors.New("variant factory is nil or returned nil")
	ErrVariantConstruction = errors.New("variant construction failed")
	ErrEmptyState          = errors.New("variant has an empty state tag")
	ErrDuplicateState      = errors.New("duplicate state tag")
	ErrNilHandler          = errors.New("signal handler is nil")
	ErrUndeclaredSignal    = errors.New("signal is not in the declared signal set")
	ErrInitialStateMissing = errors.New("initial state is not in the list of states")
)

// ErrConfiguration is returned by New when the state set is malformed.
// The machine cannot be built. Err holds one of the configuration causes
// above, possibly joined with the error returned by a variant factory.
type ErrConfiguration struct {
	State  State
	Signal Signal
	Err    error
}

func (e *ErrConfiguration) Error() string {
	switch {
	case e.Signal != "":
		return fmt.Sprintf("fsm: invalid configuration for state %q signal %q: %v", e.State, e.Signal, e.Err)
	case e.State != "":
		return fmt.Sprintf("fsm: invalid configuration for state %q: %v", e.State, e.Err)
	default:
		return fmt.Sprintf("fsm: invalid configuration: %v", e.Err)
	}
}

func (e *ErrConfiguration) Unwrap() error { return e.Err }

// ErrAmbiguousTransition is returned when more than one guarded route of a
// signal accepts the dispatch. The dispatch is aborted to prevent
// non-deterministic behavior.
type ErrAmbiguousTransition struct {
	From   State
	Signal Signal
}

func (e *ErrAmbiguousTransition) Error() string {
	return fmt.Sprintf("fsm: ambiguous dispatch in state %q on signal %q; multiple guards returned true",
		e.From, e.Signal)
}

// ErrCallback is returned when a callback (OnEntry, OnExit), a guard or a
// hook (OnTransition) returns an error or panics. It wraps the original
// error, allowing it to be inspected using errors.Is and errors.As.
//
// An OnExit failure leaves the machine in the old state. OnTransition and
// OnEntry failures happen after the swap: the machine is in the new state
// with its entry not completed and should be inspected or reset with ForceState.
type ErrCallback struct {
	// HookType is one of HookEntry, HookExit, HookTransition or HookGuard.
	HookType string
	// State is the state associated with the callback. It may be empty for global hooks.
	State State
	// Err is the original error returned by the callback or the error created after recovering from a panic.
	Err error
}

func (e *ErrCallback) Error() string {
	if e.State != "" {
		return fmt.Sprintf("fsm: error in %s callback for state %q: %v", e.HookType, e.State, e.Err)
	}

	return fmt.Sprintf("fsm: error in %s hook: %v", e.HookType, e.Err)
}

func (e *ErrCallback) Unwrap() error { return e.Err }

// ErrHandler is returned when a signal handler fails or panics.
// The machine state is unchanged.
type ErrHandler struct {
	State  State
	Signal Signal
	Err    error
}

func (e *ErrHandler) Error() string {
	return fmt.Sprintf("fsm: handler for signal %q in state %q failed: %v", e.Signal, e.State, e.Err)
}

func (e *ErrHandler) Unwrap() error { return e.Err }

// ErrUnsupportedSignal is returned when the current state does not
// implement a signal, or when every guard of the signal rejected it.
// The machine state is unchanged.
type ErrUnsupportedSignal struct {
	State    State
	Signal   Signal
	Rejected bool
}

func (e *ErrUnsupportedSignal) Error() string {
	if e.Rejected {
		return fmt.Sprintf("fsm: state %q rejected signal %q; no guard returned true", e.State, e.Signal)
	}

	return fmt.Sprintf("fsm: state %q doesn't support signal %q", e.State, e.Signal)
}

// ErrUnknownState is returned when a state that is not registered is
// requested by ForceState, returned by a handler or found in a snapshot.
// This prevents the machine from entering an invalid, undeclared state.
type ErrUnknownState struct {
	State State
}

func (e *ErrUnknownState) Error() string {
	return fmt.Sprintf("fsm: unknown state %q", e.State)
}

// IsUnsupportedSignal reports whether err is or wraps an ErrUnsupportedSignal.
func IsUnsupportedSignal(err error) bool {
	var e *ErrUnsupportedSignal
	return errors.As(err, &e)
}

// IsUnknownState reports whether err is or wraps an ErrUnknownState.
func IsUnknownState(err error) bool {
	var e *ErrUnknownState
	return errors.As(err, &e)
}

// IsConfiguration reports whether err is or wraps an ErrConfiguration.
func IsConfiguration(err error) bool {
	var e *ErrConfiguration
	return errors.As(err, &e)
}
