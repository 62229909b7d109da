// Package fsm provides a generic finite state machine engine built around
// a closed set of state variants. Each variant owns an explicit table of
// signal handlers (optionally guarded) and optional entry and exit
// callbacks. The table is validated when the machine is built, so a
// signal the current variant does not implement fails with
// ErrUnsupportedSignal instead of being silently ignored.
//
// All variants are constructed from one shared domain context value of
// type C. Handlers and callbacks receive it through Context.Data and may
// mutate it: Dispatch, ForceState, Reset and Inspect are serialized by a
// single mutex per machine, so at most one handler, guard or callback runs
// at any instant. Callers must not mutate the domain context outside the
// machine, and handlers must not call back into their own machine except
// for the lock-free Current.
//
// It is built with types and utilities from the github.com/enetx/g library.
package fsm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/enetx/g"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

// Machine is a state machine instance. It owns one frozen registry of
// variants and the current-state cell.
type Machine[C any] struct {
	id      uuid.UUID
	name    string
	initial State
	current *atomic.String
	reg     *registry[C]
	data    C
	meta    *g.MapSafe[g.String, any]

	onTransition g.Slice[TransitionHook[C]]
	edges        g.Map[edge, g.Slice[Signal]]

	history      g.Slice[State]
	historyLimit int
	hmu          sync.RWMutex

	logger *slog.Logger
	tracer trace.Tracer

	mu sync.Mutex
}

// New builds a machine from the given variant factories. Every factory is
// called with data. The entry callbacks of the initial state run before New
// returns; if one fails the machine is not returned.
func New[C any](data C, initial State, factories []Factory[C], opts ...Option) (*Machine[C], error) {
	o := newOptions(opts)

	reg, err := buildRegistry(data, initial, factories, o.signals)
	if err != nil {
		return nil, err
	}

	m := &Machine[C]{
		id:           uuid.New(),
		name:         o.name,
		initial:      initial,
		current:      atomic.NewString(string(initial)),
		reg:          reg,
		data:         data,
		meta:         g.NewMapSafe[g.String, any](),
		edges:        g.NewMap[edge, g.Slice[Signal]](),
		history:      g.Slice[State]{initial},
		historyLimit: o.historyLimit,
		logger:       o.logger,
		tracer:       o.tracer,
	}

	m.logger.Debug("Creating state machine",
		"machine", m.name, "id", m.id, "initial", initial, "states", reg.order)

	m.mu.Lock()
	defer m.mu.Unlock()

	v, _ := reg.lookup(initial)
	if err := m.runCallbacks(v.onEntry, m.newContext(context.Background(), initial, "", nil), HookEntry); err != nil {
		return nil, err
	}

	return m, nil
}

// MustNew is like New but panics if the machine cannot be built.
func MustNew[C any](data C, initial State, factories []Factory[C], opts ...Option) *Machine[C] {
	m, err := New(data, initial, factories, opts...)
	if err != nil {
		panic(err)
	}

	return m
}

// ID returns the unique id of the machine instance.
func (m *Machine[C]) ID() uuid.UUID { return m.id }

// Name returns the machine name.
func (m *Machine[C]) Name() string { return m.name }

// Initial returns the initial state.
func (m *Machine[C]) Initial() State { return m.initial }

// Meta returns the machine metadata map.
func (m *Machine[C]) Meta() *g.MapSafe[g.String, any] { return m.meta }

// Current returns the machine's current state.
// It never blocks and is safe to call from handlers and callbacks.
func (m *Machine[C]) Current() State { return State(m.current.Load()) }

// History returns a copy of the list of previously visited states.
func (m *Machine[C]) History() g.Slice[State] {
	m.hmu.RLock()
	defer m.hmu.RUnlock()

	return m.history.Clone()
}

// States returns every registered state in declaration order.
func (m *Machine[C]) States() g.Slice[State] { return m.reg.order.Clone() }

// Signals returns the signal set of the machine.
func (m *Machine[C]) Signals() g.Slice[Signal] { return m.reg.signals.Clone() }

// SignalsOf returns the signals implemented by a state.
func (m *Machine[C]) SignalsOf(s State) g.Option[g.Slice[Signal]] {
	v, ok := m.reg.lookup(s)
	if !ok {
		return g.None[g.Slice[Signal]]()
	}

	return g.Some(v.Signals())
}

// Implements reports whether the given state implements the signal.
func (m *Machine[C]) Implements(s State, signal Signal) bool {
	v, ok := m.reg.lookup(s)
	return ok && v.Implements(signal)
}

// Supports reports whether the current state implements the signal.
// Guards are not evaluated.
func (m *Machine[C]) Supports(signal Signal) bool { return m.Implements(m.Current(), signal) }

// OnTransition registers a global transition hook.
func (m *Machine[C]) OnTransition(hook TransitionHook[C]) *Machine[C] {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onTransition.Push(hook)

	return m
}

// Inspect runs fn with the domain context while holding the dispatch lock.
func (m *Machine[C]) Inspect(fn func(data C)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn(m.data)
}

// Dispatch routes a signal to the current state.
// It accepts an optional single input argument passed to guards and the handler
// through Context.Input. When the handler's Outcome names a next state, the
// exit callbacks of the current state run, the state is swapped, transition
// hooks run and finally the entry callbacks of the new state run, all before
// Dispatch returns.
func (m *Machine[C]) Dispatch(ctx context.Context, signal Signal, input ...any) (out Outcome, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	ctx, span := m.startSpan(ctx, "fsm.dispatch", attribute.String("fsm.signal", string(signal)))

	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.Current()

	defer func() {
		m.observeDispatch(ctx, from, signal, start, err)
		endSpan(span, from, m.Current(), err)
	}()

	v, _ := m.reg.lookup(from)

	routes, ok := v.routes[signal]
	if !ok {
		return Stay(), &ErrUnsupportedSignal{State: from, Signal: signal}
	}

	var in any
	if len(input) > 0 {
		in = input[0]
	}

	c := m.newContext(ctx, from, signal, in)

	h, err := m.selectRoute(routes, c)
	if err != nil {
		return Stay(), err
	}

	out, err = m.invoke(h, c)
	if err != nil {
		return Stay(), err
	}

	if out.Next.IsNone() {
		return out, nil
	}

	return out, m.transition(c, from, out.Next.Some())
}

// ForceState unconditionally moves the machine to s: exit callbacks of the
// current state, swap, transition hooks, entry callbacks of s.
// Routes and guards are bypassed. Forcing the current state re-enters it.
func (m *Machine[C]) ForceState(ctx context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.force(ctx, s)
}

// Reset forces the machine back to its initial state and clears the history.
func (m *Machine[C]) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.force(ctx, m.initial); err != nil {
		return err
	}

	m.hmu.Lock()
	m.history = g.Slice[State]{m.initial}
	m.hmu.Unlock()

	return nil
}

func (m *Machine[C]) force(ctx context.Context, s State) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	from := m.Current()

	ctx, span := m.startSpan(ctx, "fsm.force", attribute.String("fsm.target", string(s)))
	defer func() { endSpan(span, from, m.Current(), err) }()

	if _, ok := m.reg.lookup(s); !ok {
		return &ErrUnknownState{State: s}
	}

	m.logger.DebugContext(ctx, "Forcing state machine into state",
		"machine", m.name, "id", m.id, "from", from, "to", s)

	return m.transition(m.newContext(ctx, from, "", nil), from, s)
}

// transition runs exit, swap, hooks and entry. It must be called with mu held.
func (m *Machine[C]) transition(c *Context[C], from, to State) error {
	next, ok := m.reg.lookup(to)
	if !ok {
		return &ErrUnknownState{State: to}
	}

	prev, _ := m.reg.lookup(from)

	c.State = from
	if err := m.runCallbacks(prev.onExit, c, HookExit); err != nil {
		return err
	}

	m.current.Store(string(to))
	m.pushHistory(to)
	m.recordEdge(from, to, c.Signal)

	c.State = to
	m.observeTransition(c.Ctx, from, to, c.Signal)

	for _, hook := range m.onTransition {
		if err := m.runHook(hook, from, to, c); err != nil {
			return err
		}
	}

	return m.runCallbacks(next.onEntry, c, HookEntry)
}

func (m *Machine[C]) pushHistory(s State) {
	m.hmu.Lock()
	defer m.hmu.Unlock()

	m.history.Push(s)

	if m.historyLimit > 0 && len(m.history) > m.historyLimit {
		n := copy(m.history, m.history[len(m.history)-m.historyLimit:])
		m.history = m.history[:n]
	}
}

func (m *Machine[C]) newContext(ctx context.Context, s State, signal Signal, input any) *Context[C] {
	return &Context[C]{
		Ctx:    ctx,
		State:  s,
		Signal: signal,
		Input:  input,
		Data:   m.data,
		Meta:   m.meta,
	}
}

// selectRoute evaluates guards; exactly one route must accept the dispatch.
func (m *Machine[C]) selectRoute(routes g.Slice[route[C]], c *Context[C]) (Handler[C], error) {
	var (
		selected Handler[C]
		matched  int
	)

	for _, rt := range routes {
		if rt.guard != nil {
			ok, err := m.runGuard(rt.guard, c)
			if err != nil {
				return nil, err
			}

			if !ok {
				continue
			}
		}

		matched++
		if matched > 1 {
			return nil, &ErrAmbiguousTransition{From: c.State, Signal: c.Signal}
		}

		selected = rt.handler
	}

	if matched == 0 {
		return nil, &ErrUnsupportedSignal{State: c.State, Signal: c.Signal, Rejected: true}
	}

	return selected, nil
}

// invoke safely executes a handler, recovering from panics.
func (m *Machine[C]) invoke(h Handler[C], c *Context[C]) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ErrHandler{State: c.State, Signal: c.Signal, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	m.logger.DebugContext(c.Ctx, "Invoking signal handler of current state",
		"machine", m.name, "id", m.id, "state", c.State, "signal", c.Signal)

	out, err = h(c)
	if err != nil {
		return Stay(), &ErrHandler{State: c.State, Signal: c.Signal, Err: err}
	}

	return out, nil
}

// runGuard safely executes a guard, recovering from panics.
func (m *Machine[C]) runGuard(guard GuardFunc[C], c *Context[C]) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ErrCallback{HookType: HookGuard, State: c.State, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	return guard(c), nil
}

// runCallbacks executes entry or exit callbacks in registration order and stops at the first failure.
func (m *Machine[C]) runCallbacks(cbs g.Slice[Callback[C]], c *Context[C], hookType string) error {
	for _, cb := range cbs {
		if err := m.executeCallback(cb, c, hookType); err != nil {
			return err
		}
	}

	return nil
}

// executeCallback safely executes a callback, recovering from panics.
func (m *Machine[C]) executeCallback(cb Callback[C], c *Context[C], hookType string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ErrCallback{HookType: hookType, State: c.State, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if cbErr := cb(c); cbErr != nil {
		err = &ErrCallback{HookType: hookType, State: c.State, Err: cbErr}
	}

	return err
}

func (m *Machine[C]) runHook(hook TransitionHook[C], from, to State, c *Context[C]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ErrCallback{HookType: HookTransition, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if hookErr := hook(from, to, c.Signal, c); hookErr != nil {
		err = &ErrCallback{HookType: HookTransition, Err: hookErr}
	}

	return err
}
