package fsm_test

import (
	"errors"
	"fmt"
	"sync"

	. "github.com/enetx/upnpfsm"
)

const (
	off    State = "off"
	on     State = "on"
	dimmed State = "dimmed"
	broken State = "broken"
)

const (
	toggle Signal = "toggle"
	dim    Signal = "dim"
	kick   Signal = "kick"
	level  Signal = "level"
	smash  Signal = "smash"
)

var errBulb = errors.New("bulb burnt out")

// lamp is the shared domain context of the test machines.
type lamp struct {
	mu         sync.Mutex
	trace      []string
	brightness int
	entries    map[State]int
}

func newLamp() *lamp { return &lamp{entries: map[State]int{}} }

func (l *lamp) record(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.trace = append(l.trace, fmt.Sprintf(format, args...))
}

func (l *lamp) events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.trace...)
}

func enterCounter(ctx *Context[*lamp]) error {
	ctx.Data.entries[ctx.State]++
	ctx.Data.record("enter:%s", ctx.State)

	return nil
}

func exitRecorder(ctx *Context[*lamp]) error {
	ctx.Data.record("exit:%s", ctx.State)
	return nil
}

func offVariant(*lamp) (*Variant[*lamp], error) {
	return NewVariant[*lamp](off).
		OnEntry(enterCounter).
		OnExit(exitRecorder).
		On(toggle, func(ctx *Context[*lamp]) (Outcome, error) {
			ctx.Data.brightness = 100
			return Goto(on), nil
		}).
		On(kick, func(*Context[*lamp]) (Outcome, error) { return Stay(), nil }), nil
}

func onVariant(*lamp) (*Variant[*lamp], error) {
	return NewVariant[*lamp](on).
		OnEntry(enterCounter).
		OnExit(exitRecorder).
		On(toggle, func(ctx *Context[*lamp]) (Outcome, error) {
			ctx.Data.brightness = 0
			return Goto(off), nil
		}).
		On(dim, func(ctx *Context[*lamp]) (Outcome, error) {
			ctx.Data.brightness = 30
			return Goto(dimmed), nil
		}).
		On(level, func(ctx *Context[*lamp]) (Outcome, error) {
			return Return(ctx.Data.brightness), nil
		}).
		On(kick, func(*Context[*lamp]) (Outcome, error) { return Stay(), errBulb }).
		On(smash, func(*Context[*lamp]) (Outcome, error) { return Goto(broken), nil }), nil
}

func dimmedVariant(*lamp) (*Variant[*lamp], error) {
	return NewVariant[*lamp](dimmed).
		OnEntry(enterCounter).
		OnExit(exitRecorder).
		OnWhen(toggle, func(ctx *Context[*lamp]) bool { return ctx.Data.brightness < 50 },
			func(ctx *Context[*lamp]) (Outcome, error) {
				ctx.Data.brightness = 100
				return Goto(on), nil
			}).
		OnWhen(toggle, func(ctx *Context[*lamp]) bool { return ctx.Data.brightness >= 50 },
			func(ctx *Context[*lamp]) (Outcome, error) {
				ctx.Data.brightness = 0
				return Goto(off), nil
			}).
		On(level, func(ctx *Context[*lamp]) (Outcome, error) {
			n, err := InputAs[int](ctx)
			if err != nil {
				return Stay(), err
			}

			ctx.Data.brightness = n

			return Return(n), nil
		}), nil
}

func lampFactories() []Factory[*lamp] {
	return []Factory[*lamp]{offVariant, onVariant, dimmedVariant}
}

func newLampMachine(opts ...Option) (*Machine[*lamp], *lamp, error) {
	l := newLamp()
	m, err := New(l, off, lampFactories(), opts...)

	return m, l, err
}
