package fsm

import (
	"fmt"

	"github.com/enetx/g"
	"github.com/enetx/g/cmp"
)

// registry holds one frozen variant per state. It is never mutated after buildRegistry returns.
type registry[C any] struct {
	variants g.Map[State, *Variant[C]]
	order    g.Slice[State]
	signals  g.Slice[Signal]
	known    g.Set[Signal]
}

// buildRegistry constructs every variant from the shared domain context and validates the result.
// When declared is not empty, every signal a variant implements must be one of them.
func buildRegistry[C any](data C, initial State, factories []Factory[C], declared g.Slice[Signal]) (*registry[C], error) {
	if len(factories) == 0 {
		return nil, &ErrConfiguration{Err: ErrNoVariants}
	}

	r := &registry[C]{
		variants: g.NewMap[State, *Variant[C]](),
		known:    g.NewSet[Signal](),
	}

	for _, signal := range declared {
		if !r.known.Contains(signal) {
			r.known.Insert(signal)
			r.signals.Push(signal)
		}
	}

	for i, factory := range factories {
		if factory == nil {
			return nil, &ErrConfiguration{Err: fmt.Errorf("%w: factory #%d", ErrNilVariant, i)}
		}

		v, err := factory(data)
		if err != nil {
			return nil, &ErrConfiguration{Err: fmt.Errorf("%w: factory #%d: %w", ErrVariantConstruction, i, err)}
		}

		if v == nil {
			return nil, &ErrConfiguration{Err: fmt.Errorf("%w: factory #%d", ErrNilVariant, i)}
		}

		if err := r.add(v.clone(), declared.NotEmpty()); err != nil {
			return nil, err
		}
	}

	if _, ok := r.variants[initial]; !ok {
		return nil, &ErrConfiguration{State: initial, Err: ErrInitialStateMissing}
	}

	return r, nil
}

func (r *registry[C]) add(v *Variant[C], closed bool) error {
	if v.state == "" {
		return &ErrConfiguration{Err: ErrEmptyState}
	}

	if _, ok := r.variants[v.state]; ok {
		return &ErrConfiguration{State: v.state, Err: ErrDuplicateState}
	}

	for _, signal := range v.signals {
		for _, rt := range v.routes[signal] {
			if rt.handler == nil {
				return &ErrConfiguration{State: v.state, Signal: signal, Err: ErrNilHandler}
			}
		}

		if r.known.Contains(signal) {
			continue
		}

		if closed {
			return &ErrConfiguration{State: v.state, Signal: signal, Err: ErrUndeclaredSignal}
		}

		r.known.Insert(signal)
		r.signals.Push(signal)
	}

	r.variants[v.state] = v
	r.order.Push(v.state)

	return nil
}

func (r *registry[C]) lookup(s State) (*Variant[C], bool) {
	v, ok := r.variants[s]
	return v, ok
}

func (r *registry[C]) sortedStates() g.Slice[State] {
	states := r.order.Clone()
	states.SortBy(cmp.Cmp)

	return states
}
