// Package statemachine implements a small typed finite state machine.
//
// A Table holds the allowed transitions and is immutable once built, so it can
// be shared between goroutines. A Machine tracks the current state of one
// entity against a Table.
//
//	table, err := statemachine.NewTable(
//	    statemachine.WithTransition(Trial, TrialExpired, TrialEnded),
//	    statemachine.WithTransition(TrialExpired, Suspended, GraceEnded),
//	)
//	m := table.Machine(Trial)
//	err = m.Fire(ctx, TrialEnded, nil)
package statemachine

import (
	"context"
	"fmt"
)

// Action executes side effects during a transition. Returning an error prevents the transition.
type Action[S, E ~string] func(ctx context.Context, from, to S, event E, data any) error

// Guard decides whether a transition may proceed.
type Guard[S, E ~string] func(ctx context.Context, from S, event E, data any) bool

// Transition defines a state change triggered by an event.
type Transition[S, E ~string] struct {
	From    S
	To      S
	Event   E
	Guards  []Guard[S, E]  // all must pass
	Actions []Action[S, E] // executed in order before the state changes
}

// Table is an immutable set of transitions indexed as [from][event].
type Table[S, E ~string] struct {
	transitions map[S]map[E][]Transition[S, E]
}

// Option configures a Table during construction.
type Option[S, E ~string] func(*Table[S, E]) error

// TransitionOption attaches guards or actions to a single transition.
type TransitionOption[S, E ~string] func(*Transition[S, E])

// NewTable builds a transition table from options.
func NewTable[S, E ~string](opts ...Option[S, E]) (*Table[S, E], error) {
	t := &Table[S, E]{transitions: make(map[S]map[E][]Transition[S, E])}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNewTable is NewTable that panics on a malformed definition.
func MustNewTable[S, E ~string](opts ...Option[S, E]) *Table[S, E] {
	t, err := NewTable(opts...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return t
}

// WithTransition registers from -> to on event.
// Several transitions may share from/event; the first whose guards pass wins.
func WithTransition[S, E ~string](from, to S, event E, opts ...TransitionOption[S, E]) Option[S, E] {
	return func(t *Table[S, E]) error {
		if from == "" || to == "" || event == "" {
			return ErrInvalidTransition
		}
		tr := Transition[S, E]{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&tr)
		}
		if _, ok := t.transitions[from]; !ok {
			t.transitions[from] = make(map[E][]Transition[S, E])
		}
		t.transitions[from][event] = append(t.transitions[from][event], tr)
		return nil
	}
}

func WithGuard[S, E ~string](g Guard[S, E]) TransitionOption[S, E] {
	return func(tr *Transition[S, E]) {
		if g != nil {
			tr.Guards = append(tr.Guards, g)
		}
	}
}

func WithAction[S, E ~string](a Action[S, E]) TransitionOption[S, E] {
	return func(tr *Transition[S, E]) {
		if a != nil {
			tr.Actions = append(tr.Actions, a)
		}
	}
}

// Lookup returns the first transition out of from on event whose guards pass.
func (t *Table[S, E]) Lookup(ctx context.Context, from S, event E, data any) (Transition[S, E], error) {
	candidates := t.transitions[from][event]
	if len(candidates) == 0 {
		return Transition[S, E]{}, &ErrNoTransition{State: string(from), Event: string(event)}
	}

	for _, tr := range candidates {
		if passes(ctx, tr, from, event, data) {
			return tr, nil
		}
	}
	return Transition[S, E]{}, &ErrTransitionRejected{State: string(from), Event: string(event)}
}

// Machine returns a new Machine positioned at initial.
func (t *Table[S, E]) Machine(initial S) *Machine[S, E] {
	return &Machine[S, E]{table: t, current: initial}
}

func passes[S, E ~string](ctx context.Context, tr Transition[S, E], from S, event E, data any) bool {
	for _, g := range tr.Guards {
		if !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
