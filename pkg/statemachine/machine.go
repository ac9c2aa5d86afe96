package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Machine tracks the current state of a single entity. Safe for concurrent use.
type Machine[S, E ~string] struct {
	table   *Table[S, E]
	current S
	mu      sync.RWMutex
}

func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Fire applies event to the current state. Actions run before the state
// changes; an action error leaves the machine where it was.
func (m *Machine[S, E]) Fire(ctx context.Context, event E, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tr, err := m.table.Lookup(ctx, m.current, event, data)
	if err != nil {
		return err
	}

	for _, action := range tr.Actions {
		if err := action(ctx, m.current, tr.To, event, data); err != nil {
			return fmt.Errorf("action failed: %w", err)
		}
	}

	m.current = tr.To
	return nil
}
