// Package optimistic tracks a value that is shown before the write backing it
// has finished. The previous value is kept until the write either commits or
// rolls back.
package optimistic

import (
	"context"
	"fmt"
	"sync"
)

type State string

const (
	StatePending    State = "pending"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Update is one optimistic change from Previous to Proposed.
type Update[T any] struct {
	mu       sync.RWMutex
	previous T
	proposed T
	result   T
	state    State
	err      error
}

// Begin starts a pending update.
func Begin[T any](previous, proposed T) *Update[T] {
	return &Update[T]{previous: previous, proposed: proposed, state: StatePending}
}

// Apply begins an update and runs write with the proposed value. The update
// commits with write's result, or rolls back to previous when write fails.
func Apply[T any](ctx context.Context, previous, proposed T, write func(context.Context, T) (T, error)) (*Update[T], error) {
	u := Begin(previous, proposed)

	result, err := write(ctx, proposed)
	if err != nil {
		_ = u.Rollback(err)
		return u, err
	}
	return u, u.Commit(result)
}

// Value is what a reader should see now: the proposed value while pending,
// the written result once committed, the previous value after a rollback.
func (u *Update[T]) Value() T {
	u.mu.RLock()
	defer u.mu.RUnlock()

	switch u.state {
	case StateCommitted:
		return u.result
	case StateRolledBack:
		return u.previous
	default:
		return u.proposed
	}
}

func (u *Update[T]) Previous() T {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.previous
}

func (u *Update[T]) State() State {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.state
}

// Err is the write failure that caused a rollback.
func (u *Update[T]) Err() error {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.err
}

// Commit settles a pending update with the stored result.
func (u *Update[T]) Commit(result T) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != StatePending {
		return fmt.Errorf("cannot commit an update that is %s", u.state)
	}
	u.result = result
	u.state = StateCommitted
	return nil
}

// Rollback settles a pending update back to its previous value.
func (u *Update[T]) Rollback(cause error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != StatePending {
		return fmt.Errorf("cannot roll back an update that is %s", u.state)
	}
	u.err = cause
	u.state = StateRolledBack
	return nil
}
