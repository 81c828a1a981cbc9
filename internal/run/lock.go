package run

import (
	"context"
	"errors"
	"fmt"
)

// ErrLockHeld is returned when an operator already has a running execution.
// The request is rejected immediately, never queued.
var ErrLockHeld = errors.New("execution lock already held")

// LockStore is the persistence port backing the exclusive execution flag.
type LockStore interface {
	// Acquire attempts to take the operator's flag. It returns false when
	// the operator already holds it, without blocking.
	Acquire(ctx context.Context, operator string) (bool, error)
	// Release drops the flag. Releasing an unheld flag is a no-op.
	Release(ctx context.Context, operator string) error
}

// Lock enforces at most one running top-level execution per operator.
type Lock struct {
	store    LockStore
	operator string
}

// NewLock builds the lock for a single operator.
func NewLock(store LockStore, operator string) *Lock {
	return &Lock{store: store, operator: operator}
}

// Acquire takes the flag or fails fast with ErrLockHeld.
func (l *Lock) Acquire(ctx context.Context) error {
	ok, err := l.store.Acquire(ctx, l.operator)
	if err != nil {
		return fmt.Errorf("acquire execution lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("operator %q: %w", l.operator, ErrLockHeld)
	}
	return nil
}

// Release drops the flag. It is called unconditionally on every exit path of
// an execution, so it must tolerate repeated calls.
func (l *Lock) Release(ctx context.Context) error {
	if err := l.store.Release(ctx, l.operator); err != nil {
		return fmt.Errorf("release execution lock: %w", err)
	}
	return nil
}
