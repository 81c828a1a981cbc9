package run

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CounterKey identifies one index sequence.
type CounterKey struct {
	Project string
	Date    string
	User    string
	Chip    string
}

func (k CounterKey) String() string {
	return k.Project + "/" + k.Date + "/" + k.User + "/" + k.Chip
}

// Sentinel errors of the counter port.
var (
	// ErrDuplicateKey: an InsertKey raced with another first caller.
	ErrDuplicateKey = errors.New("counter key already exists")
	// ErrKeyNotFound: FindAndIncrement hit a key nobody inserted yet.
	ErrKeyNotFound = errors.New("counter key not found")
	// ErrCounterContention: the race retry budget is exhausted.
	ErrCounterContention = errors.New("counter contention retries exhausted")
)

// CounterStore is the persistence port for the execution index counter. The
// two operations let a backend with an atomic upsert-increment primitive
// implement both trivially, while a backend without one still exposes the
// exact race the retry loop handles.
type CounterStore interface {
	// InsertKey creates the counter at value 0. Returns ErrDuplicateKey if
	// the key already exists.
	InsertKey(ctx context.Context, key CounterKey) error
	// FindAndIncrement atomically increments an existing counter and
	// returns the post-increment value. Returns ErrKeyNotFound when the
	// key does not exist.
	FindAndIncrement(ctx context.Context, key CounterKey) (int, error)
}

const (
	counterRetries = 5
	counterBackoff = 20 * time.Millisecond
)

// Counter hands out unique, gapless, strictly increasing execution indices
// per key. The first caller for a fresh key gets 0 via an initial insert; a
// duplicate-key race between concurrent first callers is retried against the
// atomic find-and-increment with a bounded budget.
type Counter struct {
	store   CounterStore
	retries int
	backoff time.Duration
}

// NewCounter builds a counter over the given store.
func NewCounter(store CounterStore) *Counter {
	return &Counter{store: store, retries: counterRetries, backoff: counterBackoff}
}

// NextIndex returns the next index for the key, starting at 0.
func (c *Counter) NextIndex(ctx context.Context, key CounterKey) (int, error) {
	for attempt := 0; attempt < c.retries; attempt++ {
		n, err := c.store.FindAndIncrement(ctx, key)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, ErrKeyNotFound):
			// Fresh key: try to claim index 0.
		default:
			return 0, fmt.Errorf("increment counter %s: %w", key, err)
		}

		insertErr := c.store.InsertKey(ctx, key)
		switch {
		case insertErr == nil:
			return 0, nil
		case errors.Is(insertErr, ErrDuplicateKey):
			// Lost the first-insert race; the winner holds 0, go back to
			// find-and-increment after a short pause.
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		default:
			return 0, fmt.Errorf("insert counter %s: %w", key, insertErr)
		}
	}
	return 0, fmt.Errorf("counter %s: %w", key, ErrCounterContention)
}
