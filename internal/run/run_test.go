package run

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/calibgo/internal/task"
	"github.com/vk/calibgo/internal/testutil"
)

// fakeLockStore is an in-memory LockStore.
type fakeLockStore struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{held: make(map[string]bool)}
}

func (s *fakeLockStore) Acquire(ctx context.Context, operator string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held[operator] {
		return false, nil
	}
	s.held[operator] = true
	return true, nil
}

func (s *fakeLockStore) Release(ctx context.Context, operator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.held, operator)
	return nil
}

// fakeCounterStore is an in-memory CounterStore with optional failure
// injection for the first-insert race.
type fakeCounterStore struct {
	mu           sync.Mutex
	counters     map[CounterKey]int
	forcedDupes  int // InsertKey fails this many times with ErrDuplicateKey
	insertedLate bool
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{counters: make(map[CounterKey]int)}
}

func (s *fakeCounterStore) InsertKey(ctx context.Context, key CounterKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forcedDupes > 0 {
		s.forcedDupes--
		if s.forcedDupes == 0 {
			// The racing winner's insert lands now.
			s.counters[key] = 0
			s.insertedLate = true
		}
		return ErrDuplicateKey
	}
	if _, exists := s.counters[key]; exists {
		return ErrDuplicateKey
	}
	s.counters[key] = 0
	return nil
}

func (s *fakeCounterStore) FindAndIncrement(ctx context.Context, key CounterKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, exists := s.counters[key]
	if !exists {
		return 0, ErrKeyNotFound
	}
	s.counters[key] = n + 1
	return n + 1, nil
}

// fakeStore is an in-memory execution record Store.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*Record
	history []*StatusChange
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*Record)}
}

func (s *fakeStore) Insert(ctx context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.ID]; exists {
		return errors.New("duplicate execution id")
	}
	cp := *r
	s.records[r.ID] = &cp
	return nil
}

func (s *fakeStore) Save(ctx context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[r.ID] = &cp
	return nil
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) AppendHistory(ctx context.Context, c *StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, c)
	return nil
}

func (s *fakeStore) History(ctx context.Context, executionID string) ([]*StatusChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*StatusChange
	for _, c := range s.history {
		if c.ExecutionID == executionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestLock(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)

	store := newFakeLockStore()
	lock := NewLock(store, "alice")

	require.NoError(t, lock.Acquire(ctx))

	err := lock.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockHeld, "second acquire must be rejected, not queued")

	// A different operator is unaffected.
	require.NoError(t, NewLock(store, "bob").Acquire(ctx))

	require.NoError(t, lock.Release(ctx))
	require.NoError(t, lock.Release(ctx), "repeated release must be a no-op")
	require.NoError(t, lock.Acquire(ctx), "released lock can be retaken")
}

func TestCounter_NextIndex(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)
	key := CounterKey{Project: "p", Date: "20250601", User: "u", Chip: "c"}

	t.Run("fresh key starts at zero and increments", func(t *testing.T) {
		t.Parallel()
		c := NewCounter(newFakeCounterStore())

		for want := 0; want < 4; want++ {
			got, err := c.NextIndex(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("independent keys do not share a sequence", func(t *testing.T) {
		t.Parallel()
		c := NewCounter(newFakeCounterStore())

		_, err := c.NextIndex(ctx, key)
		require.NoError(t, err)

		other := key
		other.Date = "20250602"
		got, err := c.NextIndex(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, 0, got)
	})

	t.Run("lost first-insert race retries against the winner's counter", func(t *testing.T) {
		t.Parallel()
		store := newFakeCounterStore()
		store.forcedDupes = 2
		c := NewCounter(store)

		got, err := c.NextIndex(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 1, got, "the race loser gets the next index after the winner's 0")
		assert.True(t, store.insertedLate)
	})

	t.Run("retry budget exhaustion", func(t *testing.T) {
		t.Parallel()
		store := newFakeCounterStore()
		store.forcedDupes = 1000
		c := NewCounter(store)

		_, err := c.NextIndex(ctx, key)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCounterContention)
	})

	t.Run("concurrent callers get a gapless dense range", func(t *testing.T) {
		t.Parallel()
		c := NewCounter(newFakeCounterStore())

		const n = 16
		indices := make([]int, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				idx, err := c.NextIndex(ctx, key)
				assert.NoError(t, err)
				indices[i] = idx
			}(i)
		}
		wg.Wait()

		seen := make(map[int]bool, n)
		for _, idx := range indices {
			assert.False(t, seen[idx], "index %d handed out twice", idx)
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, n)
			seen[idx] = true
		}
	})
}

func TestExecutionID_Format(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "20250601-000", ExecutionID("20250601", 0))
	assert.Equal(t, "20250601-007", ExecutionID("20250601", 7))
	assert.Equal(t, "20250601-123", ExecutionID("20250601", 123))
	assert.Equal(t, "20250601-1234", ExecutionID("20250601", 1234), "indices past 999 widen ungracefully but stay unique")
}

func newTestService(store Store) *Service {
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return NewService(store,
		NewLock(newFakeLockStore(), "alice"),
		NewCounter(newFakeCounterStore()),
		func() time.Time { return clock },
	)
}

func TestService_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)
	store := newFakeStore()
	svc := newTestService(store)
	meta := Meta{Project: "scq", User: "u", Chip: "chip64", Operator: "alice"}

	rec, err := svc.Begin(ctx, meta)
	require.NoError(t, err)
	assert.Equal(t, "20250601-000", rec.ID)
	assert.Equal(t, StatusScheduled, rec.Status)

	require.NoError(t, svc.Start(ctx, rec))
	assert.Equal(t, StatusRunning, rec.Status)

	require.Error(t, svc.Start(ctx, rec), "running execution cannot start again")

	require.NoError(t, svc.Complete(ctx, rec))
	assert.Equal(t, StatusCompleted, rec.Status)

	require.Error(t, svc.Fail(ctx, rec), "terminal status never changes")

	history, err := svc.History(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, StatusScheduled, history[0].To)
	assert.Equal(t, StatusRunning, history[1].To)
	assert.Equal(t, StatusCompleted, history[2].To)

	stored, err := store.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
}

func TestService_Execute(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)
	meta := Meta{Project: "scq", User: "u", Chip: "chip64", Operator: "alice"}

	t.Run("success completes the record", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		svc := newTestService(store)

		var gotID string
		err := svc.Execute(ctx, meta, func(ctx context.Context, rec *Record) error {
			gotID = rec.ID
			return nil
		})
		require.NoError(t, err)

		rec, err := store.FindByID(ctx, gotID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, rec.Status)
	})

	t.Run("callback error fails the record and is returned", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		svc := newTestService(store)

		boom := errors.New("hardware went away")
		var gotID string
		err := svc.Execute(ctx, meta, func(ctx context.Context, rec *Record) error {
			gotID = rec.ID
			return boom
		})
		require.ErrorIs(t, err, boom)

		rec, err := store.FindByID(ctx, gotID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, rec.Status)
	})

	t.Run("lock is released on every exit path", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		svc := newTestService(store)

		err := svc.Execute(ctx, meta, func(ctx context.Context, rec *Record) error {
			return errors.New("boom")
		})
		require.Error(t, err)

		// A failed run must not leave the operator locked out.
		require.NoError(t, svc.Execute(ctx, meta, func(ctx context.Context, rec *Record) error {
			return nil
		}))
	})

	t.Run("held lock rejects a second concurrent execution", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		svc := newTestService(store)

		release := make(chan struct{})
		started := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- svc.Execute(ctx, meta, func(ctx context.Context, rec *Record) error {
				close(started)
				<-release
				return nil
			})
		}()

		<-started
		err := svc.Execute(ctx, meta, func(ctx context.Context, rec *Record) error { return nil })
		assert.ErrorIs(t, err, ErrLockHeld)

		close(release)
		require.NoError(t, <-done)
	})
}

// fakeResultStore serves canned task results for the snapshot loader.
type fakeResultStore struct {
	results []*task.ExecutionResult
	calls   int
}

func (s *fakeResultStore) Save(ctx context.Context, r *task.ExecutionResult) error   { return nil }
func (s *fakeResultStore) Insert(ctx context.Context, r *task.ExecutionResult) error { return nil }

func (s *fakeResultStore) FindByExecutionID(ctx context.Context, executionID string) ([]*task.ExecutionResult, error) {
	s.calls++
	return s.results, nil
}

func TestSnapshotLoader(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)

	store := &fakeResultStore{results: []*task.ExecutionResult{
		{
			TaskName:        "rabi",
			Target:          "5",
			InputParameters: map[string]float64{"amp": 0.1},
			RunParameters:   map[string]float64{"shots": 1024},
		},
		{
			TaskName:        "rabi",
			Target:          "5",
			InputParameters: map[string]float64{"amp": 0.2},
			RunParameters:   map[string]float64{"shots": 2048},
		},
		{
			TaskName:      "t1",
			Target:        "5",
			RunParameters: map[string]float64{"delay": 100},
		},
	}}
	loader := NewSnapshotLoader(store, "20250601-000")

	t.Run("later records win", func(t *testing.T) {
		snap, ok, err := loader.Snapshot(ctx, "rabi", "5")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 0.2, snap.InputParameters["amp"])
		assert.Equal(t, float64(2048), snap.RunParameters["shots"])
	})

	t.Run("missing entry reports ok=false", func(t *testing.T) {
		_, ok, err := loader.Snapshot(ctx, "rabi", "6")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("store is read once", func(t *testing.T) {
		_, _, err := loader.Snapshot(ctx, "t1", "5")
		require.NoError(t, err)
		assert.Equal(t, 1, store.calls)
	})
}
