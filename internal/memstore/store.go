// Package memstore provides ephemeral, thread-safe, in-memory implementations
// of every persistence port the engine defines. It backs local runs and
// tests; a deployment against a real database supplies its own
// implementations of the same ports.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/calibgo/internal/run"
	"github.com/vk/calibgo/internal/task"
)

// Results implements task.ResultStore. Live records and history are kept in
// separate structures: Save upserts the live record, Insert appends history.
type Results struct {
	mu      sync.RWMutex
	live    map[string]*task.ExecutionResult
	history []*task.ExecutionResult
}

// NewResults creates an empty result store.
func NewResults() *Results {
	return &Results{live: make(map[string]*task.ExecutionResult)}
}

func (s *Results) Save(ctx context.Context, r *task.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.live[r.ID] = &cp
	return nil
}

func (s *Results) Insert(ctx context.Context, r *task.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.history = append(s.history, &cp)
	return nil
}

func (s *Results) FindByExecutionID(ctx context.Context, executionID string) ([]*task.ExecutionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*task.ExecutionResult
	for _, r := range s.history {
		if r.ExecutionID == executionID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Live returns the current live record for an attempt id, for observers.
func (s *Results) Live(id string) (*task.ExecutionResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.live[id]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

// Calibration implements task.CalibrationStore with per-parameter
// last-write-wins merging.
type Calibration struct {
	mu      sync.RWMutex
	targets map[string]map[string]float64
}

// NewCalibration creates an empty calibration record store.
func NewCalibration() *Calibration {
	return &Calibration{targets: make(map[string]map[string]float64)}
}

func (s *Calibration) MergeParams(ctx context.Context, target string, params map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.targets[target]
	if rec == nil {
		rec = make(map[string]float64, len(params))
		s.targets[target] = rec
	}
	for k, v := range params {
		rec[k] = v
	}
	return nil
}

func (s *Calibration) Params(ctx context.Context, target string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.targets[target]))
	for k, v := range s.targets[target] {
		out[k] = v
	}
	return out, nil
}

// Executions implements run.Store.
type Executions struct {
	mu      sync.RWMutex
	records map[string]*run.Record
	history []*run.StatusChange
}

// NewExecutions creates an empty execution store.
func NewExecutions() *Executions {
	return &Executions{records: make(map[string]*run.Record)}
}

func (s *Executions) Insert(ctx context.Context, r *run.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.ID]; exists {
		return fmt.Errorf("execution record %s already exists", r.ID)
	}
	cp := *r
	s.records[r.ID] = &cp
	return nil
}

func (s *Executions) Save(ctx context.Context, r *run.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[r.ID] = &cp
	return nil
}

func (s *Executions) FindByID(ctx context.Context, id string) (*run.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("execution record %s not found", id)
	}
	cp := *r
	return &cp, nil
}

func (s *Executions) AppendHistory(ctx context.Context, c *run.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.history = append(s.history, &cp)
	return nil
}

func (s *Executions) History(ctx context.Context, executionID string) ([]*run.StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*run.StatusChange
	for _, c := range s.history {
		if c.ExecutionID == executionID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Locks implements run.LockStore.
type Locks struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocks creates an empty lock store.
func NewLocks() *Locks {
	return &Locks{held: make(map[string]bool)}
}

func (s *Locks) Acquire(ctx context.Context, operator string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held[operator] {
		return false, nil
	}
	s.held[operator] = true
	return true, nil
}

func (s *Locks) Release(ctx context.Context, operator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.held, operator)
	return nil
}

// Counters implements run.CounterStore with the same atomicity the port
// promises: InsertKey is insert-if-absent, FindAndIncrement is a single
// compare-and-increment under the store lock.
type Counters struct {
	mu     sync.Mutex
	values map[run.CounterKey]int
}

// NewCounters creates an empty counter store.
func NewCounters() *Counters {
	return &Counters{values: make(map[run.CounterKey]int)}
}

func (s *Counters) InsertKey(ctx context.Context, key run.CounterKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[key]; exists {
		return run.ErrDuplicateKey
	}
	s.values[key] = 0
	return nil
}

func (s *Counters) FindAndIncrement(ctx context.Context, key run.CounterKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, exists := s.values[key]
	if !exists {
		return 0, run.ErrKeyNotFound
	}
	v++
	s.values[key] = v
	return v, nil
}
