package run

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/calibgo/internal/ctxlog"
)

// Meta identifies who is running what.
type Meta struct {
	Project  string
	User     string
	Chip     string
	Operator string
	Note     string
}

// Service coordinates a top-level execution: the per-operator lock, the
// atomic execution index, and the status machine with its immutable history.
type Service struct {
	store   Store
	lock    *Lock
	counter *Counter
	now     func() time.Time
}

// NewService wires an execution service. The clock is injectable for tests;
// nil means time.Now.
func NewService(store Store, lock *Lock, counter *Counter, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, lock: lock, counter: counter, now: now}
}

// Begin reserves an execution id and persists the record as Scheduled. The
// caller must already hold the lock.
func (s *Service) Begin(ctx context.Context, meta Meta) (*Record, error) {
	date := s.now().UTC().Format("20060102")
	idx, err := s.counter.NextIndex(ctx, CounterKey{
		Project: meta.Project, Date: date, User: meta.User, Chip: meta.Chip,
	})
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:        ExecutionID(date, idx),
		Project:   meta.Project,
		User:      meta.User,
		Chip:      meta.Chip,
		Date:      date,
		Index:     idx,
		Status:    StatusScheduled,
		Note:      meta.Note,
		StartedAt: s.now(),
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert execution record: %w", err)
	}
	if err := s.store.AppendHistory(ctx, &StatusChange{
		ExecutionID: rec.ID, From: StatusScheduled, To: StatusScheduled, At: s.now(),
	}); err != nil {
		return nil, fmt.Errorf("append execution history: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Execution scheduled.", "executionID", rec.ID)
	return rec, nil
}

// Start transitions Scheduled -> Running.
func (s *Service) Start(ctx context.Context, rec *Record) error {
	return s.transition(ctx, rec, StatusScheduled, StatusRunning)
}

// Complete transitions Running -> Completed.
func (s *Service) Complete(ctx context.Context, rec *Record) error {
	rec.EndedAt = s.now()
	return s.transition(ctx, rec, StatusRunning, StatusCompleted)
}

// Fail transitions Running -> Failed.
func (s *Service) Fail(ctx context.Context, rec *Record) error {
	rec.EndedAt = s.now()
	return s.transition(ctx, rec, StatusRunning, StatusFailed)
}

func (s *Service) transition(ctx context.Context, rec *Record, from, to Status) error {
	if rec.Status != from {
		return fmt.Errorf("invalid execution transition %s -> %s (current: %s)", from, to, rec.Status)
	}
	rec.Status = to
	if err := s.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("save execution record: %w", err)
	}
	if err := s.store.AppendHistory(ctx, &StatusChange{
		ExecutionID: rec.ID, From: from, To: to, At: s.now(),
	}); err != nil {
		return fmt.Errorf("append execution history: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Execution status changed.",
		"executionID", rec.ID, "from", from.String(), "to", to.String())
	return nil
}

// Execute runs fn under the operator lock with full status bookkeeping. The
// lock is released on every exit path, including panics. The record fails
// when fn returns an error and completes otherwise.
func (s *Service) Execute(ctx context.Context, meta Meta, fn func(ctx context.Context, rec *Record) error) (err error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil && err == nil {
			err = relErr
		}
	}()

	rec, err := s.Begin(ctx, meta)
	if err != nil {
		return err
	}
	if err := s.Start(ctx, rec); err != nil {
		return err
	}

	if fnErr := fn(ctx, rec); fnErr != nil {
		if failErr := s.Fail(ctx, rec); failErr != nil {
			return failErr
		}
		return fnErr
	}
	return s.Complete(ctx, rec)
}

// History returns the status transitions of an execution in append order.
func (s *Service) History(ctx context.Context, executionID string) ([]*StatusChange, error) {
	return s.store.History(ctx, executionID)
}
