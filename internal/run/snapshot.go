package run

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/calibgo/internal/task"
)

// Snapshot is the recorded parameter state of one historical task attempt.
type Snapshot struct {
	InputParameters map[string]float64
	RunParameters   map[string]float64
}

// SnapshotLoader lazily loads every task result of a prior execution and
// serves them keyed by (task name, target). It enables deterministic
// single-task re-execution with the exact configuration of the original run;
// callers fall back to defaults when an entry is missing.
type SnapshotLoader struct {
	store       task.ResultStore
	executionID string

	once    sync.Once
	byKey   map[string]*Snapshot
	loadErr error
}

// NewSnapshotLoader builds a loader for one prior execution id. Nothing is
// read until the first Snapshot call.
func NewSnapshotLoader(store task.ResultStore, executionID string) *SnapshotLoader {
	return &SnapshotLoader{store: store, executionID: executionID}
}

// Snapshot returns the recorded parameters for a (task, target), or ok=false
// when the prior execution has no such entry.
func (l *SnapshotLoader) Snapshot(ctx context.Context, taskName, target string) (*Snapshot, bool, error) {
	l.once.Do(func() { l.load(ctx) })
	if l.loadErr != nil {
		return nil, false, l.loadErr
	}
	s, ok := l.byKey[snapshotKey(taskName, target)]
	return s, ok, nil
}

func (l *SnapshotLoader) load(ctx context.Context) {
	results, err := l.store.FindByExecutionID(ctx, l.executionID)
	if err != nil {
		l.loadErr = fmt.Errorf("load snapshots for execution %s: %w", l.executionID, err)
		return
	}
	l.byKey = make(map[string]*Snapshot, len(results))
	// Later records win: a re-executed task within one run supersedes the
	// earlier attempt, matching last-write-wins of the live record.
	for _, r := range results {
		l.byKey[snapshotKey(r.TaskName, r.Target)] = &Snapshot{
			InputParameters: r.InputParameters,
			RunParameters:   r.RunParameters,
		}
	}
}

func snapshotKey(taskName, target string) string {
	return taskName + "\x00" + target
}
