// Package executor runs a generated schedule. Members of one group run
// concurrently, bounded by max_parallel_ops; a later group starts only after
// every member of the previous group finished, which is what guarantees a
// conflicting resource is free before the next group touches it.
package executor

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/vk/calibgo/internal/ctxlog"
	"github.com/vk/calibgo/internal/metrics"
	"github.com/vk/calibgo/internal/run"
	"github.com/vk/calibgo/internal/task"
)

// SnapshotSource serves the recorded parameters of a prior execution, keyed
// by (task name, target). run.SnapshotLoader implements it.
type SnapshotSource interface {
	Snapshot(ctx context.Context, taskName, target string) (*run.Snapshot, bool, error)
}

// Job is one task invocation against one target.
type Job struct {
	Task   string
	Target string
}

// Group is a set of jobs that may run simultaneously.
type Group []Job

// JobResult is the terminal record of one job.
type JobResult struct {
	Job     Job
	Outcome task.Outcome
	Result  *task.ExecutionResult
}

// GroupResult is the per-member success/failure map of one finished group.
type GroupResult struct {
	Index   int
	Results []JobResult
}

// Failures returns the failed members keyed by target.
func (g GroupResult) Failures() map[string]task.Outcome {
	out := make(map[string]task.Outcome)
	for _, r := range g.Results {
		if r.Outcome.Kind != task.OutcomeSuccess {
			out[r.Job.Target] = r.Outcome
		}
	}
	return out
}

// Policy decides, after each group, whether execution continues. The executor
// itself enforces no cancellation policy; that is a caller decision made on
// the group's partial-failure map.
type Policy func(GroupResult) bool

// ContinueAll runs every group regardless of failures.
func ContinueAll(GroupResult) bool { return true }

// FailFast stops after the first group with any failure.
func FailFast(g GroupResult) bool { return len(g.Failures()) == 0 }

// Executor drives the task state machine for every job in a schedule.
type Executor struct {
	registry    *task.Registry
	results     task.ResultStore
	calibration task.CalibrationStore
	gates       task.QualityGates
	defaults    map[string]map[string]float64
	snapshots   SnapshotSource
	maxParallel int64
	metrics     *metrics.Set
}

// Options configure an Executor.
type Options struct {
	Registry    *task.Registry
	Results     task.ResultStore
	Calibration task.CalibrationStore
	Gates       task.QualityGates
	// Defaults carry per-task run parameters, keyed by task name. They are
	// recorded on every execution result for that task.
	Defaults map[string]map[string]float64
	// Snapshots, when set, replay a prior execution: a job whose (task,
	// target) has a recorded snapshot runs with that snapshot's parameters
	// instead of the live calibration state and Defaults.
	Snapshots SnapshotSource
	// MaxParallel caps concurrent jobs within a group. Zero or negative
	// means one at a time.
	MaxParallel int
	Metrics     *metrics.Set
}

// New builds an executor.
func New(opts Options) *Executor {
	mp := int64(opts.MaxParallel)
	if mp <= 0 {
		mp = 1
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Executor{
		registry:    opts.Registry,
		results:     opts.Results,
		calibration: opts.Calibration,
		gates:       opts.Gates,
		defaults:    opts.Defaults,
		snapshots:   opts.Snapshots,
		maxParallel: mp,
		metrics:     m,
	}
}

// Run executes the groups in order and returns every group's result map. An
// individual job failure never aborts siblings already dispatched in the same
// group; Run itself fails only on context cancellation or when a job names an
// unregistered task.
func (e *Executor) Run(ctx context.Context, executionID string, groups []Group, policy Policy) ([]GroupResult, error) {
	logger := ctxlog.FromContext(ctx)
	if policy == nil {
		policy = ContinueAll
	}

	// Fail before touching hardware: every task must be registered.
	for _, g := range groups {
		for _, job := range g {
			if _, ok := e.registry.Get(job.Task); !ok {
				return nil, fmt.Errorf("job %s/%s: task not registered", job.Task, job.Target)
			}
		}
	}

	var results []GroupResult
	for gi, g := range groups {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		logger.Debug("Starting group.", "group", gi, "members", len(g))

		gr := e.runGroup(ctx, executionID, gi, g)
		results = append(results, gr)
		e.metrics.GroupsTotal.Inc()

		if !policy(gr) {
			logger.Warn("Policy stopped execution after group.",
				"group", gi, "failures", len(gr.Failures()))
			break
		}
	}
	return results, nil
}

// runGroup dispatches the group's jobs concurrently and waits for all of
// them. The semaphore bounds in-flight jobs at max_parallel_ops.
func (e *Executor) runGroup(ctx context.Context, executionID string, index int, g Group) GroupResult {
	sem := semaphore.NewWeighted(e.maxParallel)
	out := make([]JobResult, len(g))
	var wg sync.WaitGroup

	for i, job := range g {
		if err := sem.Acquire(ctx, 1); err != nil {
			out[i] = JobResult{Job: job, Outcome: task.Outcome{Kind: task.OutcomeError, Err: err}}
			continue
		}
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			defer sem.Release(1)
			out[i] = e.runJob(ctx, executionID, job)
		}(i, job)
	}
	wg.Wait()

	return GroupResult{Index: index, Results: out}
}
