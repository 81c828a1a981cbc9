package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vk/calibgo/internal/ctxlog"
	"github.com/vk/calibgo/internal/task"
)

// runJob drives one attempt through the task state machine. Errors are
// captured into the JobResult, never returned: one member's failure must not
// abort its siblings.
func (e *Executor) runJob(ctx context.Context, executionID string, job Job) JobResult {
	logger := ctxlog.FromContext(ctx).With("task", job.Task, "target", job.Target)
	handler, _ := e.registry.Get(job.Task)

	attempt := task.NewAttempt()
	rec := task.NewExecutionResult(executionID, handler, job.Target, time.Now())

	if params, err := e.calibration.Params(ctx, job.Target); err == nil {
		rec.InputParameters = params
	}
	if defaults, ok := e.defaults[job.Task]; ok {
		rec.RunParameters = make(map[string]float64, len(defaults))
		for k, v := range defaults {
			rec.RunParameters[k] = v
		}
	}
	if e.snapshots != nil {
		snap, ok, err := e.snapshots.Snapshot(ctx, job.Task, job.Target)
		if err != nil {
			return e.fail(ctx, logger, attempt, rec, task.Outcome{Kind: task.OutcomeError,
				Err: fmt.Errorf("load snapshot for %s on %s: %w", job.Task, job.Target, err)})
		}
		// A missing entry falls back to the live calibration and defaults
		// already loaded above.
		if ok {
			rec.InputParameters = snap.InputParameters
			rec.RunParameters = snap.RunParameters
			logger.Debug("Replaying recorded snapshot parameters.")
		}
	}

	// Entering Running publishes the live record immediately.
	if err := attempt.Start(); err != nil {
		return e.fail(ctx, logger, attempt, rec, task.Outcome{Kind: task.OutcomeError, Err: err})
	}
	rec.Status = task.StatusRunning
	if err := e.results.Save(ctx, rec); err != nil {
		return e.fail(ctx, logger, attempt, rec, task.Outcome{Kind: task.OutcomeError,
			Err: fmt.Errorf("publish live status: %w", err)})
	}

	raw, err := handler.Run(ctx, job.Target)
	if err != nil {
		return e.fail(ctx, logger, attempt, rec, task.Outcome{Kind: task.OutcomeError,
			Err: fmt.Errorf("run %s on %s: %w", job.Task, job.Target, err)})
	}

	post, err := handler.Postprocess(ctx, executionID, raw, job.Target)
	if err != nil {
		return e.fail(ctx, logger, attempt, rec, task.Outcome{Kind: task.OutcomeError,
			Err: fmt.Errorf("postprocess %s on %s: %w", job.Task, job.Target, err)})
	}

	rec.OutputParameters = post.OutputParameters
	rec.QualityMetrics = post.QualityMetrics
	rec.Delta = post.Delta
	rec.Figures = post.Figures
	rec.RawData = post.RawData

	if violation := e.gates.Check(post.QualityMetrics); violation != nil {
		e.metrics.GateFailures.Inc()
		return e.fail(ctx, logger, attempt, rec, task.Outcome{Kind: task.OutcomeQualityGate, Gate: violation})
	}

	if err := attempt.Succeed(); err != nil {
		return e.fail(ctx, logger, attempt, rec, task.Outcome{Kind: task.OutcomeError, Err: err})
	}
	rec.Status = task.StatusSuccess
	rec.Success = true
	rec.EndedAt = time.Now()

	if len(post.Delta) > 0 {
		if err := e.calibration.MergeParams(ctx, job.Target, post.Delta); err != nil {
			logger.Error("Failed to merge calibration delta.", "error", err)
		}
	}
	e.persist(ctx, logger, rec)
	e.metrics.TasksTotal.WithLabelValues(rec.Kind.String(), task.OutcomeSuccess.String()).Inc()

	logger.Debug("Job succeeded.")
	return JobResult{Job: job, Outcome: task.Outcome{Kind: task.OutcomeSuccess}, Result: rec}
}

// fail finalizes an attempt on the failed path and persists the record.
func (e *Executor) fail(ctx context.Context, logger *slog.Logger, attempt *task.Attempt, rec *task.ExecutionResult, outcome task.Outcome) JobResult {
	if attempt.Status() == task.StatusRunning {
		// Best effort: a failed transition here means the machine was
		// already terminal, which the outcome captures anyway.
		_ = attempt.Fail()
	}
	rec.Status = task.StatusFailed
	rec.EndedAt = time.Now()
	switch outcome.Kind {
	case task.OutcomeQualityGate:
		rec.Message = outcome.Gate.Error()
		logger.Warn("Job failed quality gate.", "violation", rec.Message)
	default:
		if outcome.Err != nil {
			rec.Message = outcome.Err.Error()
		}
		logger.Error("Job failed.", "error", rec.Message)
	}
	e.persist(ctx, logger, rec)
	e.metrics.TasksTotal.WithLabelValues(rec.Kind.String(), outcome.Kind.String()).Inc()
	return JobResult{Job: Job{Task: rec.TaskName, Target: rec.Target}, Outcome: outcome, Result: rec}
}

// persist writes the terminal record: once to immutable history, once as the
// final live status.
func (e *Executor) persist(ctx context.Context, logger *slog.Logger, rec *task.ExecutionResult) {
	if err := e.results.Save(ctx, rec); err != nil {
		logger.Error("Failed to save live task record.", "error", err)
	}
	if err := e.results.Insert(ctx, rec); err != nil {
		logger.Error("Failed to insert task history record.", "error", err)
	}
}
