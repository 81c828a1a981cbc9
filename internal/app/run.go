package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vk/calibgo/internal/ctxlog"
	"github.com/vk/calibgo/internal/executor"
	"github.com/vk/calibgo/internal/filter"
	"github.com/vk/calibgo/internal/memstore"
	"github.com/vk/calibgo/internal/metrics"
	"github.com/vk/calibgo/internal/plan"
	"github.com/vk/calibgo/internal/run"
	"github.com/vk/calibgo/internal/scheduler"
	"github.com/vk/calibgo/internal/strategy"
	"github.com/vk/calibgo/internal/task"
)

// ScheduleSummary is the per-schedule part of the run report.
type ScheduleSummary struct {
	Kind     string            `json:"kind"`
	Task     string            `json:"task"`
	Groups   int               `json:"groups"`
	Jobs     int               `json:"jobs"`
	Failures map[string]string `json:"failures,omitempty"`
}

// Summary is the end-of-run report written to the output writer.
type Summary struct {
	ExecutionID string            `json:"execution_id"`
	Schedules   []ScheduleSummary `json:"schedules"`
}

// Run executes every schedule block of the loaded plan under the operator
// lock, with full execution-record bookkeeping.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	operator := a.config.Operator
	if operator == "" {
		operator = a.plan.Operator
	}
	if operator == "" {
		return fmt.Errorf("no operator configured: set one in the plan or with -operator")
	}

	pipeline, err := buildPipeline(a.plan.Filters)
	if err != nil {
		return fmt.Errorf("failed to build filter pipeline: %w", err)
	}

	m := metrics.New(prometheus.NewRegistry())

	results := memstore.NewResults()
	calibration := memstore.NewCalibration()
	executions := memstore.NewExecutions()

	svc := run.NewService(executions,
		run.NewLock(memstore.NewLocks(), operator),
		run.NewCounter(memstore.NewCounters()), nil)

	execOpts := executor.Options{
		Registry:    a.registry,
		Results:     results,
		Calibration: calibration,
		Gates: task.QualityGates{
			MinR2:       a.plan.Thresholds.R2,
			FidelityMin: a.plan.Thresholds.FidelityMin,
			FidelityMax: a.plan.Thresholds.FidelityMax,
		},
		Defaults:    taskDefaults(a.plan.Tasks),
		MaxParallel: a.plan.MaxParallelOps,
		Metrics:     m,
	}
	if a.config.Resume != "" {
		a.logger.Info("Resuming from prior execution.", "executionID", a.config.Resume)
		execOpts.Snapshots = run.NewSnapshotLoader(results, a.config.Resume)
	}
	exec := executor.New(execOpts)

	meta := run.Meta{
		Project:  a.plan.Project,
		User:     a.plan.User,
		Chip:     a.plan.Chip,
		Operator: operator,
		Note:     a.config.Note,
	}

	summary := &Summary{}
	err = svc.Execute(ctx, meta, func(ctx context.Context, rec *run.Record) error {
		summary.ExecutionID = rec.ID
		for _, sched := range a.plan.Schedules {
			groups, err := a.buildGroups(ctx, sched, pipeline, m)
			if err != nil {
				return fmt.Errorf("schedule %s/%s: %w", sched.Kind, sched.Task, err)
			}

			groupResults, err := exec.Run(ctx, rec.ID, groups, executor.ContinueAll)
			if err != nil {
				return fmt.Errorf("schedule %s/%s: %w", sched.Kind, sched.Task, err)
			}
			summary.Schedules = append(summary.Schedules, summarize(sched, groups, groupResults))
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.logger.Info("🏁 Execution finished.", "executionID", summary.ExecutionID)
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// buildGroups turns one schedule block into executable job groups.
func (a *App) buildGroups(ctx context.Context, sched plan.ScheduleConfig, pipeline *filter.Pipeline, m *metrics.Set) ([]executor.Group, error) {
	switch sched.Kind {
	case "cr":
		strat, err := buildStrategy(sched.Strategy, a.plan.Coloring)
		if err != nil {
			return nil, err
		}
		cr := scheduler.NewCR(scheduler.CROptions{
			Chip:           a.chip,
			Topo:           a.topo,
			Pipeline:       pipeline,
			Strategy:       strat,
			MaxParallelOps: a.plan.MaxParallelOps,
			Metrics:        m,
		})
		res, err := cr.Generate(ctx, nil)
		if err != nil {
			return nil, err
		}
		var groups []executor.Group
		for _, ids := range res.Groups {
			var g executor.Group
			for _, id := range ids {
				g = append(g, executor.Job{Task: sched.Task, Target: id})
			}
			groups = append(groups, g)
		}
		return groups, nil

	case "one_qubit":
		ordering := scheduler.OrderSequential
		if sched.Ordering != "" {
			var err error
			if ordering, err = scheduler.ParseOrdering(sched.Ordering); err != nil {
				return nil, err
			}
		}
		muxes := sched.Muxes
		if muxes == nil {
			muxes = a.topo.MuxIDs()
		}
		oq := scheduler.NewOneQubit(a.chip, a.topo)
		res, err := oq.GenerateFromMux(ctx, muxes, ordering)
		if err != nil {
			return nil, err
		}
		var groups []executor.Group
		if ordering == scheduler.OrderSynchronized {
			for _, step := range res.Steps {
				var g executor.Group
				for _, qid := range step {
					g = append(g, executor.Job{Task: sched.Task, Target: qid})
				}
				groups = append(groups, g)
			}
			return groups, nil
		}
		// One group per step within each stage: a multiplexer's shared
		// readout and control electronics serve one qubit at a time, so
		// within-mux qubits are serialized while the stage's non-conflicting
		// muxes advance in parallel.
		for _, stage := range res.Stages {
			for _, step := range stage.Steps {
				var g executor.Group
				for _, qid := range step {
					g = append(g, executor.Job{Task: sched.Task, Target: qid})
				}
				groups = append(groups, g)
			}
		}
		return groups, nil

	default:
		return nil, fmt.Errorf("unknown schedule kind %q", sched.Kind)
	}
}

// buildPipeline constructs the filter pipeline from plan filter blocks, in
// plan order.
func buildPipeline(cfgs []plan.FilterConfig) (*filter.Pipeline, error) {
	var filters []filter.Filter
	for _, cfg := range cfgs {
		switch cfg.Kind {
		case "candidate_set":
			filters = append(filters, &filter.CandidateSet{Allow: cfg.Qubits})
		case "fidelity":
			filters = append(filters, &filter.Fidelity{Metric: cfg.Metric, Min: cfg.Min})
		case "frequency_directionality":
			dir, err := filter.ParseDirection(cfg.Direction)
			if err != nil {
				return nil, err
			}
			filters = append(filters, &filter.FrequencyDirectionality{Direction: dir})
		default:
			return nil, fmt.Errorf("unknown filter kind %q", cfg.Kind)
		}
	}
	return filter.NewPipeline(filters...), nil
}

// buildStrategy constructs the grouping strategy for a CR schedule. An empty
// name means plain coloring; an empty heuristic means largest_first.
func buildStrategy(name, heuristicName string) (strategy.Strategy, error) {
	heuristic := strategy.LargestFirst
	if heuristicName != "" {
		var err error
		if heuristic, err = strategy.ParseHeuristic(heuristicName); err != nil {
			return nil, err
		}
	}
	coloring := &strategy.Coloring{Heuristic: heuristic}

	switch name {
	case "", "coloring":
		return coloring, nil
	case "intra_then_inter":
		return &strategy.IntraThenInter{Inner: coloring}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

func taskDefaults(cfgs []plan.TaskConfig) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(cfgs))
	for _, t := range cfgs {
		out[t.Name] = t.Params
	}
	return out
}

func summarize(sched plan.ScheduleConfig, groups []executor.Group, results []executor.GroupResult) ScheduleSummary {
	s := ScheduleSummary{Kind: sched.Kind, Task: sched.Task, Groups: len(groups)}
	for _, g := range groups {
		s.Jobs += len(g)
	}
	for _, gr := range results {
		for target, outcome := range gr.Failures() {
			if s.Failures == nil {
				s.Failures = make(map[string]string)
			}
			s.Failures[target] = outcome.String()
		}
	}
	return s
}
