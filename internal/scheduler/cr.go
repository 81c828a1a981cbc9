// Package scheduler composes the filter pipeline and grouping strategies into
// the two schedule generators: the two-qubit CR scheduler and the one-qubit
// box-aware scheduler. Generation is synchronous and pure for a fixed chip
// snapshot; the result is plain data consumed by the execution layer.
package scheduler

import (
	"context"
	"fmt"

	"github.com/vk/calibgo/internal/candidate"
	"github.com/vk/calibgo/internal/chip"
	"github.com/vk/calibgo/internal/ctxlog"
	"github.com/vk/calibgo/internal/filter"
	"github.com/vk/calibgo/internal/metrics"
	"github.com/vk/calibgo/internal/strategy"
	"github.com/vk/calibgo/internal/topology"
)

// Stats is the observability metadata of one generation.
type Stats struct {
	Filters    []filter.Result
	Strategy   string
	Candidates int
	Scheduled  int
}

// CRScheduleResult is an ordered sequence of conflict-free pair groups.
type CRScheduleResult struct {
	Groups [][]string
	Stats  Stats
}

// CRScheduler generates conflict-free two-qubit calibration schedules.
type CRScheduler struct {
	chip     *chip.Snapshot
	topo     *topology.ConflictMap
	pipeline *filter.Pipeline
	strat    strategy.Strategy
	maxOps   int
	metrics  *metrics.Set
}

// CROptions configure a CRScheduler.
type CROptions struct {
	Chip     *chip.Snapshot
	Topo     *topology.ConflictMap
	Pipeline *filter.Pipeline
	Strategy strategy.Strategy
	// MaxParallelOps caps group size; zero means unbounded.
	MaxParallelOps int
	Metrics        *metrics.Set
}

// NewCR builds a CR scheduler.
func NewCR(opts CROptions) *CRScheduler {
	m := opts.Metrics
	if m == nil {
		m = metrics.NewUnregistered()
	}
	p := opts.Pipeline
	if p == nil {
		p = filter.NewPipeline()
	}
	return &CRScheduler{
		chip:     opts.Chip,
		topo:     opts.Topo,
		pipeline: p,
		strat:    opts.Strategy,
		maxOps:   opts.MaxParallelOps,
		metrics:  m,
	}
}

// Generate enumerates the physically valid couplings, narrows them through
// the filter pipeline, and groups the survivors with the configured strategy.
// A nil candidateQubits means all wired qubits; ids the chip does not have
// are dropped leniently with a warning.
func (s *CRScheduler) Generate(ctx context.Context, candidateQubits []string) (*CRScheduleResult, error) {
	logger := ctxlog.FromContext(ctx)

	cands := s.chip.Couplings()
	if candidateQubits != nil {
		allow := make(map[string]bool, len(candidateQubits))
		for _, qid := range candidateQubits {
			if !s.chip.Has(qid) {
				logger.Warn("Candidate set references unknown qubit, dropping id.", "qid", qid)
				continue
			}
			allow[qid] = true
		}
		var kept []candidate.Pair
		for _, p := range cands {
			if allow[p.Control] && allow[p.Target] {
				kept = append(kept, p)
			}
		}
		cands = kept
	}
	total := len(cands)

	st := &filter.State{Chip: s.chip, Topo: s.topo}
	filtered := s.pipeline.Apply(ctx, st, cands)

	stats := Stats{Filters: s.pipeline.Stats(), Strategy: s.strat.Name(), Candidates: total}
	for _, r := range stats.Filters {
		s.metrics.FilterDropped.WithLabelValues(r.Filter).Add(float64(r.Dropped()))
	}

	groups, err := s.strat.Schedule(ctx, &strategy.Context{Topo: s.topo, MaxParallelOps: s.maxOps}, filtered)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", s.strat.Name(), err)
	}

	res := &CRScheduleResult{Stats: stats}
	for _, g := range groups {
		res.Groups = append(res.Groups, candidate.IDs(g))
		res.Stats.Scheduled += len(g)
	}
	logger.Info("CR schedule generated.",
		"candidates", total, "filtered", len(filtered), "groups", len(res.Groups))
	return res, nil
}
