// Package filter implements the candidate-narrowing pipeline that runs ahead
// of schedule generation. Every filter is a pure narrowing step: it never adds
// candidates and is deterministic for identical inputs. The final filtered set
// does not depend on filter order; only the per-filter audit records do.
package filter

import (
	"context"

	"github.com/vk/calibgo/internal/candidate"
	"github.com/vk/calibgo/internal/chip"
	"github.com/vk/calibgo/internal/topology"
)

// State is the read-only context filters consult: the chip snapshot for
// metrics and frequencies, the conflict map for wiring-derived facts.
type State struct {
	Chip *chip.Snapshot
	Topo *topology.ConflictMap
}

// Result is the audit record of one filter application. It is observability
// data only; nothing downstream consumes it.
type Result struct {
	Filter    string
	Criterion string
	Input     []string
	Output    []string
}

// Dropped returns how many candidates the application removed.
func (r Result) Dropped() int {
	return len(r.Input) - len(r.Output)
}

// Filter narrows a candidate pair set.
type Filter interface {
	// Name identifies the filter in audit records and logs.
	Name() string
	// Apply returns the narrowed candidate set. Implementations must never
	// increase cardinality.
	Apply(ctx context.Context, st *State, in []candidate.Pair) []candidate.Pair
	// Stats returns the audit records of every application so far.
	Stats() []Result
}

// Pipeline applies filters in sequence and collects their audit records.
type Pipeline struct {
	filters []Filter
}

// NewPipeline builds a pipeline from the given filters, applied in order.
func NewPipeline(filters ...Filter) *Pipeline {
	return &Pipeline{filters: filters}
}

// Apply runs every filter in sequence over the candidate set.
func (p *Pipeline) Apply(ctx context.Context, st *State, in []candidate.Pair) []candidate.Pair {
	out := in
	for _, f := range p.filters {
		out = f.Apply(ctx, st, out)
	}
	return out
}

// Stats returns the audit records of all filters, in pipeline order.
func (p *Pipeline) Stats() []Result {
	var out []Result
	for _, f := range p.filters {
		out = append(out, f.Stats()...)
	}
	return out
}

// record is the shared audit bookkeeping embedded by the concrete filters.
type record struct {
	results []Result
}

func (r *record) log(name, criterion string, in, out []candidate.Pair) {
	r.results = append(r.results, Result{
		Filter:    name,
		Criterion: criterion,
		Input:     candidate.IDs(in),
		Output:    candidate.IDs(out),
	})
}

func (r *record) Stats() []Result {
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}
