package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/calibgo/internal/chip"
	"github.com/vk/calibgo/internal/ctxlog"
	"github.com/vk/calibgo/internal/topology"
)

// Ordering selects the per-qubit order within a multiplexer.
type Ordering string

const (
	// OrderSequential runs a multiplexer's qubits in wiring order.
	OrderSequential Ordering = "sequential"
	// OrderCheckerboard alternates across the frequency-sorted qubits so
	// frequency-adjacent qubits are never driven back to back.
	OrderCheckerboard Ordering = "checkerboard"
	// OrderSynchronized uses wiring order and additionally emits
	// step-aligned qubit tuples for lockstep execution.
	OrderSynchronized Ordering = "synchronized"
)

// ParseOrdering validates an ordering name from configuration.
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(s) {
	case OrderSequential, OrderCheckerboard, OrderSynchronized:
		return Ordering(s), nil
	}
	return "", fmt.Errorf("unknown ordering strategy %q", s)
}

// Stage is one box-homogeneous step of a one-qubit schedule.
type Stage struct {
	Box      topology.BoxType
	MuxIDs   []int
	QubitIDs []string
	// Steps hold the stage's qubits step-aligned: step k lists the k-th
	// ordered qubit of every multiplexer in the stage. Running one step at a
	// time keeps each multiplexer's shared electronics on a single qubit.
	Steps [][]string
}

// addMux appends one multiplexer's ordered qubits to the stage, extending the
// step alignment.
func (st *Stage) addMux(id int, qids []string) {
	st.MuxIDs = append(st.MuxIDs, id)
	st.QubitIDs = append(st.QubitIDs, qids...)
	for k, q := range qids {
		if k < len(st.Steps) {
			st.Steps[k] = append(st.Steps[k], q)
		} else {
			st.Steps = append(st.Steps, []string{q})
		}
	}
}

// OneQubitScheduleResult is an ordered sequence of stages. Steps is populated
// only for the synchronized ordering: step k lists the k-th qubit of every
// scheduled multiplexer, across stages, for lockstep execution.
type OneQubitScheduleResult struct {
	Stages []Stage
	Steps  [][]string
}

// OneQubitScheduler stages multiplexers by box classification: A and B
// hardware generators cannot be driven in lockstep unless the synchronized
// mode is explicitly requested, so a stage holds one box category only.
// Conflicting multiplexers are additionally kept out of one stage.
type OneQubitScheduler struct {
	chip *chip.Snapshot
	topo *topology.ConflictMap
}

// NewOneQubit builds a one-qubit scheduler over a chip snapshot and its
// conflict map.
func NewOneQubit(c *chip.Snapshot, t *topology.ConflictMap) *OneQubitScheduler {
	return &OneQubitScheduler{chip: c, topo: t}
}

// GenerateFromMux schedules the given multiplexers into ordered stages.
// Unknown mux ids are dropped leniently with a warning.
func (s *OneQubitScheduler) GenerateFromMux(ctx context.Context, muxIDs []int, ordering Ordering) (*OneQubitScheduleResult, error) {
	logger := ctxlog.FromContext(ctx)

	var muxes []int
	for _, id := range muxIDs {
		if _, ok := s.topo.Box(id); !ok {
			logger.Warn("Unknown multiplexer, dropping id.", "mux", id)
			continue
		}
		muxes = append(muxes, id)
	}
	sort.Ints(muxes)

	byBox := map[topology.BoxType][]int{}
	for _, id := range muxes {
		b, _ := s.topo.Box(id)
		byBox[b] = append(byBox[b], id)
	}

	res := &OneQubitScheduleResult{}
	for _, box := range []topology.BoxType{topology.BoxA, topology.BoxB, topology.BoxMixed} {
		res.Stages = append(res.Stages, s.stageBox(box, byBox[box], ordering)...)
	}

	if ordering == OrderSynchronized {
		res.Steps = s.lockstepSteps(muxes)
	}

	logger.Info("One-qubit schedule generated.",
		"muxes", len(muxes), "stages", len(res.Stages), "ordering", string(ordering))
	return res, nil
}

// stageBox packs one box category into stages so no stage holds two
// conflicting multiplexers. Greedy first-fit over ascending mux ids keeps the
// result stable.
func (s *OneQubitScheduler) stageBox(box topology.BoxType, muxes []int, ordering Ordering) []Stage {
	var stages []Stage
next:
	for _, id := range muxes {
		qids := s.orderedQubits(id, ordering)
		for i := range stages {
			fits := true
			for _, other := range stages[i].MuxIDs {
				if s.topo.Conflicts(id, other) {
					fits = false
					break
				}
			}
			if fits {
				stages[i].addMux(id, qids)
				continue next
			}
		}
		st := Stage{Box: box}
		st.addMux(id, qids)
		stages = append(stages, st)
	}
	return stages
}

// orderedQubits applies the ordering strategy within one multiplexer.
func (s *OneQubitScheduler) orderedQubits(mux int, ordering Ordering) []string {
	qids := s.topo.QubitsOf(mux)
	if ordering != OrderCheckerboard {
		return qids
	}

	// Sort by frequency, then interleave even and odd positions: neighbors
	// in frequency end up separated by a full sweep of the other parity.
	sorted := make([]string, len(qids))
	copy(sorted, qids)
	sort.SliceStable(sorted, func(i, j int) bool {
		fi, _ := s.chip.Frequency(sorted[i])
		fj, _ := s.chip.Frequency(sorted[j])
		if fi != fj {
			return fi < fj
		}
		return sorted[i] < sorted[j]
	})
	var out []string
	for i := 0; i < len(sorted); i += 2 {
		out = append(out, sorted[i])
	}
	for i := 1; i < len(sorted); i += 2 {
		out = append(out, sorted[i])
	}
	return out
}

// lockstepSteps aligns the k-th qubit of every multiplexer into step tuples.
// Multiplexers with fewer qubits simply drop out of later steps.
func (s *OneQubitScheduler) lockstepSteps(muxes []int) [][]string {
	var steps [][]string
	for k := 0; ; k++ {
		var step []string
		for _, id := range muxes {
			qids := s.topo.QubitsOf(id)
			if k < len(qids) {
				step = append(step, qids[k])
			}
		}
		if len(step) == 0 {
			return steps
		}
		steps = append(steps, step)
	}
}
