package filter

import (
	"context"
	"fmt"

	"github.com/vk/calibgo/internal/candidate"
	"github.com/vk/calibgo/internal/ctxlog"
)

// CandidateSet keeps a pair iff both of its qubits are in an explicit
// allow-set. A nil allow-set is a no-op. Allow-set entries naming a qubit the
// chip does not have are dropped leniently with a logged warning.
type CandidateSet struct {
	record
	Allow []string
}

func (f *CandidateSet) Name() string { return "candidate_set" }

func (f *CandidateSet) Apply(ctx context.Context, st *State, in []candidate.Pair) []candidate.Pair {
	if f.Allow == nil {
		f.log(f.Name(), "allow-set: none", in, in)
		return in
	}

	logger := ctxlog.FromContext(ctx)
	allow := make(map[string]bool, len(f.Allow))
	for _, qid := range f.Allow {
		if !st.Chip.Has(qid) {
			logger.Warn("Allow-set references unknown qubit, dropping id.", "filter", f.Name(), "qid", qid)
			continue
		}
		allow[qid] = true
	}

	var out []candidate.Pair
	for _, p := range in {
		if allow[p.Control] && allow[p.Target] {
			out = append(out, p)
		}
	}
	f.log(f.Name(), fmt.Sprintf("allow-set of %d qubits", len(allow)), in, out)
	return out
}

// Fidelity keeps a pair iff the named quality metric of both endpoints is at
// or above the threshold. A qubit missing the metric excludes the pair.
type Fidelity struct {
	record
	Metric string
	Min    float64
}

func (f *Fidelity) Name() string { return "fidelity" }

func (f *Fidelity) Apply(ctx context.Context, st *State, in []candidate.Pair) []candidate.Pair {
	var out []candidate.Pair
	for _, p := range in {
		if f.passes(st, p.Control) && f.passes(st, p.Target) {
			out = append(out, p)
		}
	}
	f.log(f.Name(), fmt.Sprintf("%s >= %g", f.Metric, f.Min), in, out)
	return out
}

func (f *Fidelity) passes(st *State, qid string) bool {
	v, ok := st.Chip.Metric(qid, f.Metric)
	return ok && v >= f.Min
}

// Direction selects the required frequency ordering of a pair.
type Direction int

const (
	// HighToLow keeps pairs whose control frequency is above the target's.
	HighToLow Direction = iota
	// LowToHigh keeps pairs whose control frequency is below the target's.
	LowToHigh
)

func (d Direction) String() string {
	if d == LowToHigh {
		return "low_to_high"
	}
	return "high_to_low"
}

// ParseDirection parses the configuration spelling of a direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "high_to_low":
		return HighToLow, nil
	case "low_to_high":
		return LowToHigh, nil
	default:
		return HighToLow, fmt.Errorf("unknown direction %q", s)
	}
}

// FrequencyDirectionality keeps a pair iff its frequency ordering matches the
// configured direction. A qubit with no known frequency excludes the pair.
type FrequencyDirectionality struct {
	record
	Direction Direction
}

func (f *FrequencyDirectionality) Name() string { return "frequency_directionality" }

func (f *FrequencyDirectionality) Apply(ctx context.Context, st *State, in []candidate.Pair) []candidate.Pair {
	var out []candidate.Pair
	for _, p := range in {
		fc, okc := st.Chip.Frequency(p.Control)
		ft, okt := st.Chip.Frequency(p.Target)
		if !okc || !okt {
			continue
		}
		switch f.Direction {
		case HighToLow:
			if fc > ft {
				out = append(out, p)
			}
		case LowToHigh:
			if fc < ft {
				out = append(out, p)
			}
		}
	}
	f.log(f.Name(), "direction: "+f.Direction.String(), in, out)
	return out
}
