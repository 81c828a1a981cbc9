// Package strategy implements the grouping algorithms that turn a filtered
// candidate set into an ordered sequence of conflict-free groups.
package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/calibgo/internal/candidate"
	"github.com/vk/calibgo/internal/topology"
)

// ErrConflictViolation marks a grouping that placed two conflicting candidates
// in one group. A correct strategy never produces it; seeing this error means
// an internal bug, not bad input.
var ErrConflictViolation = errors.New("conflicting candidates scheduled in one group")

// Group is a set of candidates guaranteed pairwise conflict-free.
type Group []candidate.Pair

// Context carries the immutable inputs a strategy needs.
type Context struct {
	Topo *topology.ConflictMap
	// MaxParallelOps caps group size. Zero means unbounded.
	MaxParallelOps int
}

// Strategy turns candidates into an ordered, conflict-free group sequence.
type Strategy interface {
	Name() string
	Schedule(ctx context.Context, sc *Context, cands []candidate.Pair) ([]Group, error)
}

// conflicts reports whether two candidates cannot run simultaneously: they
// reuse a physical qubit, or any of their multiplexers conflict.
func conflicts(topo *topology.ConflictMap, a, b candidate.Pair) bool {
	if a.SharesQubit(b) {
		return true
	}
	for _, qa := range a.Qubits() {
		for _, qb := range b.Qubits() {
			if topo.QubitsConflict(qa, qb) {
				return true
			}
		}
	}
	return false
}

// verify checks the no-conflict invariant over a finished schedule.
func verify(topo *topology.ConflictMap, groups []Group) error {
	for gi, g := range groups {
		for i := 0; i < len(g); i++ {
			for j := i + 1; j < len(g); j++ {
				if conflicts(topo, g[i], g[j]) {
					return fmt.Errorf("group %d: %s conflicts with %s: %w",
						gi, g[i].ID(), g[j].ID(), ErrConflictViolation)
				}
			}
		}
	}
	return nil
}

// splitOversized cuts groups larger than max into consecutive chunks. A
// subset of a conflict-free group is still conflict-free, so slicing is safe.
func splitOversized(groups []Group, max int) []Group {
	if max <= 0 {
		return groups
	}
	var out []Group
	for _, g := range groups {
		for len(g) > max {
			out = append(out, g[:max:max])
			g = g[max:]
		}
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	return out
}
