// Package candidate defines the identifiers the schedulers operate on: qubit
// ids and qubit pairs. A pair is directional for calibration purposes (the
// first qubit is the control), but unordered when checking resource conflicts.
package candidate

import (
	"fmt"
	"sort"
	"strings"
)

// Pair is a two-qubit calibration candidate, written as "control-target".
type Pair struct {
	Control string
	Target  string
}

// NewPair builds a pair from a control and target qubit id.
func NewPair(control, target string) Pair {
	return Pair{Control: control, Target: target}
}

// ParsePair parses a pair id of the form "a-b".
func ParsePair(id string) (Pair, error) {
	parts := strings.Split(id, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("malformed pair id %q: want \"control-target\"", id)
	}
	return Pair{Control: parts[0], Target: parts[1]}, nil
}

// ID returns the canonical string form of the pair.
func (p Pair) ID() string {
	return p.Control + "-" + p.Target
}

// Qubits returns the two qubit ids of the pair.
func (p Pair) Qubits() [2]string {
	return [2]string{p.Control, p.Target}
}

// SharesQubit reports whether two pairs touch a common physical qubit,
// regardless of direction.
func (p Pair) SharesQubit(other Pair) bool {
	return p.Control == other.Control || p.Control == other.Target ||
		p.Target == other.Control || p.Target == other.Target
}

// SortPairs orders pairs by their canonical id. Scheduling code sorts inputs
// up front so identical inputs always produce identical schedules.
func SortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ID() < pairs[j].ID() })
}

// IDs returns the canonical ids of the given pairs, in order.
func IDs(pairs []Pair) []string {
	ids := make([]string, len(pairs))
	for i, p := range pairs {
		ids[i] = p.ID()
	}
	return ids
}
