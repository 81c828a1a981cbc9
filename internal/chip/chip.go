// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file models the chip snapshot consumed by the schedulers.
//
// Why an immutable snapshot?
//
// Schedule generation must be pure for a fixed chip state: running the same
// generation twice against the same snapshot yields the same schedule. The
// snapshot is therefore built once, addressed by qubit id, and never mutated.
// Schedules hold ids only, never pointers back into the snapshot, so there are
// no reference cycles between a schedule and the topology it was derived from.
package chip

import (
	"fmt"
	"sort"

	"github.com/vk/calibgo/internal/candidate"
)

// Qubit is a single qubit record: its id, drive frequency and the named
// quality/calibration parameters known for it (fidelities, fit scores, ...).
type Qubit struct {
	ID        string
	Frequency float64
	Params    map[string]float64
}

// Coupling is a physically valid two-qubit coupling on the chip.
type Coupling struct {
	Control string
	Target  string
}

// Snapshot is the immutable chip state a schedule is generated against.
type Snapshot struct {
	qubits    map[string]Qubit
	order     []string
	couplings []Coupling
}

// NewSnapshot builds a snapshot from qubit and coupling records. A coupling
// referencing a qubit the snapshot does not contain is rejected: couplings are
// part of the static chip description and must be internally consistent.
func NewSnapshot(qubits []Qubit, couplings []Coupling) (*Snapshot, error) {
	s := &Snapshot{qubits: make(map[string]Qubit, len(qubits))}
	for _, q := range qubits {
		if _, dup := s.qubits[q.ID]; dup {
			return nil, fmt.Errorf("duplicate qubit id %q", q.ID)
		}
		s.qubits[q.ID] = q
		s.order = append(s.order, q.ID)
	}
	sort.Strings(s.order)
	for _, c := range couplings {
		if _, ok := s.qubits[c.Control]; !ok {
			return nil, fmt.Errorf("coupling %s-%s references unknown qubit %q", c.Control, c.Target, c.Control)
		}
		if _, ok := s.qubits[c.Target]; !ok {
			return nil, fmt.Errorf("coupling %s-%s references unknown qubit %q", c.Control, c.Target, c.Target)
		}
		s.couplings = append(s.couplings, c)
	}
	return s, nil
}

// Qubit returns the qubit record for the given id.
func (s *Snapshot) Qubit(id string) (Qubit, bool) {
	q, ok := s.qubits[id]
	return q, ok
}

// Has reports whether the snapshot contains the given qubit id.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.qubits[id]
	return ok
}

// QubitIDs returns all qubit ids in stable (lexical) order.
func (s *Snapshot) QubitIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Couplings enumerates the physically valid couplings as candidate pairs, in
// the order they were declared.
func (s *Snapshot) Couplings() []candidate.Pair {
	out := make([]candidate.Pair, len(s.couplings))
	for i, c := range s.couplings {
		out[i] = candidate.NewPair(c.Control, c.Target)
	}
	return out
}

// Metric returns the named quality metric for a qubit. The second return is
// false when either the qubit or the metric is unknown.
func (s *Snapshot) Metric(id, name string) (float64, bool) {
	q, ok := s.qubits[id]
	if !ok {
		return 0, false
	}
	v, ok := q.Params[name]
	return v, ok
}

// Frequency returns the drive frequency of a qubit.
func (s *Snapshot) Frequency(id string) (float64, bool) {
	q, ok := s.qubits[id]
	if !ok {
		return 0, false
	}
	return q.Frequency, true
}
