// Package topology derives the scheduling view of the chip wiring: the
// qubit-to-multiplexer map, the multiplexer conflict graph, and the box
// classification of each multiplexer. All of it is a pure function of the
// wiring configuration; nothing here is mutated after Resolve returns.
package topology

import (
	"context"
	"fmt"
	"sort"
	"unicode"

	"github.com/vk/calibgo/internal/ctxlog"
	"github.com/vk/calibgo/internal/wiring"
)

// BoxType classifies a multiplexer by the electronics chassis family serving
// its control and readout lines.
type BoxType int

const (
	BoxA BoxType = iota
	BoxB
	BoxMixed
)

func (b BoxType) String() string {
	switch b {
	case BoxA:
		return "A"
	case BoxB:
		return "B"
	case BoxMixed:
		return "mixed"
	}
	return "unknown"
}

// ConflictMap holds the derived topology. Two multiplexers conflict when they
// share a control or a readout module; the relation is symmetric and every
// multiplexer conflicts with itself.
type ConflictMap struct {
	qubitMux  map[string]int
	muxQubits map[int][]string
	conflicts map[int]map[int]bool
	boxes     map[int]BoxType
	muxIDs    []int
}

// Resolve builds the conflict map from a validated wiring configuration.
func Resolve(ctx context.Context, cfg *wiring.Config) (*ConflictMap, error) {
	m := &ConflictMap{
		qubitMux:  make(map[string]int),
		muxQubits: make(map[int][]string),
		conflicts: make(map[int]map[int]bool),
		boxes:     make(map[int]BoxType),
	}

	// module name -> muxes using it, split by conflict source
	ctrlUsers := make(map[string][]int)
	readUsers := make(map[string][]int)

	for i := range cfg.Muxes {
		e := &cfg.Muxes[i]
		mux := *e.Mux
		m.muxIDs = append(m.muxIDs, mux)
		m.conflicts[mux] = map[int]bool{mux: true}

		for _, qid := range e.QubitIDs() {
			if other, dup := m.qubitMux[qid]; dup {
				return nil, &wiring.ConfigError{
					Reason: fmt.Sprintf("qubit %s assigned to both mux %d and mux %d", qid, other, mux),
				}
			}
			m.qubitMux[qid] = mux
			m.muxQubits[mux] = append(m.muxQubits[mux], qid)
		}

		var modules []string
		for _, tok := range e.Ctrl {
			mod, err := wiring.Module(tok)
			if err != nil {
				return nil, &wiring.ConfigError{Reason: err.Error()}
			}
			ctrlUsers[mod] = append(ctrlUsers[mod], mux)
			modules = append(modules, mod)
		}
		readMod, err := wiring.Module(e.ReadOut)
		if err != nil {
			return nil, &wiring.ConfigError{Reason: err.Error()}
		}
		readUsers[readMod] = append(readUsers[readMod], mux)
		modules = append(modules, readMod)

		m.boxes[mux] = classify(ctx, mux, modules)
	}
	sort.Ints(m.muxIDs)

	// Union of the two conflict sources.
	for _, users := range ctrlUsers {
		m.link(users)
	}
	for _, users := range readUsers {
		m.link(users)
	}

	return m, nil
}

func (m *ConflictMap) link(muxes []int) {
	for _, a := range muxes {
		for _, b := range muxes {
			m.conflicts[a][b] = true
			m.conflicts[b][a] = true
		}
	}
}

// classify derives the box family of a multiplexer from the leading letter of
// each module name: 'A'/'a' is box A, 'B'/'b' is box B. A multiplexer served
// by both families is mixed. An unrecognized family letter classifies as
// mixed with a warning, so a novel chassis never silently piggybacks on A or
// B lockstep constraints.
func classify(ctx context.Context, mux int, modules []string) BoxType {
	families := make(map[rune]bool)
	unknown := false
	for _, mod := range modules {
		r := leadingLetter(mod)
		switch r {
		case 'A', 'B':
			families[r] = true
		default:
			unknown = true
		}
	}
	if unknown {
		ctxlog.FromContext(ctx).Warn("Unrecognized module family, classifying mux as mixed.", "mux", mux, "modules", modules)
		return BoxMixed
	}
	if len(families) != 1 {
		return BoxMixed
	}
	if families['A'] {
		return BoxA
	}
	return BoxB
}

func leadingLetter(s string) rune {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return unicode.ToUpper(r)
		}
		return 0
	}
	return 0
}

// MuxOf returns the multiplexer serving a qubit.
func (m *ConflictMap) MuxOf(qid string) (int, bool) {
	mux, ok := m.qubitMux[qid]
	return mux, ok
}

// QubitsOf returns the qubits served by a multiplexer, in wiring order.
func (m *ConflictMap) QubitsOf(mux int) []string {
	out := make([]string, len(m.muxQubits[mux]))
	copy(out, m.muxQubits[mux])
	return out
}

// Conflicts reports whether two multiplexers share a control or readout module.
func (m *ConflictMap) Conflicts(a, b int) bool {
	return m.conflicts[a][b]
}

// QubitsConflict reports whether the multiplexers of two qubits conflict.
// Unknown qubits never conflict; callers that care validate ids up front.
func (m *ConflictMap) QubitsConflict(q1, q2 string) bool {
	m1, ok1 := m.qubitMux[q1]
	m2, ok2 := m.qubitMux[q2]
	if !ok1 || !ok2 {
		return false
	}
	return m.Conflicts(m1, m2)
}

// SameMux reports whether two qubits are served by one multiplexer.
func (m *ConflictMap) SameMux(q1, q2 string) bool {
	m1, ok1 := m.qubitMux[q1]
	m2, ok2 := m.qubitMux[q2]
	return ok1 && ok2 && m1 == m2
}

// Box returns the box classification of a multiplexer.
func (m *ConflictMap) Box(mux int) (BoxType, bool) {
	b, ok := m.boxes[mux]
	return b, ok
}

// MuxIDs returns all multiplexer ids in ascending order.
func (m *ConflictMap) MuxIDs() []int {
	out := make([]int, len(m.muxIDs))
	copy(out, m.muxIDs)
	return out
}

// QubitIDs returns every wired qubit id in lexical order.
func (m *ConflictMap) QubitIDs() []string {
	out := make([]string, 0, len(m.qubitMux))
	for qid := range m.qubitMux {
		out = append(out, qid)
	}
	sort.Strings(out)
	return out
}
