package app

import (
	"github.com/vk/calibgo/internal/chip"
	"github.com/vk/calibgo/internal/topology"
)

// loadChip reads the chip data file when one is configured. Without one, a
// minimal snapshot is derived from the wiring: every wired qubit with no
// recorded frequency or metrics, coupled in a chain within each mux. Metric
// and frequency filters then see no data and drop everything they screen,
// which is the safe default for a chip nothing has been measured on yet.
func loadChip(path string, topo *topology.ConflictMap) (*chip.Snapshot, error) {
	if path != "" {
		return chip.LoadYAML(path)
	}

	var qubits []chip.Qubit
	var couplings []chip.Coupling
	for _, mux := range topo.MuxIDs() {
		qids := topo.QubitsOf(mux)
		for i, qid := range qids {
			qubits = append(qubits, chip.Qubit{ID: qid})
			if i > 0 {
				couplings = append(couplings, chip.Coupling{Control: qids[i-1], Target: qid})
			}
		}
	}
	return chip.NewSnapshot(qubits, couplings)
}
