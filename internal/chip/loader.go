package chip

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileQubit struct {
	ID        string             `yaml:"id"`
	Frequency float64            `yaml:"frequency"`
	Params    map[string]float64 `yaml:"params"`
}

type fileCoupling struct {
	Control string `yaml:"control"`
	Target  string `yaml:"target"`
}

type chipFile struct {
	Qubits    []fileQubit    `yaml:"qubits"`
	Couplings []fileCoupling `yaml:"couplings"`
}

// LoadYAML reads a chip data file: qubit records with frequencies and quality
// parameters, plus the physically valid couplings.
func LoadYAML(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chip file: %w", err)
	}
	var f chipFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse chip file %s: %w", path, err)
	}

	qubits := make([]Qubit, len(f.Qubits))
	for i, q := range f.Qubits {
		qubits[i] = Qubit{ID: q.ID, Frequency: q.Frequency, Params: q.Params}
	}
	couplings := make([]Coupling, len(f.Couplings))
	for i, c := range f.Couplings {
		couplings[i] = Coupling{Control: c.Control, Target: c.Target}
	}

	snap, err := NewSnapshot(qubits, couplings)
	if err != nil {
		return nil, fmt.Errorf("chip file %s: %w", path, err)
	}
	return snap, nil
}
