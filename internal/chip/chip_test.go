package chip

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("valid snapshot", func(t *testing.T) {
		t.Parallel()
		s, err := NewSnapshot([]Qubit{
			{ID: "1", Frequency: 8.1, Params: map[string]float64{"fidelity": 0.97}},
			{ID: "0", Frequency: 8.4},
		}, []Coupling{{Control: "0", Target: "1"}})
		require.NoError(t, err)

		assert.Equal(t, []string{"0", "1"}, s.QubitIDs(), "ids come back in lexical order")
		assert.True(t, s.Has("0"))
		assert.False(t, s.Has("2"))

		f, ok := s.Frequency("0")
		require.True(t, ok)
		assert.Equal(t, 8.4, f)

		v, ok := s.Metric("1", "fidelity")
		require.True(t, ok)
		assert.Equal(t, 0.97, v)

		_, ok = s.Metric("0", "fidelity")
		assert.False(t, ok, "missing metric reports ok=false")

		pairs := s.Couplings()
		require.Len(t, pairs, 1)
		assert.Equal(t, "0-1", pairs[0].ID())
	})

	t.Run("duplicate qubit id", func(t *testing.T) {
		t.Parallel()
		_, err := NewSnapshot([]Qubit{{ID: "0"}, {ID: "0"}}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate qubit")
	})

	t.Run("coupling referencing unknown qubit", func(t *testing.T) {
		t.Parallel()
		_, err := NewSnapshot([]Qubit{{ID: "0"}}, []Coupling{{Control: "0", Target: "9"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown qubit")
	})
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "chip.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
qubits:
  - id: "0"
    frequency: 8.4
    params:
      fidelity: 0.99
  - id: "1"
    frequency: 8.1
couplings:
  - control: "0"
    target: "1"
`), 0600))

		s, err := LoadYAML(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"0", "1"}, s.QubitIDs())

		v, ok := s.Metric("0", "fidelity")
		require.True(t, ok)
		assert.Equal(t, 0.99, v)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadYAML(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("inconsistent couplings are fatal", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "chip.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
qubits:
  - id: "0"
couplings:
  - control: "0"
    target: "7"
`), 0600))

		_, err := LoadYAML(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown qubit")
	})
}
