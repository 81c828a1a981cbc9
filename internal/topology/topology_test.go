package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/calibgo/internal/testutil"
	"github.com/vk/calibgo/internal/wiring"
)

// fixture wires four muxes: 0 and 1 share a readout module, 1 and 2 share a
// control module, 3 is isolated and served by box B electronics.
func fixture(t *testing.T) *wiring.Config {
	t.Helper()
	cfg, err := wiring.Parse([]byte(`
muxes:
  - mux: 0
    ctrl: [a01-0, a01-1]
    readout: a10-0
  - mux: 1
    ctrl: [a02-0, a01-2]
    readout: a10-1
  - mux: 2
    ctrl: [a02-1, a02-2]
    readout: a11-0
  - mux: 3
    ctrl: [b01-0, b01-1]
    readout: b10-0
`))
	require.NoError(t, err)
	return cfg
}

func TestResolve_Conflicts(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)

	m, err := Resolve(ctx, fixture(t))
	require.NoError(t, err)

	t.Run("shared readout module conflicts", func(t *testing.T) {
		assert.True(t, m.Conflicts(0, 1))
	})

	t.Run("shared control module conflicts", func(t *testing.T) {
		assert.True(t, m.Conflicts(1, 2))
	})

	t.Run("no shared module means no conflict", func(t *testing.T) {
		assert.False(t, m.Conflicts(0, 2))
		assert.False(t, m.Conflicts(0, 3))
		assert.False(t, m.Conflicts(2, 3))
	})

	t.Run("symmetric", func(t *testing.T) {
		for _, a := range m.MuxIDs() {
			for _, b := range m.MuxIDs() {
				assert.Equal(t, m.Conflicts(a, b), m.Conflicts(b, a), "conflict(%d,%d)", a, b)
			}
		}
	})

	t.Run("every mux conflicts with itself", func(t *testing.T) {
		for _, id := range m.MuxIDs() {
			assert.True(t, m.Conflicts(id, id), "mux %d", id)
		}
	})
}

func TestResolve_QubitAssignment(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)

	m, err := Resolve(ctx, fixture(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1"}, m.QubitsOf(0))
	assert.Equal(t, []string{"2", "3"}, m.QubitsOf(1))
	assert.Equal(t, []string{"6", "7"}, m.QubitsOf(3))

	mux, ok := m.MuxOf("3")
	require.True(t, ok)
	assert.Equal(t, 1, mux)

	_, ok = m.MuxOf("99")
	assert.False(t, ok)

	assert.True(t, m.SameMux("2", "3"))
	assert.False(t, m.SameMux("1", "2"))
	assert.True(t, m.QubitsConflict("0", "2"), "qubits on conflicting muxes")
	assert.False(t, m.QubitsConflict("0", "6"))
	assert.False(t, m.QubitsConflict("0", "nope"), "unknown qubits never conflict")
}

func TestResolve_BoxClassification(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)

	t.Run("single-family muxes", func(t *testing.T) {
		m, err := Resolve(ctx, fixture(t))
		require.NoError(t, err)

		for _, mux := range []int{0, 1, 2} {
			b, ok := m.Box(mux)
			require.True(t, ok)
			assert.Equal(t, BoxA, b, "mux %d", mux)
		}
		b, ok := m.Box(3)
		require.True(t, ok)
		assert.Equal(t, BoxB, b)
	})

	t.Run("both families classify as mixed", func(t *testing.T) {
		cfg, err := wiring.Parse([]byte(`
muxes:
  - mux: 0
    ctrl: [a01-0, b01-0]
    readout: a10-0
`))
		require.NoError(t, err)
		m, err := Resolve(ctx, cfg)
		require.NoError(t, err)

		b, ok := m.Box(0)
		require.True(t, ok)
		assert.Equal(t, BoxMixed, b)
	})

	t.Run("unrecognized family classifies as mixed", func(t *testing.T) {
		cfg, err := wiring.Parse([]byte(`
muxes:
  - mux: 0
    ctrl: [x01-0, x01-1]
    readout: x10-0
`))
		require.NoError(t, err)
		m, err := Resolve(ctx, cfg)
		require.NoError(t, err)

		b, ok := m.Box(0)
		require.True(t, ok)
		assert.Equal(t, BoxMixed, b)
	})
}

func TestResolve_QubitCollision(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)

	// Mux 0 with four lines serves qubits 0..3; mux 1 with two lines would
	// serve 2..3 again.
	cfg, err := wiring.Parse([]byte(`
muxes:
  - mux: 0
    ctrl: [a01-0, a01-1, a01-2, a01-3]
    readout: a10-0
  - mux: 1
    ctrl: [a02-0, a02-1]
    readout: a10-1
`))
	require.NoError(t, err)

	_, err = Resolve(ctx, cfg)
	require.Error(t, err)
	var cfgErr *wiring.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "assigned to both")
}
