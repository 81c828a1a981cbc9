package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/calibgo/internal/candidate"
	"github.com/vk/calibgo/internal/testutil"
)

func TestIntraThenInter(t *testing.T) {
	t.Parallel()
	ctx := testutil.Context(t)
	topo := eightMux(t)

	// 0-1 and 2-3 are intra-mux (mux 0); 0-4 and 16-20 cross multiplexers.
	cands := mustPairs(t, "0-4", "0-1", "16-20", "2-3")

	s := &IntraThenInter{Inner: &Coloring{Heuristic: LargestFirst}}
	groups, err := s.Schedule(ctx, &Context{Topo: topo}, cands)
	require.NoError(t, err)

	assert.ElementsMatch(t, candidate.IDs(cands), flatten(groups))

	// Intra pairs must be exhausted before the first inter pair appears.
	sawInter := false
	for _, g := range groups {
		for _, p := range g {
			if topo.SameMux(p.Control, p.Target) {
				assert.False(t, sawInter, "intra pair %s scheduled after an inter pair", p.ID())
			} else {
				sawInter = true
			}
		}
	}
	assert.True(t, sawInter)
}

func TestIntraThenInter_Name(t *testing.T) {
	t.Parallel()
	s := &IntraThenInter{Inner: &Coloring{Heuristic: Saturation}}
	assert.Equal(t, "intra_then_inter/coloring/saturation", s.Name())
}
