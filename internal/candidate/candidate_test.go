package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	t.Parallel()

	t.Run("round trips through ID", func(t *testing.T) {
		t.Parallel()
		p, err := ParsePair("4-5")
		require.NoError(t, err)
		assert.Equal(t, "4", p.Control)
		assert.Equal(t, "5", p.Target)
		assert.Equal(t, "4-5", p.ID())
	})

	t.Run("rejects malformed ids", func(t *testing.T) {
		t.Parallel()
		for _, id := range []string{"", "4", "4-", "-5", "4-5-6"} {
			_, err := ParsePair(id)
			assert.Error(t, err, "id %q", id)
		}
	})
}

func TestSharesQubit(t *testing.T) {
	t.Parallel()

	base := NewPair("0", "1")
	assert.True(t, base.SharesQubit(NewPair("1", "2")), "target reused as control")
	assert.True(t, base.SharesQubit(NewPair("2", "0")), "control reused as target")
	assert.True(t, base.SharesQubit(NewPair("1", "0")), "reversed pair")
	assert.False(t, base.SharesQubit(NewPair("2", "3")))
}

func TestSortPairs_Deterministic(t *testing.T) {
	t.Parallel()

	pairs := []Pair{NewPair("2", "3"), NewPair("0", "4"), NewPair("0", "1")}
	SortPairs(pairs)
	assert.Equal(t, []string{"0-1", "0-4", "2-3"}, IDs(pairs))
}
