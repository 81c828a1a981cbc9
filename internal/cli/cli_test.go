package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("full flag set", func(t *testing.T) {
		t.Parallel()
		cfg, exit, err := Parse([]string{
			"-wiring", "wiring.yaml",
			"-chip", "chip.yaml",
			"-operator", "alice",
			"-resume", "20250601-000",
			"-log-level", "debug",
			"-log-format", "text",
			"-plan", "plan.hcl",
		}, &bytes.Buffer{})
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "plan.hcl", cfg.PlanPath)
		assert.Equal(t, "wiring.yaml", cfg.WiringPath)
		assert.Equal(t, "chip.yaml", cfg.ChipPath)
		assert.Equal(t, "alice", cfg.Operator)
		assert.Equal(t, "20250601-000", cfg.Resume)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "text", cfg.LogFormat)
	})

	t.Run("positional plan path", func(t *testing.T) {
		t.Parallel()
		cfg, exit, err := Parse([]string{"-wiring", "wiring.yaml", "plan.hcl"}, &bytes.Buffer{})
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "plan.hcl", cfg.PlanPath)
	})

	t.Run("no plan path prints usage and exits cleanly", func(t *testing.T) {
		t.Parallel()
		out := &bytes.Buffer{}
		cfg, exit, err := Parse([]string{"-wiring", "wiring.yaml"}, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("missing wiring flag", func(t *testing.T) {
		t.Parallel()
		_, _, err := Parse([]string{"plan.hcl"}, &bytes.Buffer{})
		require.Error(t, err)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Parallel()
		_, _, err := Parse([]string{"-wiring", "w.yaml", "-log-level", "verbose", "plan.hcl"}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log-level")
	})

	t.Run("invalid log format", func(t *testing.T) {
		t.Parallel()
		_, _, err := Parse([]string{"-wiring", "w.yaml", "-log-format", "xml", "plan.hcl"}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log-format")
	})
}
