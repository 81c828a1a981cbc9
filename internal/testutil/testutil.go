// Package testutil provides shared helpers for package tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/vk/calibgo/internal/ctxlog"
)

// Context returns a background context carrying a discarding logger, so code
// that requires a context logger can run silently under test.
func Context(t *testing.T) context.Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}
