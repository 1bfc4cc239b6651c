package envprobe_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provebench/provebench/envprobe"
)

func TestCaptureNeverFails(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	snap := envprobe.Capture(context.Background(), logger)

	// Core count always has at least the runtime fallback.
	assert.GreaterOrEqual(t, snap.LogicalCores, 1)

	require.False(t, snap.CapturedAt.IsZero())
	assert.Equal(t, time.UTC, snap.CapturedAt.Location())
}

func TestCaptureFeatureFlagsSorted(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	snap := envprobe.Capture(context.Background(), logger)

	assert.True(t, sort.StringsAreSorted(snap.CPUFeatures))
}

func TestCaptureIsReproducibleWithinRun(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a := envprobe.Capture(context.Background(), logger)
	b := envprobe.Capture(context.Background(), logger)

	// Static facts agree between captures; only the timestamp moves.
	assert.Equal(t, a.CPUModel, b.CPUModel)
	assert.Equal(t, a.CPUFeatures, b.CPUFeatures)
	assert.Equal(t, a.LogicalCores, b.LogicalCores)
	assert.Equal(t, a.SourceRevision, b.SourceRevision)
}
