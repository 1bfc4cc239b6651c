// Package envprobe captures static host facts once per run so reports
// can be tied back to the machine and source revision that produced
// them.
package envprobe

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v4/cpu"
)

// Snapshot is an immutable record of the benchmarking host, captured
// once before any case executes and shared read-only across the run.
type Snapshot struct {
	CPUModel       string    `json:"cpu_model"`
	CPUFeatures    []string  `json:"cpu_features"`
	LogicalCores   int       `json:"logical_cores"`
	SourceRevision string    `json:"source_revision,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
}

// Capture probes the host. It never fails: every fact degrades
// independently to its zero value on hosts with incomplete
// introspection support, and the run proceeds either way.
func Capture(ctx context.Context, logger *slog.Logger) Snapshot {
	snap := Snapshot{
		CapturedAt: time.Now().UTC(),
		CPUModel:   strings.TrimSpace(cpuid.CPU.BrandName),
	}

	features := cpuid.CPU.FeatureSet()
	sort.Strings(features)
	snap.CPUFeatures = features

	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil || cores <= 0 {
		logger.Warn("logical core probe degraded, using runtime count",
			slog.Any("error", err),
		)

		cores = runtime.NumCPU()
	}

	snap.LogicalCores = cores

	snap.SourceRevision = sourceRevision(ctx)
	if snap.SourceRevision == "" {
		logger.Info("no source revision available")
	}

	return snap
}

// sourceRevision returns the current git commit, with a -dirty suffix
// when the checkout has local modifications. Empty when not running
// from a checkout or git is unavailable.
func sourceRevision(ctx context.Context) string {
	out, err := exec.CommandContext(
		ctx, "git", "rev-parse", "HEAD",
	).Output()
	if err != nil {
		return ""
	}

	rev := strings.TrimSpace(string(out))
	if rev == "" {
		return ""
	}

	status, err := exec.CommandContext(
		ctx, "git", "status", "--porcelain",
	).Output()
	if err == nil && len(bytes.TrimSpace(status)) > 0 {
		rev += "-dirty"
	}

	return rev
}
