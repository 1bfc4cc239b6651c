// Package harness executes individual benchmark cases against the
// proving pipeline, isolating each attempt in a scratch directory and
// recording one measurement per phase.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/provebench/provebench/paramspace"
	"github.com/provebench/provebench/pipeline"
)

// Measurement outcome statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Outcome records whether a phase invocation passed, with the
// pipeline's reason when it did not.
type Outcome struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Measurement is the timing and resource record for one phase of one
// attempt. Pointer-typed metrics are nil when the host could not report
// them, which is distinct from a measured zero.
type Measurement struct {
	Phase           pipeline.Phase `json:"phase"`
	WallNS          int64          `json:"wall_ns"`
	CPUUserNS       *int64         `json:"cpu_user_ns,omitempty"`
	CPUSystemNS     *int64         `json:"cpu_system_ns,omitempty"`
	PeakMemoryBytes *uint64        `json:"peak_memory_bytes,omitempty"`
	SelfReportedNS  *int64         `json:"self_reported_ns,omitempty"`
	Outcome         Outcome        `json:"outcome"`
}

// Succeeded reports whether the phase invocation passed.
func (m Measurement) Succeeded() bool { return m.Outcome.Status == StatusSuccess }

// CaseResult is the record of one attempt of one parameter combination.
// Measurements appear in phase execution order; a failed phase is the
// last entry, since later phases cannot run without its artifact.
type CaseResult struct {
	Parameters   paramspace.Set
	AttemptIndex int
	Measurements []Measurement
	Failed       bool
}

// Executor runs benchmark cases through a pipeline runner.
type Executor struct {
	runner      pipeline.Runner
	scratchRoot string
	logger      *slog.Logger
}

// NewExecutor creates an Executor. scratchRoot is the directory under
// which per-attempt working areas are created; it is created on demand.
func NewExecutor(runner pipeline.Runner, scratchRoot string, logger *slog.Logger) *Executor {
	return &Executor{
		runner:      runner,
		scratchRoot: scratchRoot,
		logger:      logger.With(slog.String("component", "executor")),
	}
}

// Execute runs repeat attempts of one combination, strictly one after
// another, and returns every attempt's result. A failing attempt never
// aborts the remaining ones.
func (e *Executor) Execute(ctx context.Context, set paramspace.Set, repeat int) []CaseResult {
	if repeat < 1 {
		repeat = 1
	}

	results := make([]CaseResult, 0, repeat)
	for attempt := 0; attempt < repeat; attempt++ {
		results = append(results, e.ExecuteAttempt(ctx, set, attempt))
	}

	return results
}

// ExecuteAttempt runs a single attempt: a fresh scratch directory is
// created and removed regardless of outcome, phases run in their fixed
// order, and the first failing phase stops the attempt while keeping
// the measurements already recorded.
func (e *Executor) ExecuteAttempt(ctx context.Context, set paramspace.Set, attempt int) CaseResult {
	result := CaseResult{Parameters: set, AttemptIndex: attempt}

	logger := e.logger.With(
		slog.String("case", set.Key()),
		slog.Int("attempt", attempt),
	)

	workDir, cleanup, err := e.scratchDir()
	if err != nil {
		logger.Warn("cannot create scratch dir",
			slog.String("error", err.Error()),
		)

		result.Failed = true

		return result
	}
	defer cleanup(logger)

	seed := Seed(set, attempt)

	logger.Info("case started",
		slog.String("work_dir", workDir),
		slog.Uint64("seed", seed),
	)

	for _, phase := range pipeline.Phases() {
		m := e.runPhase(ctx, phase, set, workDir, seed)
		result.Measurements = append(result.Measurements, m)

		if !m.Succeeded() {
			logger.Warn("phase failed",
				slog.String("phase", string(phase)),
				slog.String("reason", m.Outcome.Reason),
			)

			result.Failed = true

			break
		}
	}

	logger.Info("case finished", slog.Bool("failed", result.Failed))

	return result
}

func (e *Executor) runPhase(
	ctx context.Context,
	phase pipeline.Phase,
	set paramspace.Set,
	workDir string,
	seed uint64,
) Measurement {
	req := pipeline.Request{
		Phase:      phase,
		Parameters: set.Values(),
		WorkDir:    workDir,
		Seed:       seed,
	}

	wallStart := time.Now()
	res, err := e.runner.RunPhase(ctx, req)
	wall := time.Since(wallStart)

	m := Measurement{Phase: phase, WallNS: wall.Nanoseconds()}

	if err != nil {
		m.Outcome = Outcome{
			Status: StatusFailure,
			Reason: fmt.Sprintf("invoke pipeline: %v", err),
		}

		return m
	}

	m.CPUUserNS = res.Usage.CPUUserNS
	m.CPUSystemNS = res.Usage.CPUSystemNS
	m.PeakMemoryBytes = res.Usage.PeakRSSBytes

	if res.Response.ElapsedNS > 0 {
		elapsed := res.Response.ElapsedNS
		m.SelfReportedNS = &elapsed
	}

	if res.Response.OK {
		m.Outcome = Outcome{Status: StatusSuccess}
	} else {
		reason := res.Response.Reason
		if reason == "" {
			reason = "pipeline reported failure"
		}

		m.Outcome = Outcome{Status: StatusFailure, Reason: reason}
	}

	return m
}

// scratchDir creates a working area unique to one attempt. The returned
// cleanup removes it; removal failures are logged, never fatal.
func (e *Executor) scratchDir() (string, func(*slog.Logger), error) {
	if err := os.MkdirAll(e.scratchRoot, 0o755); err != nil {
		return "", nil, fmt.Errorf("create scratch root %s: %w", e.scratchRoot, err)
	}

	dir := filepath.Join(e.scratchRoot, "case-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create scratch dir %s: %w", dir, err)
	}

	cleanup := func(logger *slog.Logger) {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("failed to remove scratch dir",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
		}
	}

	return dir, cleanup, nil
}
