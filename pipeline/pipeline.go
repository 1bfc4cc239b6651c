// Package pipeline defines the contract between the benchmark harness
// and the external proving pipeline. The pipeline is opaque to the
// harness: each phase invocation takes a parameter set, a private
// working directory, and a deterministic seed, and reports pass/fail.
package pipeline

import "context"

// Phase is one stage of the proving pipeline. The set and its order are
// owned by the pipeline's contract, not invented here.
type Phase string

const (
	PhaseReplicate Phase = "replicate"
	PhaseProve     Phase = "prove"
	PhaseVerify    Phase = "verify"
)

// Phases returns all phases in their fixed execution order.
func Phases() []Phase {
	return []Phase{PhaseReplicate, PhaseProve, PhaseVerify}
}

// Request describes a single phase invocation.
type Request struct {
	Phase      Phase             `json:"phase"`
	Parameters map[string]string `json:"parameters"`
	WorkDir    string            `json:"work_dir"`
	Seed       uint64            `json:"seed"`
}

// Response is the pipeline's verdict for one phase invocation.
type Response struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	// ElapsedNS is the pipeline's self-reported timing for the phase,
	// when it reports one. Zero means not reported; the harness always
	// wall-clocks the invocation regardless.
	ElapsedNS int64 `json:"elapsed_ns,omitempty"`
}

// Usage is the resource accounting for one phase invocation. A nil
// field means the host could not report that metric, which is distinct
// from a measured zero.
type Usage struct {
	CPUUserNS    *int64
	CPUSystemNS  *int64
	PeakRSSBytes *uint64
}

// Result pairs the pipeline's verdict with the host's accounting.
type Result struct {
	Response Response
	Usage    Usage
}

// Runner invokes one pipeline phase. A returned error means the
// invocation itself could not be carried out (transport failure); a
// pipeline-reported failure travels in Response.OK instead.
type Runner interface {
	RunPhase(ctx context.Context, req Request) (Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, req Request) (Result, error)

// RunPhase implements Runner.
func (f RunnerFunc) RunPhase(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
