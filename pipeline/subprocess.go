package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Command holds the resolved binary, extra arguments, and environment
// variables needed to run a pipeline binary. For pipelines that need a
// wrapper (e.g. java -jar), pass the wrapper as Binary and the real
// target in ExtraArgs. Env is appended to the inherited environment.
type Command struct {
	Binary    string
	ExtraArgs []string
	Env       []string
}

// SubprocessRunner runs each phase as a separate OS process. The
// request travels as JSON on stdin and the response comes back as JSON
// on stdout; stderr is captured into failure reasons. Child CPU time
// and peak resident set are read from the process's rusage.
type SubprocessRunner struct {
	cmd    Command
	logger *slog.Logger
}

// NewSubprocessRunner creates a runner for the given pipeline command.
func NewSubprocessRunner(cmd Command, logger *slog.Logger) *SubprocessRunner {
	return &SubprocessRunner{
		cmd:    cmd,
		logger: logger.With(slog.String("pipeline", cmd.Binary)),
	}
}

// RunPhase implements Runner. A non-zero exit or malformed response is
// a phase failure carried in the Response, not an error: only failures
// to launch the process at all surface as errors.
func (r *SubprocessRunner) RunPhase(ctx context.Context, req Request) (Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("encode phase request: %w", err)
	}

	args := make([]string, 0, len(r.cmd.ExtraArgs)+2)
	args = append(args, r.cmd.ExtraArgs...)
	args = append(args, "--phase", string(req.Phase))

	cmd := exec.CommandContext(ctx, r.cmd.Binary, args...)
	cmd.Dir = req.WorkDir

	if len(r.cmd.Env) > 0 {
		cmd.Env = append(os.Environ(), r.cmd.Env...)
	}

	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("invoking phase",
		slog.String("phase", string(req.Phase)),
		slog.String("work_dir", req.WorkDir),
		slog.Uint64("seed", req.Seed),
	)

	runErr := cmd.Run()

	result := Result{Usage: usageFromState(cmd.ProcessState)}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return Result{}, fmt.Errorf(
				"launch pipeline %s: %w", r.cmd.Binary, runErr,
			)
		}

		result.Response = Response{
			OK:     false,
			Reason: failureReason(runErr, &stderr),
		}

		return result, nil
	}

	resp, decodeErr := decodeResponse(&stdout)
	if decodeErr != nil {
		result.Response = Response{
			OK: false,
			Reason: fmt.Sprintf(
				"malformed pipeline response: %v", decodeErr,
			),
		}

		return result, nil
	}

	if !resp.OK && resp.Reason == "" {
		resp.Reason = failureReason(nil, &stderr)
	}

	result.Response = resp

	return result, nil
}

func decodeResponse(r *bytes.Buffer) (Response, error) {
	var resp Response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("decode JSON: %w", err)
	}

	return resp, nil
}

func failureReason(runErr error, stderr *bytes.Buffer) string {
	msg := strings.TrimSpace(stderr.String())

	switch {
	case runErr != nil && msg != "":
		return fmt.Sprintf("%v: %s", runErr, msg)
	case runErr != nil:
		return runErr.Error()
	case msg != "":
		return msg
	default:
		return "pipeline reported failure"
	}
}
