package pool_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provebench/provebench/harness"
	"github.com/provebench/provebench/paramspace"
	"github.com/provebench/provebench/pipeline"
	"github.com/provebench/provebench/pool"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func combos(t *testing.T, sizes ...string) []paramspace.Set {
	t.Helper()

	space, err := paramspace.New(
		paramspace.Axis{Name: "size", Values: sizes},
	)
	require.NoError(t, err)

	return space.Enumerate()
}

// countingRunner succeeds every phase while tracking how many phase
// invocations run concurrently.
type countingRunner struct {
	active  atomic.Int64
	maxSeen atomic.Int64
	delay   time.Duration

	mu       sync.Mutex
	failKeys map[string]bool
}

func (r *countingRunner) RunPhase(_ context.Context, req pipeline.Request) (pipeline.Result, error) {
	cur := r.active.Add(1)
	defer r.active.Add(-1)

	for {
		seen := r.maxSeen.Load()
		if cur <= seen || r.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}

	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	fail := r.failKeys[req.Parameters["size"]]
	r.mu.Unlock()

	if fail {
		return pipeline.Result{
			Response: pipeline.Response{OK: false, Reason: "injected"},
		}, nil
	}

	return pipeline.Result{Response: pipeline.Response{OK: true}}, nil
}

func TestRunCollectsEveryAttempt(t *testing.T) {
	runner := &countingRunner{}
	exec := harness.NewExecutor(runner, t.TempDir(), discardLogger())
	p := pool.New(exec, 2, discardLogger())

	sets := combos(t, "1", "2", "3")
	results := p.Run(context.Background(), sets, pool.Options{
		RepeatCount:       2,
		Concurrency:       2,
		SequentialRepeats: true,
	})

	require.Len(t, results, 6)

	perCase := make(map[string][]int)
	for _, r := range results {
		assert.False(t, r.Failed)
		key := r.Parameters.Key()
		perCase[key] = append(perCase[key], r.AttemptIndex)
	}

	require.Len(t, perCase, 3)
	for key, attempts := range perCase {
		assert.ElementsMatch(t, []int{0, 1}, attempts, "case %s", key)
	}
}

func TestRunRespectsConcurrencyBound(t *testing.T) {
	runner := &countingRunner{delay: 10 * time.Millisecond}
	exec := harness.NewExecutor(runner, t.TempDir(), discardLogger())
	p := pool.New(exec, 8, discardLogger())

	sets := combos(t, "1", "2", "3", "4", "5", "6", "7", "8")
	results := p.Run(context.Background(), sets, pool.Options{
		RepeatCount:       1,
		Concurrency:       2,
		SequentialRepeats: true,
	})

	require.Len(t, results, 8)
	assert.LessOrEqual(t, runner.maxSeen.Load(), int64(2))
}

func TestRunFailureDoesNotCancelSiblings(t *testing.T) {
	runner := &countingRunner{failKeys: map[string]bool{"2": true}}
	exec := harness.NewExecutor(runner, t.TempDir(), discardLogger())
	p := pool.New(exec, 4, discardLogger())

	sets := combos(t, "1", "2", "3", "4")
	results := p.Run(context.Background(), sets, pool.Options{
		RepeatCount:       1,
		Concurrency:       4,
		SequentialRepeats: true,
	})

	require.Len(t, results, 4)

	failed := 0
	for _, r := range results {
		if r.Failed {
			failed++
		}
	}

	assert.Equal(t, 1, failed)
}

func TestRunFailFastStopsNewDispatch(t *testing.T) {
	runner := &countingRunner{failKeys: map[string]bool{"1": true}}
	exec := harness.NewExecutor(runner, t.TempDir(), discardLogger())
	p := pool.New(exec, 1, discardLogger())

	sets := combos(t, "1", "2", "3", "4")
	results := p.Run(context.Background(), sets, pool.Options{
		RepeatCount:       1,
		Concurrency:       1,
		FailFast:          true,
		SequentialRepeats: true,
	})

	// With a single worker the failing first case is observed before
	// anything else is dispatched.
	require.Len(t, results, 1)
	assert.True(t, results[0].Failed)
	assert.Equal(t, "size=1", results[0].Parameters.Key())
}

func TestRunFlatRepeatsCollectsEveryAttempt(t *testing.T) {
	runner := &countingRunner{}
	exec := harness.NewExecutor(runner, t.TempDir(), discardLogger())
	p := pool.New(exec, 4, discardLogger())

	sets := combos(t, "1", "2")
	results := p.Run(context.Background(), sets, pool.Options{
		RepeatCount:       3,
		Concurrency:       4,
		SequentialRepeats: false,
	})

	require.Len(t, results, 6)

	perCase := make(map[string][]int)
	for _, r := range results {
		perCase[r.Parameters.Key()] = append(
			perCase[r.Parameters.Key()], r.AttemptIndex,
		)
	}

	for key, attempts := range perCase {
		assert.ElementsMatch(t, []int{0, 1, 2}, attempts, "case %s", key)
	}
}

func TestRunCancelledContextStopsDispatch(t *testing.T) {
	runner := &countingRunner{}
	exec := harness.NewExecutor(runner, t.TempDir(), discardLogger())
	p := pool.New(exec, 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.Run(ctx, combos(t, "1", "2"), pool.Options{
		RepeatCount:       1,
		Concurrency:       1,
		SequentialRepeats: true,
	})

	assert.Empty(t, results)
}
