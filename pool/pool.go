// Package pool drives bounded-concurrency execution of benchmark cases
// and collects their results without serializing unrelated failures.
package pool

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/provebench/provebench/harness"
	"github.com/provebench/provebench/paramspace"
)

// Options controls sweep scheduling.
type Options struct {
	// RepeatCount is the number of attempts per combination, minimum 1.
	RepeatCount int
	// Concurrency bounds simultaneously active case executions. Zero or
	// negative selects defaultConcurrency, which callers should set to
	// the logical core count so concurrent cases do not distort each
	// other's CPU accounting.
	Concurrency int
	// FailFast stops dispatching new cases after the first failed
	// attempt. Cases already in flight always finish and release their
	// scratch areas.
	FailFast bool
	// SequentialRepeats runs all attempts of one combination
	// back-to-back inside a single worker slot, avoiding cross-attempt
	// CPU interference. When false, attempts schedule as independent
	// units under the same concurrency bound.
	SequentialRepeats bool
}

func (o Options) normalized(defaultConcurrency int) Options {
	if o.RepeatCount < 1 {
		o.RepeatCount = 1
	}

	if o.Concurrency < 1 {
		o.Concurrency = defaultConcurrency
	}

	if o.Concurrency < 1 {
		o.Concurrency = 1
	}

	return o
}

// Pool dispatches parameter combinations to a Case Executor.
type Pool struct {
	exec               *harness.Executor
	defaultConcurrency int
	logger             *slog.Logger
}

// New creates a Pool. defaultConcurrency is used when Options leaves
// Concurrency unset; pass the host's logical core count.
func New(exec *harness.Executor, defaultConcurrency int, logger *slog.Logger) *Pool {
	return &Pool{
		exec:               exec,
		defaultConcurrency: defaultConcurrency,
		logger:             logger.With(slog.String("component", "pool")),
	}
}

// Run executes every combination and returns all collected results.
// Completion order across cases is unspecified; each result lands in a
// slot owned by exactly one worker, and the aggregator restores
// canonical enumeration order afterwards. A case failure never cancels
// sibling cases. Context cancellation and fail-fast both stop new
// dispatch only: in-flight attempts always run to completion.
func (p *Pool) Run(ctx context.Context, combos []paramspace.Set, opts Options) []harness.CaseResult {
	opts = opts.normalized(p.defaultConcurrency)

	p.logger.Info("sweep started",
		slog.Int("cases", len(combos)),
		slog.Int("repeat", opts.RepeatCount),
		slog.Int("concurrency", opts.Concurrency),
		slog.Bool("fail_fast", opts.FailFast),
	)

	var results []harness.CaseResult
	if opts.SequentialRepeats {
		results = p.runGrouped(ctx, combos, opts)
	} else {
		results = p.runFlat(ctx, combos, opts)
	}

	p.logger.Info("sweep finished",
		slog.Int("results", len(results)),
	)

	return results
}

// runGrouped schedules one worker slot per combination; the slot runs
// all attempts sequentially.
func (p *Pool) runGrouped(ctx context.Context, combos []paramspace.Set, opts Options) []harness.CaseResult {
	slots := make([][]harness.CaseResult, len(combos))

	var stop atomic.Bool

	g := new(errgroup.Group)
	g.SetLimit(opts.Concurrency)

	for i, set := range combos {
		i, set := i, set
		g.Go(func() error {
			if stop.Load() || ctx.Err() != nil {
				return nil
			}

			attempts := p.exec.Execute(ctx, set, opts.RepeatCount)
			slots[i] = attempts

			if opts.FailFast && anyFailed(attempts) {
				stop.Store(true)
			}

			return nil
		})
	}

	_ = g.Wait()

	out := make([]harness.CaseResult, 0, len(combos)*opts.RepeatCount)
	for _, attempts := range slots {
		out = append(out, attempts...)
	}

	return out
}

// runFlat schedules every attempt as its own worker slot.
func (p *Pool) runFlat(ctx context.Context, combos []paramspace.Set, opts Options) []harness.CaseResult {
	slots := make([]*harness.CaseResult, len(combos)*opts.RepeatCount)

	var stop atomic.Bool

	g := new(errgroup.Group)
	g.SetLimit(opts.Concurrency)

	for i, set := range combos {
		for attempt := 0; attempt < opts.RepeatCount; attempt++ {
			set, attempt := set, attempt
			slot := i*opts.RepeatCount + attempt

			g.Go(func() error {
				if stop.Load() || ctx.Err() != nil {
					return nil
				}

				result := p.exec.ExecuteAttempt(ctx, set, attempt)
				slots[slot] = &result

				if opts.FailFast && result.Failed {
					stop.Store(true)
				}

				return nil
			})
		}
	}

	_ = g.Wait()

	out := make([]harness.CaseResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			out = append(out, *r)
		}
	}

	return out
}

func anyFailed(attempts []harness.CaseResult) bool {
	for _, a := range attempts {
		if a.Failed {
			return true
		}
	}

	return false
}
