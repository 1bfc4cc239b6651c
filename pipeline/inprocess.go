package pipeline

import "context"

// InProcess wraps fn as a Runner for pipelines linked directly into the
// harness binary. Resource accounting is best-effort for the
// measurement window: CPU times are RUSAGE_SELF deltas around the call
// and peak memory is the process high-water mark after it, so
// concurrent in-process phases will blur into each other. Subprocess
// execution gives exact per-phase accounting.
func InProcess(fn func(ctx context.Context, req Request) Response) Runner {
	return RunnerFunc(func(ctx context.Context, req Request) (Result, error) {
		userBefore, systemBefore, _, okBefore := selfRusage()

		resp := fn(ctx, req)

		result := Result{Response: resp}

		userAfter, systemAfter, peakRSS, okAfter := selfRusage()
		if okBefore && okAfter {
			user := userAfter - userBefore
			system := systemAfter - systemBefore
			result.Usage = Usage{
				CPUUserNS:    &user,
				CPUSystemNS:  &system,
				PeakRSSBytes: peakRSS,
			}
		}

		return result, nil
	})
}
