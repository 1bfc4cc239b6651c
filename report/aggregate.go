// Package report assembles sweep results into the run's root artifact
// and renders it as a lossless JSON document and a human-oriented
// comparison table.
package report

import (
	"sort"

	"github.com/provebench/provebench/envprobe"
	"github.com/provebench/provebench/harness"
	"github.com/provebench/provebench/paramspace"
	"github.com/provebench/provebench/pipeline"
)

// Version identifies the structured artifact format.
const Version = "provebench/1"

// Stat summarizes a duration metric (nanoseconds) across attempts.
type Stat struct {
	Min  int64 `json:"min"`
	Max  int64 `json:"max"`
	Mean int64 `json:"mean"`
}

// ByteStat summarizes a memory metric (bytes) across attempts.
type ByteStat struct {
	Min  uint64 `json:"min"`
	Max  uint64 `json:"max"`
	Mean uint64 `json:"mean"`
}

// PhaseSummary holds per-phase statistics for one parameter
// combination. Statistics cover successful invocations; a nil stat
// means the metric was unavailable on every successful attempt.
type PhaseSummary struct {
	Phase      pipeline.Phase `json:"phase"`
	Attempts   int            `json:"attempts"`
	Successes  int            `json:"successes"`
	Wall       *Stat          `json:"wall_ns,omitempty"`
	CPUUser    *Stat          `json:"cpu_user_ns,omitempty"`
	CPUSystem  *Stat          `json:"cpu_system_ns,omitempty"`
	PeakMemory *ByteStat      `json:"peak_memory_bytes,omitempty"`
}

// Attempt is the raw, lossless record of one case execution attempt.
type Attempt struct {
	AttemptIndex int                   `json:"attempt_index"`
	Measurements []harness.Measurement `json:"measurements"`
	Failed       bool                  `json:"failed"`
}

// CaseReport groups every attempt of one parameter combination together
// with its summary statistics. AllFailed marks combinations where no
// attempt succeeded; such cases are always present in the report, never
// silently dropped.
type CaseReport struct {
	Parameters map[string]string `json:"parameters"`
	Attempts   []Attempt         `json:"attempts"`
	Phases     []PhaseSummary    `json:"phases"`
	AllFailed  bool              `json:"all_failed"`
}

// Report is the root artifact of a sweep. It is assembled once after
// all dispatched cases complete and never mutated afterwards.
type Report struct {
	Version     string            `json:"version"`
	Environment envprobe.Snapshot `json:"environment"`
	Axes        []string          `json:"axes"`
	Cases       []CaseReport      `json:"cases"`
}

// Aggregate groups results by parameter combination, computes per-phase
// statistics, and orders cases by the canonical enumeration order given
// in order. The grouping is a pure function of its inputs: feeding the
// same results in any permutation yields an identical Report.
func Aggregate(
	env envprobe.Snapshot,
	order []paramspace.Set,
	results []harness.CaseResult,
) Report {
	rep := Report{Version: Version, Environment: env}

	if len(order) > 0 {
		rep.Axes = order[0].Axes()
	}

	byKey := make(map[string][]harness.CaseResult, len(order))
	for _, r := range results {
		key := r.Parameters.Key()
		byKey[key] = append(byKey[key], r)
	}

	for _, set := range order {
		attempts := byKey[set.Key()]
		if len(attempts) == 0 {
			// Never dispatched (fail-fast or cancellation).
			continue
		}

		rep.Cases = append(rep.Cases, buildCase(set, attempts))
	}

	return rep
}

func buildCase(set paramspace.Set, results []harness.CaseResult) CaseReport {
	sort.Slice(results, func(i, j int) bool {
		return results[i].AttemptIndex < results[j].AttemptIndex
	})

	cr := CaseReport{
		Parameters: set.Values(),
		Attempts:   make([]Attempt, 0, len(results)),
		AllFailed:  true,
	}

	for _, r := range results {
		cr.Attempts = append(cr.Attempts, Attempt{
			AttemptIndex: r.AttemptIndex,
			Measurements: r.Measurements,
			Failed:       r.Failed,
		})

		if !r.Failed {
			cr.AllFailed = false
		}
	}

	for _, phase := range pipeline.Phases() {
		if summary, ok := summarizePhase(phase, results); ok {
			cr.Phases = append(cr.Phases, summary)
		}
	}

	return cr
}

func summarizePhase(phase pipeline.Phase, results []harness.CaseResult) (PhaseSummary, bool) {
	summary := PhaseSummary{Phase: phase}

	var (
		wall      []int64
		cpuUser   []int64
		cpuSystem []int64
		peakMem   []uint64
	)

	for _, r := range results {
		for _, m := range r.Measurements {
			if m.Phase != phase {
				continue
			}

			summary.Attempts++

			if !m.Succeeded() {
				continue
			}

			summary.Successes++
			wall = append(wall, m.WallNS)

			if m.CPUUserNS != nil {
				cpuUser = append(cpuUser, *m.CPUUserNS)
			}

			if m.CPUSystemNS != nil {
				cpuSystem = append(cpuSystem, *m.CPUSystemNS)
			}

			if m.PeakMemoryBytes != nil {
				peakMem = append(peakMem, *m.PeakMemoryBytes)
			}
		}
	}

	if summary.Attempts == 0 {
		return PhaseSummary{}, false
	}

	summary.Wall = durationStat(wall)
	summary.CPUUser = durationStat(cpuUser)
	summary.CPUSystem = durationStat(cpuSystem)
	summary.PeakMemory = byteStat(peakMem)

	return summary, true
}

func durationStat(samples []int64) *Stat {
	if len(samples) == 0 {
		return nil
	}

	s := &Stat{Min: samples[0], Max: samples[0]}

	var sum int64
	for _, v := range samples {
		if v < s.Min {
			s.Min = v
		}

		if v > s.Max {
			s.Max = v
		}

		sum += v
	}

	s.Mean = sum / int64(len(samples))

	return s
}

func byteStat(samples []uint64) *ByteStat {
	if len(samples) == 0 {
		return nil
	}

	s := &ByteStat{Min: samples[0], Max: samples[0]}

	var sum uint64
	for _, v := range samples {
		if v < s.Min {
			s.Min = v
		}

		if v > s.Max {
			s.Max = v
		}

		sum += v
	}

	s.Mean = sum / uint64(len(samples))

	return s
}
