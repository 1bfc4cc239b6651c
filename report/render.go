package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/provebench/provebench/pipeline"
)

// WriteJSON writes the versioned, lossless serialization of the report.
// Every field round-trips through Load; durations are nanosecond
// integers and the capture timestamp is RFC 3339 UTC.
func WriteJSON(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return nil
}

// Load reads a report previously written by WriteJSON, for archival
// diffing between runs.
func Load(r io.Reader) (Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}

	if rep.Version != Version {
		return Report{}, fmt.Errorf(
			"unsupported report version %q (want %q)", rep.Version, Version,
		)
	}

	return rep, nil
}

// WriteTable writes a markdown comparison table: one row per parameter
// combination, mean wall time and mean peak memory per phase. The table
// is a lossy projection for terminals and logs; it never mutates the
// report and may be rendered any number of times.
func WriteTable(w io.Writer, rep Report) error {
	fmt.Fprintln(w, "## Benchmark Report")
	fmt.Fprintln(w)

	env := rep.Environment

	fmt.Fprintf(w, "- CPU: %s (%d logical cores)\n",
		orUnknown(env.CPUModel), env.LogicalCores)
	fmt.Fprintf(w, "- Revision: %s\n", orUnknown(env.SourceRevision))
	fmt.Fprintf(w, "- Captured: %s\n",
		env.CapturedAt.UTC().Format(time.RFC3339))
	fmt.Fprintln(w)

	if len(rep.Cases) == 0 {
		_, err := fmt.Fprintln(w, "No cases executed.")

		return err
	}

	header := make([]string, 0, len(rep.Axes)+2*len(pipeline.Phases())+1)
	header = append(header, rep.Axes...)

	for _, phase := range pipeline.Phases() {
		header = append(header,
			string(phase)+" wall",
			string(phase)+" mem",
		)
	}

	header = append(header, "status")

	fmt.Fprintln(w, "| "+strings.Join(header, " | ")+" |")

	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = strings.Repeat("-", len(header[i]))
	}

	fmt.Fprintln(w, "| "+strings.Join(sep, " | ")+" |")

	for _, c := range rep.Cases {
		row := make([]string, 0, len(header))

		for _, axis := range rep.Axes {
			row = append(row, c.Parameters[axis])
		}

		byPhase := make(map[pipeline.Phase]PhaseSummary, len(c.Phases))
		for _, s := range c.Phases {
			byPhase[s.Phase] = s
		}

		for _, phase := range pipeline.Phases() {
			s, ok := byPhase[phase]
			if !ok || s.Wall == nil {
				row = append(row, "-", "-")

				continue
			}

			row = append(row, formatDuration(s.Wall.Mean))

			if s.PeakMemory != nil {
				row = append(row, formatBytes(s.PeakMemory.Mean))
			} else {
				row = append(row, "-")
			}
		}

		row = append(row, caseStatus(c))

		if _, err := fmt.Fprintln(w, "| "+strings.Join(row, " | ")+" |"); err != nil {
			return fmt.Errorf("write table row: %w", err)
		}
	}

	return nil
}

func caseStatus(c CaseReport) string {
	if c.AllFailed {
		return "FAILED"
	}

	failed := 0
	for _, a := range c.Attempts {
		if a.Failed {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Sprintf("%d/%d failed", failed, len(c.Attempts))
	}

	return "ok"
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}

	return s
}

func formatDuration(ns int64) string {
	ms := float64(ns) / 1e6
	if ms < 1000 {
		return fmt.Sprintf("%.1fms", ms)
	}

	return fmt.Sprintf("%.2fs", ms/1000)
}

// formatBytes renders a measured byte count. A measured zero prints as
// "0 B"; the "-" marker is reserved for metrics that were unavailable.
func formatBytes(b uint64) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}
