// Package main provides the CLI entry point for provebench, a
// parameter-sweep benchmarking harness for proof-of-replication /
// proof-of-spacetime proving pipelines.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/provebench/provebench/config"
	"github.com/provebench/provebench/envprobe"
	"github.com/provebench/provebench/harness"
	"github.com/provebench/provebench/pipeline"
	"github.com/provebench/provebench/pool"
	"github.com/provebench/provebench/report"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	os.Exit(run(root, os.Stderr))
}

// run executes the root command and reports any fatal error on stderr.
// Run-level failures are reserved for conditions that prevented
// producing a report at all; their diagnostics carry the target path
// and underlying cause and must reach the user.
func run(root *cobra.Command, stderr io.Writer) int {
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)

		return 1
	}

	return 0
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "provebench",
		Short: "Parameter-sweep benchmarking harness for proving pipelines",
		Long: `Provebench enumerates parameter combinations (sector sizes, tree
arities, proof partitions, hashing variants), runs each one through the
proving pipeline under resource measurement, and emits a reproducible
report annotated with host and revision metadata.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))

	return root
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		configPath   string
		pipelineBin  string
		pipelineArgs []string
		repeat       int
		concurrency  int
		failFast     bool
		flatRepeats  bool
		scratchDir   string
		outputPath   string
		outputJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the declared parameter sweep",
		Long: `Enumerate the sweep declared in the config file, execute every valid
parameter combination through the pipeline, and write the report.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("pipeline-bin") {
				cfg.Pipeline.Binary = pipelineBin
			}

			if flags.Changed("pipeline-arg") {
				cfg.Pipeline.Args = pipelineArgs
			}

			if flags.Changed("repeat") {
				cfg.RepeatCount = repeat
			}

			if flags.Changed("concurrency") {
				cfg.Concurrency = concurrency
			}

			if flags.Changed("fail-fast") {
				cfg.FailFast = failFast
			}

			if flags.Changed("flat-repeats") {
				sequential := !flatRepeats
				cfg.SequentialRepeats = &sequential
			}

			if flags.Changed("scratch-dir") {
				cfg.ScratchDir = scratchDir
			}

			if flags.Changed("out") {
				cfg.Output = outputPath
			}

			if cfg.Pipeline.Binary == "" {
				return fmt.Errorf(
					"no pipeline binary configured (set pipeline.binary or --pipeline-bin)",
				)
			}

			return runSweep(cmd.Context(), logger, cfg, outputJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "",
		"Path to the sweep declaration file")
	flags.StringVar(&pipelineBin, "pipeline-bin", "",
		"Pipeline binary (overrides config)")
	flags.StringSliceVar(&pipelineArgs, "pipeline-arg", nil,
		"Extra pipeline arguments (overrides config)")
	flags.IntVar(&repeat, "repeat", 1,
		"Attempts per combination (overrides config)")
	flags.IntVar(&concurrency, "concurrency", 0,
		"Concurrent cases, 0 = logical core count (overrides config)")
	flags.BoolVar(&failFast, "fail-fast", false,
		"Stop dispatching new cases after the first failure")
	flags.BoolVar(&flatRepeats, "flat-repeats", false,
		"Schedule repeated attempts as independent units instead of back-to-back")
	flags.StringVar(&scratchDir, "scratch-dir", "",
		"Base directory for per-case working areas (overrides config)")
	flags.StringVar(&outputPath, "out", "",
		"Report artifact path (overrides config)")
	flags.BoolVar(&outputJSON, "json", false,
		"Print the JSON report to stdout instead of the table")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runSweep(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	outputJSON bool,
) error {
	space, err := cfg.Space()
	if err != nil {
		return err
	}

	combos := space.Enumerate()
	if len(combos) == 0 {
		// A zero-case sweep still produces a report so the caller can
		// detect an over-constrained declaration by its empty case list.
		logger.Warn("no valid parameter combinations")
	}

	logger.InfoContext(ctx, "sweep declared",
		slog.Int("axes", len(cfg.Axes)),
		slog.Int("combinations", len(combos)),
		slog.Int("repeat", cfg.RepeatCount),
	)

	env := envprobe.Capture(ctx, logger)

	logger.InfoContext(ctx, "environment captured",
		slog.String("cpu", env.CPUModel),
		slog.Int("logical_cores", env.LogicalCores),
		slog.String("revision", env.SourceRevision),
	)

	runner := pipeline.NewSubprocessRunner(pipeline.Command{
		Binary:    cfg.Pipeline.Binary,
		ExtraArgs: cfg.Pipeline.Args,
		Env:       cfg.Pipeline.Env,
	}, logger)

	executor := harness.NewExecutor(runner, cfg.ScratchDir, logger)

	results := pool.New(executor, env.LogicalCores, logger).Run(ctx, combos, pool.Options{
		RepeatCount:       cfg.RepeatCount,
		Concurrency:       cfg.Concurrency,
		FailFast:          cfg.FailFast,
		SequentialRepeats: *cfg.SequentialRepeats,
	})

	rep := report.Aggregate(env, combos, results)

	if err := writeArtifact(cfg.Output, rep); err != nil {
		return err
	}

	logger.InfoContext(ctx, "report written",
		slog.String("path", cfg.Output),
		slog.Int("cases", len(rep.Cases)),
	)

	if outputJSON {
		return report.WriteJSON(os.Stdout, rep)
	}

	return report.WriteTable(os.Stdout, rep)
}

func writeArtifact(path string, rep report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report artifact %s: %w", path, err)
	}

	if err := report.WriteJSON(f, rep); err != nil {
		f.Close()

		return fmt.Errorf("write report artifact %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close report artifact %s: %w", path, err)
	}

	return nil
}
