package cmd

import (
	"context"
	"fmt"

	"conformer-pipeline/core/config"
	"conformer-pipeline/core/database"
	"conformer-pipeline/core/logger"
	"conformer-pipeline/core/metrics"
	"conformer-pipeline/core/storage"
	"conformer-pipeline/feature/conformer/runner"
	"conformer-pipeline/feature/conformer/sink"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the run command
	runStage1Glob  string
	runStage2Glob  string
	runEquivalents string
	runTopologyCSV string
	runOutputDir   string
	runWorkers     int
	runSkipFailed  bool
	runPersist     bool
	runUpload      bool
	runID          string
)

// runCmd executes one full reconciliation run.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the conformer reconciliation pipeline",
	Long: `Run one full reconciliation pass over the staged entry files.

Merges stage-1 and stage-2 records per conformer id, classifies every
conformer's fate, folds absorbed duplicates into their primaries, and
aggregates per-topology summaries. Outputs are written to the output
directory; persistence and artifact upload are opt-in.

Examples:
  # Plain run with config-file inputs
  conformer-pipeline run

  # Override the inputs and keep going past bad id groups
  conformer-pipeline run --stage1 'data/stage1/*.dat' --stage2 'data/stage2/*.dat' --skip-failed

  # Persist results to the database and upload artifacts
  conformer-pipeline run --persist --upload --run-id nightly-2026-08-31`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runStage1Glob, "stage1", "", "Glob for stage-1 entry files (overrides config)")
	runCmd.Flags().StringVar(&runStage2Glob, "stage2", "", "Glob for stage-2 entry files (overrides config)")
	runCmd.Flags().StringVar(&runEquivalents, "equivalents", "", "Glob for equivalent-structure lists (overrides config)")
	runCmd.Flags().StringVar(&runTopologyCSV, "topologies", "", "Bond topology CSV path (overrides config)")
	runCmd.Flags().StringVar(&runOutputDir, "output", "", "Output directory (overrides config)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Concurrent group workers (overrides config)")
	runCmd.Flags().BoolVar(&runSkipFailed, "skip-failed", false, "Keep going when a single id group fails to merge or resolve")
	runCmd.Flags().BoolVar(&runPersist, "persist", false, "Persist outcomes, summaries and stats to the database")
	runCmd.Flags().BoolVar(&runUpload, "upload", false, "Upload the output directory to object storage")
	runCmd.Flags().StringVar(&runID, "run-id", "", "Run id used as the artifact prefix (default: generated)")

	RootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyRunFlags(&cfg.Job)

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	l.Info("Starting reconciliation run", zap.String("run_id", cfg.Job.RunID))

	// Counters feed the final report; the Prometheus sink exposes the
	// same counts on the default registry.
	counters := metrics.NewCounters()
	sinks := metrics.Fanout{counters, metrics.NewPrometheus(prometheus.DefaultRegisterer)}

	var opts []runner.Option
	if cfg.Job.PersistResults {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		opts = append(opts, runner.WithStore(sink.NewStore(db)))
	}
	if cfg.Job.UploadArtifacts {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		opts = append(opts, runner.WithUploader(sink.NewUploader(client, cfg.Storage.Bucket, l)))
	}

	report, err := runner.New(cfg.Job, l, sinks, opts...).Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printRunReport(l, report, counters)
	return nil
}

// applyRunFlags copies set flag values over the config-file job settings.
func applyRunFlags(job *config.JobConfig) {
	if runStage1Glob != "" {
		job.Stage1Glob = runStage1Glob
	}
	if runStage2Glob != "" {
		job.Stage2Glob = runStage2Glob
	}
	if runEquivalents != "" {
		job.EquivalentGlob = runEquivalents
	}
	if runTopologyCSV != "" {
		job.TopologyCSV = runTopologyCSV
	}
	if runOutputDir != "" {
		job.OutputDir = runOutputDir
	}
	if runWorkers > 0 {
		job.Workers = runWorkers
	}
	if runSkipFailed {
		job.SkipFailedGroups = true
	}
	if runPersist {
		job.PersistResults = true
	}
	if runUpload {
		job.UploadArtifacts = true
	}
	if runID != "" {
		job.RunID = runID
	}
	if job.RunID == "" {
		job.RunID = uuid.NewString()
	}
}

// printRunReport logs the run outcome and every nonzero counter.
func printRunReport(l *zap.Logger, report *runner.Report, counters *metrics.Counters) {
	l.Info("Run report",
		zap.Int("merged_conformers", report.MergedConformers),
		zap.Int("conflicts", report.Conflicts),
		zap.Int("canonical_mismatches", report.CanonicalMismatches),
		zap.Int("failed_groups", report.FailedGroups),
		zap.Int("topology_summaries", report.Summaries),
		zap.Int("complete_records", report.CompleteRecords),
		zap.Int("standard_records", report.StandardRecords),
	)

	for _, name := range counters.Names() {
		l.Info("Run counter",
			zap.String("counter", name),
			zap.Int64("value", counters.Get(name)),
		)
	}
}
