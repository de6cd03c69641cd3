// Package runner orchestrates one full reconciliation run: read the staged
// entry files and duplicate lists, merge per conformer id, classify,
// resolve duplicates, aggregate per topology and write every output.
package runner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"conformer-pipeline/core/config"
	"conformer-pipeline/core/metrics"
	"conformer-pipeline/core/pipeline"
	"conformer-pipeline/feature/conformer/aggregate"
	"conformer-pipeline/feature/conformer/chem"
	"conformer-pipeline/feature/conformer/classify"
	"conformer-pipeline/feature/conformer/filter"
	"conformer-pipeline/feature/conformer/merge"
	"conformer-pipeline/feature/conformer/models"
	"conformer-pipeline/feature/conformer/resolve"
	"conformer-pipeline/feature/conformer/sink"
)

// Runner executes reconciliation runs.
type Runner struct {
	cfg     config.JobConfig
	logger  *zap.Logger
	metrics metrics.Sink
	canon   chem.Canonicalizer

	// Store and Uploader are optional; nil skips persistence or upload.
	store    *sink.Store
	uploader *sink.Uploader
}

// Option customizes a Runner.
type Option func(*Runner)

// WithStore enables database persistence.
func WithStore(s *sink.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithUploader enables artifact upload after the run.
func WithUploader(u *sink.Uploader) Option {
	return func(r *Runner) { r.uploader = u }
}

// WithCanonicalizer overrides the default canonical form implementation.
func WithCanonicalizer(c chem.Canonicalizer) Option {
	return func(r *Runner) { r.canon = c }
}

// New builds a Runner.
func New(cfg config.JobConfig, logger *zap.Logger, sink metrics.Sink, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		logger:  logger,
		metrics: sink,
		canon:   chem.NormalForm{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report summarizes what a run produced.
type Report struct {
	MergedConformers    int
	Conflicts           int
	CanonicalMismatches int
	FailedGroups        int
	Summaries           int
	CompleteRecords     int
	StandardRecords     int
}

// Run executes the whole job and writes all artifacts under the configured
// output directory.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating output directory")
	}

	inputs, err := r.readInputs(ctx)
	if err != nil {
		return nil, err
	}

	merged, conflicts, failedMerges, err := r.mergeAll(ctx, inputs.records)
	if err != nil {
		return nil, err
	}

	classified, mismatches := r.classifyAll(merged)

	finals, failedResolves, err := r.resolveAll(ctx, classified)
	if err != nil {
		return nil, err
	}

	summaries, stats, err := r.aggregateAll(finals, inputs.bareSummaries)
	if err != nil {
		return nil, err
	}

	report := &Report{
		MergedConformers:    len(merged),
		Conflicts:           len(conflicts),
		CanonicalMismatches: len(mismatches),
		FailedGroups:        failedMerges + failedResolves,
		Summaries:           len(summaries),
	}

	if err := r.writeOutputs(ctx, finals, conflicts, mismatches, summaries, stats, report); err != nil {
		return nil, err
	}

	r.logger.Info("run finished",
		zap.Int("merged_conformers", report.MergedConformers),
		zap.Int("conflicts", report.Conflicts),
		zap.Int("canonical_mismatches", report.CanonicalMismatches),
		zap.Int("failed_groups", report.FailedGroups),
		zap.Int("summaries", report.Summaries))
	return report, nil
}

// mergeAll groups records by conformer id and reduces each group to one
// reconciled record. Grouping makes arrival order irrelevant.
func (r *Runner) mergeAll(ctx context.Context, records []models.Conformer) ([]models.Conformer, []merge.Conflict, int, error) {
	groups := pipeline.GroupBy(records, func(c models.Conformer) []int64 {
		return []int64{c.ConformerID}
	})

	type mergeResult struct {
		conformer models.Conformer
		conflicts []merge.Conflict
	}

	results, failed, err := pipeline.ProcessGroups(ctx, groups, r.pipelineOptions(),
		func(ctx context.Context, id int64, group []models.Conformer) (mergeResult, error) {
			c, conflicts, err := merge.MergeGroup(id, group, r.metrics)
			if err != nil {
				return mergeResult{}, err
			}
			return mergeResult{conformer: c, conflicts: conflicts}, nil
		})
	if err != nil {
		return nil, nil, 0, err
	}
	r.logFailedGroups("merge", failed)

	merged := make([]models.Conformer, 0, len(results))
	var conflicts []merge.Conflict
	for _, res := range results {
		merged = append(merged, res.conformer)
		conflicts = append(conflicts, res.conflicts...)
	}
	return merged, conflicts, len(failed), nil
}

// classifyAll assigns each record its fate and checks the stored canonical
// string of its primary topology, overwriting it on mismatch.
func (r *Runner) classifyAll(records []models.Conformer) ([]models.Conformer, []sink.CanonicalCompareRow) {
	var mismatches []sink.CanonicalCompareRow
	out := make([]models.Conformer, 0, len(records))

	for _, c := range records {
		c = c.Clone()
		c.Fate = classify.Determine(c)

		if len(c.BondTopologies) > 0 {
			cmp := chem.Compare(r.canon, c.BondTopologies[0])
			if cmp.Result != chem.CompareMatch {
				mismatches = append(mismatches, sink.CanonicalCompareRow{
					ConformerID: c.ConformerID,
					Result:      cmp.Result,
					Given:       c.BondTopologies[0].Canonical,
					WithH:       cmp.WithH,
					WithoutH:    cmp.WithoutH,
				})
				c.BondTopologies[0].Canonical = cmp.WithoutH
				r.metrics.Inc("canonical_mismatch")
			}
		}
		out = append(out, c)
	}
	return out, mismatches
}

// resolveAll folds absorbed duplicates into their primaries. Every record
// keyed by its own id resolves to exactly one output record.
func (r *Runner) resolveAll(ctx context.Context, records []models.Conformer) ([]models.Conformer, int, error) {
	groups := pipeline.GroupBy(records, resolve.Keys)

	finals, failed, err := pipeline.ProcessGroups(ctx, groups, r.pipelineOptions(),
		func(ctx context.Context, id int64, group []models.Conformer) (models.Conformer, error) {
			return resolve.ResolveGroup(id, group, r.metrics)
		})
	if err != nil {
		return nil, 0, err
	}
	r.logFailedGroups("resolve", failed)
	return finals, len(failed), nil
}

func (r *Runner) aggregateAll(finals []models.Conformer, bare []models.TopologySummary) ([]models.TopologySummary, []aggregate.StatCount, error) {
	rows := append([]models.TopologySummary{}, bare...)
	var stats []aggregate.StatValue

	for _, c := range finals {
		summaries, err := aggregate.Summaries(c)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, summaries...)
		stats = append(stats, aggregate.StatValues(c)...)
	}

	return aggregate.CombineByTopology(rows), aggregate.CountStats(stats), nil
}

func (r *Runner) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Workers:          r.cfg.Workers,
		SkipFailedGroups: r.cfg.SkipFailedGroups,
	}
}

func (r *Runner) logFailedGroups(stage string, failed []pipeline.GroupError[int64]) {
	for _, f := range failed {
		r.metrics.Inc(stage + "_group_failed")
		r.logger.Warn("group failed",
			zap.String("stage", stage),
			zap.Int64("conformer_id", f.Key),
			zap.Error(f.Err))
	}
}

func (r *Runner) writeOutputs(
	ctx context.Context,
	finals []models.Conformer,
	conflicts []merge.Conflict,
	mismatches []sink.CanonicalCompareRow,
	summaries []models.TopologySummary,
	stats []aggregate.StatCount,
	report *Report,
) error {
	complete := make([]models.Conformer, 0, len(finals))
	var standard []models.Conformer
	for _, c := range finals {
		complete = append(complete, filter.ToComplete(c))
		r.metrics.Inc("complete_conformers")
		if s, ok := filter.ToStandard(c); ok {
			standard = append(standard, s)
			r.metrics.Inc("standard_conformers")
		}
	}
	report.CompleteRecords = len(complete)
	report.StandardRecords = len(standard)

	outputs := []struct {
		name  string
		write func(f *os.File) error
	}{
		{"conflicts.csv", func(f *os.File) error { return sink.WriteConflictsCSV(f, conflicts) }},
		{"canonical_compare.csv", func(f *os.File) error { return sink.WriteCanonicalCompareCSV(f, mismatches) }},
		{"stats.csv", func(f *os.File) error { return sink.WriteStatsCSV(f, stats) }},
		{"topology_summaries.csv", func(f *os.File) error { return sink.WriteSummariesCSV(f, summaries) }},
		{"internal.json.gz", func(f *os.File) error { return sink.WriteRecords(f, finals) }},
		{"complete.json.gz", func(f *os.File) error { return sink.WriteRecords(f, complete) }},
		{"standard.json.gz", func(f *os.File) error { return sink.WriteRecords(f, standard) }},
	}
	for _, out := range outputs {
		if err := r.writeFile(out.name, out.write); err != nil {
			return err
		}
	}

	if r.store != nil {
		if err := r.store.Migrate(ctx); err != nil {
			return err
		}
		if err := r.store.SaveOutcomes(ctx, finals); err != nil {
			return err
		}
		if err := r.store.SaveSummaries(ctx, summaries); err != nil {
			return err
		}
		if err := r.store.SaveStats(ctx, stats); err != nil {
			return err
		}
	}

	if r.uploader != nil {
		if err := r.uploader.UploadDir(ctx, r.cfg.OutputDir, r.cfg.RunID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) writeFile(name string, write func(f *os.File) error) error {
	path := filepath.Join(r.cfg.OutputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}
