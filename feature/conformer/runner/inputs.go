package runner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"conformer-pipeline/feature/conformer/aggregate"
	"conformer-pipeline/feature/conformer/models"
	"conformer-pipeline/feature/conformer/parser"
)

type runInputs struct {
	// records holds every staged record and duplicate marker, unmerged.
	records       []models.Conformer
	bareSummaries []models.TopologySummary
}

func (r *Runner) readInputs(ctx context.Context) (*runInputs, error) {
	inputs := &runInputs{}

	for _, stage := range []parser.Stage{parser.Stage1, parser.Stage2} {
		glob := r.cfg.Stage1Glob
		if stage == parser.Stage2 {
			glob = r.cfg.Stage2Glob
		}
		records, err := r.readStage(stage, glob)
		if err != nil {
			return nil, err
		}
		inputs.records = append(inputs.records, records...)
	}

	markers, err := r.readEquivalents()
	if err != nil {
		return nil, err
	}
	inputs.records = append(inputs.records, markers...)

	if r.cfg.TopologyCSV != "" {
		f, err := os.Open(r.cfg.TopologyCSV)
		if err != nil {
			return nil, errors.Wrap(err, "opening topology csv")
		}
		topologies, err := parser.ParseTopologyCSV(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		for _, bt := range topologies {
			inputs.bareSummaries = append(inputs.bareSummaries, aggregate.BareSummary(bt))
		}
	}

	return inputs, nil
}

// readStage parses every file the glob matches. Entries with recognized
// defects go to the known-error audit file, other failed entries to the
// unknown-error file; neither aborts the run.
func (r *Runner) readStage(stage parser.Stage, glob string) ([]models.Conformer, error) {
	if glob == "" {
		return nil, nil
	}
	files, err := filepath.Glob(glob)
	if err != nil {
		return nil, errors.Wrapf(err, "bad %s glob", stage)
	}

	var records []models.Conformer
	var knownRaw, unknownRaw []byte

	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", file)
		}
		entries, err := parser.ParseEntries(f, stage)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", file)
		}

		for _, e := range entries {
			r.metrics.Inc(string(stage) + "_entry_read")
			switch {
			case e.Err == nil:
				r.metrics.Inc(string(stage) + "_parse_success")
				records = append(records, e.Conformer)
			case isKnownFormatError(e.Err):
				r.metrics.Inc(string(stage) + "_parse_known_error")
				r.logger.Debug("known defective entry",
					zap.String("stage", string(stage)),
					zap.String("file", file),
					zap.Error(e.Err))
				knownRaw = append(knownRaw, e.Raw...)
				knownRaw = append(knownRaw, '\n')
			default:
				r.metrics.Inc(string(stage) + "_parse_unknown_error")
				r.logger.Warn("unparseable entry",
					zap.String("stage", string(stage)),
					zap.String("file", file),
					zap.Error(e.Err))
				unknownRaw = append(unknownRaw, e.Raw...)
				unknownRaw = append(unknownRaw, '\n')
			}
		}
	}

	if err := r.writeAudit(string(stage)+"_known_error.dat", knownRaw); err != nil {
		return nil, err
	}
	if err := r.writeAudit(string(stage)+"_unknown_error.dat", unknownRaw); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *Runner) readEquivalents() ([]models.Conformer, error) {
	if r.cfg.EquivalentGlob == "" {
		return nil, nil
	}
	files, err := filepath.Glob(r.cfg.EquivalentGlob)
	if err != nil {
		return nil, errors.Wrap(err, "bad equivalent glob")
	}

	var out []models.Conformer
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", file)
		}
		markers, err := parser.ParseDuplicates(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", file)
		}
		out = append(out, markers...)
	}
	return out, nil
}

func (r *Runner) writeAudit(name string, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	path := filepath.Join(r.cfg.OutputDir, name)
	return errors.Wrapf(os.WriteFile(path, raw, 0o644), "writing %s", path)
}

func isKnownFormatError(err error) bool {
	var known *parser.KnownFormatError
	return errors.As(err, &known)
}
