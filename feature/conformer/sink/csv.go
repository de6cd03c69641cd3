// Package sink writes the run outputs: audit CSVs, the tiered record
// files, the MySQL persistence tables and the artifact upload.
package sink

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"conformer-pipeline/feature/conformer/aggregate"
	"conformer-pipeline/feature/conformer/chem"
	"conformer-pipeline/feature/conformer/merge"
	"conformer-pipeline/feature/conformer/models"
)

// CanonicalCompareRow is one audit entry for a stored canonical string
// that did not match the computed form.
type CanonicalCompareRow struct {
	ConformerID int64
	Result      chem.CompareResult
	Given       string
	WithH       string
	WithoutH    string
}

// WriteConflictsCSV writes merge conflicts with the fixed column header.
func WriteConflictsCSV(w io.Writer, conflicts []merge.Conflict) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(merge.ConflictFields); err != nil {
		return errors.Wrap(err, "writing conflicts header")
	}
	for _, c := range conflicts {
		if err := cw.Write(c.Row()); err != nil {
			return errors.Wrapf(err, "writing conflict for %d", c.ConformerID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing conflicts csv")
}

// WriteCanonicalCompareCSV writes the canonical string audit rows.
func WriteCanonicalCompareCSV(w io.Writer, rows []CanonicalCompareRow) error {
	cw := csv.NewWriter(w)
	header := []string{"conformer_id", "compare", "canonical_given", "canonical_with_h", "canonical_without_h"}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing canonical compare header")
	}
	for _, r := range rows {
		rec := []string{
			strconv.FormatInt(r.ConformerID, 10),
			string(r.Result),
			r.Given,
			r.WithH,
			r.WithoutH,
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "writing canonical compare for %d", r.ConformerID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing canonical compare csv")
}

// WriteStatsCSV writes the aggregated run stats.
func WriteStatsCSV(w io.Writer, stats []aggregate.StatCount) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"primary_key", "secondary_key", "count"}); err != nil {
		return errors.Wrap(err, "writing stats header")
	}
	for _, s := range stats {
		rec := []string{s.Primary, s.Secondary, strconv.FormatInt(s.Count, 10)}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "writing stat %s/%s", s.Primary, s.Secondary)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing stats csv")
}

// WriteSummariesCSV writes the combined per-topology summaries with the
// counters in their declared order.
func WriteSummariesCSV(w io.Writer, summaries []models.TopologySummary) error {
	cw := csv.NewWriter(w)
	header := append([]string{"bond_topology_id"}, models.SummaryCounterNames...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing summaries header")
	}
	for _, s := range summaries {
		rec := make([]string, 0, len(header))
		rec = append(rec, strconv.FormatInt(s.BondTopology.BondTopologyID, 10))
		for _, v := range s.Counters() {
			rec = append(rec, strconv.FormatInt(v, 10))
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "writing summary for %d", s.BondTopology.BondTopologyID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing summaries csv")
}
