// Package aggregate rolls classified conformers up into per-topology
// outcome summaries and dataset-wide stat counts.
package aggregate

import (
	"fmt"
	"sort"
	"strconv"

	"conformer-pipeline/feature/conformer/models"
)

// BareSummary returns the zero-count summary row for a topology. Emitting
// one of these per enumerated topology guarantees that topologies with no
// surviving conformers still appear in the combined output.
func BareSummary(bt models.BondTopology) models.TopologySummary {
	return models.TopologySummary{BondTopology: bt.Clone()}
}

// Summaries converts one classified conformer into summary rows, one per
// associated bond topology.
//
// The first listed topology is the one the conformer was attempted under;
// its row gets count_attempted_conformers plus the counter its fate selects.
// Any further topologies were detected by matching against the optimized
// geometry, so for the fates where that matching ran (error and success)
// each extra topology gets a row carrying only the detected_match counter.
func Summaries(c models.Conformer) ([]models.TopologySummary, error) {
	if len(c.BondTopologies) == 0 {
		return nil, fmt.Errorf("conformer %d has no bond topologies", c.ConformerID)
	}

	primary := models.TopologySummary{
		BondTopology:             c.BondTopologies[0].Clone(),
		CountAttemptedConformers: 1,
	}

	var extras []models.TopologySummary
	switch {
	case c.Fate == models.FateDuplicateSameTopology:
		primary.CountDuplicatesSameTopology = 1
	case c.Fate == models.FateDuplicateDifferentTopology:
		primary.CountDuplicatesDifferentTopology = 1
	case c.Fate.IsGeometryFailure():
		primary.CountFailedGeometryOptimization = 1
	case c.Fate == models.FateNoCalculationResults:
		primary.CountKeptGeometry = 1
		primary.CountMissingCalculation = 1
	case c.Fate == models.FateCalculationWithError:
		primary.CountKeptGeometry = 1
		primary.CountCalculationWithError = 1
		for _, bt := range c.BondTopologies[1:] {
			extras = append(extras, models.TopologySummary{
				BondTopology:                bt.Clone(),
				CountDetectedMatchWithError: 1,
			})
		}
	case c.Fate == models.FateSuccess:
		primary.CountKeptGeometry = 1
		primary.CountCalculationSuccess = 1
		for _, bt := range c.BondTopologies[1:] {
			extras = append(extras, models.TopologySummary{
				BondTopology:              bt.Clone(),
				CountDetectedMatchSuccess: 1,
			})
		}
	default:
		return nil, fmt.Errorf("conformer %d has unclassified fate %v", c.ConformerID, c.Fate)
	}

	return append(extras, primary), nil
}

// CombineByTopology sums summary rows per topology id and returns one row
// per id, ordered by id. Input order and partitioning do not affect the
// result: the underlying Add is a field-wise sum with the zero row as
// identity.
func CombineByTopology(rows []models.TopologySummary) []models.TopologySummary {
	byID := make(map[int64]models.TopologySummary)
	for _, row := range rows {
		byID[row.BondTopology.BondTopologyID] = byID[row.BondTopology.BondTopologyID].Add(row)
	}

	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]models.TopologySummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

// StatValue is one observation for the run-level stats report, keyed by a
// primary and secondary string.
type StatValue struct {
	Primary   string
	Secondary string
}

// StatCount is a StatValue with its occurrence count across the run.
type StatCount struct {
	Primary   string
	Secondary string
	Count     int64
}

// StatValues emits the stat observations for one final conformer: every
// status code value (zeros included, which is why this walks the declared
// field table instead of only the set fields), the merge conflict count,
// the fate name and the geometry and duplicate tallies.
func StatValues(c models.Conformer) []StatValue {
	out := make([]StatValue, 0, len(models.ErrorFields)+4)
	for _, f := range models.ErrorFields {
		out = append(out, StatValue{f.Name, strconv.Itoa(f.Get(c.Errors))})
	}
	out = append(out,
		StatValue{"error_during_merging", strconv.Itoa(len(c.Errors.MergeConflicts))},
		StatValue{"fate", c.Fate.String()},
		StatValue{"num_initial_geometries", strconv.Itoa(len(c.InitialGeometries))},
		StatValue{"num_duplicates", strconv.Itoa(len(c.DuplicateOf))},
	)
	return out
}

// CountStats aggregates observations into (primary, secondary, count) rows
// sorted by primary then secondary key.
func CountStats(values []StatValue) []StatCount {
	counts := make(map[StatValue]int64)
	for _, v := range values {
		counts[v]++
	}

	out := make([]StatCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, StatCount{v.Primary, v.Secondary, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Primary != out[j].Primary {
			return out[i].Primary < out[j].Primary
		}
		return out[i].Secondary < out[j].Secondary
	})
	return out
}
