package resolve

import (
	"fmt"

	"conformer-pipeline/core/metrics"
	"conformer-pipeline/feature/conformer/models"
)

// Keys returns the group keys a record participates in during duplicate
// resolution: its own id, plus the id of the record it was absorbed into
// when DuplicatedBy is set. Grouping by these keys puts every primary
// together with all records that point at it.
func Keys(c models.Conformer) []int64 {
	if c.DuplicatedBy > 0 {
		return []int64{c.ConformerID, c.DuplicatedBy}
	}
	return []int64{c.ConformerID}
}

// ResolveGroup folds all duplicates of one primary conformer into it.
//
// Exactly one member must have ConformerID equal to the group key (the
// primary); every other member must have DuplicatedBy pointing at it.
// Each absorbed record contributes its id to the primary's DuplicateOf.
// When absorbed and primary share a topology id, the absorbed record's
// first initial geometry is copied over. When the topology ids differ the
// atom correspondence needed to transplant the geometry is undefined;
// that case is only counted, not handled.
//
// A group keyed by an absorbed record's own id contains just that record
// and resolves to it unchanged, so every id still yields exactly one
// record; the absorbed ones carry their duplicate fate and are dropped
// later by the standard output view.
func ResolveGroup(conformerID int64, group []models.Conformer, sink metrics.Sink) (models.Conformer, error) {
	var primaries int
	var primary models.Conformer
	for _, c := range group {
		if c.ConformerID == conformerID {
			primaries++
			primary = c.Clone()
		}
	}
	if primaries != 1 {
		return models.Conformer{}, fmt.Errorf(
			"duplicate group %d: expected 1 record with that id, got %d", conformerID, primaries)
	}

	for _, c := range group {
		if c.ConformerID == conformerID {
			continue
		}
		if c.DuplicatedBy != conformerID {
			return models.Conformer{}, fmt.Errorf(
				"conformer %d should have duplicated_by %d but has %d",
				c.ConformerID, conformerID, c.DuplicatedBy)
		}
		primary.DuplicateOf = append(primary.DuplicateOf, c.ConformerID)
		if models.TopologyIDFor(conformerID) == c.TopologyID() {
			if len(c.InitialGeometries) > 0 {
				primary.InitialGeometries = append(primary.InitialGeometries, c.InitialGeometries[0].Clone())
			}
			sink.Inc("dup_same_topology")
		} else {
			// Transplanting across topologies needs an atom-correspondence
			// solver that does not exist yet; count and move on.
			sink.Inc("dup_diff_topology_unmatched")
		}
	}

	return primary, nil
}
