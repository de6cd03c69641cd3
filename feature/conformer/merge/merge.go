package merge

import (
	"fmt"
	"math"
	"sort"

	"conformer-pipeline/core/metrics"
	"conformer-pipeline/feature/conformer/models"
)

// Tolerance is the absolute numeric tolerance under which a stage-1 and
// stage-2 value for the same field are considered equal.
const Tolerance = 1e-6

// InvalidSentinel marks an intentionally-invalid measurement on the
// stage-2 side. It bypasses the tolerance check without raising a
// conflict; stricter validation happens downstream.
const InvalidSentinel = -1.0

// Kind classifies a partial record by its origin source.
type Kind int

const (
	// KindDuplicateMarker is a degenerate record carrying only duplicate
	// linkage, produced from the duplicate-relationship list.
	KindDuplicateMarker Kind = iota
	// KindStage1 is a first-stage computation record.
	KindStage1
	// KindStage2 is a second-stage (refinement) computation record.
	KindStage2
)

// String returns a short name for logging.
func (k Kind) String() string {
	switch k {
	case KindDuplicateMarker:
		return "duplicate_marker"
	case KindStage1:
		return "stage1"
	case KindStage2:
		return "stage2"
	default:
		return "unknown"
	}
}

// KindOf infers the origin source of a partial record from its content.
// Duplicate markers carry no topology at all; stage-2 records carry at
// least one second-stage property. A merged stage1+stage2 record counts as
// stage-2, which keeps the pairwise reduction order-independent.
func KindOf(c models.Conformer) Kind {
	if len(c.BondTopologies) == 0 {
		return KindDuplicateMarker
	}
	if c.Properties.HasStage2Results() {
		return KindStage2
	}
	return KindStage1
}

// DuplicateSourceError is returned when two records of the same computation
// stage arrive for one conformer id. This is an input-validation failure:
// each stage produces at most one record per id.
type DuplicateSourceError struct {
	ConformerID int64
	Kind        Kind
}

func (e *DuplicateSourceError) Error() string {
	return fmt.Sprintf("conformer %d: two %s records for the same id", e.ConformerID, e.Kind)
}

// TopologyMismatchError is returned when the stage-1 and stage-2 records
// disagree on the bond topology. Records must describe the same structure
// before any field-level merging makes sense.
type TopologyMismatchError struct {
	ConformerID int64
}

func (e *TopologyMismatchError) Error() string {
	return fmt.Sprintf("conformer %d: stage1 and stage2 bond topologies differ", e.ConformerID)
}

// MergePair merges two partial records for the same conformer id.
//
// Duplicate-marker merges are pure unions and never conflict fatally.
// Stage1/stage2 merges keep the stage-2 value for every overlapping field;
// numeric disagreement beyond Tolerance is reported as a Conflict but does
// not fail the merge. Structural problems (same-stage duplicates, more than
// one topology or initial geometry, topology mismatch) are fatal.
func MergePair(a, b models.Conformer) (models.Conformer, *Conflict, error) {
	a, b = a.Clone(), b.Clone()
	ka, kb := KindOf(a), KindOf(b)

	if ka == KindDuplicateMarker {
		return mergeDuplicateInfo(b, a), nil, nil
	}
	if kb == KindDuplicateMarker {
		return mergeDuplicateInfo(a, b), nil, nil
	}

	if ka == kb {
		return models.Conformer{}, nil, &DuplicateSourceError{ConformerID: a.ConformerID, Kind: ka}
	}

	// Normalize so that s1 is the stage-1 side.
	s1, s2 := a, b
	if ka == KindStage2 {
		s1, s2 = b, a
	}
	return mergeStages(s1, s2)
}

// MergeGroup reduces all partial records sharing one conformer id into one
// canonical record. The reduction is pairwise but order-independent: marker
// merges are commutative unions and the stage1/stage2 merge keeps disjoint
// or overridden fields deterministically.
//
// Numeric conflicts are returned for the audit side channel; a non-nil
// error aborts only this group.
func MergeGroup(conformerID int64, records []models.Conformer, sink metrics.Sink) (models.Conformer, []Conflict, error) {
	if len(records) == 0 {
		return models.Conformer{}, nil, fmt.Errorf("conformer %d: no records to merge", conformerID)
	}
	for _, r := range records {
		if r.ConformerID != conformerID {
			return models.Conformer{}, nil, fmt.Errorf(
				"in merge group %d, found conformer id %d", conformerID, r.ConformerID)
		}
	}

	merged := records[0].Clone()
	var conflicts []Conflict
	for _, next := range records[1:] {
		out, conflict, err := MergePair(merged, next)
		if err != nil {
			return models.Conformer{}, nil, err
		}
		if conflict != nil {
			sink.Inc("conformer_merge_error")
			conflicts = append(conflicts, *conflict)
		}
		merged = out
	}
	sink.Inc("merged_conformers")
	return merged, conflicts, nil
}

// mergeDuplicateInfo copies a duplicate marker's linkage into dst verbatim:
// DuplicateOf is unioned and DuplicatedBy propagated. Two disagreeing
// nonzero DuplicatedBy values keep the smaller id so the result does not
// depend on argument order; the disagreement is noted on the record.
// Conflict notes already sitting on the marker survive the fold.
func mergeDuplicateInfo(dst, marker models.Conformer) models.Conformer {
	dst.DuplicateOf = unionIDs(dst.DuplicateOf, marker.DuplicateOf)
	dst.Errors.MergeConflicts = unionNotes(dst.Errors.MergeConflicts, marker.Errors.MergeConflicts)
	switch {
	case dst.DuplicatedBy == 0:
		dst.DuplicatedBy = marker.DuplicatedBy
	case marker.DuplicatedBy != 0 && marker.DuplicatedBy != dst.DuplicatedBy:
		lo, hi := dst.DuplicatedBy, marker.DuplicatedBy
		if hi < lo {
			lo, hi = hi, lo
		}
		dst.DuplicatedBy = lo
		dst.Errors.MergeConflicts = append(dst.Errors.MergeConflicts,
			fmt.Sprintf("duplicated_by disagreement: %d vs %d", lo, hi))
	}
	return dst
}

// mergeStages merges a stage-1 and a stage-2 record. The stage-2 record is
// the higher-fidelity computation, so it wins every overlapping field; the
// stage-1 values survive only where stage 2 has nothing.
func mergeStages(s1, s2 models.Conformer) (models.Conformer, *Conflict, error) {
	for _, c := range []models.Conformer{s1, s2} {
		if len(c.BondTopologies) != 1 {
			return models.Conformer{}, nil, fmt.Errorf(
				"conformer %d: expected 1 bond topology before merge, got %d",
				c.ConformerID, len(c.BondTopologies))
		}
		if len(c.InitialGeometries) > 1 {
			return models.Conformer{}, nil, fmt.Errorf(
				"conformer %d: expected at most 1 initial geometry before merge, got %d",
				c.ConformerID, len(c.InitialGeometries))
		}
	}
	if !s1.BondTopologies[0].Equal(s2.BondTopologies[0]) {
		return models.Conformer{}, nil, &TopologyMismatchError{ConformerID: s1.ConformerID}
	}

	conflict := detectConflict(s1, s2)

	out := s2
	out.DuplicateOf = unionIDs(s1.DuplicateOf, s2.DuplicateOf)
	out.Errors.MergeConflicts = unionNotes(s1.Errors.MergeConflicts, s2.Errors.MergeConflicts)
	out = mergeDuplicateInfo(out, models.Conformer{DuplicatedBy: s1.DuplicatedBy})

	// Stage-1-only properties are added; overlapping fields keep stage 2.
	if out.Properties == nil {
		out.Properties = models.Properties{}
	}
	for name, prop := range s1.Properties {
		if _, ok := out.Properties[name]; !ok {
			out.Properties[name] = prop
		}
	}

	if conflict != nil {
		out.Errors.MergeConflicts = append(out.Errors.MergeConflicts,
			fmt.Sprintf("stage1/stage2 disagreement for conformer %d", out.ConformerID))
	}
	return out, conflict, nil
}

// detectConflict compares the fields present in both stages and returns a
// conflict row when any of them disagree. A stage-2 value of exactly
// InvalidSentinel is kept as-is without flagging: it marks an
// intentionally-unset measurement, not a disagreement.
func detectConflict(s1, s2 models.Conformer) *Conflict {
	disagree := false

	if s1.Errors.Nstat1 != s2.Errors.Nstat1 ||
		s1.Errors.NstatC != s2.Errors.NstatC ||
		s1.Errors.NstatT != s2.Errors.NstatT ||
		s1.Errors.Frequencies != s2.Errors.Frequencies {
		disagree = true
	}

	for _, name := range models.ToleranceComparedFields {
		v1, ok1 := s1.Properties.Get(name)
		v2, ok2 := s2.Properties.Get(name)
		if ok1 != ok2 {
			disagree = true
			continue
		}
		if !ok1 {
			continue
		}
		if v2 == InvalidSentinel {
			continue
		}
		if math.Abs(v1-v2) > Tolerance {
			disagree = true
		}
	}

	if (len(s1.InitialGeometries) > 0) != (len(s2.InitialGeometries) > 0) ||
		(s1.OptimizedGeometry != nil) != (s2.OptimizedGeometry != nil) {
		disagree = true
	}

	if !disagree {
		return nil
	}
	return &Conflict{
		ConformerID: s1.ConformerID,
		Stage1:      snapshotOf(s1),
		Stage2:      snapshotOf(s2),
	}
}

// unionNotes merges two conflict-note lists into a sorted set, so the
// notes on a merged record do not depend on which side carried them.
func unionNotes(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, notes := range [][]string{a, b} {
		for _, note := range notes {
			if _, ok := seen[note]; ok {
				continue
			}
			seen[note] = struct{}{}
			out = append(out, note)
		}
	}
	sort.Strings(out)
	return out
}

func unionIDs(a, b []int64) []int64 {
	if len(b) == 0 {
		return a
	}
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, lists := range [][]int64{a, b} {
		for _, id := range lists {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
