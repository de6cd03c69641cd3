package models

// TopologySummary aggregates outcome counters for one bond topology. The
// zero-count summary is the identity element for Add: combining summaries
// for the same topology id is a field-wise sum, so aggregation may run over
// arbitrarily partitioned and re-ordered batches.
type TopologySummary struct {
	BondTopology BondTopology `json:"bond_topology"`

	CountAttemptedConformers         int64 `json:"count_attempted_conformers"`
	CountKeptGeometry                int64 `json:"count_kept_geometry"`
	CountDuplicatesSameTopology      int64 `json:"count_duplicates_same_topology"`
	CountDuplicatesDifferentTopology int64 `json:"count_duplicates_different_topology"`
	CountFailedGeometryOptimization  int64 `json:"count_failed_geometry_optimization"`
	CountMissingCalculation          int64 `json:"count_missing_calculation"`
	CountCalculationWithError        int64 `json:"count_calculation_with_error"`
	CountCalculationSuccess          int64 `json:"count_calculation_success"`
	CountDetectedMatchWithError      int64 `json:"count_detected_match_with_error"`
	CountDetectedMatchSuccess        int64 `json:"count_detected_match_success"`
}

// SummaryCounterNames is the declared column order for summary output.
var SummaryCounterNames = []string{
	"count_attempted_conformers",
	"count_kept_geometry",
	"count_duplicates_same_topology",
	"count_duplicates_different_topology",
	"count_failed_geometry_optimization",
	"count_missing_calculation",
	"count_calculation_with_error",
	"count_calculation_success",
	"count_detected_match_with_error",
	"count_detected_match_success",
}

// Counters returns the counter values in SummaryCounterNames order.
func (s TopologySummary) Counters() []int64 {
	return []int64{
		s.CountAttemptedConformers,
		s.CountKeptGeometry,
		s.CountDuplicatesSameTopology,
		s.CountDuplicatesDifferentTopology,
		s.CountFailedGeometryOptimization,
		s.CountMissingCalculation,
		s.CountCalculationWithError,
		s.CountCalculationSuccess,
		s.CountDetectedMatchWithError,
		s.CountDetectedMatchSuccess,
	}
}

// Add returns the field-wise sum of two summaries for the same topology id.
// The receiver's bond topology descriptor is kept; when the receiver is a
// zero-valued row without a descriptor the other side's is adopted.
func (s TopologySummary) Add(other TopologySummary) TopologySummary {
	out := s
	if len(out.BondTopology.Atoms) == 0 {
		out.BondTopology = other.BondTopology
	}
	out.CountAttemptedConformers += other.CountAttemptedConformers
	out.CountKeptGeometry += other.CountKeptGeometry
	out.CountDuplicatesSameTopology += other.CountDuplicatesSameTopology
	out.CountDuplicatesDifferentTopology += other.CountDuplicatesDifferentTopology
	out.CountFailedGeometryOptimization += other.CountFailedGeometryOptimization
	out.CountMissingCalculation += other.CountMissingCalculation
	out.CountCalculationWithError += other.CountCalculationWithError
	out.CountCalculationSuccess += other.CountCalculationSuccess
	out.CountDetectedMatchWithError += other.CountDetectedMatchWithError
	out.CountDetectedMatchSuccess += other.CountDetectedMatchSuccess
	return out
}
