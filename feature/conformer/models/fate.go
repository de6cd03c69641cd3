package models

// Fate is the terminal classification of how a conformer's processing
// concluded. It is assigned once by the classifier after merging.
type Fate int

const (
	FateUnknown Fate = iota
	FateDuplicateSameTopology
	FateDuplicateDifferentTopology
	FateGeometryOptimizationProblem
	FateDisassociated
	FateForceConstantFailure
	FateDiscardedOther
	FateNoCalculationResults
	FateCalculationWithError
	FateSuccess
)

var fateNames = map[Fate]string{
	FateUnknown:                     "FATE_UNDEFINED",
	FateDuplicateSameTopology:       "FATE_DUPLICATE_SAME_TOPOLOGY",
	FateDuplicateDifferentTopology:  "FATE_DUPLICATE_DIFFERENT_TOPOLOGY",
	FateGeometryOptimizationProblem: "FATE_GEOMETRY_OPTIMIZATION_PROBLEM",
	FateDisassociated:               "FATE_DISASSOCIATED",
	FateForceConstantFailure:        "FATE_FORCE_CONSTANT_FAILURE",
	FateDiscardedOther:              "FATE_DISCARDED_OTHER",
	FateNoCalculationResults:        "FATE_NO_CALCULATION_RESULTS",
	FateCalculationWithError:        "FATE_CALCULATION_WITH_ERROR",
	FateSuccess:                     "FATE_SUCCESS",
}

// String returns the stable name used in stats output.
func (f Fate) String() string {
	if name, ok := fateNames[f]; ok {
		return name
	}
	return "FATE_UNDEFINED"
}

// IsDuplicate reports whether the fate marks a non-primary duplicate.
func (f Fate) IsDuplicate() bool {
	return f == FateDuplicateSameTopology || f == FateDuplicateDifferentTopology
}

// IsGeometryFailure reports whether the fate is one of the geometry
// optimization failure categories.
func (f Fate) IsGeometryFailure() bool {
	switch f {
	case FateGeometryOptimizationProblem, FateDisassociated,
		FateForceConstantFailure, FateDiscardedOther:
		return true
	default:
		return false
	}
}
