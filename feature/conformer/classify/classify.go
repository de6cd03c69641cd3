package classify

import (
	"conformer-pipeline/feature/conformer/models"
)

// geometryFailureFates maps the Nstat1 status values that mark a known
// geometry-optimization failure category to the fate for that category.
// Values 1 and 3 are success (see models.ErrorFields); anything else not
// in this table falls through to the generic error handling.
var geometryFailureFates = map[int]models.Fate{
	2: models.FateGeometryOptimizationProblem,
	5: models.FateDisassociated,
	4: models.FateForceConstantFailure,
	6: models.FateDiscardedOther,
}

// Determine classifies a merged conformer into its terminal fate. The
// function is pure and total: every record maps to exactly one fate and
// the input is not mutated.
//
// Rules are evaluated in order, first match wins:
//  1. absorbed into a record of the same topology
//  2. absorbed into a record of a different topology
//  3. known geometry-optimization failure (Nstat1 table above); these
//     records never reached the second stage, so this is checked before
//     the missing-results rule or they would all be misfiled there
//  4. no second-stage results at all
//  5. any status code signalling a fault
//  6. success
func Determine(c models.Conformer) models.Fate {
	if c.DuplicatedBy > 0 {
		if models.TopologyIDFor(c.DuplicatedBy) == c.TopologyID() {
			return models.FateDuplicateSameTopology
		}
		return models.FateDuplicateDifferentTopology
	}

	if fate, ok := geometryFailureFates[c.Errors.Nstat1]; ok {
		return fate
	}

	if !c.Properties.HasStage2Results() {
		return models.FateNoCalculationResults
	}

	if c.Errors.HasFault() {
		return models.FateCalculationWithError
	}

	return models.FateSuccess
}

// HasCalculationErrors reports whether any status code signals a fault.
// The standard output view drops such records entirely.
func HasCalculationErrors(c models.Conformer) bool {
	return c.Errors.HasFault()
}
