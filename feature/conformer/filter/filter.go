// Package filter produces the tier-restricted output views of conformer
// records. The internal dataset keeps everything; the complete and standard
// views strip properties above their visibility tier, and the standard view
// additionally drops records not fit for release.
package filter

import (
	"conformer-pipeline/feature/conformer/classify"
	"conformer-pipeline/feature/conformer/models"
)

// ByAvailability returns a copy of c whose properties are restricted to the
// given tiers. Structure, geometries, error codes, duplicate links and fate
// pass through unchanged.
func ByAvailability(c models.Conformer, tiers ...models.Tier) models.Conformer {
	keep := make(map[models.Tier]bool, len(tiers))
	for _, t := range tiers {
		keep[t] = true
	}

	out := c.Clone()
	for name, prop := range out.Properties {
		if !keep[prop.Tier] {
			delete(out.Properties, name)
		}
	}
	return out
}

// ToComplete returns the complete view: standard and complete tier
// properties, internal-only stripped.
func ToComplete(c models.Conformer) models.Conformer {
	return ByAvailability(c, models.TierStandard, models.TierComplete)
}

// ToStandard returns the standard view and whether the record belongs in it
// at all. Records with calculation errors and records absorbed as
// duplicates are excluded entirely; the rest keep only standard tier
// properties.
func ToStandard(c models.Conformer) (models.Conformer, bool) {
	if classify.HasCalculationErrors(c) || c.DuplicatedBy > 0 {
		return models.Conformer{}, false
	}
	return ByAvailability(c, models.TierStandard), true
}
