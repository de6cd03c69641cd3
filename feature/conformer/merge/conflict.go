package merge

import (
	"strconv"

	"conformer-pipeline/feature/conformer/models"
)

// SourceSnapshot captures the merge-compared fields of one source record as
// they were at merge time. Both snapshots appear side by side in the
// conflict report so the disagreement can be audited without re-running
// the job.
type SourceSnapshot struct {
	Nstat1      int
	NstatC      int
	NstatT      int
	Frequencies int

	InitialGeometryEnergy         float64
	InitialGeometryGradientNorm   float64
	OptimizedGeometryEnergy       float64
	OptimizedGeometryGradientNorm float64

	HasInitialGeometry   bool
	HasOptimizedGeometry bool
}

// Conflict is one audit row for a numeric disagreement between the stage-1
// and stage-2 records of a conformer. The merge proceeded with the stage-2
// values.
type Conflict struct {
	ConformerID int64
	Stage1      SourceSnapshot
	Stage2      SourceSnapshot
}

// ConflictFields is the declared column order of the conflict report.
var ConflictFields = func() []string {
	fields := []string{"conformer_id"}
	per := []string{
		"error_nstat1", "error_nstatc", "error_nstatt", "error_frequencies",
		"initial_geometry_energy", "initial_geometry_gradient_norm",
		"optimized_geometry_energy", "optimized_geometry_gradient_norm",
		"has_initial_geometry", "has_optimized_geometry",
	}
	for _, prefix := range []string{"stage1_", "stage2_"} {
		for _, f := range per {
			fields = append(fields, prefix+f)
		}
	}
	return fields
}()

// Row formats the conflict in ConflictFields order.
func (c Conflict) Row() []string {
	row := []string{strconv.FormatInt(c.ConformerID, 10)}
	for _, s := range []SourceSnapshot{c.Stage1, c.Stage2} {
		row = append(row,
			strconv.Itoa(s.Nstat1),
			strconv.Itoa(s.NstatC),
			strconv.Itoa(s.NstatT),
			strconv.Itoa(s.Frequencies),
			formatScalar(s.InitialGeometryEnergy),
			formatScalar(s.InitialGeometryGradientNorm),
			formatScalar(s.OptimizedGeometryEnergy),
			formatScalar(s.OptimizedGeometryGradientNorm),
			strconv.FormatBool(s.HasInitialGeometry),
			strconv.FormatBool(s.HasOptimizedGeometry),
		)
	}
	return row
}

func formatScalar(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// snapshotOf extracts the compared fields from one source record. Missing
// scalar properties snapshot as zero; the presence booleans carry the
// actual signal for absent geometries.
func snapshotOf(c models.Conformer) SourceSnapshot {
	get := func(name string) float64 {
		v, _ := c.Properties.Get(name)
		return v
	}
	return SourceSnapshot{
		Nstat1:                        c.Errors.Nstat1,
		NstatC:                        c.Errors.NstatC,
		NstatT:                        c.Errors.NstatT,
		Frequencies:                   c.Errors.Frequencies,
		InitialGeometryEnergy:         get("initial_geometry_energy"),
		InitialGeometryGradientNorm:   get("initial_geometry_gradient_norm"),
		OptimizedGeometryEnergy:       get("optimized_geometry_energy"),
		OptimizedGeometryGradientNorm: get("optimized_geometry_gradient_norm"),
		HasInitialGeometry:            len(c.InitialGeometries) > 0,
		HasOptimizedGeometry:          c.OptimizedGeometry != nil,
	}
}
