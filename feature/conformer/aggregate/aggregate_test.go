package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conformer-pipeline/feature/conformer/models"
)

func topology(id int64) models.BondTopology {
	return models.BondTopology{
		BondTopologyID: id,
		Atoms:          []models.Atom{models.AtomC, models.AtomH},
		Bonds:          []models.Bond{{AtomB: 1, Type: models.BondSingle}},
	}
}

func classifiedConformer(fate models.Fate) models.Conformer {
	return models.Conformer{
		ConformerID:    618451001,
		BondTopologies: []models.BondTopology{topology(618451)},
		InitialGeometries: []models.Geometry{
			{AtomPositions: []models.Position{{X: 1}, {X: 2}}},
		},
		Errors: models.NewStageErrorCodes(),
		Fate:   fate,
	}
}

func summaryFor(t *testing.T, rows []models.TopologySummary, id int64) models.TopologySummary {
	t.Helper()
	for _, row := range rows {
		if row.BondTopology.BondTopologyID == id {
			return row
		}
	}
	t.Fatalf("no summary row for topology %d", id)
	return models.TopologySummary{}
}

func TestSummaries_DuplicateSameTopology(t *testing.T) {
	rows, err := Summaries(classifiedConformer(models.FateDuplicateSameTopology))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(618451), rows[0].BondTopology.BondTopologyID)
	assert.Equal(t, int64(1), rows[0].CountAttemptedConformers)
	assert.Equal(t, int64(1), rows[0].CountDuplicatesSameTopology)
	assert.Equal(t, int64(0), rows[0].CountKeptGeometry)
}

func TestSummaries_DuplicateDifferentTopology(t *testing.T) {
	rows, err := Summaries(classifiedConformer(models.FateDuplicateDifferentTopology))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].CountAttemptedConformers)
	assert.Equal(t, int64(1), rows[0].CountDuplicatesDifferentTopology)
}

func TestSummaries_GeometryFailure(t *testing.T) {
	for _, fate := range []models.Fate{
		models.FateGeometryOptimizationProblem,
		models.FateDisassociated,
		models.FateForceConstantFailure,
		models.FateDiscardedOther,
	} {
		rows, err := Summaries(classifiedConformer(fate))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(1), rows[0].CountAttemptedConformers)
		assert.Equal(t, int64(1), rows[0].CountFailedGeometryOptimization)
		assert.Equal(t, int64(0), rows[0].CountKeptGeometry)
	}
}

func TestSummaries_MissingCalculation(t *testing.T) {
	rows, err := Summaries(classifiedConformer(models.FateNoCalculationResults))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].CountAttemptedConformers)
	assert.Equal(t, int64(1), rows[0].CountKeptGeometry)
	assert.Equal(t, int64(1), rows[0].CountMissingCalculation)
}

func TestSummaries_CalculationWithError(t *testing.T) {
	c := classifiedConformer(models.FateCalculationWithError)
	c.BondTopologies = append(c.BondTopologies, topology(123))

	rows, err := Summaries(c)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	detected := summaryFor(t, rows, 123)
	assert.Equal(t, int64(0), detected.CountAttemptedConformers)
	assert.Equal(t, int64(0), detected.CountKeptGeometry)
	assert.Equal(t, int64(0), detected.CountCalculationWithError)
	assert.Equal(t, int64(1), detected.CountDetectedMatchWithError)

	primary := summaryFor(t, rows, 618451)
	assert.Equal(t, int64(1), primary.CountAttemptedConformers)
	assert.Equal(t, int64(1), primary.CountKeptGeometry)
	assert.Equal(t, int64(1), primary.CountCalculationWithError)
	assert.Equal(t, int64(0), primary.CountDetectedMatchWithError)
}

func TestSummaries_CalculationSuccess(t *testing.T) {
	c := classifiedConformer(models.FateSuccess)
	c.BondTopologies = append(c.BondTopologies, topology(123))

	rows, err := Summaries(c)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	detected := summaryFor(t, rows, 123)
	assert.Equal(t, int64(0), detected.CountAttemptedConformers)
	assert.Equal(t, int64(1), detected.CountDetectedMatchSuccess)

	primary := summaryFor(t, rows, 618451)
	assert.Equal(t, int64(1), primary.CountAttemptedConformers)
	assert.Equal(t, int64(1), primary.CountKeptGeometry)
	assert.Equal(t, int64(1), primary.CountCalculationSuccess)
	assert.Equal(t, int64(0), primary.CountDetectedMatchSuccess)
}

func TestSummaries_UnclassifiedFateFails(t *testing.T) {
	_, err := Summaries(classifiedConformer(models.FateUnknown))
	assert.Error(t, err)
}

func TestBareSummary(t *testing.T) {
	s := BareSummary(topology(618451))
	assert.Equal(t, int64(618451), s.BondTopology.BondTopologyID)
	for i, v := range s.Counters() {
		assert.Zero(t, v, models.SummaryCounterNames[i])
	}
}

func TestCombineByTopology(t *testing.T) {
	var rows []models.TopologySummary
	rows = append(rows, BareSummary(topology(618451)), BareSummary(topology(123)))

	success, err := Summaries(classifiedConformer(models.FateSuccess))
	require.NoError(t, err)
	dup, err := Summaries(classifiedConformer(models.FateDuplicateSameTopology))
	require.NoError(t, err)
	rows = append(rows, success...)
	rows = append(rows, dup...)

	combined := CombineByTopology(rows)
	require.Len(t, combined, 2)

	// Sorted by topology id.
	assert.Equal(t, int64(123), combined[0].BondTopology.BondTopologyID)
	assert.Equal(t, int64(618451), combined[1].BondTopology.BondTopologyID)

	assert.Equal(t, int64(2), combined[1].CountAttemptedConformers)
	assert.Equal(t, int64(1), combined[1].CountCalculationSuccess)
	assert.Equal(t, int64(1), combined[1].CountDuplicatesSameTopology)
	assert.NotEmpty(t, combined[1].BondTopology.Atoms)

	// The bare row for 123 contributes nothing but presence.
	assert.Equal(t, int64(0), combined[0].CountAttemptedConformers)
}

func TestCombineByTopology_OrderIndependent(t *testing.T) {
	a, err := Summaries(classifiedConformer(models.FateSuccess))
	require.NoError(t, err)
	b, err := Summaries(classifiedConformer(models.FateCalculationWithError))
	require.NoError(t, err)

	forward := CombineByTopology(append(append([]models.TopologySummary{}, a...), b...))
	reverse := CombineByTopology(append(append([]models.TopologySummary{}, b...), a...))
	assert.Equal(t, forward, reverse)
}

func TestStatValues(t *testing.T) {
	c := classifiedConformer(models.FateSuccess)
	c.Errors.Nstat1 = 3
	c.Errors.MergeConflicts = []string{"note"}
	c.DuplicateOf = []int64{618451002, 618451003}

	got := StatValues(c)

	want := map[StatValue]bool{
		{"error_nstat1", "3"}:           true,
		{"error_nstatc", "1"}:           true,
		{"error_nstatt", "1"}:           true,
		{"error_frequencies", "1"}:      true,
		{"error_rotational_modes", "0"}: true,
		{"error_atomic_analysis", "0"}:  true,
		{"error_nsvg09", "0"}:           true,
		{"error_during_merging", "1"}:   true,
		{"fate", "FATE_SUCCESS"}:        true,
		{"num_initial_geometries", "1"}: true,
		{"num_duplicates", "2"}:         true,
	}
	assert.Len(t, got, len(want))
	for _, v := range got {
		assert.True(t, want[v], "unexpected stat value %v", v)
	}
}

func TestCountStats(t *testing.T) {
	values := []StatValue{
		{"fate", "FATE_SUCCESS"},
		{"fate", "FATE_SUCCESS"},
		{"fate", "FATE_DUPLICATE_SAME_TOPOLOGY"},
		{"error_nstat1", "1"},
	}

	got := CountStats(values)
	assert.Equal(t, []StatCount{
		{"error_nstat1", "1", 1},
		{"fate", "FATE_DUPLICATE_SAME_TOPOLOGY", 1},
		{"fate", "FATE_SUCCESS", 2},
	}, got)
}
