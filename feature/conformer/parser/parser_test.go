package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conformer-pipeline/feature/conformer/models"
)

func TestParseLongIdentifier(t *testing.T) {
	id, err := ParseLongIdentifier("x07_c2n2o2fh3.224227.004")
	require.NoError(t, err)
	assert.Equal(t, 7, id.HeavyAtoms)
	assert.Equal(t, "c2n2o2fh3", id.Stoichiometry)
	assert.Equal(t, int64(224227), id.BondTopologyID)
	assert.Equal(t, 4, id.ShortID)
	assert.Equal(t, int64(224227004), id.ConformerID())
}

func TestParseLongIdentifier_Malformed(t *testing.T) {
	for _, s := range []string{"", "c2n2o2fh3.224227.004", "x07_c2n2o2fh3.224227", "x07_C2.224227.004"} {
		_, err := ParseLongIdentifier(s)
		assert.Error(t, err, s)
	}
}

func TestCreateBondTopology_ChargedAtoms(t *testing.T) {
	bt, err := CreateBondTopology("C N+O-", "310", "010")
	require.NoError(t, err)

	assert.Equal(t, []models.Atom{
		models.AtomC, models.AtomNPos, models.AtomONeg, models.AtomH,
	}, bt.Atoms)
	assert.Equal(t, []models.Bond{
		{AtomA: 0, AtomB: 1, Type: models.BondTriple},
		{AtomA: 0, AtomB: 2, Type: models.BondSingle},
		{AtomA: 1, AtomB: 3, Type: models.BondSingle},
	}, bt.Bonds)
}

func TestCreateBondTopology_Ring(t *testing.T) {
	bt, err := CreateBondTopology("CCCC", "110011", "2222")
	require.NoError(t, err)

	assert.Len(t, bt.Atoms, 12)
	assert.Equal(t, []models.Bond{
		{AtomA: 0, AtomB: 1, Type: models.BondSingle},
		{AtomA: 0, AtomB: 2, Type: models.BondSingle},
		{AtomA: 1, AtomB: 3, Type: models.BondSingle},
		{AtomA: 2, AtomB: 3, Type: models.BondSingle},
	}, bt.Bonds[:4])
	for _, b := range bt.Bonds[4:] {
		assert.Equal(t, models.AtomH, bt.Atoms[b.AtomB])
		assert.Equal(t, models.BondSingle, b.Type)
	}
}

func TestCreateBondTopology_OneHeavy(t *testing.T) {
	bt, err := CreateBondTopology("C", "", "4")
	require.NoError(t, err)
	assert.Equal(t, []models.Atom{
		models.AtomC, models.AtomH, models.AtomH, models.AtomH, models.AtomH,
	}, bt.Atoms)
	assert.Len(t, bt.Bonds, 4)
}

func TestCreateBondTopology_Malformed(t *testing.T) {
	cases := map[string][3]string{
		"unknown atom":         {"CX", "0", "00"},
		"bad charge":           {"C+", "", "0"},
		"short connectivity":   {"CC", "", "00"},
		"short hydrogens":      {"CC", "1", "0"},
		"bond order too large": {"CC", "4", "00"},
	}
	for name, args := range cases {
		_, err := CreateBondTopology(args[0], args[1], args[2])
		assert.Error(t, err, name)
	}
}

func TestParseTopologyCSV(t *testing.T) {
	in := "id,num_atoms,atoms_str,connectivity_matrix,hydrogens,canonical\n" +
		"68,3,C N+O-,310,010,[NH+]#C[O-]\n" +
		"134,4,N+O-F F ,111000,1000,[O-][NH+](F)F\n"

	got, err := ParseTopologyCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(68), got[0].BondTopologyID)
	assert.Len(t, got[0].Atoms, 4)
	assert.Equal(t, "[NH+]#C[O-]", got[0].Canonical)

	assert.Equal(t, int64(134), got[1].BondTopologyID)
	assert.Len(t, got[1].Atoms, 5)
	assert.Equal(t, "[O-][NH+](F)F", got[1].Canonical)
}

func TestParseTopologyCSV_HeavyCountMismatch(t *testing.T) {
	in := "id,num_atoms,atoms_str,connectivity_matrix,hydrogens,canonical\n" +
		"68,4,C N+O-,310,010,[NH+]#C[O-]\n"
	_, err := ParseTopologyCSV(strings.NewReader(in))
	assert.Error(t, err)
}

func TestParseDuplicates(t *testing.T) {
	in := "x07_c2n2o2fh3.224227.004 x07_c2n2o2fh3.224176.005\n" +
		"x07_c2n2o2fh3.260543.005 x07_c2n2o2fh3.224050.001\n"

	got, err := ParseDuplicates(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(224176005), got[0].ConformerID)
	assert.Equal(t, int64(224227004), got[0].DuplicatedBy)
	assert.Equal(t, int64(224050001), got[1].ConformerID)
	assert.Equal(t, int64(260543005), got[1].DuplicatedBy)
}

const stage1Entry = `x04_cch3.618451.001
topology CC 1 30
errors 1 1 1 1
prop initial_geometry_energy -406.51179
prop initial_geometry_gradient_norm 0.052254
prop optimized_geometry_energy -406.522079
prop optimized_geometry_gradient_norm 0.000025
geom 0.0 0.0 0.0
geom 1.5 0.0 0.0
geom 2.0 1.0 0.0
geom 2.0 -1.0 0.0
geom 2.5 0.0 1.0
opt 0.0 0.0 0.1
opt 1.5 0.0 0.1
opt 2.0 1.0 0.1
opt 2.0 -1.0 0.1
opt 2.5 0.0 1.1
`

func TestParseEntries_Stage1(t *testing.T) {
	entries, err := ParseEntries(strings.NewReader(stage1Entry), Stage1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, entries[0].Err)

	c := entries[0].Conformer
	assert.Equal(t, int64(618451001), c.ConformerID)
	require.Len(t, c.BondTopologies, 1)
	assert.Equal(t, int64(618451), c.BondTopologies[0].BondTopologyID)
	assert.Len(t, c.BondTopologies[0].Atoms, 5)
	assert.Equal(t, models.ErrorCodes{Nstat1: 1, NstatC: 1, NstatT: 1, Frequencies: 1}, c.Errors)

	energy, ok := c.Properties.Get("initial_geometry_energy")
	require.True(t, ok)
	assert.Equal(t, -406.51179, energy)
	assert.False(t, c.Properties.HasStage2Results())

	require.Len(t, c.InitialGeometries, 1)
	assert.Len(t, c.InitialGeometries[0].AtomPositions, 5)
	require.NotNil(t, c.OptimizedGeometry)
	assert.Equal(t, 0.1, c.OptimizedGeometry.AtomPositions[0].Z)
}

func TestParseEntries_Stage2(t *testing.T) {
	in := `x04_cch3.618451.001
topology CC 1 30
errors 1 1 1 1 0 0 0
prop single_point_energy_pbe0d3_6_311gd -406.029
mode 0.1 -0.2 0.3
`
	entries, err := ParseEntries(strings.NewReader(in), Stage2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, entries[0].Err)

	c := entries[0].Conformer
	assert.True(t, c.Properties.HasStage2Results())
	assert.Equal(t, [][]float64{{0.1, -0.2, 0.3}}, c.NormalModes)
}

func TestParseEntries_MultipleBlocks(t *testing.T) {
	in := stage1Entry + "\n" + strings.Replace(stage1Entry, ".001", ".002", 1)
	entries, err := ParseEntries(strings.NewReader(in), Stage1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(618451001), entries[0].Conformer.ConformerID)
	assert.Equal(t, int64(618451002), entries[1].Conformer.ConformerID)
}

func TestParseEntries_KnownErrors(t *testing.T) {
	cases := map[string]string{
		"stage2 codes in stage1 entry": "x04_cch3.618451.001\ntopology CC 1 30\nerrors 1 1 1 1 0 0 0\n",
		"stage2 property in stage1 entry": "x04_cch3.618451.001\ntopology CC 1 30\nerrors 1 1 1 1\n" +
			"prop single_point_energy_pbe0d3_6_311gd -406.029\n",
		"mode row in stage1 entry": "x04_cch3.618451.001\ntopology CC 1 30\nerrors 1 1 1 1\nmode 0.1\n",
		"geometry row count mismatch": "x04_cch3.618451.001\ntopology CC 1 30\nerrors 1 1 1 1\n" +
			"geom 0.0 0.0 0.0\n",
	}
	for name, in := range cases {
		entries, err := ParseEntries(strings.NewReader(in), Stage1)
		require.NoError(t, err, name)
		require.Len(t, entries, 1, name)

		var known *KnownFormatError
		assert.ErrorAs(t, entries[0].Err, &known, name)
		assert.Equal(t, in, entries[0].Raw, name)
	}
}

func TestParseEntries_UnknownErrors(t *testing.T) {
	cases := map[string]string{
		"bad identifier": "nonsense\ntopology CC 1 30\nerrors 1 1 1 1\n",
		"bad float":      "x04_cch3.618451.001\ntopology CC 1 30\nerrors 1 1 1 1\nprop initial_geometry_energy abc\n",
		"unknown line":   "x04_cch3.618451.001\ntopology CC 1 30\nerrors 1 1 1 1\nwhatever\n",
		"no topology":    "x04_cch3.618451.001\nerrors 1 1 1 1\n",
		"no errors line": "x04_cch3.618451.001\ntopology CC 1 30\n",
	}
	for name, in := range cases {
		entries, err := ParseEntries(strings.NewReader(in), Stage1)
		require.NoError(t, err, name)
		require.Len(t, entries, 1, name)
		require.Error(t, entries[0].Err, name)

		var known *KnownFormatError
		assert.False(t, errors.As(entries[0].Err, &known), name)
	}
}
