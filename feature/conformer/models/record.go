package models

// ConformersPerTopology is the id-space width reserved for conformers of a
// single bond topology. A conformer id encodes its parent topology id as
// conformerID / ConformersPerTopology.
const ConformersPerTopology = 1000

// TopologyIDFor returns the bond topology id encoded in a conformer id.
func TopologyIDFor(conformerID int64) int64 {
	return conformerID / ConformersPerTopology
}

// Atom is the element (plus formal charge) of a single atom position.
type Atom int

const (
	AtomUnknown Atom = iota
	AtomC
	AtomN
	AtomNPos
	AtomO
	AtomONeg
	AtomF
	AtomH
)

// Symbol returns the short element code used in the legacy text formats.
func (a Atom) Symbol() string {
	switch a {
	case AtomC:
		return "C"
	case AtomN:
		return "N"
	case AtomNPos:
		return "N+"
	case AtomO:
		return "O"
	case AtomONeg:
		return "O-"
	case AtomF:
		return "F"
	case AtomH:
		return "H"
	default:
		return "?"
	}
}

// BondType is the bond order between two atoms.
type BondType int

const (
	BondUnspecified BondType = iota
	BondSingle
	BondDouble
	BondTriple
)

// Bond connects two atoms by index into the topology's atom list.
type Bond struct {
	AtomA int      `json:"atom_a"`
	AtomB int      `json:"atom_b"`
	Type  BondType `json:"bond_type"`
}

// BondTopology describes the bonding/connectivity shared by one or more
// conformers. Canonical holds the canonical structure string when known;
// it may be empty for topologies read from legacy inputs.
type BondTopology struct {
	BondTopologyID int64  `json:"bond_topology_id"`
	Atoms          []Atom `json:"atoms"`
	Bonds          []Bond `json:"bonds"`
	Canonical      string `json:"canonical,omitempty"`
}

// Equal reports deep structural equality. The canonical string is ignored:
// two records for the same conformer may disagree on it without the
// structures differing.
func (bt BondTopology) Equal(other BondTopology) bool {
	if bt.BondTopologyID != other.BondTopologyID {
		return false
	}
	if len(bt.Atoms) != len(other.Atoms) || len(bt.Bonds) != len(other.Bonds) {
		return false
	}
	for i, a := range bt.Atoms {
		if a != other.Atoms[i] {
			return false
		}
	}
	for i, b := range bt.Bonds {
		if b != other.Bonds[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (bt BondTopology) Clone() BondTopology {
	out := bt
	out.Atoms = append([]Atom(nil), bt.Atoms...)
	out.Bonds = append([]Bond(nil), bt.Bonds...)
	return out
}

// Position is a 3D atom coordinate (bohr).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Geometry is one 3D coordinate set, one position per topology atom.
type Geometry struct {
	AtomPositions []Position `json:"atom_positions"`
}

// Clone returns a deep copy.
func (g Geometry) Clone() Geometry {
	return Geometry{AtomPositions: append([]Position(nil), g.AtomPositions...)}
}

// Conformer is the canonical record for one measured molecular conformer.
// Partial conformers produced by the stage parsers and the duplicate list
// reader are merged into exactly one canonical record per id.
type Conformer struct {
	ConformerID int64 `json:"conformer_id"`

	// BondTopologies holds the structural descriptors. Exactly one after a
	// successful merge; structural re-derivation may append additional
	// matched topologies later.
	BondTopologies []BondTopology `json:"bond_topologies"`

	// InitialGeometries holds one coordinate set per originating
	// measurement. Duplicate resolution appends absorbed geometries.
	InitialGeometries []Geometry `json:"initial_geometries"`

	// OptimizedGeometry is present only for records that went through the
	// geometry optimization.
	OptimizedGeometry *Geometry `json:"optimized_geometry,omitempty"`

	Properties  Properties  `json:"properties,omitempty"`
	NormalModes [][]float64 `json:"normal_modes,omitempty"`
	Errors      ErrorCodes  `json:"errors"`

	// DuplicateOf lists conformer ids absorbed into this record.
	DuplicateOf []int64 `json:"duplicate_of,omitempty"`

	// DuplicatedBy is the id of the record this one was absorbed into.
	// Zero means unset; a nonzero value marks this record as non-primary.
	DuplicatedBy int64 `json:"duplicated_by,omitempty"`

	Fate Fate `json:"fate"`
}

// TopologyID returns the bond topology id encoded in this conformer's id.
func (c Conformer) TopologyID() int64 {
	return TopologyIDFor(c.ConformerID)
}

// PrimaryTopology returns the first bond topology, or false when the record
// carries none (duplicate markers).
func (c Conformer) PrimaryTopology() (BondTopology, bool) {
	if len(c.BondTopologies) == 0 {
		return BondTopology{}, false
	}
	return c.BondTopologies[0], true
}

// Clone returns a deep copy. Pipeline stages never share a record: each
// stage receives and returns its own owned copy.
func (c Conformer) Clone() Conformer {
	out := c
	out.BondTopologies = make([]BondTopology, len(c.BondTopologies))
	for i, bt := range c.BondTopologies {
		out.BondTopologies[i] = bt.Clone()
	}
	out.InitialGeometries = make([]Geometry, len(c.InitialGeometries))
	for i, g := range c.InitialGeometries {
		out.InitialGeometries[i] = g.Clone()
	}
	if c.OptimizedGeometry != nil {
		g := c.OptimizedGeometry.Clone()
		out.OptimizedGeometry = &g
	}
	out.Properties = c.Properties.Clone()
	if c.NormalModes != nil {
		out.NormalModes = make([][]float64, len(c.NormalModes))
		for i, m := range c.NormalModes {
			out.NormalModes[i] = append([]float64(nil), m...)
		}
	}
	out.Errors = c.Errors.Clone()
	out.DuplicateOf = append([]int64(nil), c.DuplicateOf...)
	return out
}
