package models

// Tier is the visibility classification of a computed property. It controls
// which output views (standard, complete, internal) include the property.
type Tier int

const (
	TierStandard Tier = iota
	TierComplete
	TierInternalOnly
)

// String returns the tier name used in configuration and reports.
func (t Tier) String() string {
	switch t {
	case TierStandard:
		return "STANDARD"
	case TierComplete:
		return "COMPLETE"
	case TierInternalOnly:
		return "INTERNAL_ONLY"
	default:
		return "UNKNOWN"
	}
}

// FieldSpec declares the fixed metadata for a known property field.
type FieldSpec struct {
	// Tier is the visibility tier of the field.
	Tier Tier
	// Stage2 marks fields produced only by the second-stage computation.
	// Stage-1 records never carry them; their presence is what
	// distinguishes a record with calculation results.
	Stage2 bool
}

// FieldSpecs is the registry of every known property field. Absent from a
// record's Properties map means "not computed".
var FieldSpecs = map[string]FieldSpec{
	// Present from stage 1 onward.
	"initial_geometry_energy":          {Tier: TierInternalOnly},
	"initial_geometry_gradient_norm":   {Tier: TierInternalOnly},
	"optimized_geometry_energy":        {Tier: TierInternalOnly},
	"optimized_geometry_gradient_norm": {Tier: TierInternalOnly},

	// Stage-2 computation outputs.
	"single_point_energy_pbe0d3_6_311gd":   {Tier: TierStandard, Stage2: true},
	"single_point_energy_hf_6_31gd":        {Tier: TierComplete, Stage2: true},
	"homo_pbe0_aug_pc_1":                   {Tier: TierComplete, Stage2: true},
	"lumo_pbe0_aug_pc_1":                   {Tier: TierComplete, Stage2: true},
	"nuclear_repulsion_energy":             {Tier: TierInternalOnly, Stage2: true},
	"zpe_unscaled":                         {Tier: TierComplete, Stage2: true},
	"dipole_moment_pbe0_aug_pc_1":          {Tier: TierStandard, Stage2: true},
	"bond_separation_energy_atomic_b5":     {Tier: TierStandard, Stage2: true},
	"enthalpy_of_formation_298k_atomic_b5": {Tier: TierStandard, Stage2: true},
}

// ToleranceComparedFields are the scalar fields present in both stage-1 and
// stage-2 records; the merge engine compares them under the numeric
// tolerance and reports conflicts. The order here is the order of the
// conflict report columns.
var ToleranceComparedFields = []string{
	"initial_geometry_energy",
	"initial_geometry_gradient_norm",
	"optimized_geometry_energy",
	"optimized_geometry_gradient_norm",
}

// Property is one computed scalar with its declared visibility tier.
type Property struct {
	Value float64 `json:"value"`
	Tier  Tier    `json:"tier"`
}

// Properties maps property field name to its computed value. Absent means
// not computed.
type Properties map[string]Property

// Set records a value for a known field, taking the tier from the registry.
// Unknown field names are stored as internal-only.
func (p Properties) Set(name string, value float64) {
	tier := TierInternalOnly
	if spec, ok := FieldSpecs[name]; ok {
		tier = spec.Tier
	}
	p[name] = Property{Value: value, Tier: tier}
}

// Get returns the value for name and whether it is present.
func (p Properties) Get(name string) (float64, bool) {
	prop, ok := p[name]
	return prop.Value, ok
}

// HasStage2Results reports whether any second-stage property is present.
func (p Properties) HasStage2Results() bool {
	for name := range p {
		if FieldSpecs[name].Stage2 {
			return true
		}
	}
	return false
}

// Clone returns a copy of the map.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
