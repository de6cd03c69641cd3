package parser

import (
	"fmt"
	"regexp"
	"strconv"

	"conformer-pipeline/feature/conformer/models"
)

// Long identifiers name a conformer in the legacy text inputs:
// x<heavy>_<stoichiometry>.<topology id>.<short conformer id>, for example
// x07_c2n2o2fh3.224227.004.
var longIdentifierRe = regexp.MustCompile(`^x(\d{2})_([a-z0-9]+)\.(\d{6})\.(\d{3})$`)

// Identifier is a parsed long identifier.
type Identifier struct {
	HeavyAtoms     int
	Stoichiometry  string
	BondTopologyID int64
	ShortID        int
}

// ConformerID returns the numeric id the identifier names: the topology id
// widened by the per-topology id space plus the short id.
func (id Identifier) ConformerID() int64 {
	return id.BondTopologyID*models.ConformersPerTopology + int64(id.ShortID)
}

// ParseLongIdentifier parses a legacy long identifier string.
func ParseLongIdentifier(s string) (Identifier, error) {
	m := longIdentifierRe.FindStringSubmatch(s)
	if m == nil {
		return Identifier{}, fmt.Errorf("malformed long identifier %q", s)
	}
	heavy, _ := strconv.Atoi(m[1])
	btid, _ := strconv.ParseInt(m[3], 10, 64)
	short, _ := strconv.Atoi(m[4])
	return Identifier{
		HeavyAtoms:     heavy,
		Stoichiometry:  m[2],
		BondTopologyID: btid,
		ShortID:        short,
	}, nil
}
