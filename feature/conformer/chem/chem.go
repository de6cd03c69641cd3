// Package chem derives canonical structure strings for bond topologies and
// checks them against the strings carried by the legacy inputs.
package chem

import (
	"fmt"
	"sort"
	"strings"

	"conformer-pipeline/feature/conformer/models"
)

// Canonicalizer turns a bond topology into a canonical structure string.
// Implementations must be deterministic: the same structure yields the same
// string regardless of atom ordering.
type Canonicalizer interface {
	Canonical(bt models.BondTopology, includeHydrogens bool) string
}

// CompareResult classifies a stored canonical string against the computed
// one.
type CompareResult string

const (
	CompareMissing  CompareResult = "MISSING"
	CompareMismatch CompareResult = "MISMATCH"
	CompareMatch    CompareResult = "MATCH"
)

// Comparison is the outcome of checking one topology's stored canonical
// string.
type Comparison struct {
	Result   CompareResult
	WithH    string
	WithoutH string
}

// Compare computes the canonical strings for bt and classifies the stored
// one: MISSING when no string is stored, MISMATCH when it differs from the
// hydrogen-stripped form, MATCH otherwise.
func Compare(canon Canonicalizer, bt models.BondTopology) Comparison {
	cmp := Comparison{
		WithH:    canon.Canonical(bt, true),
		WithoutH: canon.Canonical(bt, false),
	}
	switch {
	case bt.Canonical == "":
		cmp.Result = CompareMissing
	case bt.Canonical != cmp.WithoutH:
		cmp.Result = CompareMismatch
	default:
		cmp.Result = CompareMatch
	}
	return cmp
}

// NormalForm is the default Canonicalizer. It emits a composition and bond
// multiset normal form: the sorted atom counts, then the sorted bond tokens
// with -, = and # marking the bond order. The form is invariant under atom
// relabeling but coarser than a full graph canonicalization: distinct
// structures can share a form.
type NormalForm struct{}

func (NormalForm) Canonical(bt models.BondTopology, includeHydrogens bool) string {
	atoms := bt.Atoms
	bonds := bt.Bonds
	if !includeHydrogens {
		atoms, bonds = stripHydrogens(bt)
	}

	counts := make(map[string]int)
	for _, a := range atoms {
		counts[strings.ToLower(a.Symbol())]++
	}
	symbols := make([]string, 0, len(counts))
	for s := range counts {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var b strings.Builder
	for _, s := range symbols {
		if counts[s] == 1 {
			b.WriteString(s)
		} else {
			fmt.Fprintf(&b, "%s%d", s, counts[s])
		}
	}

	tokens := make([]string, 0, len(bonds))
	for _, bond := range bonds {
		tokens = append(tokens, bondToken(atoms, bond))
	}
	sort.Strings(tokens)
	if len(tokens) > 0 {
		b.WriteString("|")
		b.WriteString(strings.Join(tokens, ","))
	}
	return b.String()
}

func bondToken(atoms []models.Atom, bond models.Bond) string {
	a := strings.ToLower(atoms[bond.AtomA].Symbol())
	z := strings.ToLower(atoms[bond.AtomB].Symbol())
	if a > z {
		a, z = z, a
	}
	var order string
	switch bond.Type {
	case models.BondSingle:
		order = "-"
	case models.BondDouble:
		order = "="
	case models.BondTriple:
		order = "#"
	default:
		order = "?"
	}
	return a + order + z
}

func stripHydrogens(bt models.BondTopology) ([]models.Atom, []models.Bond) {
	remap := make(map[int]int, len(bt.Atoms))
	var atoms []models.Atom
	for i, a := range bt.Atoms {
		if a == models.AtomH {
			continue
		}
		remap[i] = len(atoms)
		atoms = append(atoms, a)
	}

	var bonds []models.Bond
	for _, b := range bt.Bonds {
		a, okA := remap[b.AtomA]
		z, okB := remap[b.AtomB]
		if !okA || !okB {
			continue
		}
		bonds = append(bonds, models.Bond{AtomA: a, AtomB: z, Type: b.Type})
	}
	return atoms, bonds
}
