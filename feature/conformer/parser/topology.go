package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"conformer-pipeline/feature/conformer/models"
)

// CreateBondTopology builds a topology from the legacy compact encoding.
//
// atoms lists the heavy atoms as element letters with an optional charge
// sign directly after (spaces are ignored, so both "CN+O-" and "C N+O-"
// work). connectivity is the upper triangle of the heavy-atom bond order
// matrix, row major, one digit per pair; empty for a single heavy atom.
// hydrogens gives the hydrogen count per heavy atom; the hydrogens are
// appended after the heavy atoms, each single-bonded to its parent.
func CreateBondTopology(atoms, connectivity, hydrogens string) (models.BondTopology, error) {
	var bt models.BondTopology
	for _, r := range atoms {
		switch r {
		case ' ':
		case 'c', 'C':
			bt.Atoms = append(bt.Atoms, models.AtomC)
		case 'n', 'N':
			bt.Atoms = append(bt.Atoms, models.AtomN)
		case 'o', 'O':
			bt.Atoms = append(bt.Atoms, models.AtomO)
		case 'f', 'F':
			bt.Atoms = append(bt.Atoms, models.AtomF)
		case '+', '-':
			if len(bt.Atoms) == 0 {
				return models.BondTopology{}, fmt.Errorf("charge sign before any atom in %q", atoms)
			}
			last := len(bt.Atoms) - 1
			switch {
			case bt.Atoms[last] == models.AtomN && r == '+':
				bt.Atoms[last] = models.AtomNPos
			case bt.Atoms[last] == models.AtomO && r == '-':
				bt.Atoms[last] = models.AtomONeg
			default:
				return models.BondTopology{}, fmt.Errorf(
					"unsupported charge %c on %s in %q", r, bt.Atoms[last].Symbol(), atoms)
			}
		default:
			return models.BondTopology{}, fmt.Errorf("unknown atom %c in %q", r, atoms)
		}
	}

	heavy := len(bt.Atoms)
	if want := heavy * (heavy - 1) / 2; len(connectivity) != want {
		return models.BondTopology{}, fmt.Errorf(
			"connectivity %q has %d entries, %d heavy atoms need %d",
			connectivity, len(connectivity), heavy, want)
	}
	idx := 0
	for i := 0; i < heavy; i++ {
		for j := i + 1; j < heavy; j++ {
			order := int(connectivity[idx] - '0')
			idx++
			if order == 0 {
				continue
			}
			if order > 3 {
				return models.BondTopology{}, fmt.Errorf("bond order %d out of range", order)
			}
			bt.Bonds = append(bt.Bonds, models.Bond{
				AtomA: i, AtomB: j, Type: models.BondType(order),
			})
		}
	}

	if len(hydrogens) != heavy {
		return models.BondTopology{}, fmt.Errorf(
			"hydrogens %q has %d entries for %d heavy atoms", hydrogens, len(hydrogens), heavy)
	}
	for i := 0; i < heavy; i++ {
		count := int(hydrogens[i] - '0')
		if count < 0 || count > 9 {
			return models.BondTopology{}, fmt.Errorf("bad hydrogen count %q", hydrogens[i])
		}
		for h := 0; h < count; h++ {
			bt.Bonds = append(bt.Bonds, models.Bond{
				AtomA: i, AtomB: len(bt.Atoms), Type: models.BondSingle,
			})
			bt.Atoms = append(bt.Atoms, models.AtomH)
		}
	}

	return bt, nil
}

// ParseTopologyCSV reads the bare topology enumeration feed. The expected
// columns are id, num_atoms, atoms_str, connectivity_matrix, hydrogens and
// canonical; num_atoms counts heavy atoms only.
func ParseTopologyCSV(r io.Reader) ([]models.BondTopology, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6

	if _, err := cr.Read(); err != nil {
		return nil, errors.Wrap(err, "reading topology csv header")
	}

	var out []models.BondTopology
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "topology csv line %d", line)
		}

		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "topology csv line %d: id", line)
		}
		heavy, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, errors.Wrapf(err, "topology csv line %d: num_atoms", line)
		}

		bt, err := CreateBondTopology(rec[2], rec[3], rec[4])
		if err != nil {
			return nil, errors.Wrapf(err, "topology csv line %d", line)
		}
		heavyParsed := 0
		for _, a := range bt.Atoms {
			if a != models.AtomH {
				heavyParsed++
			}
		}
		if heavyParsed != heavy {
			return nil, errors.Errorf(
				"topology csv line %d: declared %d heavy atoms, parsed %d", line, heavy, heavyParsed)
		}

		bt.BondTopologyID = id
		bt.Canonical = strings.TrimSpace(rec[5])
		out = append(out, bt)
	}
	return out, nil
}
