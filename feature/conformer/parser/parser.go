// Package parser reads the legacy text inputs: staged computation entry
// files, the equivalent-structure lists and the bond topology enumeration
// CSV.
//
// Entry files are line oriented. Each entry is a block separated from the
// next by a blank line:
//
//	x07_c2n2o2fh3.618451.001
//	topology CN+O- 310 010
//	errors 1 1 1 1
//	prop initial_geometry_energy -406.51179
//	geom 0.0 0.0 0.0
//	opt 0.0 0.0 0.1
//	mode 0.1 -0.2 0.3
//
// A first-stage entry carries four status codes and at most the geometry
// scalar properties; a second-stage entry carries all seven codes and may
// carry any property and normal mode rows.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"conformer-pipeline/feature/conformer/models"
)

// Stage selects which entry layout to parse.
type Stage string

const (
	Stage1 Stage = "stage1"
	Stage2 Stage = "stage2"
)

// KnownFormatError marks a recognized class of defective entry. These are
// routed to the known-error audit output instead of failing the run; any
// other parse error counts as unknown.
type KnownFormatError struct {
	Identifier string
	Reason     string
}

func (e *KnownFormatError) Error() string {
	return fmt.Sprintf("entry %s: %s", e.Identifier, e.Reason)
}

// Entry is one parsed block. Err is nil on success, a *KnownFormatError
// for recognized defects, and any other error otherwise; Raw always holds
// the original block text for the audit outputs.
type Entry struct {
	Raw       string
	Conformer models.Conformer
	Err       error
}

// ParseEntries reads every block from r. The returned error covers only
// reading; per-entry failures are reported on the entries themselves.
func ParseEntries(r io.Reader, stage Stage) ([]Entry, error) {
	var entries []Entry
	var block []string

	flush := func() {
		if len(block) == 0 {
			return
		}
		raw := strings.Join(block, "\n") + "\n"
		c, err := parseBlock(block, stage)
		entries = append(entries, Entry{Raw: raw, Conformer: c, Err: err})
		block = nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t")
		if line == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading entry file")
	}
	flush()
	return entries, nil
}

func parseBlock(lines []string, stage Stage) (models.Conformer, error) {
	id, err := ParseLongIdentifier(lines[0])
	if err != nil {
		return models.Conformer{}, err
	}

	c := models.Conformer{
		ConformerID: id.ConformerID(),
		Properties:  models.Properties{},
		Errors:      models.NewStageErrorCodes(),
	}

	var optPositions []models.Position
	var initPositions []models.Position
	var haveErrors, haveTopology bool

	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		switch fields[0] {
		case "topology":
			if len(fields) != 4 {
				return models.Conformer{}, errors.Errorf("entry %s: malformed topology line %q", lines[0], line)
			}
			connectivity := fields[2]
			if connectivity == "-" {
				connectivity = ""
			}
			bt, err := CreateBondTopology(fields[1], connectivity, fields[3])
			if err != nil {
				return models.Conformer{}, errors.Wrapf(err, "entry %s", lines[0])
			}
			bt.BondTopologyID = id.BondTopologyID
			c.BondTopologies = append(c.BondTopologies, bt)
			haveTopology = true

		case "errors":
			codes, err := parseInts(fields[1:])
			if err != nil {
				return models.Conformer{}, errors.Wrapf(err, "entry %s: errors line", lines[0])
			}
			if err := applyErrorCodes(&c.Errors, codes, stage); err != nil {
				return models.Conformer{}, &KnownFormatError{Identifier: lines[0], Reason: err.Error()}
			}
			haveErrors = true

		case "prop":
			if len(fields) != 3 {
				return models.Conformer{}, errors.Errorf("entry %s: malformed prop line %q", lines[0], line)
			}
			value, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return models.Conformer{}, errors.Wrapf(err, "entry %s: prop %s", lines[0], fields[1])
			}
			if stage == Stage1 && models.FieldSpecs[fields[1]].Stage2 {
				return models.Conformer{}, &KnownFormatError{
					Identifier: lines[0],
					Reason:     fmt.Sprintf("second-stage property %s in first-stage entry", fields[1]),
				}
			}
			c.Properties.Set(fields[1], value)

		case "geom":
			p, err := parsePosition(fields[1:])
			if err != nil {
				return models.Conformer{}, errors.Wrapf(err, "entry %s: geom line", lines[0])
			}
			initPositions = append(initPositions, p)

		case "opt":
			p, err := parsePosition(fields[1:])
			if err != nil {
				return models.Conformer{}, errors.Wrapf(err, "entry %s: opt line", lines[0])
			}
			optPositions = append(optPositions, p)

		case "mode":
			if stage != Stage2 {
				return models.Conformer{}, &KnownFormatError{
					Identifier: lines[0],
					Reason:     "normal mode row in first-stage entry",
				}
			}
			row := make([]float64, 0, len(fields)-1)
			for _, f := range fields[1:] {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return models.Conformer{}, errors.Wrapf(err, "entry %s: mode line", lines[0])
				}
				row = append(row, v)
			}
			c.NormalModes = append(c.NormalModes, row)

		default:
			return models.Conformer{}, errors.Errorf("entry %s: unknown line %q", lines[0], line)
		}
	}

	if !haveTopology {
		return models.Conformer{}, errors.Errorf("entry %s: no topology line", lines[0])
	}
	if !haveErrors {
		return models.Conformer{}, errors.Errorf("entry %s: no errors line", lines[0])
	}

	atoms := len(c.BondTopologies[0].Atoms)
	if len(initPositions) > 0 {
		if len(initPositions) != atoms {
			return models.Conformer{}, &KnownFormatError{
				Identifier: lines[0],
				Reason:     fmt.Sprintf("%d geometry rows for %d atoms", len(initPositions), atoms),
			}
		}
		c.InitialGeometries = []models.Geometry{{AtomPositions: initPositions}}
	}
	if len(optPositions) > 0 {
		if len(optPositions) != atoms {
			return models.Conformer{}, &KnownFormatError{
				Identifier: lines[0],
				Reason:     fmt.Sprintf("%d optimized geometry rows for %d atoms", len(optPositions), atoms),
			}
		}
		c.OptimizedGeometry = &models.Geometry{AtomPositions: optPositions}
	}

	return c, nil
}

func applyErrorCodes(e *models.ErrorCodes, codes []int, stage Stage) error {
	switch {
	case stage == Stage1 && len(codes) == 4:
		e.Nstat1, e.NstatC, e.NstatT, e.Frequencies = codes[0], codes[1], codes[2], codes[3]
	case stage == Stage2 && len(codes) == 7:
		e.Nstat1, e.NstatC, e.NstatT, e.Frequencies = codes[0], codes[1], codes[2], codes[3]
		e.RotationalModes, e.AtomicAnalysis, e.Nsvg09 = codes[4], codes[5], codes[6]
	default:
		return fmt.Errorf("%d status codes in a %s entry", len(codes), stage)
	}
	return nil
}

func parseInts(fields []string) ([]int, error) {
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parsePosition(fields []string) (models.Position, error) {
	if len(fields) != 3 {
		return models.Position{}, fmt.Errorf("want 3 coordinates, got %d", len(fields))
	}
	var coords [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return models.Position{}, err
		}
		coords[i] = v
	}
	return models.Position{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}
