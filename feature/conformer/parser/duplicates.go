package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"

	"conformer-pipeline/feature/conformer/models"
)

// ParseDuplicates reads an equivalent-structure list. Each line holds two
// long identifiers, the kept structure first and the discarded one second.
// Every line yields a marker record for the discarded conformer pointing at
// the kept one; markers carry no topology or geometry and exist only to be
// merged into the discarded conformer's record.
func ParseDuplicates(r io.Reader) ([]models.Conformer, error) {
	var out []models.Conformer

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, errors.Errorf("equivalence list line %d: want 2 identifiers, got %d", line, len(fields))
		}
		kept, err := ParseLongIdentifier(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "equivalence list line %d", line)
		}
		discarded, err := ParseLongIdentifier(fields[1])
		if err != nil {
			return nil, errors.Wrapf(err, "equivalence list line %d", line)
		}
		out = append(out, models.Conformer{
			ConformerID:  discarded.ConformerID(),
			DuplicatedBy: kept.ConformerID(),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading equivalence list")
	}
	return out, nil
}
