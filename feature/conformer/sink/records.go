package sink

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"conformer-pipeline/feature/conformer/models"
)

// WriteRecords writes conformers as gzip-compressed JSON lines, one record
// per line.
func WriteRecords(w io.Writer, records []models.Conformer) error {
	gz := gzip.NewWriter(w)
	enc := json.NewEncoder(gz)
	for _, c := range records {
		if err := enc.Encode(c); err != nil {
			return errors.Wrapf(err, "encoding conformer %d", c.ConformerID)
		}
	}
	return errors.Wrap(gz.Close(), "closing record stream")
}

// ReadRecords reads a stream written by WriteRecords.
func ReadRecords(r io.Reader) ([]models.Conformer, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening record stream")
	}
	defer gz.Close()

	var out []models.Conformer
	dec := json.NewDecoder(bufio.NewReader(gz))
	for {
		var c models.Conformer
		if err := dec.Decode(&c); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "decoding conformer record")
		}
		out = append(out, c)
	}
	return out, nil
}
