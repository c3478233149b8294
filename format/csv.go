// Comma- and tab-separated value support.

package format

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jeffmaxey/datatap/tabstore"
)

// CSV is the comma-separated values codec. The header row comes first
// when the table declares columns; on import, rows shorter than the
// header are padded with empty strings to full width, and rows wider
// than the header fail with ImportError.
type CSV struct {
	// Comma overrides the delimiter; zero means ','.
	Comma rune
}

// Name implements [Codec].
func (CSV) Name() string { return "csv" }

// Extensions implements [Codec].
func (CSV) Extensions() []string { return []string{"csv"} }

func (c CSV) comma() rune {
	if c.Comma == 0 {
		return ','
	}
	return c.Comma
}

// Encode implements [Codec].
func (c CSV) Encode(w io.Writer, snap *tabstore.Snapshot) error {
	cw := csv.NewWriter(w)
	cw.Comma = c.comma()
	if snap.Width() > 0 {
		if err := cw.Write(snap.Columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	for i := range snap.Rows {
		if err := cw.Write(snap.StringRecord(i)); err != nil {
			return &ExportError{Row: i, Err: err}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode implements [Decoder]. The first record is the header; every
// value comes back as a plain string.
func (c CSV) Decode(r io.Reader) (*Document, error) {
	cr := csv.NewReader(r)
	cr.Comma = c.comma()
	cr.FieldsPerRecord = -1 // short rows are padded below

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	doc := &Document{Columns: header}
	for i := 0; ; i++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ImportError{Row: i, Err: err}
		}
		if len(record) > len(header) {
			return nil, &ImportError{
				Row: i,
				Err: fmt.Errorf("row has %d fields, header declares %d", len(record), len(header)),
			}
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		row := make(tabstore.Row, len(header))
		for j, name := range header {
			row[name] = record[j]
		}
		doc.Rows = append(doc.Rows, row)
	}
	return doc, nil
}

// Detect implements [Detector]. A sample counts as CSV when it parses and
// the first record has at least two fields; single-column text is too
// ambiguous to claim.
func (c CSV) Detect(data []byte) bool {
	sample := data
	if len(sample) > 1024 {
		// Cut at the last full line so a truncated record does not fail.
		if i := bytes.LastIndexByte(sample[:1024], '\n'); i > 0 {
			sample = sample[:i]
		} else {
			sample = sample[:1024]
		}
	}
	cr := csv.NewReader(strings.NewReader(string(sample)))
	cr.Comma = c.comma()
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil || len(records) == 0 {
		return false
	}
	return len(records[0]) > 1
}

// TSV is the tab-separated values codec, CSV with a tab delimiter.
type TSV struct{}

// Name implements [Codec].
func (TSV) Name() string { return "tsv" }

// Extensions implements [Codec].
func (TSV) Extensions() []string { return []string{"tsv"} }

// Encode implements [Codec].
func (TSV) Encode(w io.Writer, snap *tabstore.Snapshot) error {
	return CSV{Comma: '\t'}.Encode(w, snap)
}

// Decode implements [Decoder].
func (TSV) Decode(r io.Reader) (*Document, error) {
	return CSV{Comma: '\t'}.Decode(r)
}

// Detect implements [Detector].
func (TSV) Detect(data []byte) bool {
	return CSV{Comma: '\t'}.Detect(data)
}
