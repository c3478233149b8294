// JSON support: an array of row objects.

package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jeffmaxey/datatap/tabstore"
	"github.com/shopspring/decimal"
)

// JSON is the JSON codec. A table serializes as an array of row objects,
// keys in declared-column order. Decimal, UUID and date/time values are
// rendered via their canonical string form; import performs no type
// recovery, so they come back as plain strings. This asymmetry is
// deliberate and documented.
type JSON struct{}

// Name implements [Codec].
func (JSON) Name() string { return "json" }

// Extensions implements [Codec].
func (JSON) Extensions() []string { return []string{"json", "jsn"} }

// Encode implements [Codec].
func (JSON) Encode(w io.Writer, snap *tabstore.Snapshot) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range snap.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		first := true
		for _, name := range snap.Columns {
			value, ok := row[name]
			if !ok {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			key, err := json.Marshal(name)
			if err != nil {
				return &ExportError{Row: i, Err: err}
			}
			buf.Write(key)
			buf.WriteByte(':')
			data, err := jsonValue(value)
			if err != nil {
				return &ExportError{Row: i, Err: err}
			}
			buf.Write(data)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	_, err := w.Write(buf.Bytes())
	return err
}

// jsonValue marshals a scalar, coercing non-JSON-native types to their
// canonical string form.
func jsonValue(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil, bool, string, int64, float64:
		return json.Marshal(t)
	case time.Time:
		return json.Marshal(t.Format(time.RFC3339Nano))
	case uuid.UUID:
		return json.Marshal(t.String())
	case decimal.Decimal:
		return json.Marshal(t.String())
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// Decode implements [Decoder].
func (JSON) Decode(r io.Reader) (*Document, error) {
	var raw []map[string]any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON array: %w", err)
	}
	return documentFromMaps(raw), nil
}

// Detect implements [Detector].
func (JSON) Detect(data []byte) bool {
	var v any
	return json.Unmarshal(data, &v) == nil
}

// documentFromMaps assembles a Document from decoded row objects,
// collecting columns in first-seen order (alphabetical within one row,
// since decoded objects carry no order).
func documentFromMaps(raw []map[string]any) *Document {
	doc := &Document{}
	seen := make(map[string]bool)
	for _, obj := range raw {
		row := make(tabstore.Row, len(obj))
		for key, value := range obj {
			row[key] = value
		}
		doc.Rows = append(doc.Rows, row)
		for _, key := range sortedKeys(obj) {
			if !seen[key] {
				seen[key] = true
				doc.Columns = append(doc.Columns, key)
			}
		}
	}
	return doc
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
