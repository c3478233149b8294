// YAML support, safe load/dump semantics only.

package format

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jeffmaxey/datatap/tabstore"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// YAML is the YAML codec. A table serializes as a block-style sequence of
// mappings, keys in declared-column order. Like JSON, decimal, UUID and
// date/time values export as canonical strings with no type recovery on
// import (yaml.v3 does resolve !!timestamp scalars, which round-trips
// times that use the YAML timestamp layout). Only plain data is ever
// constructed on load.
type YAML struct{}

// Name implements [Codec].
func (YAML) Name() string { return "yaml" }

// Extensions implements [Codec].
func (YAML) Extensions() []string { return []string{"yaml", "yml"} }

// Encode implements [Codec].
func (YAML) Encode(w io.Writer, snap *tabstore.Snapshot) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for i, row := range snap.Rows {
		mapping := &yaml.Node{Kind: yaml.MappingNode}
		for _, name := range snap.Columns {
			value, ok := row[name]
			if !ok {
				continue
			}
			key := &yaml.Node{}
			key.SetString(name)
			val, err := yamlValue(value)
			if err != nil {
				return &ExportError{Row: i, Err: err}
			}
			mapping.Content = append(mapping.Content, key, val)
		}
		seq.Content = append(seq.Content, mapping)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return err
	}
	return enc.Close()
}

// yamlValue builds a scalar node, coercing non-native types to their
// canonical string form.
func yamlValue(v any) (*yaml.Node, error) {
	n := &yaml.Node{}
	switch t := v.(type) {
	case nil, bool, string, int64, float64:
		if err := n.Encode(t); err != nil {
			return nil, err
		}
	case time.Time:
		n.SetString(t.Format(time.RFC3339Nano))
	case uuid.UUID:
		n.SetString(t.String())
	case decimal.Decimal:
		n.SetString(t.String())
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
	return n, nil
}

// Decode implements [Decoder].
func (YAML) Decode(r io.Reader) (*Document, error) {
	var raw []map[string]any
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("failed to parse YAML sequence: %w", err)
	}
	return documentFromMaps(raw), nil
}

// Detect implements [Detector]. Only sequences and mappings count; a bare
// scalar parses as YAML but is not tabular data.
func (YAML) Detect(data []byte) bool {
	var v any
	if yaml.Unmarshal(data, &v) != nil {
		return false
	}
	switch v.(type) {
	case []any, map[string]any:
		return true
	default:
		return false
	}
}
