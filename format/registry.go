package format

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/jeffmaxey/datatap/tabstore"
)

// Codec serializes a table snapshot to one external representation.
// Codecs are stateless; they operate on the snapshot passed by the
// caller and hold no table state.
type Codec interface {
	// Name is the format name codecs register under, e.g. "csv".
	Name() string
	// Extensions lists recognized file extensions without the dot.
	Extensions() []string
	// Encode writes the snapshot to w.
	Encode(w io.Writer, snap *tabstore.Snapshot) error
}

// Decoder is implemented by codecs that can read their representation
// back into rows.
type Decoder interface {
	Decode(r io.Reader) (*Document, error)
}

// Detector is implemented by codecs that can probe whether a byte sample
// looks like their format. Detect never fails; a parse error is a
// negative result.
type Detector interface {
	Detect(data []byte) bool
}

// Document is a decoded payload: column names in first-seen order plus
// the decoded rows. Values carry whatever scalar types the format
// preserves; formats without native types (CSV) yield plain strings.
type Document struct {
	Columns []string
	Rows    []tabstore.Row
}

// Registry maps format names to codecs.
//
// Re-registering a name replaces the previous codec (last-write-wins),
// so host applications can override built-ins.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
	order  []string // registration order, drives Sniff priority
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

// Builtin returns a registry with every built-in codec registered.
// Registration order doubles as Sniff priority: formats with reliable
// detection come before CSV, which matches almost anything.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(JSON{})
	r.Register(YAML{})
	r.Register(CSV{})
	r.Register(TSV{})
	r.Register(XML{})
	r.Register(LaTeX{})
	r.Register(HTML{})
	r.Register(Jira{})
	r.Register(Text{})
	return r
}

// Register adds the codec under its format name, replacing any previous
// registration of the same name.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.Name()
	if _, ok := r.codecs[name]; !ok {
		r.order = append(r.order, name)
	}
	r.codecs[name] = c
}

// Lookup returns the codec registered under name.
func (r *Registry) Lookup(name string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[name]
	return c, ok
}

// ByExtension returns the codec recognizing the file extension, with or
// without a leading dot.
func (r *Registry) ByExtension(ext string) (Codec, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if slices.Contains(r.codecs[name].Extensions(), ext) {
			return r.codecs[name], true
		}
	}
	return nil, false
}

// Names returns the registered format names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Export serializes the snapshot with the named codec. Codec failures are
// wrapped in ExportError; the table behind the snapshot is never touched.
func (r *Registry) Export(w io.Writer, name string, snap *tabstore.Snapshot) error {
	codec, ok := r.Lookup(name)
	if !ok {
		return &UnsupportedFormatError{Format: name}
	}
	if err := codec.Encode(w, snap); err != nil {
		var ee *ExportError
		if errors.As(err, &ee) {
			ee.Format = name
			return ee
		}
		return &ExportError{Format: name, Row: -1, Err: err}
	}
	return nil
}

// Import decodes the stream with the named codec and inserts the rows
// into the target table.
//
// The whole stream is decoded before any insert: a row that fails to
// parse aborts the import with ImportError and no partial commit. This is
// deliberately not a best-effort per-row skip. Cancellation during the
// insert phase is different: rows inserted before the context fired
// remain (at-least-partial-effect, see tabstore.Table.ImportRows).
//
// Strict import keeps only columns already declared on the target and
// silently drops the rest; non-strict import extends the schema.
// Returns the number of rows inserted.
func (r *Registry) Import(ctx context.Context, name string, rd io.Reader, table *tabstore.Table, strict bool) (int, error) {
	codec, ok := r.Lookup(name)
	if !ok {
		return 0, &UnsupportedFormatError{Format: name}
	}
	dec, ok := codec.(Decoder)
	if !ok {
		return 0, &UnsupportedFormatError{Format: name, Op: "import"}
	}
	doc, err := dec.Decode(rd)
	if err != nil {
		var ie *ImportError
		if errors.As(err, &ie) {
			ie.Format = name
			return 0, ie
		}
		return 0, &ImportError{Format: name, Row: -1, Err: err}
	}
	// Store-layer and context errors propagate unmodified.
	return table.ImportRows(ctx, doc.Rows, strict)
}

// Sniff probes registered Detectors against a byte sample and returns the
// first matching format name in registration order. Never fails.
func (r *Registry) Sniff(data []byte) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if d, ok := r.codecs[name].(Detector); ok && d.Detect(data) {
			return name, true
		}
	}
	return "", false
}
