// XML export support.

package format

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/jeffmaxey/datatap/tabstore"
)

// XML is the XML export codec: a root Table element with one row child
// per row and one child element per column, named after the column. Rows
// with tags carry them in a comma-joined tags attribute. Export only.
type XML struct{}

// Name implements [Codec].
func (XML) Name() string { return "xml" }

// Extensions implements [Codec].
func (XML) Extensions() []string { return []string{"xml"} }

// Encode implements [Codec].
func (XML) Encode(w io.Writer, snap *tabstore.Snapshot) error {
	enc := xml.NewEncoder(w)
	root := xml.StartElement{Name: xml.Name{Local: "Table"}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for i, row := range snap.Rows {
		rowStart := xml.StartElement{Name: xml.Name{Local: "row"}}
		if tags := snap.Tag(i); len(tags) > 0 {
			rowStart.Attr = []xml.Attr{{
				Name:  xml.Name{Local: "tags"},
				Value: strings.Join(tags, ","),
			}}
		}
		if err := enc.EncodeToken(rowStart); err != nil {
			return &ExportError{Row: i, Err: err}
		}
		for _, name := range snap.Columns {
			value, ok := row[name]
			if !ok {
				continue
			}
			el := xml.StartElement{Name: xml.Name{Local: name}}
			if err := enc.EncodeElement(tabstore.FormatValue(value), el); err != nil {
				return &ExportError{Row: i, Err: err}
			}
		}
		if err := enc.EncodeToken(rowStart.End()); err != nil {
			return &ExportError{Row: i, Err: err}
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return enc.Flush()
}
