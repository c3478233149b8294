// HTML export support.

package format

import (
	"fmt"
	"html"
	"io"

	"github.com/jeffmaxey/datatap/tabstore"
)

// HTML is the HTML export codec: a table element with a thead of th cells
// when columns are declared, then one tr of td cells per row. Cell text
// is HTML-escaped. Export only.
type HTML struct{}

// Name implements [Codec].
func (HTML) Name() string { return "html" }

// Extensions implements [Codec].
func (HTML) Extensions() []string { return []string{"html", "htm"} }

// Encode implements [Codec].
func (HTML) Encode(w io.Writer, snap *tabstore.Snapshot) error {
	if _, err := io.WriteString(w, "<table>\n"); err != nil {
		return err
	}
	if snap.Width() > 0 {
		if _, err := io.WriteString(w, "<thead>\n<tr>"); err != nil {
			return err
		}
		for _, name := range snap.Columns {
			if _, err := fmt.Fprintf(w, "<th>%s</th>", html.EscapeString(name)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</tr>\n</thead>\n"); err != nil {
			return err
		}
	}
	for i := range snap.Rows {
		if _, err := io.WriteString(w, "<tr>"); err != nil {
			return &ExportError{Row: i, Err: err}
		}
		for _, cell := range snap.StringRecord(i) {
			if _, err := fmt.Fprintf(w, "<td>%s</td>", html.EscapeString(cell)); err != nil {
				return &ExportError{Row: i, Err: err}
			}
		}
		if _, err := io.WriteString(w, "</tr>\n"); err != nil {
			return &ExportError{Row: i, Err: err}
		}
	}
	_, err := io.WriteString(w, "</table>\n")
	return err
}
