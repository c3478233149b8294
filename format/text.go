// Plain text export support for terminals.

package format

import (
	"io"
	"strings"

	"github.com/jeffmaxey/datatap/tabstore"
)

// Text is the plain text export codec: columns padded to their widest
// cell and separated by two spaces, header first. Number and decimal
// columns are right-aligned, everything else left-aligned. Export only.
type Text struct{}

// Name implements [Codec].
func (Text) Name() string { return "text" }

// Extensions implements [Codec].
func (Text) Extensions() []string { return []string{"txt"} }

// Encode implements [Codec].
func (Text) Encode(w io.Writer, snap *tabstore.Snapshot) error {
	records := make([][]string, 0, len(snap.Rows)+1)
	if snap.Width() > 0 {
		records = append(records, snap.Columns)
	}
	for i := range snap.Rows {
		records = append(records, snap.StringRecord(i))
	}
	if len(records) == 0 {
		return nil
	}

	widths := make([]int, snap.Width())
	for _, record := range records {
		for j, cell := range record {
			if len(cell) > widths[j] {
				widths[j] = len(cell)
			}
		}
	}

	rightAlign := make([]bool, snap.Width())
	for j, kind := range snap.Kinds {
		rightAlign[j] = kind == tabstore.KindNumber || kind == tabstore.KindDecimal
	}

	var sb strings.Builder
	for _, record := range records {
		for j, cell := range record {
			if j > 0 {
				sb.WriteString("  ")
			}
			pad := strings.Repeat(" ", widths[j]-len(cell))
			if rightAlign[j] {
				sb.WriteString(pad)
				sb.WriteString(cell)
			} else {
				sb.WriteString(cell)
				// No trailing spaces on the last column.
				if j < len(record)-1 {
					sb.WriteString(pad)
				}
			}
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
