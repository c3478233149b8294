// Jira table markup export support.

package format

import (
	"io"
	"strings"

	"github.com/jeffmaxey/datatap/tabstore"
)

// Jira is the Jira table markup export codec:
//
//	||heading 1||heading 2||heading 3||
//	|col A1|col A2|col A3|
//	|col B1|col B2|col B3|
//
// Empty cells render as a single space so the column is not collapsed.
// Export only.
type Jira struct{}

// Name implements [Codec].
func (Jira) Name() string { return "jira" }

// Extensions implements [Codec].
func (Jira) Extensions() []string { return []string{"jira"} }

// Encode implements [Codec].
func (Jira) Encode(w io.Writer, snap *tabstore.Snapshot) error {
	var lines []string
	if snap.Width() > 0 {
		lines = append(lines, jiraRow(snap.Columns, "||"))
	}
	for i := range snap.Rows {
		lines = append(lines, jiraRow(snap.StringRecord(i), "|"))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func jiraRow(cells []string, delimiter string) string {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		if cell == "" {
			cell = " "
		}
		padded[i] = cell
	}
	return delimiter + strings.Join(padded, delimiter) + delimiter
}
