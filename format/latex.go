// LaTeX export support: booktabs-style tables.

package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeffmaxey/datatap/tabstore"
)

// LaTeX is the LaTeX export codec. It emits a booktabs-style table with
// the first column left-aligned and all remaining columns right-aligned.
// The alignment is a heuristic, not type-driven; fine-tune after export.
// All TeX-reserved characters in cell text are escaped. Export only.
type LaTeX struct{}

// Name implements [Codec].
func (LaTeX) Name() string { return "latex" }

// Extensions implements [Codec].
func (LaTeX) Extensions() []string { return []string{"tex"} }

const latexTemplate = `%% Note: add \usepackage{booktabs} to your preamble
%%
\begin{table}[!htbp]
  \centering
  %s
  \begin{tabular}{%s}
    \toprule
%s
    %s
%s
    \bottomrule
  \end{tabular}
\end{table}
`

// texEscaper escapes TeX-reserved symbols in one pass, so replacement
// text is never re-escaped.
var texEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`^`, `\textasciicircum{}`,
	`_`, `\_`,
	`~`, `\textasciitilde{}`,
	`%`, `\%`,
)

// Encode implements [Codec].
func (LaTeX) Encode(w io.Writer, snap *tabstore.Snapshot) error {
	caption := "%"
	if snap.Name != "" {
		caption = fmt.Sprintf(`\caption{%s}`, texEscaper.Replace(snap.Name))
	}

	header := ""
	if snap.Width() > 0 {
		header = latexRow(snap.Columns)
	}

	var body []string
	for i := range snap.Rows {
		body = append(body, latexRow(snap.StringRecord(i)))
	}

	_, err := fmt.Fprintf(w, latexTemplate,
		caption,
		latexColspec(snap.Width()),
		header,
		latexMidrule(snap.Width()),
		strings.Join(body, "\n"))
	return err
}

// latexColspec builds the tabular column specification: first column
// left-aligned, the rest right-aligned.
func latexColspec(width int) string {
	if width == 0 {
		return ""
	}
	return "l" + strings.Repeat("r", width-1)
}

// latexMidrule builds the rule between header and body, composed of one
// cmidrule per column with trimming that depends on the column position.
func latexMidrule(width int) string {
	if width <= 1 {
		return `\midrule`
	}
	rules := make([]string, width)
	for col := 1; col <= width; col++ {
		trim := "lr"
		switch col {
		case 1:
			trim = "r"
		case width:
			trim = "l"
		}
		rules[col-1] = fmt.Sprintf(`\cmidrule(%s){%d-%d}`, trim, col, col)
	}
	return strings.Join(rules, " ")
}

func latexRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, cell := range cells {
		escaped[i] = texEscaper.Replace(cell)
	}
	return strings.Repeat(" ", 6) + strings.Join(escaped, " & ") + ` \\`
}
