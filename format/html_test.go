package format

import (
	"strings"
	"testing"

	"github.com/jeffmaxey/datatap/tabstore"
)

func TestHTML(t *testing.T) {
	t.Run("Encode", func(t *testing.T) {
		got := encode(t, HTML{}, peopleTable(t).Snapshot())
		want := "<table>\n" +
			"<thead>\n<tr><th>name</th><th>age</th></tr>\n</thead>\n" +
			"<tr><td>Jeff</td><td>26</td></tr>\n" +
			"<tr><td>Mickey</td><td>5</td></tr>\n" +
			"</table>\n"
		if got != want {
			t.Errorf("Encode = %q, want %q", got, want)
		}
	})

	t.Run("escaping", func(t *testing.T) {
		store, _ := tabstore.Open("mem:", nil)
		table, _ := store.Table("t")
		table.Insert(tabstore.Row{"v": `<script>"x"</script>`})

		got := encode(t, HTML{}, table.Snapshot())
		want := "<td>&lt;script&gt;&#34;x&#34;&lt;/script&gt;</td>"
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%s", want, got)
		}
	})
}
