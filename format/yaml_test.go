package format

import (
	"strings"
	"testing"
)

func TestYAML(t *testing.T) {
	t.Run("Encode", func(t *testing.T) {
		got := encode(t, YAML{}, peopleTable(t).Snapshot())
		want := "- name: Jeff\n  age: 26\n- name: Mickey\n  age: 5\n"
		if got != want {
			t.Errorf("Encode = %q, want %q", got, want)
		}
	})

	t.Run("Decode", func(t *testing.T) {
		t.Run("sequence of mappings", func(t *testing.T) {
			doc, err := YAML{}.Decode(strings.NewReader("- name: Jeff\n  age: 26\n"))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(doc.Rows) != 1 {
				t.Fatalf("got %d rows, want 1", len(doc.Rows))
			}
			if doc.Rows[0]["age"] != 26 {
				t.Errorf("age = %v (%T), want int 26", doc.Rows[0]["age"], doc.Rows[0]["age"])
			}
		})

		t.Run("empty input", func(t *testing.T) {
			doc, err := YAML{}.Decode(strings.NewReader(""))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(doc.Rows) != 0 {
				t.Errorf("got %d rows, want 0", len(doc.Rows))
			}
		})

		t.Run("malformed", func(t *testing.T) {
			if _, err := (YAML{}).Decode(strings.NewReader("- {unclosed\n")); err == nil {
				t.Error("Decode accepted malformed YAML")
			}
		})
	})

	t.Run("round trip", func(t *testing.T) {
		table := peopleTable(t)
		out := encode(t, YAML{}, table.Snapshot())
		doc, err := YAML{}.Decode(strings.NewReader(out))
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if len(doc.Rows) != table.Len() {
			t.Errorf("round trip lost rows: %d != %d", len(doc.Rows), table.Len())
		}
	})

	t.Run("Detect", func(t *testing.T) {
		data := []struct {
			name string
			in   string
			want bool
		}{
			{"sequence", "- a: 1\n", true},
			{"mapping", "a: 1\n", true},
			{"bare scalar", "hello\n", false},
		}
		for _, line := range data {
			t.Run(line.name, func(t *testing.T) {
				if got := (YAML{}).Detect([]byte(line.in)); got != line.want {
					t.Errorf("Detect(%q) = %t, want %t", line.in, got, line.want)
				}
			})
		}
	})
}
