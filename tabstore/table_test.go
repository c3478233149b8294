package tabstore

import (
	"context"
	"errors"
	"slices"
	"testing"
)

// memTable creates a memory-backed table for tests.
func memTable(t *testing.T, opts *Options) *Table {
	t.Helper()
	store, err := Open("mem:", opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	table, err := store.Table("test")
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	return table
}

func collect(t *testing.T, table *Table, filter Row) []Row {
	t.Helper()
	seq, err := table.Find(filter)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	return slices.Collect(seq)
}

func TestTable(t *testing.T) {
	t.Run("Insert", func(t *testing.T) {
		t.Run("insertion order", func(t *testing.T) {
			table := memTable(t, nil)

			inserted := []Row{
				{"name": "Jeff", "age": 26},
				{"name": "Mickey", "age": 5},
				{"name": "Alexis", "age": 2},
			}
			for _, row := range inserted {
				if err := table.Insert(row); err != nil {
					t.Fatalf("Insert failed: %v", err)
				}
			}

			got := collect(t, table, nil)
			if len(got) != 3 {
				t.Fatalf("Find returned %d rows, want 3", len(got))
			}
			for i, row := range got {
				if row["name"] != inserted[i]["name"] {
					t.Errorf("row %d name = %v, want %v", i, row["name"], inserted[i]["name"])
				}
				if row["age"] != int64(inserted[i]["age"].(int)) {
					t.Errorf("row %d age = %v, want %v", i, row["age"], inserted[i]["age"])
				}
			}
		})

		t.Run("schema extension happens exactly once", func(t *testing.T) {
			table := memTable(t, nil)

			table.Insert(Row{"name": "Jeff"})
			table.Insert(Row{"name": "Mickey", "gender": "male"})
			table.Insert(Row{"name": "Alexis"})

			want := []string{"name", "gender"}
			if got := table.ColumnNames(); !slices.Equal(got, want) {
				t.Errorf("ColumnNames = %v, want %v", got, want)
			}

			// Rows without the new column show it as absent.
			got := collect(t, table, nil)
			if _, ok := got[0]["gender"]; ok {
				t.Error("row 0 unexpectedly carries gender")
			}
			if got[1]["gender"] != "male" {
				t.Errorf("row 1 gender = %v, want male", got[1]["gender"])
			}
		})

		t.Run("returns clones", func(t *testing.T) {
			table := memTable(t, nil)
			table.Insert(Row{"name": "Jeff"})

			for row := range table.All() {
				row["name"] = "Modified"
			}
			got := collect(t, table, nil)
			if got[0]["name"] != "Jeff" {
				t.Error("All() returned a reference instead of a clone")
			}
		})

		t.Run("errors", func(t *testing.T) {
			t.Run("non-scalar value", func(t *testing.T) {
				table := memTable(t, nil)
				err := table.Insert(Row{"blob": map[string]int{"a": 1}})
				var se *SchemaError
				if !errors.As(err, &se) {
					t.Fatalf("Insert error = %v, want SchemaError", err)
				}
				if se.Column != "blob" {
					t.Errorf("SchemaError.Column = %q, want blob", se.Column)
				}
			})

			t.Run("failed insert leaves schema unchanged", func(t *testing.T) {
				table := memTable(t, nil)
				table.Insert(Row{"name": "Jeff"})

				// A valid new column next to a bad value must not be
				// declared when the row is rejected. New keys are
				// visited in sorted order, so "age" is seen before the
				// bad "blob" value.
				err := table.Insert(Row{"age": 26, "blob": make(chan int)})
				var se *SchemaError
				if !errors.As(err, &se) {
					t.Fatalf("Insert error = %v, want SchemaError", err)
				}
				if got := table.ColumnNames(); !slices.Equal(got, []string{"name"}) {
					t.Errorf("ColumnNames = %v, want [name]", got)
				}
				if table.Len() != 1 {
					t.Errorf("Len = %d, want 1", table.Len())
				}
			})

			t.Run("strict kind conflict", func(t *testing.T) {
				table := memTable(t, &Options{AutoCreate: true, Strict: true})
				table.Insert(Row{"age": 26})

				err := table.Insert(Row{"age": "twenty"})
				var se *SchemaError
				if !errors.As(err, &se) {
					t.Fatalf("Insert error = %v, want SchemaError", err)
				}
				if se.Table != "test" || se.Column != "age" {
					t.Errorf("SchemaError = %+v, want table test column age", se)
				}
			})

			t.Run("non-strict kind conflict allowed", func(t *testing.T) {
				table := memTable(t, nil)
				table.Insert(Row{"age": 26})
				if err := table.Insert(Row{"age": "twenty"}); err != nil {
					t.Fatalf("Insert failed: %v", err)
				}
			})
		})
	})

	t.Run("Update", func(t *testing.T) {
		setup := func(t *testing.T) *Table {
			table := memTable(t, nil)
			table.Insert(Row{"name": "Jeff", "age": 26})
			table.Insert(Row{"name": "Mickey", "age": 5})
			return table
		}

		t.Run("filtered update", func(t *testing.T) {
			table := setup(t)
			n, err := table.Update(Row{"name": "Jeff"}, Row{"gender": "male"})
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			if n != 1 {
				t.Errorf("Update count = %d, want 1", n)
			}
			row, _ := table.FindOne(Row{"name": "Jeff"})
			if row["gender"] != "male" {
				t.Errorf("gender = %v, want male", row["gender"])
			}
		})

		t.Run("nil filter updates all", func(t *testing.T) {
			table := setup(t)
			n, err := table.Update(nil, Row{"seen": true})
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			if n != 2 {
				t.Errorf("Update count = %d, want 2", n)
			}
		})

		t.Run("patch extends schema", func(t *testing.T) {
			table := setup(t)
			table.Update(Row{"name": "Jeff"}, Row{"favorite": "go"})
			if !slices.Contains(table.ColumnNames(), "favorite") {
				t.Error("patch column was not declared")
			}
		})

		t.Run("no match", func(t *testing.T) {
			table := setup(t)
			n, err := table.Update(Row{"name": "Nobody"}, Row{"age": 1})
			if err != nil || n != 0 {
				t.Errorf("Update = (%d, %v), want (0, nil)", n, err)
			}
		})

		t.Run("no-match patch column survives reopen", func(t *testing.T) {
			dir := t.TempDir()
			store, _ := Open(dir, nil)
			table, _ := store.Table("t")
			table.Insert(Row{"name": "Jeff"})

			// The patch declares a column even when nothing matches; the
			// header on disk has to follow.
			n, err := table.Update(Row{"name": "Nobody"}, Row{"extra": "x"})
			if err != nil || n != 0 {
				t.Fatalf("Update = (%d, %v), want (0, nil)", n, err)
			}

			store2, _ := Open(dir, nil)
			table2, _ := store2.Table("t")
			want := []string{"name", "extra"}
			if got := table2.ColumnNames(); !slices.Equal(got, want) {
				t.Errorf("ColumnNames after reopen = %v, want %v", got, want)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("filtered delete", func(t *testing.T) {
			table := memTable(t, nil)
			table.Insert(Row{"name": "Jeff", "age": 26})
			table.Insert(Row{"name": "Mickey", "age": 5})
			table.Insert(Row{"name": "Alexis", "age": 5})

			n, err := table.Delete(Row{"age": 5})
			if err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if n != 2 {
				t.Errorf("Delete count = %d, want 2", n)
			}
			if table.Len() != 1 {
				t.Errorf("Len = %d, want 1", table.Len())
			}
		})

		t.Run("no match", func(t *testing.T) {
			table := memTable(t, nil)
			table.Insert(Row{"name": "Jeff"})
			n, err := table.Delete(Row{"name": "Nobody"})
			if err != nil || n != 0 {
				t.Errorf("Delete = (%d, %v), want (0, nil)", n, err)
			}
		})
	})

	t.Run("Find", func(t *testing.T) {
		t.Run("conjunctive filter", func(t *testing.T) {
			table := memTable(t, nil)
			table.Insert(Row{"name": "Jeff", "age": 26, "gender": "male"})
			table.Insert(Row{"name": "Mickey", "age": 5, "gender": "male"})

			got := collect(t, table, Row{"gender": "male", "age": 5})
			if len(got) != 1 || got[0]["name"] != "Mickey" {
				t.Errorf("Find = %v, want just Mickey", got)
			}
		})

		t.Run("numeric filter matches across representations", func(t *testing.T) {
			table := memTable(t, nil)
			table.Insert(Row{"price": 703})

			got := collect(t, table, Row{"price": float64(703)})
			if len(got) != 1 {
				t.Errorf("Find returned %d rows, want 1", len(got))
			}
		})

		t.Run("primary key ordering", func(t *testing.T) {
			table := memTable(t, nil)
			table.Insert(Row{"id": 3, "name": "c"})
			table.Insert(Row{"id": 1, "name": "a"})
			table.Insert(Row{"id": 2, "name": "b"})
			if err := table.SetPrimaryKey("id"); err != nil {
				t.Fatalf("SetPrimaryKey failed: %v", err)
			}

			got := collect(t, table, nil)
			names := []string{}
			for _, row := range got {
				names = append(names, row["name"].(string))
			}
			if !slices.Equal(names, []string{"a", "b", "c"}) {
				t.Errorf("order = %v, want [a b c]", names)
			}
		})

		t.Run("snapshot isolation", func(t *testing.T) {
			table := memTable(t, nil)
			table.Insert(Row{"n": 1})
			seq, err := table.Find(nil)
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			// A write after Find must not show up in the iteration.
			table.Insert(Row{"n": 2})
			if got := len(slices.Collect(seq)); got != 1 {
				t.Errorf("iteration saw %d rows, want 1", got)
			}
		})

		t.Run("errors", func(t *testing.T) {
			t.Run("strict unknown filter column", func(t *testing.T) {
				table := memTable(t, &Options{AutoCreate: true, Strict: true})
				table.Insert(Row{"name": "Jeff"})

				_, err := table.Find(Row{"nope": 1})
				var fe *InvalidFilterError
				if !errors.As(err, &fe) {
					t.Fatalf("Find error = %v, want InvalidFilterError", err)
				}
				if fe.Column != "nope" {
					t.Errorf("InvalidFilterError.Column = %q, want nope", fe.Column)
				}
			})

			t.Run("non-strict unknown filter column matches nothing", func(t *testing.T) {
				table := memTable(t, nil)
				table.Insert(Row{"name": "Jeff"})
				if got := collect(t, table, Row{"nope": 1}); len(got) != 0 {
					t.Errorf("Find = %v, want empty", got)
				}
			})
		})
	})

	t.Run("FindOne", func(t *testing.T) {
		table := memTable(t, nil)
		table.Insert(Row{"name": "Jeff"})

		row, err := table.FindOne(Row{"name": "Jeff"})
		if err != nil || row == nil {
			t.Fatalf("FindOne = (%v, %v), want a row", row, err)
		}
		row, err = table.FindOne(Row{"name": "Nobody"})
		if err != nil || row != nil {
			t.Errorf("FindOne = (%v, %v), want (nil, nil)", row, err)
		}
	})

	t.Run("SetPrimaryKey", func(t *testing.T) {
		t.Run("undeclared column", func(t *testing.T) {
			table := memTable(t, nil)
			err := table.SetPrimaryKey("id")
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Errorf("SetPrimaryKey error = %v, want SchemaError", err)
			}
		})
	})

	t.Run("Declare", func(t *testing.T) {
		t.Run("pre-declared order", func(t *testing.T) {
			table := memTable(t, nil)
			if err := table.Declare(
				Column{Name: "id", Kind: KindNumber},
				Column{Name: "name", Kind: KindText},
			); err != nil {
				t.Fatalf("Declare failed: %v", err)
			}
			table.Insert(Row{"name": "a", "id": 1})

			want := []string{"id", "name"}
			if got := table.ColumnNames(); !slices.Equal(got, want) {
				t.Errorf("ColumnNames = %v, want %v", got, want)
			}
		})

		t.Run("strict redeclaration conflict", func(t *testing.T) {
			table := memTable(t, &Options{AutoCreate: true, Strict: true})
			table.Declare(Column{Name: "id", Kind: KindNumber})
			err := table.Declare(Column{Name: "id", Kind: KindText})
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Errorf("Declare error = %v, want SchemaError", err)
			}
		})
	})

	t.Run("Tags", func(t *testing.T) {
		table := memTable(t, nil)
		table.InsertTagged(Row{"name": "Jeff"}, "staff")
		table.InsertTagged(Row{"name": "Mickey"})

		got := slices.Collect(table.Filter("staff"))
		if len(got) != 1 || got[0]["name"] != "Jeff" {
			t.Errorf("Filter(staff) = %v, want just Jeff", got)
		}

		snap := table.Snapshot()
		if !slices.Equal(snap.Tags[0], []string{"staff"}) {
			t.Errorf("snapshot tags = %v, want [staff]", snap.Tags[0])
		}
	})

	t.Run("ImportRows", func(t *testing.T) {
		t.Run("strict drops undeclared columns", func(t *testing.T) {
			table := memTable(t, nil)
			table.Declare(Column{Name: "a", Kind: KindText}, Column{Name: "b", Kind: KindText})

			n, err := table.ImportRows(t.Context(), []Row{{"a": "1", "b": "2", "c": "3"}}, true)
			if err != nil {
				t.Fatalf("ImportRows failed: %v", err)
			}
			if n != 1 {
				t.Errorf("count = %d, want 1", n)
			}
			if slices.Contains(table.ColumnNames(), "c") {
				t.Error("strict import declared column c")
			}
			row, _ := table.FindOne(nil)
			if _, ok := row["c"]; ok {
				t.Error("strict import kept column c")
			}
		})

		t.Run("non-strict extends schema", func(t *testing.T) {
			table := memTable(t, nil)
			table.Declare(Column{Name: "a", Kind: KindText}, Column{Name: "b", Kind: KindText})

			if _, err := table.ImportRows(t.Context(), []Row{{"a": "1", "c": "3"}}, false); err != nil {
				t.Fatalf("ImportRows failed: %v", err)
			}
			if !slices.Contains(table.ColumnNames(), "c") {
				t.Error("non-strict import did not declare column c")
			}
		})

		t.Run("cancellation keeps inserted rows", func(t *testing.T) {
			table := memTable(t, nil)
			ctx, cancel := context.WithCancel(t.Context())
			cancel()

			n, err := table.ImportRows(ctx, []Row{{"a": "1"}, {"a": "2"}}, false)
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("ImportRows error = %v, want context.Canceled", err)
			}
			if n != 0 || table.Len() != 0 {
				t.Errorf("pre-cancelled import inserted %d rows", table.Len())
			}
		})
	})
}
