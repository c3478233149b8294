package tabstore

import (
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestColumnsFromStruct(t *testing.T) {
	type person struct {
		ID      uuid.UUID       `json:"id"`
		Name    string          `json:"name"`
		Age     int             `json:"age,omitempty"`
		Active  bool            `json:"active"`
		Joined  time.Time       `json:"joined"`
		Balance decimal.Decimal `json:"balance"`
	}

	t.Run("struct", func(t *testing.T) {
		cols, err := ColumnsFromStruct[person]()
		if err != nil {
			t.Fatalf("ColumnsFromStruct failed: %v", err)
		}
		want := []Column{
			{Name: "id", Kind: KindUUID},
			{Name: "name", Kind: KindText},
			{Name: "age", Kind: KindNumber},
			{Name: "active", Kind: KindBool},
			{Name: "joined", Kind: KindTime},
			{Name: "balance", Kind: KindDecimal},
		}
		if !slices.Equal(cols, want) {
			t.Errorf("columns = %v, want %v", cols, want)
		}
	})

	t.Run("pointer to struct", func(t *testing.T) {
		cols, err := ColumnsFromStruct[*person]()
		if err != nil {
			t.Fatalf("ColumnsFromStruct failed: %v", err)
		}
		if len(cols) != 6 {
			t.Errorf("got %d columns, want 6", len(cols))
		}
	})

	t.Run("non-struct", func(t *testing.T) {
		if _, err := ColumnsFromStruct[int](); err == nil {
			t.Error("ColumnsFromStruct accepted a non-struct type")
		}
	})

	t.Run("declares a table", func(t *testing.T) {
		table := memTable(t, nil)
		cols, _ := ColumnsFromStruct[person]()
		if err := table.Declare(cols...); err != nil {
			t.Fatalf("Declare failed: %v", err)
		}
		i := slices.IndexFunc(table.Columns(), func(c Column) bool { return c.Name == "balance" })
		if i < 0 || table.Columns()[i].Kind != KindDecimal {
			t.Error("balance column was not declared as decimal")
		}
	})
}
