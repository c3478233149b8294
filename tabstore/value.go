// Value kinds, normalization, and type coercion for dynamic columns.
//
// Values move through three representations:
//
//	caller value  → normalized value (Insert)   → persisted JSON
//	persisted JSON → decoded value (load)       → coerced value
//
// Normalization widens Go integers to int64 and floats to float64 so that
// filters compare reliably. Coercion runs when rows come back from disk,
// where JSON has erased the distinction between int64 and float64 and has
// turned times, UUIDs and decimals into strings; the declared column kind
// recovers the original representation.

package tabstore

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind represents the value kind of a table column.
type Kind string

const (
	// KindText stores string values.
	KindText Kind = "text"
	// KindNumber stores int64 or float64 values.
	KindNumber Kind = "number"
	// KindBool stores boolean values.
	KindBool Kind = "bool"
	// KindTime stores time.Time values, persisted as RFC 3339 strings.
	KindTime Kind = "time"
	// KindUUID stores uuid.UUID values, persisted as canonical strings.
	KindUUID Kind = "uuid"
	// KindDecimal stores decimal.Decimal values, persisted as strings.
	KindDecimal Kind = "decimal"
)

// KindOf infers the column kind for a normalized value.
// Nil has no kind of its own and defaults to text.
func KindOf(v any) Kind {
	switch v.(type) {
	case string:
		return KindText
	case int64, float64:
		return KindNumber
	case bool:
		return KindBool
	case time.Time:
		return KindTime
	case uuid.UUID:
		return KindUUID
	case decimal.Decimal:
		return KindDecimal
	default:
		return KindText
	}
}

// compatible reports whether a normalized value may be stored in a column
// of the given kind. Nil is compatible with every kind.
func compatible(kind Kind, v any) bool {
	if v == nil {
		return true
	}
	return KindOf(v) == kind
}

// normalizeValue converts a caller-supplied value into its canonical
// in-memory representation. Unsupported (non-scalar) values are rejected.
func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string, int64, float64, time.Time, uuid.UUID, decimal.Decimal:
		return t, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return nil, fmt.Errorf("uint64 value %d overflows int64", t)
		}
		return int64(t), nil
	case float32:
		return float64(t), nil
	case []byte:
		return string(t), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// coerceValue recovers the canonical representation of a value decoded
// from persisted JSON, based on the declared column kind.
func coerceValue(v any, kind Kind) any {
	if v == nil {
		return nil
	}
	switch kind {
	case KindText:
		return coerceToText(v)
	case KindNumber:
		return coerceToNumber(v)
	case KindBool:
		if b, ok := v.(bool); ok {
			return b
		}
		return v
	case KindTime:
		if s, ok := v.(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return ts
			}
		}
		return v
	case KindUUID:
		if s, ok := v.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				return id
			}
		}
		return v
	case KindDecimal:
		if s, ok := v.(string); ok {
			if d, err := decimal.NewFromString(s); err == nil {
				return d
			}
		}
		return v
	default:
		return v
	}
}

// coerceToText converts numeric values to their string representation.
func coerceToText(v any) any {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Whole numbers render without a decimal point.
		if t == math.Trunc(t) && !math.IsInf(t, 0) && !math.IsNaN(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return v
	}
}

// coerceToNumber stores whole floats as int64, fractional as float64.
// JSON decoding yields float64 for every number; this restores the
// integer representation Insert would have produced.
func coerceToNumber(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) && !math.IsNaN(t) {
			return int64(t)
		}
		return t
	case int64:
		return t
	case string:
		if i, err := strconv.ParseInt(t, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
		return t
	default:
		return v
	}
}

// valueEqual compares two normalized values for filter matching.
// Numeric values compare across int64/float64 representations.
func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	switch at := a.(type) {
	case time.Time:
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	case decimal.Decimal:
		bd, ok := b.(decimal.Decimal)
		return ok && at.Equal(bd)
	case uuid.UUID:
		bu, ok := b.(uuid.UUID)
		return ok && at == bu
	default:
		return a == b
	}
}

// compareValues orders two values of the same column for primary-key
// sorting. Nil sorts first; mismatched kinds fall back to string order.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if ad, ok := a.(decimal.Decimal); ok {
		if bd, ok := b.(decimal.Decimal); ok {
			return ad.Cmp(bd)
		}
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// FormatValue renders a value in its canonical string form: RFC 3339 for
// times, canonical form for UUIDs, plain decimal strings for decimals.
// Nil renders as the empty string.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case uuid.UUID:
		return t.String()
	case decimal.Decimal:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
