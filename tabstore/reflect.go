// Reflection-based schema declaration from Go struct types.

package tabstore

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

// ColumnsFromStruct extracts column definitions from a struct type using
// JSON Schema reflection, letting callers pre-declare a table's schema
// from an existing Go type instead of relying on schema-on-write.
//
// Column names follow the `json` tags; column order follows the JSON
// Schema property order, which matches field declaration order.
func ColumnsFromStruct[T any]() ([]Column, error) {
	t := reflect.TypeFor[T]()

	switch t.Kind() {
	case reflect.Pointer:
		if t.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
		}
	case reflect.Struct:
		// ok
	default:
		return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
	}

	structType := t
	if t.Kind() == reflect.Pointer {
		structType = t.Elem()
	}

	// Generate JSON Schema from the type with inline properties (no $ref).
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	schema := r.ReflectFromType(structType)

	var columns []Column
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key

		// Find the Go field for kind inference.
		kind := KindText
		for i := range structType.NumField() {
			field := structType.Field(i)
			if jsonFieldName(&field) == name {
				kind = goTypeToKind(field.Type)
				break
			}
		}

		columns = append(columns, Column{Name: name, Kind: kind})
	}

	return columns, nil
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	// Handle "name,omitempty" format.
	for i, c := range tag {
		if c == ',' {
			if i == 0 {
				return field.Name
			}
			return tag[:i]
		}
	}
	return tag
}

// goTypeToKind maps Go types to column kinds.
func goTypeToKind(t reflect.Type) Kind {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t {
	case reflect.TypeFor[time.Time]():
		return KindTime
	case reflect.TypeFor[uuid.UUID]():
		return KindUUID
	case reflect.TypeFor[decimal.Decimal]():
		return KindDecimal
	}

	switch t.Kind() {
	case reflect.String:
		return KindText
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	default:
		// Unsupported types default to text.
		return KindText
	}
}
