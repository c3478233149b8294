// Structured error types for the store layer.

package tabstore

import (
	"errors"
	"fmt"
)

// ErrRollback aborts a transaction or savepoint without reporting an error
// to the caller of [Store.Transaction].
var ErrRollback = errors.New("rollback requested")

// UnknownTableError is returned when a table is referenced that does not
// exist and auto-creation is disabled.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table %q", e.Table)
}

// SchemaError is returned when a value conflicts with a declared column
// kind in strict mode, or when a value is not a supported scalar.
type SchemaError struct {
	Table  string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("table %q: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("table %q, column %q: %s", e.Table, e.Column, e.Reason)
}

// InvalidFilterError is returned in strict mode when a filter references a
// column that is not declared on the table.
type InvalidFilterError struct {
	Table  string
	Column string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("table %q: filter references unknown column %q", e.Table, e.Column)
}
