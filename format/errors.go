// Structured error types for the format layer.

package format

import "fmt"

// UnsupportedFormatError is returned when no codec is registered under
// the requested format name, or the codec lacks the requested capability.
type UnsupportedFormatError struct {
	Format string
	Op     string // "export" or "import"
}

func (e *UnsupportedFormatError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("format %q does not support %s", e.Format, e.Op)
	}
	return fmt.Sprintf("unsupported format %q", e.Format)
}

// ExportError wraps a codec-level failure during export with the format
// name and, when determinable, the failing row index (-1 otherwise).
type ExportError struct {
	Format string
	Row    int
	Err    error
}

func (e *ExportError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("export %s: row %d: %v", e.Format, e.Row, e.Err)
	}
	return fmt.Sprintf("export %s: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ImportError wraps a codec-level parse failure during import. A parse
// failure aborts the whole import before any row is inserted.
type ImportError struct {
	Format string
	Row    int
	Err    error
}

func (e *ImportError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("import %s: row %d: %v", e.Format, e.Row, e.Err)
	}
	return fmt.Sprintf("import %s: %v", e.Format, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
