// File helpers selecting a codec by extension.

package format

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeffmaxey/datatap/tabstore"
)

// ExportFile serializes the snapshot to path, picking the codec from the
// file extension.
func ExportFile(reg *Registry, path string, snap *tabstore.Snapshot) error {
	codec, ok := reg.ByExtension(filepath.Ext(path))
	if !ok {
		return &UnsupportedFormatError{Format: filepath.Ext(path)}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return reg.Export(f, codec.Name(), snap)
}

// ImportFile decodes the file at path into the target table, picking the
// codec from the file extension. Returns the number of rows inserted.
func ImportFile(ctx context.Context, reg *Registry, path string, table *tabstore.Table, strict bool) (int, error) {
	codec, ok := reg.ByExtension(filepath.Ext(path))
	if !ok {
		return 0, &UnsupportedFormatError{Format: filepath.Ext(path)}
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return reg.Import(ctx, codec.Name(), f, table, strict)
}
