// JSONL persistence for file-backed tables.
//
// One file per table: line 1 is the schema header, every following line
// is one row as a JSON object. Row tags, when present, are carried in a
// reserved "_tags" key that is stripped on load. Plain inserts append a
// single line; schema extensions, updates, deletes and imports rewrite
// the file.

package tabstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// tagsKey is reserved in persisted row objects and never used as a
// column name.
const tagsKey = "_tags"

type tableFile struct {
	path string
}

func newTableFile(dir, name string) *tableFile {
	return &tableFile{path: filepath.Join(dir, name+".jsonl")}
}

// load reads the schema header and all rows. A missing file is an empty
// table.
func (f *tableFile) load() (Schema, []Row, [][]string, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Schema{}, nil, nil, nil
		}
		return Schema{}, nil, nil, fmt.Errorf("failed to open table file %s: %w", f.path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	var schema Schema
	var rows []Row
	var tags [][]string
	first := true
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err != nil {
				return Schema{}, nil, nil, fmt.Errorf("failed to parse schema header in %s: %w", f.path, err)
			}
			if err := header.Validate(); err != nil {
				return Schema{}, nil, nil, fmt.Errorf("invalid schema header in %s: %w", f.path, err)
			}
			schema = schemaFromHeader(&header)
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal(line, &raw); err != nil {
			return Schema{}, nil, nil, fmt.Errorf("failed to unmarshal row in %s: %w", f.path, err)
		}
		row := make(Row, len(raw))
		var rowTags []string
		for key, value := range raw {
			if key == tagsKey {
				rowTags = decodeTags(value)
				continue
			}
			kind, ok := schema.KindOf(key)
			if !ok {
				// Row carries a column the header does not declare;
				// recover by extending the schema like Insert would.
				kind = kindForNew(value)
				schema.add(Column{Name: key, Kind: kind})
			}
			row[key] = coerceValue(value, kind)
		}
		rows = append(rows, row)
		tags = append(tags, rowTags)
	}
	if err := scanner.Err(); err != nil {
		return Schema{}, nil, nil, fmt.Errorf("failed to read table file %s: %w", f.path, err)
	}
	return schema, rows, tags, nil
}

// append adds a single row line, creating the file with a header first
// when needed. Caller guarantees the header on disk still matches the
// in-memory schema.
func (f *tableFile) append(row Row, tags []string) error {
	data, err := json.Marshal(encodeRow(row, tags))
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open table file for append: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	if _, err := file.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// rewrite replaces the whole file: header line then every row.
func (f *tableFile) rewrite(schema *Schema, rows []Row, tags [][]string) error {
	file, err := os.Create(f.path)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	writer := bufio.NewWriter(file)
	header, err := json.Marshal(schema.header())
	if err != nil {
		return fmt.Errorf("failed to marshal schema header: %w", err)
	}
	if _, err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write schema header: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	for i, row := range rows {
		var rowTags []string
		if i < len(tags) {
			rowTags = tags[i]
		}
		data, err := json.Marshal(encodeRow(row, rowTags))
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return nil
}

// create writes an empty table file holding only the header.
func (f *tableFile) create(schema *Schema) error {
	return f.rewrite(schema, nil, nil)
}

func (f *tableFile) remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove table file: %w", err)
	}
	return nil
}

// encodeRow merges tags into the persisted object under the reserved key.
func encodeRow(row Row, tags []string) map[string]any {
	if len(tags) == 0 {
		return row
	}
	out := make(map[string]any, len(row)+1)
	for key, value := range row {
		out[key] = value
	}
	out[tagsKey] = slices.Clone(tags)
	return out
}

func decodeTags(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}
