package tabstore

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Options controls store behavior.
type Options struct {
	// AutoCreate creates tables lazily on first reference. When false,
	// referencing an absent table fails with UnknownTableError.
	AutoCreate bool

	// Strict enables schema enforcement: value kind conflicts fail with
	// SchemaError and filters referencing undeclared columns fail with
	// InvalidFilterError.
	Strict bool
}

// DefaultOptions returns the default store options: auto-create on,
// strict mode off.
func DefaultOptions() Options {
	return Options{AutoCreate: true}
}

// Store maps table names to tables.
//
// A store is addressed by a locator string, the only required external
// configuration:
//
//	mem:        in-memory only, nothing persisted
//	file:DIR    one JSONL file per table under DIR
//	DIR         shorthand for file:DIR
//
// Tables are created lazily on first reference and destroyed only by
// Drop. The store-level mutex guarantees at-most-one table is created
// per name under concurrent access.
type Store struct {
	dir  string // "" for memory-only stores
	opts Options

	mu     sync.Mutex
	tables map[string]*Table
}

// Open opens a store for the given locator. A nil opts uses
// DefaultOptions. File-backed stores load existing tables eagerly.
func Open(locator string, opts *Options) (*Store, error) {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	s := &Store{opts: o, tables: make(map[string]*Table)}

	dir, mem, err := parseLocator(locator)
	if err != nil {
		return nil, err
	}
	if mem {
		return s, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	s.dir = dir

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".jsonl")
		table, err := s.loadTable(name)
		if err != nil {
			return nil, err
		}
		s.tables[name] = table
	}
	return s, nil
}

func parseLocator(locator string) (dir string, mem bool, err error) {
	switch {
	case locator == "":
		return "", false, fmt.Errorf("empty store locator")
	case locator == "mem:" || locator == "mem://":
		return "", true, nil
	}
	if rest, ok := strings.CutPrefix(locator, "file://"); ok {
		return rest, false, nil
	}
	if rest, ok := strings.CutPrefix(locator, "file:"); ok {
		return rest, false, nil
	}
	if i := strings.Index(locator, ":"); i > 1 && !filepath.IsAbs(locator) {
		return "", false, fmt.Errorf("unsupported store locator scheme %q", locator[:i])
	}
	return locator, false, nil
}

func (s *Store) loadTable(name string) (*Table, error) {
	file := newTableFile(s.dir, name)
	schema, rows, tags, err := file.load()
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = make([][]string, len(rows))
	}
	return &Table{
		name:   name,
		strict: s.opts.Strict,
		schema: schema,
		rows:   rows,
		tags:   tags,
		file:   file,
	}, nil
}

// Table returns the named table, creating an empty one when absent and
// auto-creation is enabled.
func (s *Store) Table(name string) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if table, ok := s.tables[name]; ok {
		return table, nil
	}
	if !s.opts.AutoCreate {
		return nil, &UnknownTableError{Table: name}
	}

	table := &Table{name: name, strict: s.opts.Strict}
	if s.dir != "" {
		table.file = newTableFile(s.dir, name)
		if err := table.file.create(&table.schema); err != nil {
			return nil, err
		}
	}
	s.tables[name] = table
	return table, nil
}

// Reload re-reads the named table from its backing file, picking up
// writes made by another process. Memory-backed tables are unchanged.
func (s *Store) Reload(name string) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[name]
	if !ok {
		return nil, &UnknownTableError{Table: name}
	}
	if table.file == nil {
		return table, nil
	}
	reloaded, err := s.loadTable(name)
	if err != nil {
		return nil, err
	}
	s.tables[name] = reloaded
	return reloaded, nil
}

// Has reports whether the named table exists.
func (s *Store) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[name]
	return ok
}

// Names returns the sorted names of all tables.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Drop destroys the named table and removes its backing file. Dropping an
// absent table fails with UnknownTableError.
func (s *Store) Drop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[name]
	if !ok {
		return &UnknownTableError{Table: name}
	}
	delete(s.tables, name)
	if table.file != nil {
		return table.file.remove()
	}
	return nil
}
