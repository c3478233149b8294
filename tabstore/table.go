package tabstore

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"
)

// Row is a mapping from column name to scalar value. Supported value
// types are nil, string, int64, float64, bool, time.Time, uuid.UUID and
// decimal.Decimal; Insert widens other Go numeric types.
type Row map[string]any

// Clone returns an independent copy of the row. Values are scalars and
// need no deep copy.
func (r Row) Clone() Row {
	return maps.Clone(r)
}

// Table is a named, ordered collection of rows with a dynamic schema.
//
// All mutations are serialized by a per-table write lock. Reads take a
// snapshot of matching rows before returning, so iteration never observes
// a concurrent schema extension. Tables on different names may be written
// concurrently.
type Table struct {
	name   string
	strict bool
	mu     sync.RWMutex

	schema Schema
	rows   []Row
	tags   [][]string
	file   *tableFile // nil for memory-backed tables
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Columns returns the declared columns in order.
func (t *Table) Columns() []Column {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.schema.Columns()
}

// ColumnNames returns the declared column names in order.
func (t *Table) ColumnNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.schema.Names()
}

// PrimaryKey returns the primary key column name, or "" if none.
func (t *Table) PrimaryKey() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.schema.PrimaryKey()
}

// SetPrimaryKey declares the ordering column. The column must already be
// declared. Find and Snapshot order rows by this column ascending.
func (t *Table) SetPrimaryKey(column string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.schema.Has(column) {
		return &SchemaError{Table: t.name, Column: column, Reason: "primary key column is not declared"}
	}
	t.schema.primaryKey = column
	return t.persistAll()
}

// Declare adds columns to the schema ahead of any writes. Declaring an
// existing column with a different kind is a SchemaError in strict mode
// and a no-op otherwise.
func (t *Table) Declare(cols ...Column) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := false
	for _, c := range cols {
		if kind, ok := t.schema.KindOf(c.Name); ok {
			if t.strict && c.Kind != kind {
				return &SchemaError{
					Table:  t.name,
					Column: c.Name,
					Reason: fmt.Sprintf("declared as %s, already %s", c.Kind, kind),
				}
			}
			continue
		}
		t.schema.add(c)
		changed = true
	}
	if !changed {
		return nil
	}
	return t.persistAll()
}

// Insert appends a row. Keys not yet declared extend the schema with a
// column of the value's kind; in strict mode a value whose kind conflicts
// with a declared column fails with SchemaError.
func (t *Table) Insert(row Row) error {
	return t.InsertTagged(row)
}

// InsertTagged appends a row with optional tags. Tags are free-form row
// labels carried through snapshots and emitted by the XML codec.
func (t *Table) InsertTagged(row Row, tags ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	normalized, extended, err := t.admit(row, false)
	if err != nil {
		return err
	}
	t.rows = append(t.rows, normalized)
	t.tags = append(t.tags, slices.Clone(tags))

	if t.file == nil {
		return nil
	}
	if extended {
		return t.persistAll()
	}
	return t.file.append(normalized, tags)
}

// admit validates and normalizes a row against the schema, extending the
// schema for unseen keys unless dropUnknown is set (strict import).
// Caller holds the write lock.
func (t *Table) admit(row Row, dropUnknown bool) (Row, bool, error) {
	normalized := make(Row, len(row))
	// Visit keys in declared-column order first so new columns from a
	// single row land in a deterministic order afterwards. New columns
	// are collected and applied only once the whole row validates, so a
	// row that fails admission leaves the schema untouched.
	var added []Column
	for _, key := range rowKeys(row, &t.schema) {
		value, err := normalizeValue(row[key])
		if err != nil {
			return nil, false, &SchemaError{Table: t.name, Column: key, Reason: err.Error()}
		}
		kind, declared := t.schema.KindOf(key)
		if !declared {
			if dropUnknown {
				continue
			}
			added = append(added, Column{Name: key, Kind: kindForNew(value)})
		} else if t.strict && !compatible(kind, value) {
			return nil, false, &SchemaError{
				Table:  t.name,
				Column: key,
				Reason: fmt.Sprintf("value kind %s conflicts with declared kind %s", KindOf(value), kind),
			}
		}
		normalized[key] = value
	}
	for _, c := range added {
		t.schema.add(c)
	}
	return normalized, len(added) > 0, nil
}

// kindForNew picks the kind for a freshly created column. A nil value
// carries no kind information; default to text.
func kindForNew(v any) Kind {
	if v == nil {
		return KindText
	}
	return KindOf(v)
}

// rowKeys returns the row's keys with declared columns first in schema
// order, then the remaining keys sorted.
func rowKeys(row Row, schema *Schema) []string {
	keys := make([]string, 0, len(row))
	for _, name := range schema.Names() {
		if _, ok := row[name]; ok {
			keys = append(keys, name)
		}
	}
	var extra []string
	for key := range row {
		if !schema.Has(key) {
			extra = append(extra, key)
		}
	}
	slices.Sort(extra)
	return append(keys, extra...)
}

// Update applies patch to every row matching filter and returns the count
// of rows updated. Unknown patch columns extend the schema as in Insert.
func (t *Table) Update(filter, patch Row) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	normalizedFilter, err := t.checkFilter(filter)
	if err != nil {
		return 0, err
	}
	normalizedPatch, extended, err := t.admit(patch, false)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, row := range t.rows {
		if matches(row, normalizedFilter) {
			maps.Copy(row, normalizedPatch)
			count++
		}
	}
	// A patch with unseen columns extends the schema even when nothing
	// matches; the header on disk must follow, like Declare.
	if count == 0 && !extended {
		return 0, nil
	}
	return count, t.persistAll()
}

// Delete removes every row matching filter and returns the count removed.
func (t *Table) Delete(filter Row) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	normalizedFilter, err := t.checkFilter(filter)
	if err != nil {
		return 0, err
	}

	kept := t.rows[:0]
	keptTags := t.tags[:0]
	count := 0
	for i, row := range t.rows {
		if matches(row, normalizedFilter) {
			count++
			continue
		}
		kept = append(kept, row)
		keptTags = append(keptTags, t.tags[i])
	}
	t.rows = kept
	t.tags = keptTags
	if count == 0 {
		return 0, nil
	}
	return count, t.persistAll()
}

// Find returns an iterator over clones of the rows matching filter, all
// columns must match (logical AND). A nil filter matches every row. The
// result set is snapshotted before the iterator is returned; concurrent
// writes do not affect iteration.
func (t *Table) Find(filter Row) (iter.Seq[Row], error) {
	t.mu.RLock()
	normalizedFilter, err := t.checkFilter(filter)
	if err != nil {
		t.mu.RUnlock()
		return nil, err
	}
	matched := make([]Row, 0, len(t.rows))
	for _, row := range t.rows {
		if matches(row, normalizedFilter) {
			matched = append(matched, row.Clone())
		}
	}
	pk := t.schema.PrimaryKey()
	t.mu.RUnlock()

	if pk != "" {
		slices.SortStableFunc(matched, func(a, b Row) int {
			return compareValues(a[pk], b[pk])
		})
	}
	return func(yield func(Row) bool) {
		for _, row := range matched {
			if !yield(row) {
				return
			}
		}
	}, nil
}

// FindOne returns a clone of the first row matching filter, or nil if no
// row matches.
func (t *Table) FindOne(filter Row) (Row, error) {
	seq, err := t.Find(filter)
	if err != nil {
		return nil, err
	}
	for row := range seq {
		return row, nil
	}
	return nil, nil
}

// All returns an iterator over clones of all rows.
func (t *Table) All() iter.Seq[Row] {
	seq, _ := t.Find(nil) // a nil filter cannot fail
	return seq
}

// Filter returns an iterator over clones of the rows carrying the tag.
func (t *Table) Filter(tag string) iter.Seq[Row] {
	t.mu.RLock()
	var matched []Row
	for i, row := range t.rows {
		if slices.Contains(t.tags[i], tag) {
			matched = append(matched, row.Clone())
		}
	}
	t.mu.RUnlock()

	return func(yield func(Row) bool) {
		for _, row := range matched {
			if !yield(row) {
				return
			}
		}
	}
}

// checkFilter validates filter columns and normalizes filter values.
// In strict mode a filter referencing an undeclared column fails with
// InvalidFilterError. Caller holds at least the read lock.
func (t *Table) checkFilter(filter Row) (Row, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	normalized := make(Row, len(filter))
	for key, value := range filter {
		if t.strict && !t.schema.Has(key) {
			return nil, &InvalidFilterError{Table: t.name, Column: key}
		}
		v, err := normalizeValue(value)
		if err != nil {
			return nil, &SchemaError{Table: t.name, Column: key, Reason: err.Error()}
		}
		normalized[key] = v
	}
	return normalized, nil
}

// matches reports whether the row satisfies every filter column.
func matches(row Row, filter Row) bool {
	for key, want := range filter {
		got, ok := row[key]
		if !ok {
			got = nil
		}
		if !valueEqual(got, want) {
			return false
		}
	}
	return true
}

// ImportRows inserts a batch of rows while holding the write lock for the
// whole batch, so no other writer interleaves with an import. When strict
// is set, undeclared columns are silently dropped instead of extending
// the schema.
//
// The context is checked between rows. On cancellation the rows already
// inserted remain (at-least-partial-effect); the batch is persisted once
// at the end either way. Returns the number of rows inserted.
func (t *Table) ImportRows(ctx context.Context, rows []Row, strict bool) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	var ctxErr error
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		normalized, _, err := t.admit(row, strict)
		if err != nil {
			// Persist what was applied before reporting.
			if perr := t.persistAll(); perr != nil {
				return count, perr
			}
			return count, err
		}
		if strict && len(normalized) == 0 {
			continue
		}
		t.rows = append(t.rows, normalized)
		t.tags = append(t.tags, nil)
		count++
	}
	if err := t.persistAll(); err != nil {
		return count, err
	}
	return count, ctxErr
}

// Snapshot returns an immutable copy of the table state for export:
// declared columns in order plus clones of all rows, ordered like Find.
func (t *Table) Snapshot() *Snapshot {
	t.mu.RLock()
	snap := &Snapshot{
		Name:       t.name,
		Columns:    t.schema.Names(),
		Kinds:      make([]Kind, len(t.schema.columns)),
		PrimaryKey: t.schema.PrimaryKey(),
		Rows:       make([]Row, len(t.rows)),
		Tags:       make([][]string, len(t.tags)),
	}
	for i, c := range t.schema.columns {
		snap.Kinds[i] = c.Kind
	}
	for i, row := range t.rows {
		snap.Rows[i] = row.Clone()
		snap.Tags[i] = slices.Clone(t.tags[i])
	}
	t.mu.RUnlock()

	if snap.PrimaryKey != "" {
		order := make([]int, len(snap.Rows))
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int {
			return compareValues(snap.Rows[a][snap.PrimaryKey], snap.Rows[b][snap.PrimaryKey])
		})
		rows := make([]Row, len(snap.Rows))
		tags := make([][]string, len(snap.Tags))
		for i, j := range order {
			rows[i] = snap.Rows[j]
			tags[i] = snap.Tags[j]
		}
		snap.Rows = rows
		snap.Tags = tags
	}
	return snap
}

// persistAll rewrites the backing file from current state. No-op for
// memory-backed tables. Caller holds the write lock.
func (t *Table) persistAll() error {
	if t.file == nil {
		return nil
	}
	return t.file.rewrite(&t.schema, t.rows, t.tags)
}

// snapshotState captures rows, tags and schema for transaction rollback.
// Caller holds the write lock or has exclusive access.
func (t *Table) snapshotState() tableState {
	st := tableState{
		schema: t.schema.clone(),
		rows:   make([]Row, len(t.rows)),
		tags:   make([][]string, len(t.tags)),
	}
	for i, row := range t.rows {
		st.rows[i] = row.Clone()
		st.tags[i] = slices.Clone(t.tags[i])
	}
	return st
}

// restoreState rewinds the table to a captured state and persists it.
func (t *Table) restoreState(st tableState) error {
	t.schema = st.schema
	t.rows = st.rows
	t.tags = st.tags
	return t.persistAll()
}

type tableState struct {
	schema Schema
	rows   []Row
	tags   [][]string
}
