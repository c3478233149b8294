// Package tabstore provides a name-addressed row store with a dynamic,
// schema-on-write column model.
//
// # Overview
//
// A [Store] maps table names to [Table] values, created lazily on first
// reference. Rows are plain column→value maps; inserting a row with a
// previously unseen key extends the table's declared column list, so the
// schema is always the union of every key ever inserted. An optional
// strict mode turns kind conflicts and unknown filter columns into
// errors instead of silently widening.
//
// # Concurrency
//
// All mutation of one table is serialized by a per-table write lock;
// tables with different names may be written concurrently. Reads copy the
// matching rows before returning an iterator, so iteration never observes
// a concurrent schema extension. Batch imports hold the write lock for
// the whole batch.
//
// # Persistence
//
// File-backed stores keep one JSONL file per table: line 1 is a schema
// header, every other line one row. Inserts append a line; anything that
// changes existing lines or the header rewrites the file. The store
// locator selects the backend ("mem:" or a directory path).
package tabstore
