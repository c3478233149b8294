// Package format converts table snapshots to and from external
// representations through pluggable codecs.
//
// A [Registry] maps format names to [Codec] values. Every codec can
// serialize a [tabstore.Snapshot]; codecs that also implement [Decoder]
// can read their representation back, and codecs implementing [Detector]
// can probe whether a byte sample looks like their format. Registering a
// name twice replaces the earlier codec, so applications can override the
// built-ins from [Builtin].
//
// Imports are all-or-nothing at the parse level: the stream is fully
// decoded before the first row is inserted, so a malformed row aborts the
// import without partial commit. Cancelling the context mid-insert keeps
// the rows already inserted.
package format
