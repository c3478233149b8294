package tabstore

// Snapshot is an immutable copy of a table's state taken at a point in
// time. Codecs operate on snapshots so exports never race with writers.
type Snapshot struct {
	Name       string
	Columns    []string
	Kinds      []Kind
	PrimaryKey string
	Rows       []Row
	Tags       [][]string
}

// Tag returns row i's tags, or nil when the snapshot carries none.
func (s *Snapshot) Tag(i int) []string {
	if i >= len(s.Tags) {
		return nil
	}
	return s.Tags[i]
}

// Width returns the number of declared columns.
func (s *Snapshot) Width() int {
	return len(s.Columns)
}

// Record returns row i's values in declared-column order. Columns the row
// does not carry yield nil.
func (s *Snapshot) Record(i int) []any {
	rec := make([]any, len(s.Columns))
	row := s.Rows[i]
	for j, name := range s.Columns {
		rec[j] = row[name]
	}
	return rec
}

// StringRecord returns row i's values in declared-column order, rendered
// with FormatValue. Absent values render as the empty string.
func (s *Snapshot) StringRecord(i int) []string {
	rec := make([]string, len(s.Columns))
	row := s.Rows[i]
	for j, name := range s.Columns {
		rec[j] = FormatValue(row[name])
	}
	return rec
}
