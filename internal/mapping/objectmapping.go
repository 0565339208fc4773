package mapping

// ObjectMapping renames and excludes source columns for one destination
// shape. Column names in an ObjectMapping match exactly; destination field
// names are matched case-insensitively when the mapping is applied.
//
// A nil *ObjectMapping behaves as an empty one.
type ObjectMapping struct {
	renames    map[string]string
	exclusions map[string]struct{}
}

// NewObjectMapping creates a mapping with no renames or exclusions.
func NewObjectMapping() *ObjectMapping {
	return &ObjectMapping{
		renames:    make(map[string]string),
		exclusions: make(map[string]struct{}),
	}
}

// Rename maps source column from onto destination field to. A later Rename
// of the same column replaces the earlier one.
func (m *ObjectMapping) Rename(from, to string) *ObjectMapping {
	m.renames[from] = to
	return m
}

// Exclude marks source columns that are never copied.
func (m *ObjectMapping) Exclude(columns ...string) *ObjectMapping {
	for _, c := range columns {
		m.exclusions[c] = struct{}{}
	}
	return m
}

// Target returns the destination field a column was renamed to.
func (m *ObjectMapping) Target(column string) (string, bool) {
	if m == nil {
		return "", false
	}
	to, ok := m.renames[column]
	return to, ok
}

// IsExcluded reports whether column is excluded.
func (m *ObjectMapping) IsExcluded(column string) bool {
	if m == nil {
		return false
	}
	_, ok := m.exclusions[column]
	return ok
}
