package catalog

// MatchableField describes a field usable to look up an existing record
// during import. Higher priority matchers are tried first. At most one of
// UpdateOnly/CreatesNew may be set:
//
//   - UpdateOnly: no match means the row is skipped entirely, never created.
//   - CreatesNew: the matcher never performs a lookup; every row creates a
//     new record.
//   - neither: lookup, create when absent.
type MatchableField struct {
	field      string
	label      string
	priority   int
	updateOnly bool
	createsNew bool
}

func NewMatchableField(field, label string, priority int) MatchableField {
	return MatchableField{field: field, label: label, priority: priority}
}

func (m MatchableField) Field() string    { return m.field }
func (m MatchableField) Label() string    { return m.label }
func (m MatchableField) Priority() int    { return m.priority }
func (m MatchableField) IsUpdateOnly() bool { return m.updateOnly }
func (m MatchableField) IsCreatesNew() bool { return m.createsNew }

func (m MatchableField) UpdateOnly() MatchableField {
	m.updateOnly = true
	m.createsNew = false
	return m
}

func (m MatchableField) CreatesNew() MatchableField {
	m.createsNew = true
	m.updateOnly = false
	return m
}
