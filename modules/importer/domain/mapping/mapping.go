package mapping

import (
	"fmt"
	"strings"
)

// ColumnMapping binds one source header to a target field or relationship
// matcher. Presence of Relationship is the sole discriminator: a mapping is
// either a field mapping or a relationship mapping, never both.
type ColumnMapping struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship,omitempty"`
}

func (m ColumnMapping) IsRelationship() bool {
	return m.Relationship != ""
}

// DerivedKey names the mapped column in derived output and uniquely
// identifies the target: a relationship matcher and a plain field with the
// same name are distinct targets.
func (m ColumnMapping) DerivedKey() string {
	if m.Relationship != "" {
		return m.Relationship + "." + m.Target
	}
	return m.Target
}

// Set is the full column mapping for one import, keyed by source header.
// No two source columns may map to the same target.
type Set struct {
	bySource map[string]ColumnMapping
	order    []string
}

func NewSet() *Set {
	return &Set{bySource: make(map[string]ColumnMapping)}
}

func (s *Set) Add(m ColumnMapping) error {
	if strings.TrimSpace(m.Source) == "" {
		return fmt.Errorf("mapping source must not be blank")
	}
	if strings.TrimSpace(m.Target) == "" {
		return fmt.Errorf("mapping target must not be blank")
	}
	if _, ok := s.bySource[m.Source]; ok {
		return fmt.Errorf("column %q is already mapped", m.Source)
	}
	for _, existing := range s.bySource {
		if existing.DerivedKey() == m.DerivedKey() {
			return fmt.Errorf("target %q is already mapped from column %q", m.Target, existing.Source)
		}
	}
	s.bySource[m.Source] = m
	s.order = append(s.order, m.Source)
	return nil
}

func (s *Set) Remove(source string) {
	if _, ok := s.bySource[source]; !ok {
		return
	}
	delete(s.bySource, source)
	for i, src := range s.order {
		if src == source {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Set) Get(source string) (ColumnMapping, bool) {
	m, ok := s.bySource[source]
	return m, ok
}

func (s *Set) Len() int { return len(s.bySource) }

// Sources returns mapped source headers in insertion order.
func (s *Set) Sources() []string {
	return append([]string(nil), s.order...)
}

// All returns mappings in insertion order.
func (s *Set) All() []ColumnMapping {
	out := make([]ColumnMapping, 0, len(s.order))
	for _, src := range s.order {
		out = append(out, s.bySource[src])
	}
	return out
}

// SourceFor finds the source header mapped to a plain field target.
func (s *Set) SourceFor(target string) (string, bool) {
	for _, src := range s.order {
		m := s.bySource[src]
		if !m.IsRelationship() && m.Target == target {
			return src, true
		}
	}
	return "", false
}

// SourceForRelationship finds the source header mapped to a relationship
// matcher target.
func (s *Set) SourceForRelationship(relationship, target string) (string, bool) {
	for _, src := range s.order {
		m := s.bySource[src]
		if m.Relationship == relationship && m.Target == target {
			return src, true
		}
	}
	return "", false
}

// MappedFieldKeys returns the set of plain field targets currently mapped.
func (s *Set) MappedFieldKeys() map[string]bool {
	out := make(map[string]bool, len(s.bySource))
	for _, m := range s.bySource {
		if !m.IsRelationship() {
			out[m.Target] = true
		}
	}
	return out
}

// MappedRelationshipKeys returns the mapped matcher targets for one
// relationship.
func (s *Set) MappedRelationshipKeys(relationship string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range s.bySource {
		if m.Relationship == relationship {
			out[m.Target] = true
		}
	}
	return out
}
