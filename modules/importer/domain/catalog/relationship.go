package catalog

import "sort"

type LinkKind string

const (
	LinkToOne  LinkKind = "toOne"
	LinkToMany LinkKind = "toMany"
)

// RelationshipField describes a link from the imported entity to another
// entity. Its matchable fields are consulted only within this relationship,
// in descending priority order; the first one both defined and mapped by the
// user is used.
type RelationshipField struct {
	name          string
	relatedEntity EntityType
	linkKind      LinkKind
	matchables    []MatchableField
	foreignKey    string
	guesses       []string
}

func NewRelationshipField(name string, related EntityType, kind LinkKind) RelationshipField {
	return RelationshipField{name: name, relatedEntity: related, linkKind: kind}
}

func (r RelationshipField) Name() string              { return r.name }
func (r RelationshipField) RelatedEntity() EntityType { return r.relatedEntity }
func (r RelationshipField) LinkKind() LinkKind        { return r.linkKind }
func (r RelationshipField) ForeignKey() string        { return r.foreignKey }
func (r RelationshipField) Guesses() []string         { return r.guesses }

// Matchables returns the relationship's matchable fields in descending
// priority order.
func (r RelationshipField) Matchables() []MatchableField {
	out := append([]MatchableField(nil), r.matchables...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].priority > out[j].priority })
	return out
}

func (r RelationshipField) WithMatchables(matchables ...MatchableField) RelationshipField {
	r.matchables = append([]MatchableField(nil), matchables...)
	return r
}

func (r RelationshipField) WithForeignKey(key string) RelationshipField {
	r.foreignKey = key
	return r
}

func (r RelationshipField) WithGuesses(guesses ...string) RelationshipField {
	r.guesses = append([]string(nil), guesses...)
	return r
}
