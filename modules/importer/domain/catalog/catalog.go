package catalog

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Relaticle/relaticle-sub002/pkg/serrors"
)

var ErrCatalogNotFound = serrors.NewError("IMPORTER_CATALOG_NOT_FOUND", "no catalog registered for entity type", "")

// PostSaveHook runs after a row's record has been written, inside the same
// transaction context. It replaces per-entity importer subclasses: any
// entity-specific behavior is registered against the catalog instead.
type PostSaveHook func(ctx context.Context, recordID uuid.UUID, row map[string]string) error

// Catalog is the static per-entity definition of importable fields,
// relationships and matchable fields. Built once at registry construction;
// treated as immutable afterwards.
type Catalog struct {
	entity        EntityType
	rank          int
	fields        []ImportField
	relationships []RelationshipField
	matchables    []MatchableField
	postSave      PostSaveHook
}

func New(entity EntityType, rank int) *Catalog {
	return &Catalog{entity: entity, rank: rank}
}

func (c *Catalog) Entity() EntityType { return c.entity }

// Rank orders dependent entity imports: lower ranks commit first (companies
// before people before opportunities).
func (c *Catalog) Rank() int { return c.rank }

func (c *Catalog) Fields() []ImportField { return c.fields }

func (c *Catalog) FieldByKey(key string) (ImportField, bool) {
	for _, f := range c.fields {
		if f.Key() == key {
			return f, true
		}
	}
	return ImportField{}, false
}

func (c *Catalog) Relationships() []RelationshipField { return c.relationships }

func (c *Catalog) RelationshipByName(name string) (RelationshipField, bool) {
	for _, r := range c.relationships {
		if r.Name() == name {
			return r, true
		}
	}
	return RelationshipField{}, false
}

// Matchables returns entity-level matchable fields in descending priority
// order.
func (c *Catalog) Matchables() []MatchableField {
	out := append([]MatchableField(nil), c.matchables...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority() > out[j].Priority() })
	return out
}

func (c *Catalog) PostSave() PostSaveHook { return c.postSave }

func (c *Catalog) AddFields(fields ...ImportField) *Catalog {
	c.fields = append(c.fields, fields...)
	return c
}

func (c *Catalog) AddRelationships(relationships ...RelationshipField) *Catalog {
	c.relationships = append(c.relationships, relationships...)
	return c
}

func (c *Catalog) AddMatchables(matchables ...MatchableField) *Catalog {
	c.matchables = append(c.matchables, matchables...)
	return c
}

func (c *Catalog) WithPostSave(hook PostSaveHook) *Catalog {
	c.postSave = hook
	return c
}

// Registry holds the catalogs for all importable entity types.
type Registry struct {
	catalogs map[EntityType]*Catalog
}

func NewRegistry(catalogs ...*Catalog) *Registry {
	m := make(map[EntityType]*Catalog, len(catalogs))
	for _, c := range catalogs {
		m[c.entity] = c
	}
	return &Registry{catalogs: m}
}

func (r *Registry) Get(entity EntityType) (*Catalog, error) {
	c, ok := r.catalogs[entity]
	if !ok {
		return nil, ErrCatalogNotFound.WithDetails(string(entity))
	}
	return c, nil
}

// Ordered returns all catalogs sorted by dependency rank.
func (r *Registry) Ordered() []*Catalog {
	out := make([]*Catalog, 0, len(r.catalogs))
	for _, c := range r.catalogs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rank < out[j].rank })
	return out
}
