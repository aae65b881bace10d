package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/catalog"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/imports"
)

// RecordResolver finds an existing record for one matcher and one raw cell
// value. Implementations differ in where they look: the preload resolver
// answers from an in-memory index, the query resolver hits the record store
// per call.
type RecordResolver interface {
	Resolve(ctx context.Context, entity catalog.EntityType, matcher catalog.MatchableField, value string) (imports.Record, bool, error)
}

// SelectMatcher picks the matcher to apply for a row: highest priority first,
// restricted to matchers whose field is actually mapped. A mapped but blank
// id cell falls through to the next matcher; any other matcher wins on
// mapping alone, blank or not.
func SelectMatcher(matchables []catalog.MatchableField, mapped map[string]bool, valueOf func(string) string) (catalog.MatchableField, bool) {
	for _, m := range matchables {
		if !mapped[m.Field()] {
			continue
		}
		if m.Field() == catalog.MatchByID && strings.TrimSpace(valueOf(m.Field())) == "" {
			continue
		}
		return m, true
	}
	return catalog.MatchableField{}, false
}

// matchCandidates normalizes a raw cell value into comparable lookup keys.
// Multi-value cells are split on commas; URL-typed fields are reduced to
// their first domain token.
func matchCandidates(registry *catalog.Registry, entity catalog.EntityType, fieldKey, raw string) []string {
	isDomain := false
	if c, err := registry.Get(entity); err == nil {
		if f, ok := c.FieldByKey(fieldKey); ok && f.Type() == catalog.FieldTypeURL {
			isDomain = true
		}
	}
	if isDomain {
		if d := firstDomainToken(raw); d != "" {
			return []string{d}
		}
		return nil
	}
	parts := imports.SplitCandidates(raw)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.ToLower(p))
	}
	return out
}

// firstDomainToken lower-cases a URL-ish value and extracts the bare domain:
// "HTTPS://www.Acme.com/about" becomes "acme.com".
func firstDomainToken(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return ""
	}
	if i := strings.Index(v, "://"); i >= 0 {
		v = v[i+3:]
	}
	if i := strings.IndexAny(v, "/?#"); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimPrefix(v, "www.")
	if i := strings.Index(v, ","); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v
}

type recordIndex struct {
	byID    map[uuid.UUID]imports.Record
	byField map[string]map[string]imports.Record
}

// PreloadResolver bulk-loads every record of an entity for the current team
// on Preload and answers lookups from memory. Resolving an entity that was
// never preloaded is a programming error and returns one.
type PreloadResolver struct {
	store    imports.Store
	registry *catalog.Registry
	indexes  map[catalog.EntityType]*recordIndex
}

func NewPreloadResolver(store imports.Store, registry *catalog.Registry) *PreloadResolver {
	return &PreloadResolver{
		store:    store,
		registry: registry,
		indexes:  make(map[catalog.EntityType]*recordIndex),
	}
}

// Preload indexes the team's records of one entity by every given matchable
// field. Candidates of multi-value stored fields are indexed individually.
func (r *PreloadResolver) Preload(ctx context.Context, entity catalog.EntityType, matchFields []string) error {
	if _, ok := r.indexes[entity]; ok {
		return nil
	}
	records, err := r.store.ListByTeam(ctx, string(entity), matchFields)
	if err != nil {
		return err
	}

	idx := &recordIndex{
		byID:    make(map[uuid.UUID]imports.Record, len(records)),
		byField: make(map[string]map[string]imports.Record, len(matchFields)),
	}
	for _, key := range matchFields {
		if key == catalog.MatchByID {
			continue
		}
		idx.byField[key] = make(map[string]imports.Record)
	}
	for _, rec := range records {
		idx.byID[rec.ID] = rec
		for _, key := range matchFields {
			if key == catalog.MatchByID {
				continue
			}
			for _, cand := range matchCandidates(r.registry, entity, key, rec.Field(key)) {
				if _, taken := idx.byField[key][cand]; !taken {
					idx.byField[key][cand] = rec
				}
			}
		}
	}
	r.indexes[entity] = idx
	return nil
}

func (r *PreloadResolver) Resolve(ctx context.Context, entity catalog.EntityType, matcher catalog.MatchableField, value string) (imports.Record, bool, error) {
	idx, ok := r.indexes[entity]
	if !ok {
		return imports.Record{}, false, fmt.Errorf("resolver used before preload for entity %q", entity)
	}
	if matcher.Field() == catalog.MatchByID {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return imports.Record{}, false, imports.ErrInvalidID.WithDetails(value)
		}
		rec, found := idx.byID[id]
		return rec, found, nil
	}
	values, ok := idx.byField[matcher.Field()]
	if !ok {
		return imports.Record{}, false, fmt.Errorf("field %q was not preloaded for entity %q", matcher.Field(), entity)
	}
	for _, cand := range matchCandidates(r.registry, entity, matcher.Field(), value) {
		if rec, found := values[cand]; found {
			return rec, true, nil
		}
	}
	return imports.Record{}, false, nil
}

// QueryResolver issues one tenant-scoped store query per call. Used during
// the final commit, where rows must see records created earlier in the same
// run.
type QueryResolver struct {
	store    imports.Store
	registry *catalog.Registry
}

func NewQueryResolver(store imports.Store, registry *catalog.Registry) *QueryResolver {
	return &QueryResolver{store: store, registry: registry}
}

func (r *QueryResolver) Resolve(ctx context.Context, entity catalog.EntityType, matcher catalog.MatchableField, value string) (imports.Record, bool, error) {
	if matcher.Field() == catalog.MatchByID {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return imports.Record{}, false, imports.ErrInvalidID.WithDetails(value)
		}
		rec, err := r.store.FindByID(ctx, string(entity), id)
		if err != nil {
			if errors.Is(err, imports.ErrRecordNotFound) {
				return imports.Record{}, false, nil
			}
			return imports.Record{}, false, err
		}
		return rec, true, nil
	}

	candidates := matchCandidates(r.registry, entity, matcher.Field(), value)
	if len(candidates) == 0 {
		return imports.Record{}, false, nil
	}
	records, err := r.store.FindByField(ctx, string(entity), matcher.Field(), candidates)
	if err != nil {
		return imports.Record{}, false, err
	}
	if len(records) == 0 {
		return imports.Record{}, false, nil
	}
	return records[0], true, nil
}
