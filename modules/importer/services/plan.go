package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/catalog"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/imports"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/mapping"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/tabular"
)

// rowPlan is the planned outcome for one input row: the derived values, the
// write action, and the matched record when one was found. A non-empty
// failure excludes the row; later rows are unaffected.
type rowPlan struct {
	derived map[string]string
	fields  map[string]string
	action  imports.Action
	matched imports.Record
	found   bool
	failure string
}

// rowPlanner applies corrections, validation, matcher selection and the
// duplicate strategy to individual rows. Preview and commit share it; they
// differ only in the resolver they plug in and in whether plans are executed.
type rowPlanner struct {
	catalog     *catalog.Catalog
	set         *mapping.Set
	corrections *mapping.Corrections
	strategy    imports.Strategy
	resolver    RecordResolver
}

// derive applies the mapping and corrections to a raw row. Keys are derived
// column keys; skipped values come through blank and are excluded from
// validation.
func (p *rowPlanner) derive(row tabular.Row) (derived, fields map[string]string, skipped map[string]bool) {
	derived = make(map[string]string, p.set.Len())
	fields = make(map[string]string)
	skipped = make(map[string]bool)
	for _, m := range p.set.All() {
		value := row[m.Source]
		if p.corrections != nil {
			if p.corrections.IsValueSkipped(m.DerivedKey(), value) {
				skipped[m.Target] = true
			}
			value = p.corrections.ValueFor(m.DerivedKey(), value)
		}
		derived[m.DerivedKey()] = value
		if !m.IsRelationship() {
			fields[m.Target] = value
		}
	}
	return derived, fields, skipped
}

func (p *rowPlanner) plan(ctx context.Context, row tabular.Row) (rowPlan, error) {
	derived, fields, skipped := p.derive(row)
	out := rowPlan{derived: derived, fields: fields}

	for key, value := range fields {
		if skipped[key] {
			continue
		}
		field, ok := p.catalog.FieldByKey(key)
		if !ok {
			continue
		}
		if err := catalog.ValidateValue(field, value); err != nil {
			out.failure = err.Error()
			return out, nil
		}
	}

	matcher, ok := SelectMatcher(p.catalog.Matchables(), p.set.MappedFieldKeys(), func(key string) string {
		return fields[key]
	})
	if !ok || matcher.IsCreatesNew() {
		out.action = p.strategy.Apply(false)
		return out, nil
	}

	value := fields[matcher.Field()]
	if strings.TrimSpace(value) == "" {
		if matcher.IsUpdateOnly() {
			out.action = imports.ActionSkip
			return out, nil
		}
		out.action = p.strategy.Apply(false)
		return out, nil
	}

	rec, found, err := p.resolver.Resolve(ctx, p.catalog.Entity(), matcher, value)
	if err != nil {
		if errors.Is(err, imports.ErrInvalidID) {
			out.failure = fmt.Sprintf("%q is not a valid record ID", value)
			return out, nil
		}
		return out, err
	}
	if matcher.Field() == catalog.MatchByID && !found {
		// A missing id never falls back to other matchers.
		out.failure = fmt.Sprintf("Record with ID %s not found or does not belong to your workspace", strings.TrimSpace(value))
		return out, nil
	}
	if !found && matcher.IsUpdateOnly() {
		out.action = imports.ActionSkip
		return out, nil
	}

	out.matched, out.found = rec, found
	out.action = p.strategy.Apply(found)
	return out, nil
}

// enrichedHeader lists the derived column keys in mapping insertion order,
// the header of the enriched artifact.
func enrichedHeader(set *mapping.Set) []string {
	mappings := set.All()
	out := make([]string, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, m.DerivedKey())
	}
	return out
}

// requireMappedFields is the run-level gate: every required catalog field
// must be mapped before any row is processed.
func requireMappedFields(c *catalog.Catalog, set *mapping.Set) error {
	mapped := set.MappedFieldKeys()
	for _, field := range c.Fields() {
		if field.IsRequired() && !mapped[field.Key()] {
			return fmt.Errorf("required field %q is not mapped", field.Key())
		}
	}
	return nil
}
