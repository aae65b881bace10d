package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/catalog"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/datatype"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/mapping"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/tabular"
)

// MappingService proposes an initial column mapping for an uploaded file:
// header matching against the catalog first, data-type inference as a
// fallback for whatever is left.
type MappingService struct {
	registry   *catalog.Registry
	sampleSize int
	log        *logrus.Logger
}

func NewMappingService(registry *catalog.Registry, sampleSize int, log *logrus.Logger) *MappingService {
	return &MappingService{registry: registry, sampleSize: sampleSize, log: log}
}

// AutoMap builds the initial mapping. Pass one: exact/alias header matching
// for entity fields, then relationship matchables. Pass two: for headers
// still unmatched, sample values and infer a type; the first suggested field
// not yet mapped wins. The result is a proposal the operator adjusts before
// confirming.
func (s *MappingService) AutoMap(ctx context.Context, entity catalog.EntityType, reader tabular.Reader) (*mapping.Set, error) {
	c, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	headers := reader.Header()
	set := mapping.NewSet()
	usedHeaders := make(map[string]bool, len(headers))

	for _, field := range c.Fields() {
		header := catalog.FindMatchingHeader(remaining(headers, usedHeaders), field)
		if header == "" {
			continue
		}
		if err := set.Add(mapping.ColumnMapping{Source: header, Target: field.Key()}); err != nil {
			return nil, err
		}
		usedHeaders[header] = true
	}

	for _, rel := range c.Relationships() {
		header := catalog.FindMatchingHeaderForRelationship(remaining(headers, usedHeaders), rel)
		if header == "" {
			continue
		}
		// A header matching the relationship name maps to its highest
		// priority non-id matcher; id columns are mapped explicitly by the
		// operator.
		target := ""
		for _, m := range rel.Matchables() {
			if m.Field() != catalog.MatchByID {
				target = m.Field()
				break
			}
		}
		if target == "" {
			continue
		}
		if err := set.Add(mapping.ColumnMapping{Source: header, Target: target, Relationship: rel.Name()}); err != nil {
			return nil, err
		}
		usedHeaders[header] = true
	}

	unmatched := remaining(headers, usedHeaders)
	if len(unmatched) == 0 {
		return set, nil
	}

	samples, err := s.sampleColumns(reader, headers, unmatched)
	if err != nil {
		return nil, err
	}
	for _, header := range unmatched {
		inference := datatype.Infer(samples[header], c.Fields())
		if inference.Type == "" {
			continue
		}
		for _, key := range inference.SuggestedFields {
			if set.MappedFieldKeys()[key] {
				continue
			}
			if err := set.Add(mapping.ColumnMapping{Source: header, Target: key}); err != nil {
				return nil, err
			}
			s.log.WithFields(logrus.Fields{
				"header":     header,
				"field":      key,
				"type":       inference.Type,
				"confidence": inference.Confidence,
			}).Debug("mapped column by inferred type")
			break
		}
	}
	return set, nil
}

func (s *MappingService) sampleColumns(reader tabular.Reader, headers, wanted []string) (map[string][]string, error) {
	rows, err := reader.Read(0, s.sampleSize)
	if err != nil {
		return nil, err
	}
	samples := make(map[string][]string, len(wanted))
	for _, row := range rows {
		for _, header := range wanted {
			samples[header] = append(samples[header], row[header])
		}
	}
	return samples, nil
}

func remaining(headers []string, used map[string]bool) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if !used[h] {
			out = append(out, h)
		}
	}
	return out
}
