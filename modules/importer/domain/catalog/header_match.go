package catalog

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FindMatchingHeader returns the first header matching the field's key,
// label, or any guess alias, compared case-insensitively. First match wins
// in header order. Returns "" when nothing matches; it never errors and
// keeps no state between calls.
func FindMatchingHeader(headers []string, field ImportField) string {
	for _, h := range headers {
		trimmed := strings.TrimSpace(h)
		if strings.EqualFold(trimmed, field.Key()) || strings.EqualFold(trimmed, field.Label()) {
			return h
		}
	}
	for _, h := range headers {
		trimmed := strings.TrimSpace(h)
		for _, guess := range field.Guesses() {
			if strings.EqualFold(trimmed, guess) {
				return h
			}
		}
	}
	return ""
}

// FindMatchingHeaderForRelationship matches a header against a
// relationship's name and guesses, same rules as FindMatchingHeader.
func FindMatchingHeaderForRelationship(headers []string, rel RelationshipField) string {
	for _, h := range headers {
		trimmed := strings.TrimSpace(h)
		if strings.EqualFold(trimmed, rel.Name()) {
			return h
		}
	}
	for _, h := range headers {
		trimmed := strings.TrimSpace(h)
		for _, guess := range rel.Guesses() {
			if strings.EqualFold(trimmed, guess) {
				return h
			}
		}
	}
	return ""
}

// SuggestFields fuzzy-ranks catalog fields against an unmatched header.
// The result is advisory, shown to the operator while adjusting the
// mapping; automatic mapping never consumes it.
func SuggestFields(header string, fields []ImportField) []string {
	labels := make([]string, len(fields))
	for i, f := range fields {
		labels[i] = f.Label()
	}
	ranks := fuzzy.RankFindNormalizedFold(header, labels)
	sort.Sort(ranks)

	out := make([]string, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, fields[rank.OriginalIndex].Key())
	}
	return out
}
