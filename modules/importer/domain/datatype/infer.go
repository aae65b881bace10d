package datatype

import (
	"strings"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/catalog"
)

// ConfidenceFloor is the minimum fraction of non-blank samples that must
// match a detector before a type is reported.
const ConfidenceFloor = 0.6

// Inference is the result of classifying a column's sampled values.
type Inference struct {
	Type            catalog.FieldType
	Confidence      float64
	SuggestedFields []string
}

type detector struct {
	fieldType catalog.FieldType
	match     func(string) bool
}

// Detector order breaks confidence ties: earlier entries win.
var detectors = []detector{
	{catalog.FieldTypeEmail, looksLikeEmail},
	{catalog.FieldTypeURL, looksLikeURL},
	{catalog.FieldTypeDate, looksLikeDate},
	{catalog.FieldTypePhone, looksLikePhone},
	{catalog.FieldTypeCurrency, looksLikeCurrency},
}

// Infer classifies a column by evaluating each non-blank sample against the
// detector battery. The type with the highest matching fraction wins,
// provided it clears ConfidenceFloor; otherwise Type is empty.
// SuggestedFields holds the keys of catalog fields whose declared type
// matches, in catalog declaration order; the caller applies the first one
// still unmapped.
func Infer(samples []string, fields []catalog.ImportField) Inference {
	nonBlank := make([]string, 0, len(samples))
	for _, s := range samples {
		if strings.TrimSpace(s) != "" {
			nonBlank = append(nonBlank, strings.TrimSpace(s))
		}
	}
	if len(nonBlank) == 0 {
		return Inference{}
	}

	best := Inference{}
	for _, d := range detectors {
		matched := 0
		for _, s := range nonBlank {
			if d.match(s) {
				matched++
			}
		}
		confidence := float64(matched) / float64(len(nonBlank))
		if confidence > best.Confidence {
			best = Inference{Type: d.fieldType, Confidence: confidence}
		}
	}

	if best.Confidence < ConfidenceFloor {
		return Inference{Confidence: best.Confidence}
	}

	for _, f := range fields {
		if f.Type() == best.Type {
			best.SuggestedFields = append(best.SuggestedFields, f.Key())
		}
	}
	return best
}
