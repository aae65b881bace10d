package services

import (
	"context"
	"strings"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/catalog"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/mapping"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/tabular"
)

// AnalysisService computes per-column statistics and validation issues for
// the review step, and applies targeted value corrections without
// re-scanning the file.
type AnalysisService struct {
	registry  *catalog.Registry
	chunkSize int
}

func NewAnalysisService(registry *catalog.Registry, chunkSize int) *AnalysisService {
	return &AnalysisService{registry: registry, chunkSize: chunkSize}
}

// Analyze walks the whole file once in chunks and produces one result per
// mapped field column. Every unique value is validated once; rows carrying
// it share the issue.
func (s *AnalysisService) Analyze(
	ctx context.Context,
	entity catalog.EntityType,
	reader tabular.Reader,
	set *mapping.Set,
) (map[string]*mapping.ColumnAnalysisResult, error) {
	c, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}

	type columnState struct {
		result      *mapping.ColumnAnalysisResult
		field       catalog.ImportField
		hasField    bool
		valueCounts map[string]int
	}
	columns := make(map[string]*columnState)
	for _, m := range set.All() {
		if m.IsRelationship() {
			continue
		}
		field, ok := c.FieldByKey(m.Target)
		columns[m.Source] = &columnState{
			result: &mapping.ColumnAnalysisResult{
				SourceColumn:   m.Source,
				TargetFieldKey: m.Target,
				IsRequired:     ok && field.IsRequired(),
			},
			field:       field,
			hasField:    ok,
			valueCounts: make(map[string]int),
		}
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := reader.Read(offset, s.chunkSize)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			for source, col := range columns {
				value := row[source]
				col.result.TotalRows++
				if strings.TrimSpace(value) == "" {
					col.result.BlankCount++
					continue
				}
				col.valueCounts[value]++
			}
		}
		offset += len(rows)
		if len(rows) < s.chunkSize {
			break
		}
	}

	out := make(map[string]*mapping.ColumnAnalysisResult, len(columns))
	for source, col := range columns {
		col.result.UniqueCount = len(col.valueCounts)
		if col.hasField {
			if col.result.IsRequired && col.result.BlankCount > 0 {
				col.result.AddIssue(mapping.ColumnIssue{
					Value:    "",
					Message:  col.field.Label() + " is required",
					RowCount: col.result.BlankCount,
					Severity: mapping.SeverityError,
				})
			}
			for value, count := range col.valueCounts {
				if err := catalog.ValidateValue(col.field, value); err != nil {
					col.result.AddIssue(mapping.ColumnIssue{
						Value:    value,
						Message:  err.Error(),
						RowCount: count,
						Severity: mapping.SeverityError,
					})
				}
			}
		}
		out[source] = col.result
	}
	return out, nil
}

// CorrectValue records a correction and re-validates only the corrected
// value. The old issue entry is dropped; a new one is appended only when the
// replacement still fails. Correcting to the empty string marks the value as
// skipped, which is never an issue.
func (s *AnalysisService) CorrectValue(
	result *mapping.ColumnAnalysisResult,
	corrections *mapping.Corrections,
	field catalog.ImportField,
	oldValue, newValue string,
) {
	previous, _ := result.IssueFor(oldValue)
	corrections.CorrectValue(result.TargetFieldKey, oldValue, newValue)
	result.RemoveIssue(oldValue)
	if strings.TrimSpace(newValue) == "" {
		return
	}
	if err := catalog.ValidateValue(field, newValue); err != nil {
		rowCount := previous.RowCount
		if rowCount == 0 {
			rowCount = 1
		}
		result.AddIssue(mapping.ColumnIssue{
			Value:    oldValue,
			Message:  err.Error(),
			RowCount: rowCount,
			Severity: mapping.SeverityError,
		})
	}
}

// SkipValue excludes a value from the import: rows carrying it get a blank
// cell for this field instead of failing validation.
func (s *AnalysisService) SkipValue(
	result *mapping.ColumnAnalysisResult,
	corrections *mapping.Corrections,
	field catalog.ImportField,
	value string,
) {
	s.CorrectValue(result, corrections, field, value, "")
}
