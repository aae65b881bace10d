package imports

import (
	"strings"

	"github.com/google/uuid"

	"github.com/Relaticle/relaticle-sub002/pkg/serrors"
)

var (
	ErrRecordNotFound = serrors.NewError(
		"IMPORT_RECORD_NOT_FOUND",
		"record not found",
		"the record may belong to another workspace",
	)
	ErrInvalidID = serrors.NewError(
		"IMPORT_INVALID_ID",
		"value is not a valid record ID",
		"record IDs are UUIDs",
	)
)

// Record is a flat view of a CRM record during import. Fields holds the
// stored values keyed by field key; multi-value fields keep their raw
// comma-separated form.
type Record struct {
	ID     uuid.UUID
	Entity string
	Fields map[string]string
}

func (r Record) Field(key string) string {
	return r.Fields[key]
}

// Candidates splits a multi-value field into its trimmed non-blank
// candidates, so "a@x.com, b@x.com" matches on either address.
func (r Record) Candidates(key string) []string {
	return SplitCandidates(r.Fields[key])
}

// SplitCandidates applies multi-value splitting to a raw cell value.
func SplitCandidates(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// RowFailure records one row that could not be imported. The remaining rows
// of the file are unaffected.
type RowFailure struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
