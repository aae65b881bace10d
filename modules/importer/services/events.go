package services

import (
	"github.com/google/uuid"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/imports"
)

// PreviewStartedEvent fires after the sync batch is written and the
// remainder, if any, is queued.
type PreviewStartedEvent struct {
	SessionID uuid.UUID
	TeamID    uuid.UUID
	Entity    string
	InputHash string
	Total     int
}

// PreviewReadyEvent fires when processed reaches total.
type PreviewReadyEvent struct {
	SessionID uuid.UUID
	TeamID    uuid.UUID
	Creates   int
	Updates   int
	Skips     int
}

// ImportCommittedEvent fires after a commit run finishes, successful rows
// and failures both counted.
type ImportCommittedEvent struct {
	SessionID uuid.UUID
	TeamID    uuid.UUID
	Entity    string
	Creates   int
	Updates   int
	Skips     int
	Failures  []imports.RowFailure
}

// ImportFailedEvent fires when a run or chunk aborts.
type ImportFailedEvent struct {
	SessionID uuid.UUID
	TeamID    uuid.UUID
	Reason    string
}
