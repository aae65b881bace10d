package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Relaticle/relaticle-sub002/pkg/serrors"
)

var ErrSessionNotFound = serrors.NewError(
	"IMPORT_SESSION_NOT_FOUND",
	"import session not found",
	"the session may have expired or was never started",
)

// Data is the shared progress record for one import session. The worker and
// the caller both read and write it through Repository, so every counter
// mutation goes through an atomic increment rather than a read-modify-write.
type Data struct {
	SessionID     uuid.UUID `json:"sessionId"`
	TeamID        uuid.UUID `json:"teamId"`
	Entity        string    `json:"entity"`
	InputHash     string    `json:"inputHash"`
	Total         int       `json:"total"`
	Processed     int       `json:"processed"`
	Creates       int       `json:"creates"`
	Updates       int       `json:"updates"`
	Skips         int       `json:"skips"`
	State         State     `json:"state"`
	FailureReason string    `json:"failureReason,omitempty"`
	Heartbeat     time.Time `json:"heartbeat"`
}

func (d Data) Done() bool {
	return d.Processed >= d.Total
}

// Progress is the per-chunk delta the worker reports.
type Progress struct {
	Processed int
	Creates   int
	Updates   int
	Skips     int
}

type Repository interface {
	Get(ctx context.Context, sessionID uuid.UUID) (Data, error)
	Initialize(ctx context.Context, data Data) error
	// IncrementProgress adds the delta atomically and refreshes the
	// heartbeat. Counters only ever grow.
	IncrementProgress(ctx context.Context, sessionID uuid.UUID, delta Progress) (Data, error)
	SetState(ctx context.Context, sessionID uuid.UUID, state State, failureReason string) error
	Delete(ctx context.Context, sessionID uuid.UUID) error
}
