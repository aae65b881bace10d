package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/queue"
)

// JobQueue is the chunk job transport between the preview pipeline and the
// workers.
type JobQueue interface {
	Enqueue(ctx context.Context, jobs ...queue.ChunkJob) error
	Dequeue(ctx context.Context, timeout time.Duration) (queue.ChunkJob, bool, error)
}

// TeamLock serializes import commits per team.
type TeamLock interface {
	Acquire(ctx context.Context, teamID uuid.UUID, lease time.Duration) (string, error)
	Refresh(ctx context.Context, teamID uuid.UUID, token string, lease time.Duration) (bool, error)
	Release(ctx context.Context, teamID uuid.UUID, token string) error
}
