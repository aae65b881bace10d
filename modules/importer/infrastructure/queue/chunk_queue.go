package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/imports"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/mapping"
)

// ChunkJob carries everything a worker needs to process one slice of the
// uploaded file without touching shared mutable state.
type ChunkJob struct {
	SessionID    uuid.UUID               `json:"sessionId"`
	TeamID       uuid.UUID               `json:"teamId"`
	UserID       uuid.UUID               `json:"userId"`
	Entity       string                  `json:"entity"`
	FilePath     string                  `json:"filePath"`
	ArtifactPath string                  `json:"artifactPath"`
	Offset       int                     `json:"offset"`
	Limit        int                     `json:"limit"`
	Fingerprint  string                  `json:"fingerprint"`
	Strategy     imports.Strategy        `json:"strategy"`
	Mappings     []mapping.ColumnMapping `json:"mappings"`
	Corrections  *mapping.Corrections    `json:"corrections,omitempty"`
}

// MappingSet rebuilds the Set from the serialized mappings.
func (j ChunkJob) MappingSet() (*mapping.Set, error) {
	set := mapping.NewSet()
	for _, m := range j.Mappings {
		if err := set.Add(m); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// ChunkQueue is a redis list used as a FIFO work queue between the preview
// pipeline and the chunk workers.
type ChunkQueue struct {
	redis *redis.Client
	key   string
}

func NewChunkQueue(rdb *redis.Client) *ChunkQueue {
	return &ChunkQueue{redis: rdb, key: "importer:chunks:v1"}
}

func (q *ChunkQueue) Enqueue(ctx context.Context, jobs ...ChunkJob) error {
	if len(jobs) == 0 {
		return nil
	}
	payloads := make([]any, 0, len(jobs))
	for _, job := range jobs {
		raw, err := json.Marshal(job)
		if err != nil {
			return err
		}
		payloads = append(payloads, raw)
	}
	return q.redis.LPush(ctx, q.key, payloads...).Err()
}

// Dequeue blocks up to timeout for the next job. The second return value is
// false when the timeout elapsed with nothing queued.
func (q *ChunkQueue) Dequeue(ctx context.Context, timeout time.Duration) (ChunkJob, bool, error) {
	result, err := q.redis.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if err == redis.Nil {
			return ChunkJob{}, false, nil
		}
		return ChunkJob{}, false, err
	}
	var job ChunkJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return ChunkJob{}, false, err
	}
	return job, true, nil
}

func (q *ChunkQueue) Len(ctx context.Context) (int64, error) {
	return q.redis.LLen(ctx, q.key).Result()
}
