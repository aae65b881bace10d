package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/session"
)

const (
	fieldSessionID     = "sessionId"
	fieldTeamID        = "teamId"
	fieldEntity        = "entity"
	fieldInputHash     = "inputHash"
	fieldTotal         = "total"
	fieldProcessed     = "processed"
	fieldCreates       = "creates"
	fieldUpdates       = "updates"
	fieldSkips         = "skips"
	fieldState         = "state"
	fieldFailureReason = "failureReason"
	fieldHeartbeat     = "heartbeat"
)

// SessionRepository keeps import session progress in a redis hash. Counters
// advance through HIncrBy so concurrent chunk workers never lose updates,
// and every write refreshes the TTL.
type SessionRepository struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSessionRepository(rdb *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{redis: rdb, prefix: "importer:sessions:v1", ttl: ttl}
}

func (r *SessionRepository) key(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s:{%s}", r.prefix, sessionID.String())
}

func (r *SessionRepository) Get(ctx context.Context, sessionID uuid.UUID) (session.Data, error) {
	values, err := r.redis.HGetAll(ctx, r.key(sessionID)).Result()
	if err != nil {
		return session.Data{}, err
	}
	if len(values) == 0 {
		return session.Data{}, session.ErrSessionNotFound
	}
	return fromHash(values)
}

func (r *SessionRepository) Initialize(ctx context.Context, data session.Data) error {
	key := r.key(data.SessionID)
	pipe := r.redis.TxPipeline()
	pipe.HSet(ctx, key, toHash(data))
	pipe.Expire(ctx, key, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *SessionRepository) IncrementProgress(ctx context.Context, sessionID uuid.UUID, delta session.Progress) (session.Data, error) {
	key := r.key(sessionID)
	exists, err := r.redis.Exists(ctx, key).Result()
	if err != nil {
		return session.Data{}, err
	}
	if exists == 0 {
		return session.Data{}, session.ErrSessionNotFound
	}

	pipe := r.redis.TxPipeline()
	pipe.HIncrBy(ctx, key, fieldProcessed, int64(delta.Processed))
	pipe.HIncrBy(ctx, key, fieldCreates, int64(delta.Creates))
	pipe.HIncrBy(ctx, key, fieldUpdates, int64(delta.Updates))
	pipe.HIncrBy(ctx, key, fieldSkips, int64(delta.Skips))
	pipe.HSet(ctx, key, fieldHeartbeat, time.Now().UTC().Format(time.RFC3339Nano))
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return session.Data{}, err
	}
	return r.Get(ctx, sessionID)
}

func (r *SessionRepository) SetState(ctx context.Context, sessionID uuid.UUID, state session.State, failureReason string) error {
	key := r.key(sessionID)
	exists, err := r.redis.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return session.ErrSessionNotFound
	}
	pipe := r.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		fieldState:         string(state),
		fieldFailureReason: failureReason,
		fieldHeartbeat:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, key, r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	return r.redis.Del(ctx, r.key(sessionID)).Err()
}

func toHash(data session.Data) map[string]any {
	return map[string]any{
		fieldSessionID:     data.SessionID.String(),
		fieldTeamID:        data.TeamID.String(),
		fieldEntity:        data.Entity,
		fieldInputHash:     data.InputHash,
		fieldTotal:         data.Total,
		fieldProcessed:     data.Processed,
		fieldCreates:       data.Creates,
		fieldUpdates:       data.Updates,
		fieldSkips:         data.Skips,
		fieldState:         string(data.State),
		fieldFailureReason: data.FailureReason,
		fieldHeartbeat:     data.Heartbeat.UTC().Format(time.RFC3339Nano),
	}
}

func fromHash(values map[string]string) (session.Data, error) {
	sessionID, err := uuid.Parse(values[fieldSessionID])
	if err != nil {
		return session.Data{}, fmt.Errorf("corrupt session id: %w", err)
	}
	teamID, err := uuid.Parse(values[fieldTeamID])
	if err != nil {
		return session.Data{}, fmt.Errorf("corrupt team id: %w", err)
	}
	heartbeat, _ := time.Parse(time.RFC3339Nano, values[fieldHeartbeat])

	return session.Data{
		SessionID:     sessionID,
		TeamID:        teamID,
		Entity:        values[fieldEntity],
		InputHash:     values[fieldInputHash],
		Total:         atoi(values[fieldTotal]),
		Processed:     atoi(values[fieldProcessed]),
		Creates:       atoi(values[fieldCreates]),
		Updates:       atoi(values[fieldUpdates]),
		Skips:         atoi(values[fieldSkips]),
		State:         session.State(values[fieldState]),
		FailureReason: values[fieldFailureReason],
		Heartbeat:     heartbeat,
	}, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
