package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Relaticle/relaticle-sub002/pkg/serrors"
)

var ErrLockHeld = serrors.NewError(
	"IMPORT_LOCK_HELD",
	"another import is already running for this workspace",
	"wait for the running import to finish",
)

// releaseScript deletes the lock only when the caller still holds it, so a
// worker whose lease expired cannot release a lock re-acquired by another.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// TenantLock serializes import commits per team. At most one import writes
// records for a team at a time; Acquire returns ErrLockHeld immediately and
// leaves the waiting policy to the caller.
type TenantLock struct {
	redis  *redis.Client
	prefix string
}

func NewTenantLock(rdb *redis.Client) *TenantLock {
	return &TenantLock{redis: rdb, prefix: "importer:locks:v1"}
}

func (l *TenantLock) key(teamID uuid.UUID) string {
	return fmt.Sprintf("%s:{%s}", l.prefix, teamID.String())
}

// Acquire takes the team's lock for the lease duration. The returned token
// must be passed to Release and Refresh.
func (l *TenantLock) Acquire(ctx context.Context, teamID uuid.UUID, lease time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.redis.SetNX(ctx, l.key(teamID), token, lease).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

// Refresh extends the lease while a long commit is still making progress.
// Returns false when the lock is no longer held by this token.
func (l *TenantLock) Refresh(ctx context.Context, teamID uuid.UUID, token string, lease time.Duration) (bool, error) {
	n, err := refreshScript.Run(ctx, l.redis, []string{l.key(teamID)}, token, lease.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *TenantLock) Release(ctx context.Context, teamID uuid.UUID, token string) error {
	return releaseScript.Run(ctx, l.redis, []string{l.key(teamID)}, token).Err()
}

const (
	minLease = time.Minute
	maxLease = 10 * time.Minute
)

// LeaseFor sizes the lock lease from the chunk size: one second per row,
// clamped to [1m, 10m], then doubled for headroom. A crashed worker blocks
// its team for at most twice the clamp ceiling.
func LeaseFor(chunkSize int) time.Duration {
	lease := time.Duration(chunkSize) * time.Second
	if lease < minLease {
		lease = minLease
	}
	if lease > maxLease {
		lease = maxLease
	}
	return 2 * lease
}
