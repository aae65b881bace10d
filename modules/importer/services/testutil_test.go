package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/imports"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/session"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/queue"
	"github.com/Relaticle/relaticle-sub002/pkg/composables"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testContext(teamID uuid.UUID) context.Context {
	ctx := composables.WithTenant(context.Background(), composables.TenantContext{
		TeamID: teamID,
		UserID: uuid.New(),
	})
	return composables.WithTx(ctx, stubTx{})
}

func writeCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

// memStore is an in-memory imports.Store that mirrors the matching
// semantics of the SQL store: case-insensitive, candidate-splitting both
// sides.
type memStore struct {
	mu          sync.Mutex
	records     map[string][]imports.Record
	links       map[uuid.UUID][]uuid.UUID
	listCalls   int
	queryCalls  int
	createCalls int
	updateCalls int
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[string][]imports.Record),
		links:   make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *memStore) seed(entity string, fields map[string]string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.records[entity] = append(s.records[entity], imports.Record{ID: id, Entity: entity, Fields: fields})
	return id
}

func (s *memStore) ListByTeam(ctx context.Context, entity string, fieldKeys []string) ([]imports.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return append([]imports.Record(nil), s.records[entity]...), nil
}

func (s *memStore) FindByID(ctx context.Context, entity string, id uuid.UUID) (imports.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCalls++
	for _, rec := range s.records[entity] {
		if rec.ID == id {
			return rec, nil
		}
	}
	return imports.Record{}, imports.ErrRecordNotFound
}

func (s *memStore) FindByField(ctx context.Context, entity, fieldKey string, candidates []string) ([]imports.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCalls++
	var out []imports.Record
	for _, rec := range s.records[entity] {
		for _, stored := range rec.Candidates(fieldKey) {
			for _, cand := range candidates {
				if strings.EqualFold(stored, cand) {
					out = append(out, rec)
				}
			}
		}
	}
	return out, nil
}

func (s *memStore) Create(ctx context.Context, entity string, fields map[string]string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	id := uuid.New()
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.records[entity] = append(s.records[entity], imports.Record{ID: id, Entity: entity, Fields: copied})
	return id, nil
}

func (s *memStore) Update(ctx context.Context, entity string, id uuid.UUID, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	for i, rec := range s.records[entity] {
		if rec.ID == id {
			for k, v := range fields {
				s.records[entity][i].Fields[k] = v
			}
			return nil
		}
	}
	return imports.ErrRecordNotFound
}

func (s *memStore) Link(ctx context.Context, entity string, id uuid.UUID, relationship string, relatedID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[id] = append(s.links[id], relatedID)
	return nil
}

// memSessions is an in-memory session.Repository that records every
// processed-counter value it has seen, so tests can assert monotonicity.
type memSessions struct {
	mu       sync.Mutex
	data     map[uuid.UUID]session.Data
	observed []int
}

func newMemSessions() *memSessions {
	return &memSessions{data: make(map[uuid.UUID]session.Data)}
}

func (r *memSessions) Get(ctx context.Context, sessionID uuid.UUID) (session.Data, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.data[sessionID]
	if !ok {
		return session.Data{}, session.ErrSessionNotFound
	}
	return data, nil
}

func (r *memSessions) Initialize(ctx context.Context, data session.Data) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[data.SessionID] = data
	r.observed = append(r.observed, data.Processed)
	return nil
}

func (r *memSessions) IncrementProgress(ctx context.Context, sessionID uuid.UUID, delta session.Progress) (session.Data, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.data[sessionID]
	if !ok {
		return session.Data{}, session.ErrSessionNotFound
	}
	data.Processed += delta.Processed
	data.Creates += delta.Creates
	data.Updates += delta.Updates
	data.Skips += delta.Skips
	data.Heartbeat = time.Now()
	r.data[sessionID] = data
	r.observed = append(r.observed, data.Processed)
	return data, nil
}

func (r *memSessions) SetState(ctx context.Context, sessionID uuid.UUID, state session.State, failureReason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.data[sessionID]
	if !ok {
		return session.ErrSessionNotFound
	}
	data.State = state
	data.FailureReason = failureReason
	r.data[sessionID] = data
	return nil
}

func (r *memSessions) Delete(ctx context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, sessionID)
	return nil
}

// memQueue is a non-blocking FIFO JobQueue.
type memQueue struct {
	mu   sync.Mutex
	jobs []queue.ChunkJob
}

func (q *memQueue) Enqueue(ctx context.Context, jobs ...queue.ChunkJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, jobs...)
	return nil
}

func (q *memQueue) Dequeue(ctx context.Context, timeout time.Duration) (queue.ChunkJob, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return queue.ChunkJob{}, false, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true, nil
}

func (q *memQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// memLock hands out the lock immediately and remembers calls.
type memLock struct {
	mu       sync.Mutex
	held     bool
	acquires int
	releases int
}

func (l *memLock) Acquire(ctx context.Context, teamID uuid.UUID, lease time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return "", queue.ErrLockHeld
	}
	l.held = true
	l.acquires++
	return "token", nil
}

func (l *memLock) Refresh(ctx context.Context, teamID uuid.UUID, token string, lease time.Duration) (bool, error) {
	return true, nil
}

func (l *memLock) Release(ctx context.Context, teamID uuid.UUID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.releases++
	return nil
}

// stubTx satisfies pgx.Tx for code paths that only need a transaction to be
// present in the context; none of its methods are expected to run.
type stubTx struct{}

func (stubTx) Begin(ctx context.Context) (pgx.Tx, error) { return stubTx{}, nil }
func (stubTx) Commit(ctx context.Context) error          { return nil }
func (stubTx) Rollback(ctx context.Context) error        { return nil }
func (stubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (stubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (stubTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (stubTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (stubTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}
func (stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (stubTx) Conn() *pgx.Conn                                               { return nil }
