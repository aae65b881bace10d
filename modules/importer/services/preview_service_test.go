package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/catalog"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/imports"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/mapping"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/session"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/queue"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/tabular"
	"github.com/Relaticle/relaticle-sub002/pkg/configuration"
	"github.com/Relaticle/relaticle-sub002/pkg/eventbus"
)

func testOpts(t *testing.T) configuration.ImportOptions {
	t.Helper()
	return configuration.ImportOptions{
		InitialBatchSize: 50,
		ChunkSize:        200,
		MaxRows:          100000,
		SessionTTL:       time.Hour,
		ArtifactsDir:     t.TempDir(),
		SampleSize:       20,
	}
}

func companyMapping(t *testing.T) *mapping.Set {
	t.Helper()
	set := mapping.NewSet()
	require.NoError(t, set.Add(mapping.ColumnMapping{Source: "Company", Target: "name"}))
	require.NoError(t, set.Add(mapping.ColumnMapping{Source: "Website", Target: "domain_name"}))
	return set
}

func newPreviewService(t *testing.T, store *memStore, sessions *memSessions, chunks *memQueue, opts configuration.ImportOptions) *PreviewService {
	t.Helper()
	return NewPreviewService(
		catalog.DefaultRegistry(),
		store,
		sessions,
		chunks,
		eventbus.NewEventPublisher(testLogger()),
		opts,
		testLogger(),
	)
}

func TestPreviewService_GenerateSmallFileCompletesSynchronously(t *testing.T) {
	path := writeCSV(t,
		"Company,Website",
		"Acme,acme.com",
		"Globex,globex.io",
	)
	store := newMemStore()
	store.seed("company", map[string]string{"name": "Existing", "domain_name": "globex.io"})
	sessions := newMemSessions()
	chunks := &memQueue{}
	svc := newPreviewService(t, store, sessions, chunks, testOpts(t))
	ctx := testContext(uuid.New())

	sessionID := uuid.New()
	result, err := svc.Generate(ctx, PreviewInput{
		SessionID:   sessionID,
		Entity:      catalog.EntityCompany,
		FilePath:    path,
		Set:         companyMapping(t),
		Corrections: mapping.NewCorrections(),
		Strategy:    imports.StrategyUpdateExisting,
	})
	require.NoError(t, err)

	require.False(t, result.Reused)
	require.Equal(t, 2, result.Total)
	require.Equal(t, 2, result.Processed)
	require.Equal(t, 1, result.Creates)
	require.Equal(t, 1, result.Updates)
	require.Empty(t, result.Failures)
	require.Equal(t, 0, chunks.len())

	data, err := sessions.Get(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, session.StatePreviewed, data.State)

	// The enriched artifact carries derived keys as header and every row.
	reader, err := tabular.OpenCSV(result.ArtifactPath)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()
	require.Equal(t, []string{"name", "domain_name"}, reader.Header())
	count, err := reader.Count()
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestPreviewService_GenerateIsIdempotentPerFingerprint(t *testing.T) {
	path := writeCSV(t, "Company", "Acme", "Globex")
	store := newMemStore()
	sessions := newMemSessions()
	chunks := &memQueue{}
	svc := newPreviewService(t, store, sessions, chunks, testOpts(t))
	ctx := testContext(uuid.New())

	set := mapping.NewSet()
	require.NoError(t, set.Add(mapping.ColumnMapping{Source: "Company", Target: "name"}))
	input := PreviewInput{
		SessionID:   uuid.New(),
		Entity:      catalog.EntityCompany,
		FilePath:    path,
		Set:         set,
		Corrections: mapping.NewCorrections(),
		Strategy:    imports.StrategyUpdateExisting,
	}

	first, err := svc.Generate(ctx, input)
	require.NoError(t, err)
	require.False(t, first.Reused)
	listCallsAfterFirst := store.listCalls

	second, err := svc.Generate(ctx, input)
	require.NoError(t, err)
	require.True(t, second.Reused)
	require.Equal(t, first.InputHash, second.InputHash)
	require.Equal(t, first.Creates, second.Creates)
	require.Equal(t, listCallsAfterFirst, store.listCalls)
	require.Len(t, second.Rows, 2)

	// Changing the strategy changes the fingerprint and regenerates.
	input.Strategy = imports.StrategySkip
	third, err := svc.Generate(ctx, input)
	require.NoError(t, err)
	require.False(t, third.Reused)
	require.NotEqual(t, first.InputHash, third.InputHash)
}

func TestPreviewService_NameMatcherAlwaysCreates(t *testing.T) {
	path := writeCSV(t, "Company", "Acme", "Acme", "Globex")
	store := newMemStore()
	store.seed("company", map[string]string{"name": "Acme"})
	sessions := newMemSessions()
	svc := newPreviewService(t, store, sessions, &memQueue{}, testOpts(t))
	ctx := testContext(uuid.New())

	set := mapping.NewSet()
	require.NoError(t, set.Add(mapping.ColumnMapping{Source: "Company", Target: "name"}))

	result, err := svc.Generate(ctx, PreviewInput{
		SessionID:   uuid.New(),
		Entity:      catalog.EntityCompany,
		FilePath:    path,
		Set:         set,
		Corrections: mapping.NewCorrections(),
		Strategy:    imports.StrategyUpdateExisting,
	})
	require.NoError(t, err)

	require.Equal(t, 3, result.Creates)
	require.Equal(t, 0, result.Updates)
	require.Equal(t, 0, result.Skips)
}

func TestPreviewService_NonexistentIDFailsRowOnly(t *testing.T) {
	missing := uuid.NewString()
	path := writeCSV(t,
		"ID,Company",
		missing+",Acme",
		",Globex",
	)
	store := newMemStore()
	sessions := newMemSessions()
	svc := newPreviewService(t, store, sessions, &memQueue{}, testOpts(t))
	ctx := testContext(uuid.New())

	set := mapping.NewSet()
	require.NoError(t, set.Add(mapping.ColumnMapping{Source: "ID", Target: "id"}))
	require.NoError(t, set.Add(mapping.ColumnMapping{Source: "Company", Target: "name"}))

	result, err := svc.Generate(ctx, PreviewInput{
		SessionID:   uuid.New(),
		Entity:      catalog.EntityCompany,
		FilePath:    path,
		Set:         set,
		Corrections: mapping.NewCorrections(),
		Strategy:    imports.StrategyUpdateExisting,
	})
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	require.Equal(t, 1, result.Failures[0].Row)
	require.Equal(t,
		"Record with ID "+missing+" not found or does not belong to your workspace",
		result.Failures[0].Reason)

	// The blank-id row falls through to the name matcher and still creates.
	require.Equal(t, 1, result.Creates)
}

func TestPreviewService_UnmappedRequiredFieldIsRejected(t *testing.T) {
	path := writeCSV(t, "Website", "acme.com")
	svc := newPreviewService(t, newMemStore(), newMemSessions(), &memQueue{}, testOpts(t))
	ctx := testContext(uuid.New())

	set := mapping.NewSet()
	require.NoError(t, set.Add(mapping.ColumnMapping{Source: "Website", Target: "domain_name"}))

	_, err := svc.Generate(ctx, PreviewInput{
		SessionID:   uuid.New(),
		Entity:      catalog.EntityCompany,
		FilePath:    path,
		Set:         set,
		Corrections: mapping.NewCorrections(),
		Strategy:    imports.StrategyUpdateExisting,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), `required field "name" is not mapped`)
}

func TestPreviewService_RowCeiling(t *testing.T) {
	path := writeCSV(t, "Company", "a", "b", "c")
	opts := testOpts(t)
	opts.MaxRows = 2
	svc := newPreviewService(t, newMemStore(), newMemSessions(), &memQueue{}, opts)
	ctx := testContext(uuid.New())

	set := mapping.NewSet()
	require.NoError(t, set.Add(mapping.ColumnMapping{Source: "Company", Target: "name"}))

	_, err := svc.Generate(ctx, PreviewInput{
		SessionID:   uuid.New(),
		Entity:      catalog.EntityCompany,
		FilePath:    path,
		Set:         set,
		Corrections: mapping.NewCorrections(),
		Strategy:    imports.StrategyUpdateExisting,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "limit is 2")
}

func TestPreviewService_LargeFileChainsChunksThroughWorker(t *testing.T) {
	path := writeCSV(t, "Company", "r1", "r2", "r3", "r4", "r5", "r6")
	opts := testOpts(t)
	opts.InitialBatchSize = 2
	opts.ChunkSize = 2

	store := newMemStore()
	sessions := newMemSessions()
	chunks := &memQueue{}
	svc := newPreviewService(t, store, sessions, chunks, opts)
	teamID := uuid.New()
	ctx := testContext(teamID)

	set := mapping.NewSet()
	require.NoError(t, set.Add(mapping.ColumnMapping{Source: "Company", Target: "name"}))

	sessionID := uuid.New()
	result, err := svc.Generate(ctx, PreviewInput{
		SessionID:   sessionID,
		Entity:      catalog.EntityCompany,
		FilePath:    path,
		Set:         set,
		Corrections: mapping.NewCorrections(),
		Strategy:    imports.StrategyUpdateExisting,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
	require.Equal(t, 6, result.Total)
	require.Equal(t, 1, chunks.len())

	worker := NewChunkWorker(
		catalog.DefaultRegistry(),
		store,
		sessions,
		chunks,
		nil,
		eventbus.NewEventPublisher(testLogger()),
		testLogger(),
	)

	// Each job chains the next offset; two more rounds finish the file.
	for i := 0; i < 2; i++ {
		job, ok, err := chunks.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		require.True(t, ok, "round %d", i)
		worker.Process(ctx, job)
	}
	require.Equal(t, 0, chunks.len())

	data, err := svc.Progress(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, 6, data.Processed)
	require.Equal(t, 6, data.Creates)
	require.Equal(t, session.StatePreviewed, data.State)
	require.Empty(t, data.FailureReason)

	// Progress only ever moved forward.
	last := -1
	for _, seen := range sessions.observed {
		require.Greater(t, seen, last)
		last = seen
	}

	reader, err := tabular.OpenCSV(result.ArtifactPath)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()
	count, err := reader.Count()
	require.NoError(t, err)
	require.Equal(t, 6, count)
	rows, err := reader.Read(0, 10)
	require.NoError(t, err)
	require.Equal(t, "r1", rows[0]["name"])
	require.Equal(t, "r6", rows[5]["name"])
}

func chunkJobFor(sessionID uuid.UUID, path, fingerprint string) queue.ChunkJob {
	return queue.ChunkJob{
		SessionID:    sessionID,
		TeamID:       uuid.New(),
		UserID:       uuid.New(),
		Entity:       string(catalog.EntityCompany),
		FilePath:     path,
		ArtifactPath: path + ".enriched",
		Offset:       0,
		Limit:        50,
		Fingerprint:  fingerprint,
		Strategy:     imports.StrategyUpdateExisting,
		Mappings:     []mapping.ColumnMapping{{Source: "Company", Target: "name"}},
		Corrections:  mapping.NewCorrections(),
	}
}

func TestChunkWorker_StaleFingerprintJobDropped(t *testing.T) {
	path := writeCSV(t, "Company", "Acme")
	store := newMemStore()
	sessions := newMemSessions()
	sessionID := uuid.New()
	require.NoError(t, sessions.Initialize(testContext(uuid.New()), session.Data{
		SessionID: sessionID,
		InputHash: "current-hash",
		State:     session.StateReviewed,
		Total:     1,
	}))

	worker := NewChunkWorker(
		catalog.DefaultRegistry(),
		store,
		sessions,
		&memQueue{},
		nil,
		eventbus.NewEventPublisher(testLogger()),
		testLogger(),
	)
	worker.Process(testContext(uuid.New()), chunkJobFor(sessionID, path, "stale-hash"))

	data, err := sessions.Get(testContext(uuid.New()), sessionID)
	require.NoError(t, err)
	require.Equal(t, 0, data.Processed)
	require.Equal(t, session.StateReviewed, data.State)
}

func TestChunkWorker_FailedRowsAdvanceProcessedOnly(t *testing.T) {
	path := writeCSV(t,
		"Name,Email",
		"Jane,not-an-email",
		"John,john@acme.com",
	)
	sessions := newMemSessions()
	sessionID := uuid.New()
	require.NoError(t, sessions.Initialize(testContext(uuid.New()), session.Data{
		SessionID: sessionID,
		InputHash: "hash",
		State:     session.StateReviewed,
		Total:     2,
	}))

	worker := NewChunkWorker(
		catalog.DefaultRegistry(),
		newMemStore(),
		sessions,
		&memQueue{},
		nil,
		eventbus.NewEventPublisher(testLogger()),
		testLogger(),
	)
	job := queue.ChunkJob{
		SessionID:    sessionID,
		TeamID:       uuid.New(),
		UserID:       uuid.New(),
		Entity:       string(catalog.EntityPerson),
		FilePath:     path,
		ArtifactPath: filepath.Join(t.TempDir(), "enriched.csv"),
		Limit:        50,
		Fingerprint:  "hash",
		Strategy:     imports.StrategyUpdateExisting,
		Mappings: []mapping.ColumnMapping{
			{Source: "Name", Target: "name"},
			{Source: "Email", Target: "emails"},
		},
		Corrections: mapping.NewCorrections(),
	}
	_, err := tabular.NewArtifactWriter(job.ArtifactPath, []string{"name", "emails"})
	require.NoError(t, err)
	worker.Process(testContext(uuid.New()), job)

	data, err := sessions.Get(testContext(uuid.New()), sessionID)
	require.NoError(t, err)
	require.Equal(t, 2, data.Processed)
	require.Equal(t, 1, data.Creates)
	require.Equal(t, 0, data.Skips)
	require.Equal(t, session.StatePreviewed, data.State)
}

func TestChunkWorker_EmptyChunkMarksSessionFailed(t *testing.T) {
	path := writeCSV(t, "Company", "Acme")
	sessions := newMemSessions()
	sessionID := uuid.New()
	require.NoError(t, sessions.Initialize(testContext(uuid.New()), session.Data{
		SessionID: sessionID,
		InputHash: "hash",
		State:     session.StateReviewed,
		Total:     50,
	}))

	worker := NewChunkWorker(
		catalog.DefaultRegistry(),
		newMemStore(),
		sessions,
		&memQueue{},
		nil,
		eventbus.NewEventPublisher(testLogger()),
		testLogger(),
	)
	job := chunkJobFor(sessionID, path, "hash")
	job.Offset = 10
	worker.Process(testContext(uuid.New()), job)

	data, err := sessions.Get(testContext(uuid.New()), sessionID)
	require.NoError(t, err)
	require.Equal(t, session.StateFailed, data.State)
	require.NotEmpty(t, data.FailureReason)
}
