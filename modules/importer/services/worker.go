package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/catalog"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/imports"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/session"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/queue"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/tabular"
	"github.com/Relaticle/relaticle-sub002/pkg/composables"
	"github.com/Relaticle/relaticle-sub002/pkg/eventbus"
)

const dequeueTimeout = 5 * time.Second

// ChunkWorker drains the preview chunk queue. Each job covers one bounded
// slice of the file; the worker processes it, appends to the enriched
// artifact, bumps the session counters and chains the next chunk, keeping
// rows in strict file order without holding any state between jobs.
type ChunkWorker struct {
	registry  *catalog.Registry
	store     imports.Store
	sessions  session.Repository
	chunks    JobQueue
	pool      *pgxpool.Pool
	publisher eventbus.EventBus
	log       *logrus.Logger
}

func NewChunkWorker(
	registry *catalog.Registry,
	store imports.Store,
	sessions session.Repository,
	chunks JobQueue,
	pool *pgxpool.Pool,
	publisher eventbus.EventBus,
	log *logrus.Logger,
) *ChunkWorker {
	return &ChunkWorker{
		registry:  registry,
		store:     store,
		sessions:  sessions,
		chunks:    chunks,
		pool:      pool,
		publisher: publisher,
		log:       log,
	}
}

// Run blocks dequeuing jobs until the context is cancelled.
func (w *ChunkWorker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, ok, err := w.chunks.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.WithError(err).Error("dequeue chunk job")
			continue
		}
		if !ok {
			continue
		}
		w.Process(ctx, job)
	}
}

// Process handles one chunk job. Failures mark the session failed instead of
// propagating; a stalled poll loop would otherwise be the only signal.
func (w *ChunkWorker) Process(ctx context.Context, job queue.ChunkJob) {
	ctx = composables.WithPool(ctx, w.pool)
	ctx = composables.WithTenant(ctx, composables.TenantContext{TeamID: job.TeamID, UserID: job.UserID})

	log := w.log.WithFields(logrus.Fields{
		"session": job.SessionID,
		"offset":  job.Offset,
		"limit":   job.Limit,
	})

	data, err := w.sessions.Get(ctx, job.SessionID)
	if err != nil {
		log.WithError(err).Warn("chunk job for missing session dropped")
		return
	}
	if data.InputHash != job.Fingerprint {
		// The mapping changed since this job was queued; a fresh preview
		// owns the session now.
		log.Info("stale chunk job dropped")
		return
	}
	if data.State == session.StateFailed {
		return
	}

	if err := w.processChunk(ctx, job, data); err != nil {
		log.WithError(err).Error("chunk processing failed")
		if stateErr := w.sessions.SetState(ctx, job.SessionID, session.StateFailed, err.Error()); stateErr != nil {
			log.WithError(stateErr).Error("mark session failed")
		}
		w.publisher.Publish(ImportFailedEvent{
			SessionID: job.SessionID,
			TeamID:    job.TeamID,
			Reason:    err.Error(),
		})
	}
}

func (w *ChunkWorker) processChunk(ctx context.Context, job queue.ChunkJob, data session.Data) error {
	c, err := w.registry.Get(catalog.EntityType(job.Entity))
	if err != nil {
		return err
	}
	set, err := job.MappingSet()
	if err != nil {
		return err
	}

	reader, err := tabular.Open(job.FilePath)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	resolver := NewPreloadResolver(w.store, w.registry)
	if err := resolver.Preload(ctx, c.Entity(), matcherFields(c)); err != nil {
		return err
	}
	planner := &rowPlanner{
		catalog:     c,
		set:         set,
		corrections: job.Corrections,
		strategy:    job.Strategy,
		resolver:    resolver,
	}

	rows, err := reader.Read(job.Offset, job.Limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no rows at offset %d, expected %d total", job.Offset, data.Total)
	}

	delta := session.Progress{}
	enriched := make([]tabular.Row, 0, len(rows))
	for _, row := range rows {
		plan, err := planner.plan(ctx, row)
		if err != nil {
			return err
		}
		enriched = append(enriched, plan.derived)
		delta.Processed++
		// Failed rows advance Processed only, matching the sync batch.
		if plan.failure != "" {
			continue
		}
		switch plan.action {
		case imports.ActionCreate:
			delta.Creates++
		case imports.ActionUpdate:
			delta.Updates++
		default:
			delta.Skips++
		}
	}

	writer, err := tabular.OpenArtifactWriter(job.ArtifactPath, enrichedHeader(set))
	if err != nil {
		return err
	}
	if err := writer.Append(enriched); err != nil {
		return err
	}

	updated, err := w.sessions.IncrementProgress(ctx, job.SessionID, delta)
	if err != nil {
		return err
	}

	if updated.Done() {
		next, err := session.Next(session.StateReviewed, session.EventPreviewReady)
		if err != nil {
			return err
		}
		if err := w.sessions.SetState(ctx, job.SessionID, next, ""); err != nil {
			return err
		}
		w.publisher.Publish(PreviewReadyEvent{
			SessionID: job.SessionID,
			TeamID:    job.TeamID,
			Creates:   updated.Creates,
			Updates:   updated.Updates,
			Skips:     updated.Skips,
		})
		return nil
	}

	nextJob := job
	nextJob.Offset = job.Offset + len(rows)
	return w.chunks.Enqueue(ctx, nextJob)
}
