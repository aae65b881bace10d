package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/catalog"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/imports"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/mapping"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/session"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/queue"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/tabular"
	"github.com/Relaticle/relaticle-sub002/pkg/composables"
	"github.com/Relaticle/relaticle-sub002/pkg/configuration"
	"github.com/Relaticle/relaticle-sub002/pkg/eventbus"
)

// PreviewInput describes one preview request, assembled by the caller from
// the wizard's confirmed mapping and review corrections.
type PreviewInput struct {
	SessionID   uuid.UUID
	Entity      catalog.EntityType
	FilePath    string
	Set         *mapping.Set
	Corrections *mapping.Corrections
	Strategy    imports.Strategy
}

// PreviewRow is one planned row of the sync batch, shown to the operator
// immediately.
type PreviewRow struct {
	Values map[string]string `json:"values"`
	Action imports.Action    `json:"action"`
}

type PreviewResult struct {
	SessionID    uuid.UUID            `json:"sessionId"`
	InputHash    string               `json:"inputHash"`
	Reused       bool                 `json:"reused"`
	Rows         []PreviewRow         `json:"rows"`
	Creates      int                  `json:"creates"`
	Updates      int                  `json:"updates"`
	Skips        int                  `json:"skips"`
	Processed    int                  `json:"processed"`
	Total        int                  `json:"total"`
	Failures     []imports.RowFailure `json:"failures,omitempty"`
	ArtifactPath string               `json:"artifactPath"`
}

// PreviewService generates the create/update preview in two phases: the
// first batch synchronously for immediate feedback, the remainder through
// queued chunk jobs.
type PreviewService struct {
	registry  *catalog.Registry
	store     imports.Store
	sessions  session.Repository
	chunks    JobQueue
	publisher eventbus.EventBus
	opts      configuration.ImportOptions
	log       *logrus.Logger
}

func NewPreviewService(
	registry *catalog.Registry,
	store imports.Store,
	sessions session.Repository,
	chunks JobQueue,
	publisher eventbus.EventBus,
	opts configuration.ImportOptions,
	log *logrus.Logger,
) *PreviewService {
	return &PreviewService{
		registry:  registry,
		store:     store,
		sessions:  sessions,
		chunks:    chunks,
		publisher: publisher,
		opts:      opts,
		log:       log,
	}
}

// ArtifactPath names the enriched artifact for one session and fingerprint.
func (s *PreviewService) ArtifactPath(sessionID uuid.UUID, inputHash string) string {
	name := fmt.Sprintf("%s-%s.csv", sessionID, mapping.ShortFingerprint(inputHash))
	return filepath.Join(s.opts.ArtifactsDir, name)
}

// Generate computes the preview. When the stored session already carries the
// same input hash the cached result is returned untouched; any change to the
// mapping, corrections or strategy produces a new hash and a full
// regeneration.
func (s *PreviewService) Generate(ctx context.Context, input PreviewInput) (*PreviewResult, error) {
	c, err := s.registry.Get(input.Entity)
	if err != nil {
		return nil, err
	}
	if err := requireMappedFields(c, input.Set); err != nil {
		return nil, err
	}

	inputHash, err := mapping.Fingerprint(input.FilePath, input.Set, string(input.Strategy), input.Corrections)
	if err != nil {
		return nil, errors.Wrap(err, "fingerprint preview input")
	}
	artifactPath := s.ArtifactPath(input.SessionID, inputHash)

	if existing, err := s.sessions.Get(ctx, input.SessionID); err == nil {
		if existing.InputHash == inputHash && existing.State != session.StateFailed {
			return s.reusedResult(input, existing, artifactPath)
		}
	} else if !errors.Is(err, session.ErrSessionNotFound) {
		return nil, err
	}

	tenant, err := composables.UseTenant(ctx)
	if err != nil {
		return nil, err
	}

	reader, err := tabular.Open(input.FilePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	total, err := reader.Count()
	if err != nil {
		return nil, err
	}
	if total > s.opts.MaxRows {
		return nil, fmt.Errorf("file has %d rows, the limit is %d", total, s.opts.MaxRows)
	}

	resolver := NewPreloadResolver(s.store, s.registry)
	if err := resolver.Preload(ctx, input.Entity, matcherFields(c)); err != nil {
		return nil, err
	}
	planner := &rowPlanner{
		catalog:     c,
		set:         input.Set,
		corrections: input.Corrections,
		strategy:    input.Strategy,
		resolver:    resolver,
	}

	batchSize := s.opts.InitialBatchSize
	if batchSize > total {
		batchSize = total
	}
	rows, err := reader.Read(0, batchSize)
	if err != nil {
		return nil, err
	}

	writer, err := tabular.NewArtifactWriter(artifactPath, enrichedHeader(input.Set))
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{
		SessionID:    input.SessionID,
		InputHash:    inputHash,
		Total:        total,
		ArtifactPath: artifactPath,
	}
	enriched := make([]tabular.Row, 0, len(rows))
	for i, row := range rows {
		plan, err := planner.plan(ctx, row)
		if err != nil {
			return nil, err
		}
		enriched = append(enriched, plan.derived)
		if plan.failure != "" {
			result.Failures = append(result.Failures, imports.RowFailure{Row: i + 1, Reason: plan.failure})
			continue
		}
		result.Rows = append(result.Rows, PreviewRow{Values: plan.derived, Action: plan.action})
		switch plan.action {
		case imports.ActionCreate:
			result.Creates++
		case imports.ActionUpdate:
			result.Updates++
		default:
			result.Skips++
		}
	}
	if err := writer.Append(enriched); err != nil {
		return nil, err
	}
	result.Processed = len(rows)

	data := session.Data{
		SessionID: input.SessionID,
		TeamID:    tenant.TeamID,
		Entity:    string(input.Entity),
		InputHash: inputHash,
		Total:     total,
		Processed: len(rows),
		Creates:   result.Creates,
		Updates:   result.Updates,
		Skips:     result.Skips,
		State:     session.StateReviewed,
		Heartbeat: time.Now(),
	}
	if err := s.sessions.Initialize(ctx, data); err != nil {
		return nil, err
	}

	if data.Done() {
		next, err := session.Next(data.State, session.EventPreviewReady)
		if err != nil {
			return nil, err
		}
		if err := s.sessions.SetState(ctx, input.SessionID, next, ""); err != nil {
			return nil, err
		}
		s.publisher.Publish(PreviewReadyEvent{
			SessionID: input.SessionID,
			TeamID:    tenant.TeamID,
			Creates:   result.Creates,
			Updates:   result.Updates,
			Skips:     result.Skips,
		})
		return result, nil
	}

	job := queue.ChunkJob{
		SessionID:    input.SessionID,
		TeamID:       tenant.TeamID,
		UserID:       tenant.UserID,
		Entity:       string(input.Entity),
		FilePath:     input.FilePath,
		ArtifactPath: artifactPath,
		Offset:       result.Processed,
		Limit:        s.opts.ChunkSize,
		Fingerprint:  inputHash,
		Strategy:     input.Strategy,
		Mappings:     input.Set.All(),
		Corrections:  input.Corrections,
	}
	if err := s.chunks.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"session": input.SessionID,
		"total":   total,
		"offset":  result.Processed,
	}).Info("queued preview remainder")

	s.publisher.Publish(PreviewStartedEvent{
		SessionID: input.SessionID,
		TeamID:    tenant.TeamID,
		Entity:    string(input.Entity),
		InputHash: inputHash,
		Total:     total,
	})
	return result, nil
}

// Progress returns the current session snapshot for the UI poll loop.
func (s *PreviewService) Progress(ctx context.Context, sessionID uuid.UUID) (session.Data, error) {
	return s.sessions.Get(ctx, sessionID)
}

func (s *PreviewService) reusedResult(input PreviewInput, data session.Data, artifactPath string) (*PreviewResult, error) {
	result := &PreviewResult{
		SessionID:    input.SessionID,
		InputHash:    data.InputHash,
		Reused:       true,
		Creates:      data.Creates,
		Updates:      data.Updates,
		Skips:        data.Skips,
		Processed:    data.Processed,
		Total:        data.Total,
		ArtifactPath: artifactPath,
	}
	reader, err := tabular.OpenCSV(artifactPath)
	if err != nil {
		// The artifact may have been cleaned up; counts alone still answer
		// the poll.
		return result, nil
	}
	defer func() { _ = reader.Close() }()
	rows, err := reader.Read(0, s.opts.InitialBatchSize)
	if err != nil {
		return result, nil
	}
	for _, row := range rows {
		result.Rows = append(result.Rows, PreviewRow{Values: row})
	}
	return result, nil
}

// matcherFields lists every matchable field key of an entity, the columns
// the preload resolver indexes.
func matcherFields(c *catalog.Catalog) []string {
	matchables := c.Matchables()
	out := make([]string, 0, len(matchables))
	for _, m := range matchables {
		out = append(out, m.Field())
	}
	return out
}
