package services

import (
	"context"
	"fmt"
	"strings"
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

const lockRetryInterval = 5 * time.Second

// rowError marks a per-row failure inside a row transaction: the row's
// writes roll back, the row lands in the failure list, and the run continues.
type rowError struct {
	reason string
}

func (e rowError) Error() string { return e.reason }

// ExecuteInput describes one confirmed import run.
type ExecuteInput struct {
	SessionID   uuid.UUID
	Entity      catalog.EntityType
	FilePath    string
	Set         *mapping.Set
	Corrections *mapping.Corrections
	Strategy    imports.Strategy
}

type ImportResult struct {
	Creates  int                  `json:"creates"`
	Updates  int                  `json:"updates"`
	Skips    int                  `json:"skips"`
	Failures []imports.RowFailure `json:"failures,omitempty"`
}

// ImportService executes the confirmed import: it re-walks the file chunk by
// chunk under the team's lock and writes every row through the duplicate
// strategy, with relationship resolution and post-save hooks inside the same
// row transaction.
type ImportService struct {
	registry  *catalog.Registry
	store     imports.Store
	sessions  session.Repository
	lock      TeamLock
	publisher eventbus.EventBus
	opts      configuration.ImportOptions
	log       *logrus.Logger
}

func NewImportService(
	registry *catalog.Registry,
	store imports.Store,
	sessions session.Repository,
	lock TeamLock,
	publisher eventbus.EventBus,
	opts configuration.ImportOptions,
	log *logrus.Logger,
) *ImportService {
	return &ImportService{
		registry:  registry,
		store:     store,
		sessions:  sessions,
		lock:      lock,
		publisher: publisher,
		opts:      opts,
		log:       log,
	}
}

// Execute runs the import to completion. A concurrent import for the same
// team delays this one until the lock frees; it is never rejected.
func (s *ImportService) Execute(ctx context.Context, input ExecuteInput) (*ImportResult, error) {
	c, err := s.registry.Get(input.Entity)
	if err != nil {
		return nil, err
	}
	if err := requireMappedFields(c, input.Set); err != nil {
		return nil, err
	}
	tenant, err := composables.UseTenant(ctx)
	if err != nil {
		return nil, err
	}

	data, err := s.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if data.State != session.StatePreviewed {
		return nil, fmt.Errorf("session is in state %q, expected %q", data.State, session.StatePreviewed)
	}
	inputHash, err := mapping.Fingerprint(input.FilePath, input.Set, string(input.Strategy), input.Corrections)
	if err != nil {
		return nil, err
	}
	if inputHash != data.InputHash {
		return nil, fmt.Errorf("mapping changed since preview, regenerate it first")
	}

	lease := queue.LeaseFor(s.opts.ChunkSize)
	token, err := s.acquireLock(ctx, tenant.TeamID, lease)
	if err != nil {
		return nil, err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.lock.Release(releaseCtx, tenant.TeamID, token); err != nil {
			s.log.WithError(err).Warn("release import lock")
		}
	}()

	result, err := s.run(ctx, c, input, tenant, token, lease)
	if err != nil {
		if stateErr := s.sessions.SetState(ctx, input.SessionID, session.StateFailed, err.Error()); stateErr != nil {
			s.log.WithError(stateErr).Error("mark session failed")
		}
		s.publisher.Publish(ImportFailedEvent{
			SessionID: input.SessionID,
			TeamID:    tenant.TeamID,
			Reason:    err.Error(),
		})
		return nil, err
	}

	next, err := session.Next(session.StatePreviewed, session.EventCommitFinished)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SetState(ctx, input.SessionID, next, ""); err != nil {
		return nil, err
	}
	s.publisher.Publish(ImportCommittedEvent{
		SessionID: input.SessionID,
		TeamID:    tenant.TeamID,
		Entity:    string(input.Entity),
		Creates:   result.Creates,
		Updates:   result.Updates,
		Skips:     result.Skips,
		Failures:  result.Failures,
	})
	return result, nil
}

// acquireLock waits for the team's lock instead of failing fast: a held lock
// delays the run until the current holder finishes.
func (s *ImportService) acquireLock(ctx context.Context, teamID uuid.UUID, lease time.Duration) (string, error) {
	for {
		token, err := s.lock.Acquire(ctx, teamID, lease)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, queue.ErrLockHeld) {
			return "", err
		}
		s.log.WithField("team", teamID).Info("import lock held, waiting")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

func (s *ImportService) run(
	ctx context.Context,
	c *catalog.Catalog,
	input ExecuteInput,
	tenant composables.TenantContext,
	token string,
	lease time.Duration,
) (*ImportResult, error) {
	reader, err := tabular.Open(input.FilePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	resolver := NewQueryResolver(s.store, s.registry)
	planner := &rowPlanner{
		catalog:     c,
		set:         input.Set,
		corrections: input.Corrections,
		strategy:    input.Strategy,
		resolver:    resolver,
	}

	result := &ImportResult{}
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := reader.Read(offset, s.opts.ChunkSize)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}

		for i, row := range rows {
			rowNum := offset + i + 1
			plan, err := planner.plan(ctx, row)
			if err != nil {
				return nil, err
			}
			if plan.failure != "" {
				result.Failures = append(result.Failures, imports.RowFailure{Row: rowNum, Reason: plan.failure})
				continue
			}
			if plan.action == imports.ActionSkip {
				result.Skips++
				continue
			}

			err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
				return s.writeRow(txCtx, c, input.Set, plan)
			})
			if err != nil {
				var re rowError
				if errors.As(err, &re) {
					result.Failures = append(result.Failures, imports.RowFailure{Row: rowNum, Reason: re.reason})
					continue
				}
				return nil, errors.Wrapf(err, "row %d", rowNum)
			}
			if plan.action == imports.ActionCreate {
				result.Creates++
			} else {
				result.Updates++
			}
		}

		offset += len(rows)
		if len(rows) < s.opts.ChunkSize {
			break
		}
		held, err := s.lock.Refresh(ctx, tenant.TeamID, token, lease)
		if err != nil {
			return nil, err
		}
		if !held {
			return nil, fmt.Errorf("import lock lost mid-run")
		}
	}
	return result, nil
}

// writeRow persists one planned row: the record itself, then relationship
// links, then the catalog's post-save hook, all inside the row transaction.
func (s *ImportService) writeRow(ctx context.Context, c *catalog.Catalog, set *mapping.Set, plan rowPlan) error {
	entity := string(c.Entity())

	var recordID uuid.UUID
	if plan.action == imports.ActionUpdate {
		recordID = plan.matched.ID
		if err := s.store.Update(ctx, entity, recordID, plan.fields); err != nil {
			if errors.Is(err, imports.ErrRecordNotFound) {
				return rowError{reason: fmt.Sprintf("Record with ID %s not found or does not belong to your workspace", recordID)}
			}
			return err
		}
	} else {
		id, err := s.store.Create(ctx, entity, plan.fields)
		if err != nil {
			return err
		}
		recordID = id
	}

	for _, rel := range c.Relationships() {
		if err := s.linkRelationship(ctx, entity, recordID, rel, set, plan); err != nil {
			return err
		}
	}

	if hook := c.PostSave(); hook != nil {
		if err := hook(ctx, recordID, plan.derived); err != nil {
			return errors.Wrap(err, "post-save hook")
		}
	}
	return nil
}

// linkRelationship resolves and links one relationship for a row. The
// matcher is chosen by priority among the relationship columns the operator
// mapped; its flags decide between lookup, lookup-then-create and
// always-create.
func (s *ImportService) linkRelationship(
	ctx context.Context,
	entity string,
	recordID uuid.UUID,
	rel catalog.RelationshipField,
	set *mapping.Set,
	plan rowPlan,
) error {
	mapped := set.MappedRelationshipKeys(rel.Name())
	if len(mapped) == 0 {
		return nil
	}
	valueOf := func(key string) string {
		return plan.derived[rel.Name()+"."+key]
	}
	matcher, ok := SelectMatcher(rel.Matchables(), mapped, valueOf)
	if !ok {
		return nil
	}
	value := valueOf(matcher.Field())
	if strings.TrimSpace(value) == "" {
		return nil
	}

	candidates := []string{value}
	if rel.LinkKind() == catalog.LinkToMany {
		candidates = imports.SplitCandidates(value)
	}

	resolver := NewQueryResolver(s.store, s.registry)
	for _, candidate := range candidates {
		relatedID, err := s.resolveRelated(ctx, resolver, rel, matcher, candidate)
		if err != nil {
			return err
		}
		if relatedID == uuid.Nil {
			continue
		}
		if err := s.store.Link(ctx, entity, recordID, rel.Name(), relatedID); err != nil {
			return err
		}
		if rel.LinkKind() == catalog.LinkToOne {
			break
		}
	}
	return nil
}

// resolveRelated returns the related record id for one candidate value, or
// uuid.Nil when the row should proceed without a link.
func (s *ImportService) resolveRelated(
	ctx context.Context,
	resolver RecordResolver,
	rel catalog.RelationshipField,
	matcher catalog.MatchableField,
	value string,
) (uuid.UUID, error) {
	if matcher.IsCreatesNew() {
		return s.store.Create(ctx, string(rel.RelatedEntity()), map[string]string{matcher.Field(): value})
	}

	rec, found, err := resolver.Resolve(ctx, rel.RelatedEntity(), matcher, value)
	if err != nil {
		if errors.Is(err, imports.ErrInvalidID) {
			return uuid.Nil, rowError{reason: fmt.Sprintf("%q is not a valid record ID", value)}
		}
		return uuid.Nil, err
	}
	if found {
		return rec.ID, nil
	}
	if matcher.Field() == catalog.MatchByID {
		return uuid.Nil, rowError{reason: fmt.Sprintf("Record with ID %s not found or does not belong to your workspace", strings.TrimSpace(value))}
	}
	if matcher.IsUpdateOnly() {
		return uuid.Nil, nil
	}
	return s.store.Create(ctx, string(rel.RelatedEntity()), map[string]string{matcher.Field(): value})
}
