package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/catalog"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/cache"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/persistence"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/queue"
	"github.com/Relaticle/relaticle-sub002/pkg/composables"
	"github.com/Relaticle/relaticle-sub002/pkg/configuration"
	"github.com/Relaticle/relaticle-sub002/pkg/eventbus"
)

// app bundles the wired collaborators every subcommand needs.
type app struct {
	conf     *configuration.Configuration
	log      *logrus.Logger
	pool     *pgxpool.Pool
	rdb      *redis.Client
	registry *catalog.Registry
	store    *persistence.PgRecordStore
	sessions *cache.SessionRepository
	chunks   *queue.ChunkQueue
	lock     *queue.TenantLock
	bus      eventbus.EventBus
}

func newApp(ctx context.Context) (*app, error) {
	conf := configuration.Use()
	log := conf.Logger()

	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return nil, withCode(exitDB, fmt.Errorf("connect database: %w", err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.URL,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		return nil, withCode(exitDB, fmt.Errorf("connect redis: %w", err))
	}

	registry := catalog.DefaultRegistry()
	return &app{
		conf:     conf,
		log:      log,
		pool:     pool,
		rdb:      rdb,
		registry: registry,
		store:    persistence.NewPgRecordStore(registry),
		sessions: cache.NewSessionRepository(rdb, conf.Import.SessionTTL),
		chunks:   queue.NewChunkQueue(rdb),
		lock:     queue.NewTenantLock(rdb),
		bus:      eventbus.NewEventPublisher(log),
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
	if err := a.rdb.Close(); err != nil {
		a.log.WithError(err).Warn("close redis client")
	}
}

// tenantFlags adds the --team/--user flags and returns a resolver that
// builds a tenant-scoped context from them.
func tenantFlags(cmd *cobra.Command) func(ctx context.Context, a *app) (context.Context, error) {
	var team, user string
	cmd.Flags().StringVar(&team, "team", "", "Team UUID (required)")
	cmd.Flags().StringVar(&user, "user", "", "Acting user UUID")
	_ = cmd.MarkFlagRequired("team")

	return func(ctx context.Context, a *app) (context.Context, error) {
		teamID, err := uuid.Parse(strings.TrimSpace(team))
		if err != nil {
			return nil, withCode(exitUsage, fmt.Errorf("invalid --team: %w", err))
		}
		userID := uuid.Nil
		if strings.TrimSpace(user) != "" {
			userID, err = uuid.Parse(strings.TrimSpace(user))
			if err != nil {
				return nil, withCode(exitUsage, fmt.Errorf("invalid --user: %w", err))
			}
		}
		ctx = composables.WithPool(ctx, a.pool)
		ctx = composables.WithTenant(ctx, composables.TenantContext{TeamID: teamID, UserID: userID})
		return ctx, nil
	}
}

func parseEntity(s string) (catalog.EntityType, error) {
	entity := catalog.EntityType(strings.ToLower(strings.TrimSpace(s)))
	switch entity {
	case catalog.EntityCompany, catalog.EntityPerson, catalog.EntityOpportunity, catalog.EntityTask:
		return entity, nil
	}
	return "", withCode(exitUsage, fmt.Errorf("unknown entity %q", s))
}
