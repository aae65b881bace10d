package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Relaticle/relaticle-sub002/pkg/constants"
)

var ErrNoTenant = errors.New("no tenant found in context")

// TenantContext identifies the workspace an import runs in. It is threaded
// explicitly; nothing in the engine resolves tenancy from global state.
type TenantContext struct {
	TeamID uuid.UUID
	UserID uuid.UUID
}

func WithTenant(ctx context.Context, tenant TenantContext) context.Context {
	return context.WithValue(ctx, constants.TenantKey, tenant)
}

func UseTenant(ctx context.Context) (TenantContext, error) {
	tenant, ok := ctx.Value(constants.TenantKey).(TenantContext)
	if !ok || tenant.TeamID == uuid.Nil {
		return TenantContext{}, ErrNoTenant
	}
	return tenant, nil
}

func UseTeamID(ctx context.Context) (uuid.UUID, error) {
	tenant, err := UseTenant(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return tenant.TeamID, nil
}

// InTenantTx runs fn inside a transaction scoped to the tenant in ctx.
// An existing transaction in ctx is reused; otherwise a new one is opened
// from the pool and committed when fn succeeds.
func InTenantTx(ctx context.Context, fn func(context.Context) error) error {
	if _, err := UseTenant(ctx); err != nil {
		return err
	}

	if existing, ok := ctx.Value(constants.TxKey).(pgx.Tx); ok && existing != nil {
		return fn(ctx)
	}

	pool, err := UsePool(ctx)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	txCtx := WithTx(ctx, tx)
	if err := fn(txCtx); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit(ctx)
}
