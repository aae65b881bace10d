package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/catalog"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/imports"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/mapping"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/tabular"
)

// staticResolver answers every lookup with a fixed result.
type staticResolver struct {
	rec   imports.Record
	found bool
}

func (r staticResolver) Resolve(ctx context.Context, entity catalog.EntityType, matcher catalog.MatchableField, value string) (imports.Record, bool, error) {
	return r.rec, r.found, nil
}

// updateOnlyCatalog has an email matcher that may only update existing
// records, never create from a miss.
func updateOnlyCatalog() *catalog.Catalog {
	return catalog.New(catalog.EntityPerson, 1).
		AddFields(
			catalog.NewImportField("name", "Name").
				Required().
				WithRules("required", "max=255"),
			catalog.NewImportField("emails", "Emails").
				WithType(catalog.FieldTypeEmail),
		).
		AddMatchables(
			catalog.NewMatchableField("emails", "Emails", 90).UpdateOnly(),
			catalog.NewMatchableField("name", "Name", 10).CreatesNew(),
		)
}

func updateOnlyPlanner(t *testing.T, strategy imports.Strategy, resolver RecordResolver) *rowPlanner {
	t.Helper()
	set := mapping.NewSet()
	require.NoError(t, set.Add(mapping.ColumnMapping{Source: "Name", Target: "name"}))
	require.NoError(t, set.Add(mapping.ColumnMapping{Source: "Email", Target: "emails"}))
	return &rowPlanner{
		catalog:     updateOnlyCatalog(),
		set:         set,
		corrections: mapping.NewCorrections(),
		strategy:    strategy,
		resolver:    resolver,
	}
}

func TestRowPlanner_UpdateOnlyMissSkipsUnderEveryStrategy(t *testing.T) {
	row := tabular.Row{"Name": "Jane", "Email": "jane@acme.com"}
	for _, strategy := range []imports.Strategy{
		imports.StrategySkip,
		imports.StrategyCreateNew,
		imports.StrategyUpdateExisting,
	} {
		planner := updateOnlyPlanner(t, strategy, staticResolver{found: false})
		plan, err := planner.plan(context.Background(), row)
		require.NoError(t, err, "strategy=%s", strategy)
		require.Empty(t, plan.failure, "strategy=%s", strategy)
		require.Equal(t, imports.ActionSkip, plan.action, "strategy=%s", strategy)
	}
}

func TestRowPlanner_UpdateOnlyBlankValueSkips(t *testing.T) {
	planner := updateOnlyPlanner(t, imports.StrategyUpdateExisting, staticResolver{found: false})

	plan, err := planner.plan(context.Background(), tabular.Row{"Name": "Jane", "Email": "  "})
	require.NoError(t, err)
	require.Empty(t, plan.failure)
	require.Equal(t, imports.ActionSkip, plan.action)
}

func TestRowPlanner_UpdateOnlyHitFollowsStrategy(t *testing.T) {
	existing := imports.Record{Fields: map[string]string{"emails": "jane@acme.com"}}

	planner := updateOnlyPlanner(t, imports.StrategyUpdateExisting, staticResolver{rec: existing, found: true})
	plan, err := planner.plan(context.Background(), tabular.Row{"Name": "Jane", "Email": "jane@acme.com"})
	require.NoError(t, err)
	require.Equal(t, imports.ActionUpdate, plan.action)

	planner = updateOnlyPlanner(t, imports.StrategySkip, staticResolver{rec: existing, found: true})
	plan, err = planner.plan(context.Background(), tabular.Row{"Name": "Jane", "Email": "jane@acme.com"})
	require.NoError(t, err)
	require.Equal(t, imports.ActionSkip, plan.action)
}
