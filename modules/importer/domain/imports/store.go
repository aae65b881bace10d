package imports

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence boundary for CRM records during import. All
// methods are tenant-scoped through the context.
type Store interface {
	// ListByTeam streams every record of an entity for the current team,
	// restricted to the given field keys. Used to preload match indexes.
	ListByTeam(ctx context.Context, entity string, fieldKeys []string) ([]Record, error)
	// FindByID looks a record up by primary key within the current team.
	// Returns ErrRecordNotFound for unknown or foreign-team IDs.
	FindByID(ctx context.Context, entity string, id uuid.UUID) (Record, error)
	// FindByField returns records where the field equals any of the
	// candidate values, comparing case-insensitively and matching
	// individual candidates of multi-value fields.
	FindByField(ctx context.Context, entity, fieldKey string, candidates []string) ([]Record, error)
	Create(ctx context.Context, entity string, fields map[string]string) (uuid.UUID, error)
	Update(ctx context.Context, entity string, id uuid.UUID, fields map[string]string) error
	// Link attaches a related record through a relationship, either by
	// setting a foreign key or inserting into a pivot.
	Link(ctx context.Context, entity string, id uuid.UUID, relationship string, relatedID uuid.UUID) error
}
