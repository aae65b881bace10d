package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/catalog"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/imports"
	"github.com/Relaticle/relaticle-sub002/pkg/composables"
	"github.com/Relaticle/relaticle-sub002/pkg/repo"
)

type pivotMeta struct {
	table      string
	localCol   string
	foreignCol string
}

type tableMeta struct {
	table  string
	pivots map[string]pivotMeta
}

var entityTables = map[catalog.EntityType]tableMeta{
	catalog.EntityCompany:     {table: "companies"},
	catalog.EntityPerson:      {table: "people"},
	catalog.EntityOpportunity: {table: "opportunities"},
	catalog.EntityTask: {
		table: "tasks",
		pivots: map[string]pivotMeta{
			"assignees": {table: "task_assignees", localCol: "task_id", foreignCol: "person_id"},
		},
	},
}

const customValuesTable = "custom_field_values"

// PgRecordStore reads and writes CRM records in Postgres. Core catalog
// fields live as columns on the entity table; custom fields live in a
// key-value side table. All queries are scoped to the team taken from the
// context.
type PgRecordStore struct {
	registry *catalog.Registry
}

func NewPgRecordStore(registry *catalog.Registry) *PgRecordStore {
	return &PgRecordStore{registry: registry}
}

func (s *PgRecordStore) meta(entity string) (tableMeta, error) {
	m, ok := entityTables[catalog.EntityType(entity)]
	if !ok {
		return tableMeta{}, fmt.Errorf("unknown entity %q", entity)
	}
	return m, nil
}

// splitKeys separates core column keys from custom field keys using the
// entity's catalog.
func (s *PgRecordStore) splitKeys(entity string, fieldKeys []string) (core, custom []string, err error) {
	c, err := s.registry.Get(catalog.EntityType(entity))
	if err != nil {
		return nil, nil, err
	}
	for _, key := range fieldKeys {
		field, ok := c.FieldByKey(key)
		if ok && field.IsCustomField() {
			custom = append(custom, key)
			continue
		}
		core = append(core, key)
	}
	return core, custom, nil
}

func selectColumns(table string, core []string) string {
	cols := make([]string, 0, len(core)+1)
	cols = append(cols, table+".id")
	for _, key := range core {
		cols = append(cols, fmt.Sprintf("COALESCE(%s.%s::text, '')", table, key))
	}
	return strings.Join(cols, ", ")
}

func (s *PgRecordStore) scanRecords(rows pgx.Rows, entity string, core []string) ([]imports.Record, error) {
	defer rows.Close()

	var out []imports.Record
	for rows.Next() {
		var id uuid.UUID
		values := make([]string, len(core))
		dest := make([]any, 0, len(core)+1)
		dest = append(dest, &id)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		fields := make(map[string]string, len(core))
		for i, key := range core {
			fields[key] = values[i]
		}
		out = append(out, imports.Record{ID: id, Entity: entity, Fields: fields})
	}
	return out, rows.Err()
}

// mergeCustomValues loads the requested custom field values for the given
// records and merges them into each record's field map.
func (s *PgRecordStore) mergeCustomValues(
	ctx context.Context,
	tx repo.Tx,
	teamID uuid.UUID,
	entity string,
	records []imports.Record,
	custom []string,
) error {
	if len(custom) == 0 || len(records) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(records))
	byID := make(map[uuid.UUID]int, len(records))
	for i, r := range records {
		ids[i] = r.ID
		byID[r.ID] = i
	}

	q := repo.Join(
		"SELECT record_id, field_key, value FROM "+customValuesTable,
		repo.JoinWhere(
			"team_id = $1",
			"entity_type = $2",
			"record_id = ANY($3)",
			"field_key = ANY($4)",
		),
	)
	rows, err := tx.Query(ctx, q, teamID, entity, ids, custom)
	if err != nil {
		return errors.Wrap(err, "query custom field values")
	}
	defer rows.Close()

	for rows.Next() {
		var recordID uuid.UUID
		var fieldKey, value string
		if err := rows.Scan(&recordID, &fieldKey, &value); err != nil {
			return err
		}
		if i, ok := byID[recordID]; ok {
			records[i].Fields[fieldKey] = value
		}
	}
	return rows.Err()
}

func (s *PgRecordStore) ListByTeam(ctx context.Context, entity string, fieldKeys []string) ([]imports.Record, error) {
	m, err := s.meta(entity)
	if err != nil {
		return nil, err
	}
	core, custom, err := s.splitKeys(entity, fieldKeys)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	teamID, err := composables.UseTeamID(ctx)
	if err != nil {
		return nil, err
	}

	q := repo.Join(
		"SELECT "+selectColumns(m.table, core),
		"FROM "+m.table,
		repo.JoinWhere("team_id = $1"),
	)
	rows, err := tx.Query(ctx, q, teamID)
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	records, err := s.scanRecords(rows, entity, core)
	if err != nil {
		return nil, err
	}
	if err := s.mergeCustomValues(ctx, tx, teamID, entity, records, custom); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *PgRecordStore) FindByID(ctx context.Context, entity string, id uuid.UUID) (imports.Record, error) {
	m, err := s.meta(entity)
	if err != nil {
		return imports.Record{}, err
	}
	c, err := s.registry.Get(catalog.EntityType(entity))
	if err != nil {
		return imports.Record{}, err
	}
	var core []string
	for _, f := range c.Fields() {
		if !f.IsCustomField() {
			core = append(core, f.Key())
		}
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return imports.Record{}, err
	}
	teamID, err := composables.UseTeamID(ctx)
	if err != nil {
		return imports.Record{}, err
	}

	q := repo.Join(
		"SELECT "+selectColumns(m.table, core),
		"FROM "+m.table,
		repo.JoinWhere("team_id = $1", "id = $2"),
	)
	rows, err := tx.Query(ctx, q, teamID, id)
	if err != nil {
		return imports.Record{}, errors.Wrap(err, "find record by id")
	}
	records, err := s.scanRecords(rows, entity, core)
	if err != nil {
		return imports.Record{}, err
	}
	if len(records) == 0 {
		return imports.Record{}, imports.ErrRecordNotFound
	}
	return records[0], nil
}

func (s *PgRecordStore) FindByField(ctx context.Context, entity, fieldKey string, candidates []string) ([]imports.Record, error) {
	m, err := s.meta(entity)
	if err != nil {
		return nil, err
	}
	core, custom, err := s.splitKeys(entity, []string{fieldKey})
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	teamID, err := composables.UseTeamID(ctx)
	if err != nil {
		return nil, err
	}

	lowered := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		if trimmed := strings.TrimSpace(cand); trimmed != "" {
			lowered = append(lowered, strings.ToLower(trimmed))
		}
	}
	if len(lowered) == 0 {
		return nil, nil
	}

	c, err := s.registry.Get(catalog.EntityType(entity))
	if err != nil {
		return nil, err
	}

	var (
		condition string
		args      []any
	)
	if len(custom) > 0 {
		condition = fmt.Sprintf(`%s.id IN (
			SELECT record_id FROM %s
			WHERE team_id = $1 AND entity_type = $2 AND field_key = $3 AND EXISTS (
				SELECT 1 FROM unnest(string_to_array(lower(value), ',')) AS cand
				WHERE btrim(cand) = ANY($4)
			)
		)`, m.table, customValuesTable)
		args = []any{teamID, entity, fieldKey, lowered}
	} else {
		field, ok := c.FieldByKey(fieldKey)
		domain := ok && field.Type() == catalog.FieldTypeURL
		condition = coreMatchCondition(m.table, core[0], domain)
		args = []any{teamID, lowered}
	}
	var selectCore []string
	for _, f := range c.Fields() {
		if !f.IsCustomField() {
			selectCore = append(selectCore, f.Key())
		}
	}

	q := repo.Join(
		"SELECT "+selectColumns(m.table, selectCore),
		"FROM "+m.table,
		repo.JoinWhere("team_id = $1", condition),
	)
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "find records by field")
	}
	return s.scanRecords(rows, entity, selectCore)
}

// coreMatchCondition builds the candidate predicate for a core column.
// Multi-value columns store comma-separated values; each stored candidate
// matches independently. URL columns are reduced to their bare domain on the
// stored side, mirroring the normalization applied to the lookup keys, so a
// record stored as "https://www.acme.com" matches the key "acme.com".
func coreMatchCondition(table, column string, domain bool) string {
	stored := "btrim(cand)"
	if domain {
		stored = `split_part(regexp_replace(regexp_replace(btrim(cand), '^[a-z]+://', ''), '^www\.', ''), '/', 1)`
	}
	return fmt.Sprintf(`EXISTS (
			SELECT 1 FROM unnest(string_to_array(lower(%s.%s::text), ',')) AS cand
			WHERE %s = ANY($2)
		)`, table, column, stored)
}

func (s *PgRecordStore) Create(ctx context.Context, entity string, fields map[string]string) (uuid.UUID, error) {
	m, err := s.meta(entity)
	if err != nil {
		return uuid.Nil, err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	core, custom, err := s.splitKeys(entity, keys)
	if err != nil {
		return uuid.Nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	teamID, err := composables.UseTeamID(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	now := time.Now()
	cols := []string{"id", "team_id", "created_at", "updated_at"}
	args := []any{id, teamID, now, now}
	for _, key := range core {
		cols = append(cols, key)
		args = append(args, nullable(fields[key]))
	}

	if _, err := tx.Exec(ctx, repo.Insert(m.table, cols), args...); err != nil {
		return uuid.Nil, errors.Wrap(err, "insert record")
	}
	if err := s.writeCustomValues(ctx, tx, teamID, entity, id, custom, fields); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (s *PgRecordStore) Update(ctx context.Context, entity string, id uuid.UUID, fields map[string]string) error {
	m, err := s.meta(entity)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	core, custom, err := s.splitKeys(entity, keys)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	teamID, err := composables.UseTeamID(ctx)
	if err != nil {
		return err
	}

	if len(core) > 0 {
		cols := append([]string{"updated_at"}, core...)
		args := []any{time.Now()}
		for _, key := range core {
			args = append(args, nullable(fields[key]))
		}
		where := fmt.Sprintf("id = $%d AND team_id = $%d", len(cols)+1, len(cols)+2)
		args = append(args, id, teamID)

		tag, err := tx.Exec(ctx, repo.Update(m.table, cols, where), args...)
		if err != nil {
			return errors.Wrap(err, "update record")
		}
		if tag.RowsAffected() == 0 {
			return imports.ErrRecordNotFound
		}
	}
	return s.writeCustomValues(ctx, tx, teamID, entity, id, custom, fields)
}

func (s *PgRecordStore) writeCustomValues(
	ctx context.Context,
	tx repo.Tx,
	teamID uuid.UUID,
	entity string,
	recordID uuid.UUID,
	custom []string,
	fields map[string]string,
) error {
	if len(custom) == 0 {
		return nil
	}
	values := make([][]any, 0, len(custom))
	for _, key := range custom {
		values = append(values, []any{teamID, entity, recordID, key, fields[key]})
	}
	prefix := "INSERT INTO " + customValuesTable + " (team_id, entity_type, record_id, field_key, value) VALUES"
	q, args := repo.BatchInsertQueryN(prefix, values)
	q += " ON CONFLICT (team_id, entity_type, record_id, field_key) DO UPDATE SET value = EXCLUDED.value"
	if _, err := tx.Exec(ctx, q, args...); err != nil {
		return errors.Wrap(err, "upsert custom field values")
	}
	return nil
}

func (s *PgRecordStore) Link(ctx context.Context, entity string, id uuid.UUID, relationship string, relatedID uuid.UUID) error {
	m, err := s.meta(entity)
	if err != nil {
		return err
	}
	c, err := s.registry.Get(catalog.EntityType(entity))
	if err != nil {
		return err
	}
	rel, ok := c.RelationshipByName(relationship)
	if !ok {
		return fmt.Errorf("unknown relationship %q on %s", relationship, entity)
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	teamID, err := composables.UseTeamID(ctx)
	if err != nil {
		return err
	}

	if rel.LinkKind() == catalog.LinkToMany {
		pivot, ok := m.pivots[relationship]
		if !ok {
			return fmt.Errorf("no pivot table for relationship %q on %s", relationship, entity)
		}
		q := fmt.Sprintf(
			"INSERT INTO %s (%s, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			pivot.table, pivot.localCol, pivot.foreignCol,
		)
		if _, err := tx.Exec(ctx, q, id, relatedID); err != nil {
			return errors.Wrap(err, "link records")
		}
		return nil
	}

	q := fmt.Sprintf("UPDATE %s SET %s = $1, updated_at = $2 WHERE id = $3 AND team_id = $4", m.table, rel.ForeignKey())
	tag, err := tx.Exec(ctx, q, relatedID, time.Now(), id, teamID)
	if err != nil {
		return errors.Wrap(err, "link records")
	}
	if tag.RowsAffected() == 0 {
		return imports.ErrRecordNotFound
	}
	return nil
}

// nullable maps blank cells to SQL NULL so empty strings never clobber
// typed columns.
func nullable(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
