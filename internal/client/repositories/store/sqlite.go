package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/dbx"
)

const columns = `id, name, data, local, synced, server_version, origin_source, origin_id,
	origin_timestamp, read_only, deleted, created_at, updated_at`

type SQLiteRepository[T models.Record] struct {
	db    dbx.DBTX
	table string
	newFn func() T
}

// NewSQLiteRepository binds a repository to table. newFn must return a fresh
// zero entity (a non-nil pointer).
func NewSQLiteRepository[T models.Record](db dbx.DBTX, table string, newFn func() T) *SQLiteRepository[T] {
	return &SQLiteRepository[T]{db: db, table: table, newFn: newFn}
}

type scanner interface {
	Scan(dest ...any) error
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func (r *SQLiteRepository[T]) scan(row scanner) (T, error) {
	item := r.newFn()
	m := item.Meta()

	var (
		name, data           string
		local                sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&m.ID, &name, &data, &local, &m.Synced, &m.ServerVersion, &m.OriginSource,
		&m.OriginID, &m.OriginTimestamp, &m.ReadOnly, &m.Deleted, &createdAt, &updatedAt)
	if err != nil {
		return item, err
	}

	if err := json.Unmarshal([]byte(data), item); err != nil {
		return item, fmt.Errorf("decode %s %s: %w", r.table, m.ID, err)
	}
	if ls, ok := any(item).(models.LocalStater); ok && local.Valid && local.String != "" {
		if err := json.Unmarshal([]byte(local.String), ls.LocalState()); err != nil {
			return item, fmt.Errorf("decode local state %s %s: %w", r.table, m.ID, err)
		}
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return item, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return item, err
	}
	return item, nil
}

func (r *SQLiteRepository[T]) query(ctx context.Context, where string, args ...any) ([]T, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s %s`, columns, r.table, where)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", r.table, err)
	}
	defer rows.Close()

	var result []T
	for rows.Next() {
		item, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.table, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", r.table, err)
	}
	return result, nil
}

func (r *SQLiteRepository[T]) one(ctx context.Context, where string, args ...any) (T, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s %s`, columns, r.table, where)
	item, err := r.scan(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, common.ErrNotFound
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to get %s: %w", r.table, err)
	}
	return item, nil
}

func (r *SQLiteRepository[T]) GetAll(ctx context.Context) ([]T, error) {
	return r.query(ctx, `WHERE deleted = 0 ORDER BY created_at, id`)
}

func (r *SQLiteRepository[T]) GetByID(ctx context.Context, id string) (T, error) {
	return r.one(ctx, `WHERE id = ?`, id)
}

func (r *SQLiteRepository[T]) GetUnsynced(ctx context.Context) ([]T, error) {
	return r.query(ctx, `WHERE synced = 0 ORDER BY updated_at, id`)
}

func (r *SQLiteRepository[T]) GetByOrigin(ctx context.Context, origin, originID string) (T, error) {
	return r.one(ctx, `WHERE origin_source = ? AND origin_id = ? ORDER BY deleted, updated_at DESC LIMIT 1`, origin, originID)
}

// encode returns the JSON body and optional local state of item.
func encode(item models.Record) (string, sql.NullString, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return "", sql.NullString{}, err
	}
	var local sql.NullString
	if ls, ok := item.(models.LocalStater); ok {
		b, err := json.Marshal(ls.LocalState())
		if err != nil {
			return "", sql.NullString{}, err
		}
		local = sql.NullString{String: string(b), Valid: true}
	}
	return string(data), local, nil
}

func (r *SQLiteRepository[T]) Insert(ctx context.Context, item T) error {
	data, local, err := encode(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", r.table, err)
	}
	m := item.Meta()

	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.table, columns)
	_, err = r.db.ExecContext(ctx, q, m.ID, item.DisplayName(), data, local, m.Synced, m.ServerVersion,
		m.OriginSource, m.OriginID, m.OriginTimestamp, m.ReadOnly, m.Deleted,
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", r.table, err)
	}
	return nil
}

func (r *SQLiteRepository[T]) Update(ctx context.Context, item T) error {
	data, local, err := encode(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", r.table, err)
	}
	m := item.Meta()

	q := fmt.Sprintf(`UPDATE %s SET name = ?, data = ?, local = ?, synced = ?, server_version = ?,
		origin_source = ?, origin_id = ?, origin_timestamp = ?, read_only = ?, deleted = ?,
		created_at = ?, updated_at = ?
		WHERE id = ?`, r.table)
	err = dbx.Affected(r.db.ExecContext(ctx, q, item.DisplayName(), data, local, m.Synced, m.ServerVersion,
		m.OriginSource, m.OriginID, m.OriginTimestamp, m.ReadOnly, m.Deleted,
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt), m.ID))
	return r.writeErr("update", err)
}

func (r *SQLiteRepository[T]) Upsert(ctx context.Context, item T) error {
	data, local, err := encode(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", r.table, err)
	}
	m := item.Meta()

	// local is device state and survives a pull
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, data = excluded.data,
		local = COALESCE(%s.local, excluded.local), synced = excluded.synced,
		server_version = excluded.server_version, origin_source = excluded.origin_source,
		origin_id = excluded.origin_id, origin_timestamp = excluded.origin_timestamp,
		read_only = excluded.read_only, deleted = excluded.deleted, updated_at = excluded.updated_at`,
		r.table, columns, r.table)
	_, err = r.db.ExecContext(ctx, q, m.ID, item.DisplayName(), data, local, m.Synced, m.ServerVersion,
		m.OriginSource, m.OriginID, m.OriginTimestamp, m.ReadOnly, m.Deleted,
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", r.table, err)
	}
	return nil
}

func (r *SQLiteRepository[T]) MarkSynced(ctx context.Context, id string, version int64, seen time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET server_version = ?,
		synced = CASE WHEN updated_at = ? THEN 1 ELSE synced END
		WHERE id = ?`, r.table)
	return r.writeErr("mark synced", dbx.Affected(r.db.ExecContext(ctx, q, version, formatTime(seen), id)))
}

func (r *SQLiteRepository[T]) SoftDelete(ctx context.Context, id string, now time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET deleted = 1, synced = 0, updated_at = ? WHERE id = ?`, r.table)
	return r.writeErr("delete", dbx.Affected(r.db.ExecContext(ctx, q, formatTime(now), id)))
}

func (r *SQLiteRepository[T]) Purge(ctx context.Context, id string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.table)
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("failed to purge %s: %w", r.table, err)
	}
	return nil
}

func (r *SQLiteRepository[T]) ReplaceID(ctx context.Context, oldID, newID string, version int64) error {
	q := fmt.Sprintf(`UPDATE %s SET id = ?, server_version = ? WHERE id = ?`, r.table)
	return r.writeErr("replace id", dbx.Affected(r.db.ExecContext(ctx, q, newID, version, oldID)))
}

func (r *SQLiteRepository[T]) Repoint(ctx context.Context, field, oldID, newID string) (int64, error) {
	return Repoint(ctx, r.db, r.table, field, oldID, newID)
}

// Repoint rewrites the JSON field of every row in table that references
// oldID and marks those rows unsynced.
func Repoint(ctx context.Context, db dbx.DBTX, table, field, oldID, newID string) (int64, error) {
	path := "$." + field
	q := fmt.Sprintf(`UPDATE %s SET data = json_set(data, ?, ?), synced = 0
		WHERE json_extract(data, ?) = ?`, table)
	res, err := db.ExecContext(ctx, q, path, newID, path, oldID)
	if err != nil {
		return 0, fmt.Errorf("failed to repoint %s.%s: %w", table, field, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository[T]) writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, dbx.ErrNoRowsAffected) {
		return common.ErrNotFound
	}
	return fmt.Errorf("failed to %s %s: %w", op, r.table, err)
}
