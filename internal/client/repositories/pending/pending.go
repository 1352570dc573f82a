// Package pending persists the journal of local mutations awaiting delivery
// to the remote.
package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/dbx"
)

type Repository interface {
	Insert(ctx context.Context, c *models.PendingChange) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.PendingChange, error)
	// FindOutstanding returns the unsynced change of the given kind for an entity.
	FindOutstanding(ctx context.Context, t models.DataType, entityID string, change models.ChangeType) (*models.PendingChange, error)
	UpdatePayload(ctx context.Context, id int64, payload []byte, at time.Time) error
	// ListOutstanding returns unsynced changes in journal order; an empty t means every type.
	ListOutstanding(ctx context.Context, t models.DataType) ([]models.PendingChange, error)
	ListOutstandingForEntity(ctx context.Context, t models.DataType, entityID string) ([]models.PendingChange, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkEntitySynced(ctx context.Context, t models.DataType, entityID string) (int64, error)
	RecordAttempt(ctx context.Context, id int64, attempts int, at time.Time, lastErr string, next time.Time) error
	ResetAttempts(ctx context.Context, t models.DataType, entityID string) (int64, error)
	DeleteSyncedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteSynced(ctx context.Context, t models.DataType) (int64, error)
	RenameEntity(ctx context.Context, t models.DataType, oldID, newID string) error
}

const columns = `id, entity_type, entity_id, change_type, payload, created_at, synced,
	sync_attempts, last_attempt_at, last_error, next_attempt_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChange(row scanner) (*models.PendingChange, error) {
	var (
		c                    models.PendingChange
		payload, createdAt   string
		lastAttempt, nextDue sql.NullString
	)
	err := row.Scan(&c.ID, &c.EntityType, &c.EntityID, &c.ChangeType, &payload, &createdAt, &c.Synced,
		&c.SyncAttempts, &lastAttempt, &c.LastError, &nextDue)
	if err != nil {
		return nil, err
	}
	c.Payload = []byte(payload)
	if c.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, err
	}
	if c.LastAttemptAt, err = nullTime(lastAttempt); err != nil {
		return nil, err
	}
	if c.NextAttemptAt, err = nullTime(nextDue); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *SQLiteRepository) list(ctx context.Context, where string, args ...any) ([]models.PendingChange, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM pending_changes `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending changes: %w", err)
	}
	defer rows.Close()

	var result []models.PendingChange
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending change: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending changes: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.PendingChange) (int64, error) {
	payload := string(c.Payload)
	if payload == "" {
		payload = "{}"
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO pending_changes
		(entity_type, entity_id, change_type, payload, created_at, synced, sync_attempts, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(c.EntityType), c.EntityID, string(c.ChangeType), payload, formatTime(c.CreatedAt), c.Synced, c.SyncAttempts, c.LastError)
	if err != nil {
		return 0, fmt.Errorf("failed to insert pending change: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read pending change id: %w", err)
	}
	c.ID = id
	return id, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.PendingChange, error) {
	c, err := scanChange(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM pending_changes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending change: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) FindOutstanding(ctx context.Context, t models.DataType, entityID string, change models.ChangeType) (*models.PendingChange, error) {
	c, err := scanChange(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM pending_changes
		WHERE entity_type = ? AND entity_id = ? AND change_type = ? AND synced = 0
		ORDER BY id LIMIT 1`, string(t), entityID, string(change)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending change: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdatePayload(ctx context.Context, id int64, payload []byte, at time.Time) error {
	err := dbx.Affected(r.db.ExecContext(ctx, `UPDATE pending_changes SET payload = ?, created_at = ? WHERE id = ?`,
		string(payload), formatTime(at), id))
	return wrap("update pending payload", err)
}

func (r *SQLiteRepository) ListOutstanding(ctx context.Context, t models.DataType) ([]models.PendingChange, error) {
	if t == "" {
		return r.list(ctx, `WHERE synced = 0`)
	}
	return r.list(ctx, `WHERE synced = 0 AND entity_type = ?`, string(t))
}

func (r *SQLiteRepository) ListOutstandingForEntity(ctx context.Context, t models.DataType, entityID string) ([]models.PendingChange, error) {
	return r.list(ctx, `WHERE synced = 0 AND entity_type = ? AND entity_id = ?`, string(t), entityID)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	return wrap("mark pending change synced",
		dbx.Affected(r.db.ExecContext(ctx, `UPDATE pending_changes SET synced = 1 WHERE id = ?`, id)))
}

func (r *SQLiteRepository) MarkEntitySynced(ctx context.Context, t models.DataType, entityID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE pending_changes SET synced = 1
		WHERE entity_type = ? AND entity_id = ? AND synced = 0`, string(t), entityID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve pending changes: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) RecordAttempt(ctx context.Context, id int64, attempts int, at time.Time, lastErr string, next time.Time) error {
	err := dbx.Affected(r.db.ExecContext(ctx, `UPDATE pending_changes
		SET sync_attempts = ?, last_attempt_at = ?, last_error = ?, next_attempt_at = ?
		WHERE id = ?`, attempts, formatTime(at), lastErr, formatTime(next), id))
	return wrap("record sync attempt", err)
}

func (r *SQLiteRepository) ResetAttempts(ctx context.Context, t models.DataType, entityID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE pending_changes
		SET sync_attempts = 0, next_attempt_at = NULL, last_error = ''
		WHERE entity_type = ? AND entity_id = ? AND synced = 0`, string(t), entityID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset attempts: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) DeleteSyncedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_changes WHERE synced = 1 AND created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to clean pending changes: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) DeleteSynced(ctx context.Context, t models.DataType) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_changes WHERE synced = 1 AND entity_type = ?`, string(t))
	if err != nil {
		return 0, fmt.Errorf("failed to purge synced changes: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) RenameEntity(ctx context.Context, t models.DataType, oldID, newID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE pending_changes SET entity_id = ? WHERE entity_type = ? AND entity_id = ?`,
		newID, string(t), oldID)
	if err != nil {
		return fmt.Errorf("failed to rename pending entity: %w", err)
	}
	return nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, dbx.ErrNoRowsAffected) {
		return common.ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
