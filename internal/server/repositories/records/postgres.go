package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/dbx"
	"github.com/dmitrijs2005/boatlog/internal/server/models"
)

const columns = `id, version, updated_at, deleted, origin_source, origin_id, origin_timestamp, read_only, data`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner, userID string, t models.RecordType) (*models.Record, error) {
	rec := &models.Record{UserID: userID, Type: t}
	var data []byte
	err := s.Scan(&rec.ID, &rec.Version, &rec.UpdatedAt, &rec.Deleted,
		&rec.OriginSource, &rec.OriginID, &rec.OriginTimestamp, &rec.ReadOnly, &data)
	if err != nil {
		return nil, err
	}
	rec.Data = json.RawMessage(data)
	return rec, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, t models.RecordType) ([]models.Record, error) {
	query := `SELECT ` + columns + ` FROM records
		WHERE user_id = $1 AND record_type = $2
		ORDER BY updated_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID, string(t))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows, userID, t)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string, t models.RecordType, id string) (*models.Record, error) {
	query := `SELECT ` + columns + ` FROM records
		WHERE user_id = $1 AND record_type = $2 AND id = $3`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, userID, string(t), id), userID, t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, rec *models.Record) (*models.Record, error) {
	query := `INSERT INTO records (user_id, record_type, id, version, updated_at, deleted,
			origin_source, origin_id, origin_timestamp, read_only, data)
		VALUES ($1, $2, $3, 1, $4, FALSE, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, record_type, id) DO UPDATE SET
			version = records.version + 1,
			updated_at = EXCLUDED.updated_at,
			deleted = FALSE,
			origin_source = EXCLUDED.origin_source,
			origin_id = EXCLUDED.origin_id,
			origin_timestamp = EXCLUDED.origin_timestamp,
			read_only = EXCLUDED.read_only,
			data = EXCLUDED.data
		WHERE records.deleted
		RETURNING ` + columns

	out, err := scanRecord(r.db.QueryRowContext(ctx, query,
		rec.UserID, string(rec.Type), rec.ID, rec.UpdatedAt,
		rec.OriginSource, rec.OriginID, rec.OriginTimestamp, rec.ReadOnly, []byte(rec.Data),
	), rec.UserID, rec.Type)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, rec *models.Record) (*models.Record, error) {
	query := `UPDATE records SET
			version = version + 1,
			updated_at = $4,
			origin_source = $5,
			origin_id = $6,
			origin_timestamp = $7,
			read_only = $8,
			data = $9
		WHERE user_id = $1 AND record_type = $2 AND id = $3 AND NOT deleted
		RETURNING ` + columns

	out, err := scanRecord(r.db.QueryRowContext(ctx, query,
		rec.UserID, string(rec.Type), rec.ID, rec.UpdatedAt,
		rec.OriginSource, rec.OriginID, rec.OriginTimestamp, rec.ReadOnly, []byte(rec.Data),
	), rec.UserID, rec.Type)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Patch(ctx context.Context, userID string, t models.RecordType, id string, patch json.RawMessage, at time.Time) (*models.Record, error) {
	query := `UPDATE records SET
			version = version + 1,
			updated_at = $4,
			data = data || $5::jsonb
		WHERE user_id = $1 AND record_type = $2 AND id = $3 AND NOT deleted
		RETURNING ` + columns

	out, err := scanRecord(r.db.QueryRowContext(ctx, query, userID, string(t), id, at, []byte(patch)), userID, t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, userID string, t models.RecordType, id string, at time.Time) error {
	query := `UPDATE records SET deleted = TRUE, version = version + 1, updated_at = $4
		WHERE user_id = $1 AND record_type = $2 AND id = $3 AND NOT deleted`

	err := dbx.Affected(r.db.ExecContext(ctx, query, userID, string(t), id, at))
	if errors.Is(err, dbx.ErrNoRowsAffected) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
