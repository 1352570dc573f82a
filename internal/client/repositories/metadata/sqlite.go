package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/dbx"
)

type key string

const (
	keyDeviceOrigin key = "device_origin"
	keyAccessToken  key = "access_token"
	keyUsername     key = "username"
	keyCrewName     key = "crew_name"
	keyLastSyncAt   key = "last_sync_at"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) EnsureDeviceOrigin(ctx context.Context, mint func() string) (string, error) {
	origin, err := r.DeviceOrigin(ctx)
	if err != nil || origin != "" {
		return origin, err
	}
	origin = mint()
	if !validOrigin(origin) {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrigin, origin)
	}
	// A concurrent writer may have won; the stored row is the answer.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO NOTHING
	`, string(keyDeviceOrigin), []byte(origin))
	if err != nil {
		return "", fmt.Errorf("failed to store device origin: %w", err)
	}
	return r.DeviceOrigin(ctx)
}

func (r *SQLiteRepository) DeviceOrigin(ctx context.Context) (string, error) {
	return r.getString(ctx, keyDeviceOrigin)
}

func validOrigin(origin string) bool {
	id, ok := strings.CutPrefix(origin, common.DeviceOriginPrefix)
	return ok && strings.TrimSpace(id) != ""
}

func (r *SQLiteRepository) Session(ctx context.Context) (Session, error) {
	var s Session
	var err error
	if s.Username, err = r.getString(ctx, keyUsername); err != nil {
		return Session{}, err
	}
	if s.Token, err = r.getString(ctx, keyAccessToken); err != nil {
		return Session{}, err
	}
	return s, nil
}

// SaveSession writes the username and token in one statement.
func (r *SQLiteRepository) SaveSession(ctx context.Context, s Session) error {
	if s.Username == "" || s.Token == "" {
		return ErrInvalidSession
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?), (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, string(keyUsername), []byte(s.Username), string(keyAccessToken), []byte(s.Token))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ClearToken(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, string(keyAccessToken)); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Username(ctx context.Context) (string, error) {
	return r.getString(ctx, keyUsername)
}

func (r *SQLiteRepository) CrewName(ctx context.Context) (string, error) {
	return r.getString(ctx, keyCrewName)
}

func (r *SQLiteRepository) SetCrewName(ctx context.Context, name string) error {
	return r.set(ctx, keyCrewName, name)
}

func (r *SQLiteRepository) LastSyncAt(ctx context.Context) (time.Time, error) {
	v, err := r.getString(ctx, keyLastSyncAt)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse metadata[%s]: %w", keyLastSyncAt, err)
	}
	return t, nil
}

func (r *SQLiteRepository) SetLastSyncAt(ctx context.Context, t time.Time) error {
	return r.set(ctx, keyLastSyncAt, t.UTC().Format(time.RFC3339))
}

// getString returns "" for a missing key.
func (r *SQLiteRepository) getString(ctx context.Context, k key) (string, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, string(k)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata[%s]: %w", k, err)
	}
	return string(value), nil
}

func (r *SQLiteRepository) set(ctx context.Context, k key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, string(k), []byte(value))
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", k, err)
	}
	return nil
}
