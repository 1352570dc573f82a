// Package store persists synchronizable entities in SQLite. Every entity kind
// lives in its own table with identical bookkeeping columns and a JSON body,
// so one generic repository serves them all.
package store

import (
	"context"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
)

type Repository[T models.Record] interface {
	// GetAll returns live (not soft-deleted) records.
	GetAll(ctx context.Context) ([]T, error)
	// GetByID includes soft-deleted records; common.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (T, error)
	// GetUnsynced returns every record the remote has not seen, tombstones included.
	GetUnsynced(ctx context.Context) ([]T, error)
	GetByOrigin(ctx context.Context, origin, originID string) (T, error)
	Insert(ctx context.Context, item T) error
	Update(ctx context.Context, item T) error
	Upsert(ctx context.Context, item T) error
	// MarkSynced records the remote version. The record only becomes synced
	// when its updated_at still equals seen, so edits made during a push
	// stay pending.
	MarkSynced(ctx context.Context, id string, version int64, seen time.Time) error
	SoftDelete(ctx context.Context, id string, now time.Time) error
	Purge(ctx context.Context, id string) error
	ReplaceID(ctx context.Context, oldID, newID string, version int64) error
	// Repoint rewrites a foreign key stored in the JSON body and marks the
	// touched rows unsynced.
	Repoint(ctx context.Context, field, oldID, newID string) (int64, error)
}
