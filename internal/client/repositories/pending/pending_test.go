package pending

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/migrations"
	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))
	return db
}

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func change(t models.DataType, id string, c models.ChangeType) *models.PendingChange {
	return &models.PendingChange{EntityType: t, EntityID: id, ChangeType: c, CreatedAt: t0, Payload: json.RawMessage(`{"a":1}`)}
}

func TestInsertFindAndList(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id, err := r.Insert(ctx, change(models.DataTypeTemplate, "tp1", models.ChangeCreate))
	require.NoError(t, err)
	_, err = r.Insert(ctx, change(models.DataTypeTemplate, "tp1", models.ChangeSchedule))
	require.NoError(t, err)
	_, err = r.Insert(ctx, change(models.DataTypeBoat, "b1", models.ChangeUpdate))
	require.NoError(t, err)

	got, err := r.FindOutstanding(ctx, models.DataTypeTemplate, "tp1", models.ChangeCreate)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.JSONEq(t, `{"a":1}`, string(got.Payload))
	assert.Nil(t, got.NextAttemptAt)

	tpl, err := r.ListOutstanding(ctx, models.DataTypeTemplate)
	require.NoError(t, err)
	require.Len(t, tpl, 2)
	assert.Equal(t, models.ChangeCreate, tpl[0].ChangeType)
	assert.Equal(t, models.ChangeSchedule, tpl[1].ChangeType)

	all, err := r.ListOutstanding(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = r.FindOutstanding(ctx, models.DataTypeTemplate, "tp1", models.ChangeDelete)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRecordAttemptAndReset(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id, err := r.Insert(ctx, change(models.DataTypeBoat, "b1", models.ChangeUpdate))
	require.NoError(t, err)

	next := t0.Add(30 * time.Second)
	require.NoError(t, r.RecordAttempt(ctx, id, 1, t0, "server unavailable", next))

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SyncAttempts)
	assert.Equal(t, "server unavailable", got.LastError)
	require.NotNil(t, got.NextAttemptAt)
	assert.True(t, next.Equal(*got.NextAttemptAt))

	n, err := r.ResetAttempts(ctx, models.DataTypeBoat, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, got.SyncAttempts)
	assert.Nil(t, got.NextAttemptAt)

	require.ErrorIs(t, r.RecordAttempt(ctx, 999, 1, t0, "x", t0), common.ErrNotFound)
}

func TestMarkSyncedAndCleanup(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	old := change(models.DataTypeBoat, "b1", models.ChangeCreate)
	old.CreatedAt = t0.Add(-10 * 24 * time.Hour)
	oldID, err := r.Insert(ctx, old)
	require.NoError(t, err)
	_, err = r.Insert(ctx, change(models.DataTypeBoat, "b1", models.ChangeUpdate))
	require.NoError(t, err)
	_, err = r.Insert(ctx, change(models.DataTypeTemplate, "tp", models.ChangeUpdate))
	require.NoError(t, err)

	require.NoError(t, r.MarkSynced(ctx, oldID))
	n, err := r.MarkEntitySynced(ctx, models.DataTypeBoat, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	removed, err := r.DeleteSyncedBefore(ctx, t0.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed, "only the old synced change goes")

	removed, err = r.DeleteSynced(ctx, models.DataTypeBoat)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	left, err := r.ListOutstanding(ctx, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, models.DataTypeTemplate, left[0].EntityType)
}

func TestUpdatePayloadAndRename(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id, err := r.Insert(ctx, change(models.DataTypeBoat, "local", models.ChangeCreate))
	require.NoError(t, err)

	require.NoError(t, r.UpdatePayload(ctx, id, []byte(`{"a":2}`), t0.Add(time.Minute)))
	require.NoError(t, r.RenameEntity(ctx, models.DataTypeBoat, "local", "remote"))

	got, err := r.FindOutstanding(ctx, models.DataTypeBoat, "remote", models.ChangeCreate)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(got.Payload))
}
