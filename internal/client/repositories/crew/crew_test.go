package crew

import (
	"context"
	"database/sql"
	"testing"

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

func TestReplaceForTrip_ReplacesInOrder(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.ReplaceForTrip(ctx, "t1", []models.CrewMember{{Name: "Old"}}))
	require.NoError(t, r.ReplaceForTrip(ctx, "t1", []models.CrewMember{
		{Name: "Anna", Role: "skipper"},
		{Name: "Ben", DeviceOrigin: "device:b"},
	}))

	got, err := r.ListByTrip(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Anna", got[0].Name)
	assert.Equal(t, 0, got[0].Position)
	assert.Equal(t, "Ben", got[1].Name)
	assert.Equal(t, "t1", got[1].TripID)
	assert.NotEmpty(t, got[1].ID)
}

func TestAppend_AddsAtEnd(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	first, err := r.Append(ctx, models.CrewMember{TripID: "t1", Name: "Anna"})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Position)

	second, err := r.Append(ctx, models.CrewMember{TripID: "t1", Name: "Ben", DeviceOrigin: "device:b"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Position)

	other, err := r.Append(ctx, models.CrewMember{TripID: "t2", Name: "Cid"})
	require.NoError(t, err)
	assert.Equal(t, 0, other.Position)
}

func TestFindByDevice(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	_, err := r.Append(ctx, models.CrewMember{TripID: "t1", Name: "Ben", DeviceOrigin: "device:b"})
	require.NoError(t, err)

	m, err := r.FindByDevice(ctx, "t1", "device:b")
	require.NoError(t, err)
	assert.Equal(t, "Ben", m.Name)

	_, err = r.FindByDevice(ctx, "t1", "device:z")
	require.ErrorIs(t, err, common.ErrNotFound)
}
