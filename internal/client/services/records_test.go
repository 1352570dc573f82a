package services

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/queue"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requests struct{ ids []string }

func (r *requests) Request(t models.DataType, id string) bool {
	r.ids = append(r.ids, string(t)+"/"+id)
	return true
}

func newLogbook(t *testing.T) (*Logbook, *sql.DB, *requests) {
	t.Helper()
	db := newDB(t)
	lb := NewLogbook(db, queue.DefaultPolicy(), filepath.Join(t.TempDir(), "photos"), logging.Nop())
	req := &requests{}
	lb.SetRequester(req)
	return lb, db, req
}

func outstanding(t *testing.T, db *sql.DB, dt models.DataType) []models.PendingChange {
	t.Helper()
	q := queue.New(repomanager.Pending(db), queue.DefaultPolicy(), logging.Nop())
	changes, err := q.Outstanding(context.Background(), dt)
	require.NoError(t, err)
	return changes
}

func TestRecords_CreateJournals(t *testing.T) {
	ctx := context.Background()
	lb, db, req := newLogbook(t)

	n, err := lb.Notes.Create(ctx, &models.Note{Title: "Fuel", Body: "40l"})
	require.NoError(t, err)
	require.NotEmpty(t, n.ID)
	assert.False(t, n.Synced)

	changes := outstanding(t, db, models.DataTypeNote)
	require.Len(t, changes, 1)
	assert.Equal(t, n.ID, changes[0].EntityID)
	assert.Equal(t, models.ChangeCreate, changes[0].ChangeType)
	assert.Equal(t, []string{"note/" + n.ID}, req.ids)

	got, err := lb.Notes.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "40l", got.Body)
}

func TestRecords_UpdateCoalesces(t *testing.T) {
	ctx := context.Background()
	lb, db, _ := newLogbook(t)

	n, err := lb.Notes.Create(ctx, &models.Note{Title: "Fuel"})
	require.NoError(t, err)
	for _, body := range []string{"40l", "45l"} {
		_, err = lb.Notes.Update(ctx, n.ID, func(n *models.Note) error {
			n.Body = body
			return nil
		})
		require.NoError(t, err)
	}

	changes := outstanding(t, db, models.DataTypeNote)
	require.Len(t, changes, 2)
	assert.Equal(t, models.ChangeCreate, changes[0].ChangeType)
	assert.Equal(t, models.ChangeUpdate, changes[1].ChangeType)

	got, err := lb.Notes.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "45l", got.Body)
}

func TestRecords_UpdateReadOnly(t *testing.T) {
	ctx := context.Background()
	lb, db, _ := newLogbook(t)

	trip := &models.Trip{Title: "Received"}
	trip.ID = "t1"
	trip.OriginSource = "device:other"
	trip.OriginID = "x"
	trip.OriginTimestamp = 1
	trip.ReadOnly = true
	require.NoError(t, repomanager.Trips(db).Insert(ctx, trip))

	_, err := lb.Trips.Update(ctx, "t1", func(t *models.Trip) error {
		t.Title = "Mine now"
		return nil
	})
	require.ErrorIs(t, err, common.ErrReadOnly)
	assert.Empty(t, outstanding(t, db, models.DataTypeTrip))
}

func TestRecords_DeleteSupersedesEarlierChanges(t *testing.T) {
	ctx := context.Background()
	lb, db, _ := newLogbook(t)

	n, err := lb.Notes.Create(ctx, &models.Note{Title: "Fuel"})
	require.NoError(t, err)
	require.NoError(t, lb.Notes.Delete(ctx, n.ID))

	changes := outstanding(t, db, models.DataTypeNote)
	require.Len(t, changes, 1)
	assert.Equal(t, models.ChangeDelete, changes[0].ChangeType)

	_, err = lb.Notes.Get(ctx, n.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	err = lb.Notes.Delete(ctx, n.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = lb.Notes.Update(ctx, n.ID, func(*models.Note) error { return nil })
	assert.ErrorIs(t, err, common.ErrNotFound)

	all, err := lb.Notes.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTemplateService_PartialChanges(t *testing.T) {
	ctx := context.Background()
	lb, db, _ := newLogbook(t)

	tpl, err := lb.Templates.Create(ctx, &models.MaintenanceTemplate{BoatID: "b1", Name: "Impeller"})
	require.NoError(t, err)

	_, err = lb.Templates.UpdateSchedule(ctx, tpl.ID, 365, 200)
	require.NoError(t, err)
	_, err = lb.Templates.UpdateInformation(ctx, tpl.ID, "raw water pump", "Jabsco 1210")
	require.NoError(t, err)

	changes := outstanding(t, db, models.DataTypeTemplate)
	require.Len(t, changes, 3)
	assert.Equal(t, models.ChangeSchedule, changes[1].ChangeType)
	assert.JSONEq(t, `{"interval_days":365,"interval_engine_hours":200}`, string(changes[1].Payload))
	assert.Equal(t, models.ChangeInformation, changes[2].ChangeType)
	assert.JSONEq(t, `{"description":"raw water pump","information":"Jabsco 1210"}`, string(changes[2].Payload))

	_, err = lb.Templates.UpdateSchedule(ctx, tpl.ID, -1, 0)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestBoatService_Activate(t *testing.T) {
	ctx := context.Background()
	lb, db, _ := newLogbook(t)

	a, err := lb.Boats.Create(ctx, &models.Boat{Name: "Orca", Active: true})
	require.NoError(t, err)
	b, err := lb.Boats.Create(ctx, &models.Boat{Name: "Petrel"})
	require.NoError(t, err)

	require.NoError(t, lb.Boats.Activate(ctx, b.ID))

	gotA, err := lb.Boats.Get(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := lb.Boats.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, gotA.Active)
	assert.True(t, gotB.Active)
	assert.Len(t, outstanding(t, db, models.DataTypeBoat), 4)

	assert.ErrorIs(t, lb.Boats.Activate(ctx, "missing"), common.ErrNotFound)
}

func TestTripService_Crew(t *testing.T) {
	ctx := context.Background()
	lb, _, _ := newLogbook(t)

	trip, err := lb.Trips.Create(ctx, &models.Trip{Title: "Crossing"})
	require.NoError(t, err)

	_, err = lb.Trips.AddCrew(ctx, trip.ID, "Ben", "bowman")
	require.NoError(t, err)
	_, err = lb.Trips.AddCrew(ctx, trip.ID, "", "")
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = lb.Trips.AddCrew(ctx, "missing", "Ben", "")
	assert.ErrorIs(t, err, common.ErrNotFound)

	crew, err := lb.Trips.Crew(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, crew, 1)
	assert.Equal(t, "bowman", crew[0].Role)
}

func TestPhotoService_Add(t *testing.T) {
	ctx := context.Background()
	lb, _, _ := newLogbook(t)

	src := filepath.Join(t.TempDir(), "Sunset.JPG")
	require.NoError(t, os.WriteFile(src, []byte("jpeg"), 0o600))

	p, err := lb.Photos.Add(ctx, "t1", "sunset", src)
	require.NoError(t, err)
	assert.Equal(t, p.ID+".jpg", filepath.Base(p.Local.Path))
	assert.False(t, p.Local.Uploaded)
	require.FileExists(t, p.Local.Path)

	got, err := lb.Photos.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Local.Path, got.Local.Path)
}
