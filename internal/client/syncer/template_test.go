package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/queue"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func editTemplate(t *testing.T, e *testEnv, id string, change models.ChangeType, edit func(m *models.MaintenanceTemplate)) int64 {
	t.Helper()
	ctx := context.Background()
	repo := repomanager.Templates(e.db)

	m, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	edit(m)
	m.Touch(m.UpdatedAt.Add(time.Millisecond))
	require.NoError(t, repo.Update(ctx, m))

	var payload any
	switch change {
	case models.ChangeSchedule:
		payload = m.SchedulePatch()
	case models.ChangeInformation:
		payload = m.InformationPatch()
	}
	changeID, err := e.queue.Enqueue(ctx, models.DataTypeTemplate, id, change, payload)
	require.NoError(t, err)
	return changeID
}

func remoteBody(t *testing.T, e *testEnv, id string) map[string]any {
	t.Helper()
	rec, ok := e.remote.get(models.DataTypeTemplate, id)
	require.True(t, ok)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Data, &body))
	return body
}

func TestTemplatePush_ReplaysJournalInOrder(t *testing.T) {
	e := newTestEnv(t, queue.DefaultPolicy())
	ctx := context.Background()
	h := NewTemplateHandler(e.deps())

	tpl := &models.MaintenanceTemplate{BoatID: "b1", Name: "Oil change", IntervalDays: 90}
	tpl.ID = "m1"
	insertLocal(t, e, models.DataTypeTemplate, repomanager.Templates, tpl)
	scheduleID := editTemplate(t, e, "m1", models.ChangeSchedule, func(m *models.MaintenanceTemplate) {
		m.IntervalDays = 60
	})

	res := h.PushToRemote(ctx)
	assert.Equal(t, Ok(2), res)
	assert.Equal(t, []string{"create template m1", "patch template m1"}, e.remote.callLog())
	assert.Equal(t, float64(60), remoteBody(t, e, "m1")["interval_days"])

	stored, err := repomanager.Templates(e.db).GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, stored.Synced)
	assert.Equal(t, int64(2), stored.ServerVersion)

	// delivered template changes are garbage-collected
	_, err = repomanager.Pending(e.db).GetByID(ctx, scheduleID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestTemplatePush_FailedPatchKeepsTemplatePending(t *testing.T) {
	e := newTestEnv(t, queue.DefaultPolicy())
	ctx := context.Background()
	h := NewTemplateHandler(e.deps())

	tpl := &models.MaintenanceTemplate{BoatID: "b1", Name: "Impeller"}
	tpl.ID = "m1"
	insertLocal(t, e, models.DataTypeTemplate, repomanager.Templates, tpl)
	require.Equal(t, Ok(1), h.PushToRemote(ctx))

	changeID := editTemplate(t, e, "m1", models.ChangeInformation, func(m *models.MaintenanceTemplate) {
		m.Information = "Jabsco 1210-0001"
	})
	e.remote.failures["m1"] = errors.New("boom")

	res := h.PushToRemote(ctx)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"template m1: information: boom"}, res.Errors)

	stored, err := repomanager.Templates(e.db).GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, stored.Synced)

	change, err := repomanager.Pending(e.db).GetByID(ctx, changeID)
	require.NoError(t, err)
	assert.Equal(t, 1, change.SyncAttempts)
	assert.Equal(t, "boom", change.LastError)
	assert.NotNil(t, change.NextAttemptAt)

	// the next pass replays the failed change
	delete(e.remote.failures, "m1")
	assert.Equal(t, Ok(1), h.PushToRemote(ctx))

	stored, err = repomanager.Templates(e.db).GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, stored.Synced)
	remote, ok := e.remote.get(models.DataTypeTemplate, "m1")
	require.True(t, ok)
	assert.Contains(t, string(remote.Data), "Jabsco 1210-0001")
}

func TestTemplatePush_Delete(t *testing.T) {
	e := newTestEnv(t, queue.DefaultPolicy())
	ctx := context.Background()
	h := NewTemplateHandler(e.deps())
	repo := repomanager.Templates(e.db)

	tpl := &models.MaintenanceTemplate{BoatID: "b1", Name: "Antifouling"}
	tpl.ID = "m1"
	insertLocal(t, e, models.DataTypeTemplate, repomanager.Templates, tpl)
	require.Equal(t, Ok(1), h.PushToRemote(ctx))

	stored, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	require.NoError(t, repo.SoftDelete(ctx, "m1", stored.UpdatedAt.Add(time.Millisecond)))
	_, err = e.queue.Enqueue(ctx, models.DataTypeTemplate, "m1", models.ChangeDelete, nil)
	require.NoError(t, err)

	assert.Equal(t, Ok(1), h.PushToRemote(ctx))
	assert.Equal(t, "delete template m1", e.remote.callLog()[1])

	_, err = repo.GetByID(ctx, "m1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestTemplatePush_UnjournaledTemplateUsesGenericPush(t *testing.T) {
	e := newTestEnv(t, queue.DefaultPolicy())
	ctx := context.Background()
	h := NewTemplateHandler(e.deps())

	tpl := &models.MaintenanceTemplate{BoatID: "b1", Name: "Rigging check"}
	tpl.ID = "m1"
	tpl.Touch(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, repomanager.Templates(e.db).Insert(ctx, tpl))

	assert.Equal(t, Ok(1), h.PushToRemote(ctx))
	assert.Equal(t, []string{"create template m1"}, e.remote.callLog())
}
