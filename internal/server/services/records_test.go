package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC)

func newRecordService() (*RecordService, *fakeRecordsRepo) {
	repo := &fakeRecordsRepo{}
	svc := NewRecordService(nil, &fakeRepoManager{records: repo})
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func TestRecordService_CreateStampsOwnerAndTime(t *testing.T) {
	svc, repo := newRecordService()

	rec := &models.Record{ID: "b-1", UpdatedAt: time.Unix(1, 0), Data: json.RawMessage(`{"name":"Orca"}`)}
	out, err := svc.Create(context.Background(), "u-1", models.RecordBoat, rec)
	require.NoError(t, err)

	assert.Equal(t, int64(1), out.Version)
	assert.Equal(t, "u-1", repo.inserted.UserID)
	assert.Equal(t, models.RecordBoat, repo.inserted.Type)
	assert.Equal(t, fixedNow, repo.inserted.UpdatedAt)
}

func TestRecordService_RejectsInvalidJSON(t *testing.T) {
	svc, repo := newRecordService()

	_, err := svc.Create(context.Background(), "u-1", models.RecordBoat, &models.Record{ID: "b-1", Data: json.RawMessage(`{"name":`)})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Nil(t, repo.inserted)

	_, err = svc.Update(context.Background(), "u-1", models.RecordBoat, &models.Record{ID: "b-1"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestRecordService_UpdatePassesRepoErrors(t *testing.T) {
	svc, repo := newRecordService()
	repo.err = common.ErrNotFound

	_, err := svc.Update(context.Background(), "u-1", models.RecordTrip, &models.Record{ID: "t-1", Data: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRecordService_Patch(t *testing.T) {
	svc, repo := newRecordService()

	out, err := svc.Patch(context.Background(), "u-1", models.RecordTemplate, "t-1", map[string]json.RawMessage{
		"interval_days": json.RawMessage(`30`),
		"last_done":     json.RawMessage(`"2026-07-01T00:00:00Z"`),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Version)
	assert.JSONEq(t, `{"interval_days":30,"last_done":"2026-07-01T00:00:00Z"}`, string(repo.patched))
	assert.Equal(t, fixedNow, repo.at)

	_, err = svc.Patch(context.Background(), "u-1", models.RecordTemplate, "t-1", nil)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestRecordService_Delete(t *testing.T) {
	svc, repo := newRecordService()

	require.NoError(t, svc.Delete(context.Background(), "u-1", models.RecordNote, "n-1"))
	assert.Equal(t, "n-1", repo.deleted)
	assert.Equal(t, fixedNow, repo.at)
}
