package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/dbx"
	"github.com/dmitrijs2005/boatlog/internal/server/models"
	"github.com/dmitrijs2005/boatlog/internal/server/repositories/records"
	"github.com/dmitrijs2005/boatlog/internal/server/repositories/users"
)

type fakeRepoManager struct {
	users   *fakeUsersRepo
	records *fakeRecordsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository            { return m.users }
func (m *fakeRepoManager) Records(dbx.DBTX) records.Repository        { return m.records }

type fakeUsersRepo struct {
	byName map[string]*models.User
	getErr error
}

func newFakeUsers() *fakeUsersRepo {
	return &fakeUsersRepo{byName: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if _, ok := f.byName[u.UserName]; ok {
		return nil, common.ErrAlreadyExists
	}
	u.ID = "u-" + u.UserName
	f.byName[u.UserName] = u
	return u, nil
}

func (f *fakeUsersRepo) GetUserByLogin(_ context.Context, name string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) Exists(_ context.Context, id string) (bool, error) {
	for _, u := range f.byName {
		if u.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// fakeRecordsRepo records the last write it was asked to do.
type fakeRecordsRepo struct {
	inserted *models.Record
	updated  *models.Record
	patched  json.RawMessage
	at       time.Time
	deleted  string
	err      error
}

func (f *fakeRecordsRepo) List(_ context.Context, userID string, t models.RecordType) ([]models.Record, error) {
	return []models.Record{{UserID: userID, Type: t, ID: "r-1"}}, f.err
}

func (f *fakeRecordsRepo) Get(_ context.Context, userID string, t models.RecordType, id string) (*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Record{UserID: userID, Type: t, ID: id}, nil
}

func (f *fakeRecordsRepo) Insert(_ context.Context, rec *models.Record) (*models.Record, error) {
	f.inserted = rec
	if f.err != nil {
		return nil, f.err
	}
	out := *rec
	out.Version = 1
	return &out, nil
}

func (f *fakeRecordsRepo) Update(_ context.Context, rec *models.Record) (*models.Record, error) {
	f.updated = rec
	if f.err != nil {
		return nil, f.err
	}
	out := *rec
	out.Version = 2
	return &out, nil
}

func (f *fakeRecordsRepo) Patch(_ context.Context, userID string, t models.RecordType, id string, patch json.RawMessage, at time.Time) (*models.Record, error) {
	f.patched = patch
	f.at = at
	if f.err != nil {
		return nil, f.err
	}
	return &models.Record{UserID: userID, Type: t, ID: id, Version: 3, Data: patch}, nil
}

func (f *fakeRecordsRepo) SoftDelete(_ context.Context, _ string, _ models.RecordType, id string, at time.Time) error {
	f.deleted = id
	f.at = at
	return f.err
}
