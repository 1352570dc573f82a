package syncer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/client"
	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/queue"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/store"
	"github.com/dmitrijs2005/boatlog/internal/dbx"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/dmitrijs2005/boatlog/internal/timex"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	mu       sync.Mutex
	records  map[models.DataType]map[string]client.Record
	version  int64
	failures map[string]error
	listErr  error
	calls    []string
	uploads  map[string][]byte
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		records:  map[models.DataType]map[string]client.Record{},
		failures: map[string]error{},
		uploads:  map[string][]byte{},
	}
}

func (f *fakeRemote) table(t models.DataType) map[string]client.Record {
	if f.records[t] == nil {
		f.records[t] = map[string]client.Record{}
	}
	return f.records[t]
}

// seed stores a record as if another device had pushed it.
func (f *fakeRemote) seed(t models.DataType, id string, data string) client.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version++
	rec := client.Record{ID: id, Version: f.version, UpdatedAt: time.Now().UTC(), Data: json.RawMessage(data)}
	f.table(t)[id] = rec
	return rec
}

func (f *fakeRemote) get(t models.DataType, id string) (client.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.table(t)[id]
	return rec, ok
}

func (f *fakeRemote) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) record(op string, t models.DataType, id string) error {
	f.calls = append(f.calls, fmt.Sprintf("%s %s %s", op, t, id))
	return f.failures[id]
}

func (f *fakeRemote) Register(context.Context, string, string) error { return nil }

func (f *fakeRemote) Login(context.Context, string, string) (string, error) { return "token", nil }

func (f *fakeRemote) List(_ context.Context, t models.DataType) ([]client.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]client.Record, 0, len(f.table(t)))
	for _, rec := range f.table(t) {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRemote) Get(_ context.Context, t models.DataType, id string) (client.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.table(t)[id]
	if !ok {
		return client.Record{}, client.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRemote) store(t models.DataType, rec client.Record) client.Record {
	f.version++
	rec.Version = f.version
	rec.UpdatedAt = time.Now().UTC()
	f.table(t)[rec.ID] = rec
	return rec
}

func (f *fakeRemote) Create(_ context.Context, t models.DataType, rec client.Record) (client.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create", t, rec.ID); err != nil {
		return client.Record{}, err
	}
	if existing, ok := f.table(t)[rec.ID]; ok && !existing.Deleted {
		return client.Record{}, client.ErrConflict
	}
	return f.store(t, rec), nil
}

func (f *fakeRemote) Update(_ context.Context, t models.DataType, rec client.Record) (client.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update", t, rec.ID); err != nil {
		return client.Record{}, err
	}
	if _, ok := f.table(t)[rec.ID]; !ok {
		return client.Record{}, client.ErrNotFound
	}
	return f.store(t, rec), nil
}

func (f *fakeRemote) Patch(_ context.Context, t models.DataType, id string, fields map[string]any) (client.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("patch", t, id); err != nil {
		return client.Record{}, err
	}
	rec, ok := f.table(t)[id]
	if !ok {
		return client.Record{}, client.ErrNotFound
	}
	body := map[string]any{}
	_ = json.Unmarshal(rec.Data, &body)
	for k, v := range fields {
		body[k] = v
	}
	rec.Data, _ = json.Marshal(body)
	return f.store(t, rec), nil
}

func (f *fakeRemote) Delete(_ context.Context, t models.DataType, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete", t, id); err != nil {
		return err
	}
	rec, ok := f.table(t)[id]
	if !ok {
		return client.ErrNotFound
	}
	rec.Deleted = true
	f.store(t, rec)
	return nil
}

func (f *fakeRemote) PhotoUploadURL(_ context.Context, id string) (client.UploadURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("upload-url", models.DataTypePhoto, id); err != nil {
		return client.UploadURL{}, err
	}
	return client.UploadURL{Key: "photos/" + id, URL: "mem://photos/" + id}, nil
}

func (f *fakeRemote) Upload(_ context.Context, url string, body io.Reader, _ int64) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[url] = b
	return nil
}

type fakeNetwork struct {
	online, metered bool
}

func (n *fakeNetwork) Online() bool  { return n.online }
func (n *fakeNetwork) Metered() bool { return n.metered }

type testEnv struct {
	db      *sql.DB
	remote  *fakeRemote
	queue   *queue.Queue
	network *fakeNetwork
}

func newTestEnv(t *testing.T, policy queue.Policy) *testEnv {
	t.Helper()
	db, err := repomanager.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &testEnv{
		db:      db,
		remote:  newFakeRemote(),
		queue:   queue.New(repomanager.Pending(db), policy, logging.Nop()),
		network: &fakeNetwork{online: true},
	}
}

func (e *testEnv) deps() Deps {
	return Deps{DB: e.db, Remote: e.remote, Queue: e.queue, Network: e.network, Logger: logging.Nop()}
}

// insertLocal stores a new locally authored record and journals its creation.
func insertLocal[T models.Record](t *testing.T, e *testEnv, dt models.DataType, repoFn func(dbx.DBTX) store.Repository[T], item T) T {
	t.Helper()
	ctx := context.Background()
	item.Meta().Touch(timex.Now())
	require.NoError(t, repoFn(e.db).Insert(ctx, item))
	_, err := e.queue.Enqueue(ctx, dt, item.Meta().ID, models.ChangeCreate, nil)
	require.NoError(t, err)
	return item
}

func note(id, title string) *models.Note {
	n := &models.Note{Title: title, Body: "body of " + title}
	n.ID = id
	return n
}

func boat(id, name string) *models.Boat {
	b := &models.Boat{Name: name}
	b.ID = id
	return b
}
