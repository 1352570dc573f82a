package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/queue"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_ServesRequestsAndTriggers(t *testing.T) {
	o := newOrchestrator(t, 1, nil)
	log := &callLog{}
	require.NoError(t, o.Register(&fakeHandler{dt: models.DataTypeNote, log: log, pull: Ok(0), push: Ok(0)}))

	s, err := NewScheduler(o, &fakeNetwork{online: true}, time.Hour, logging.Nop())
	require.NoError(t, err)
	reports := make(chan Report, 1)
	s.OnReport(func(r Report) { reports <- r })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	assert.True(t, s.Request(models.DataTypeNote, "n1"))
	require.Eventually(t, func() bool {
		calls := log.list()
		return len(calls) > 0 && calls[0] == "entity note n1"
	}, time.Second, 5*time.Millisecond)

	s.TriggerAll()
	select {
	case r := <-reports:
		assert.True(t, r.Success)
	case <-time.After(time.Second):
		t.Fatal("no report after trigger")
	}
}

func TestScheduler_OfflineSkipsWork(t *testing.T) {
	o := newOrchestrator(t, 1, nil)
	log := &callLog{}
	require.NoError(t, o.Register(&fakeHandler{dt: models.DataTypeNote, log: log}))

	s, err := NewScheduler(o, &fakeNetwork{online: false}, time.Millisecond, logging.Nop())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s.Request(models.DataTypeNote, "n1")
	s.Run(ctx)

	assert.Empty(t, log.list())
}

func TestNewScheduler_RejectsNonPositiveInterval(t *testing.T) {
	o := newOrchestrator(t, 1, nil)
	for _, d := range []time.Duration{0, -time.Second} {
		_, err := NewScheduler(o, nil, d, logging.Nop())
		assert.ErrorIs(t, err, ErrInvalidInterval)
	}
}

func TestScheduler_BacksOffAfterFailedRun(t *testing.T) {
	o := newOrchestrator(t, 1, nil)
	log := &callLog{}
	h := &fakeHandler{dt: models.DataTypeNote, log: log, pull: Ok(0), push: Failed("note n1: server unavailable")}
	require.NoError(t, o.Register(h))

	s, err := NewScheduler(o, &fakeNetwork{online: true}, time.Minute, logging.Nop())
	require.NoError(t, err)
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.tick(ctx)
	require.Len(t, log.list(), 2)

	// inside the retry window periodic ticks wait
	now = now.Add(10 * time.Second)
	s.tick(ctx)
	assert.Len(t, log.list(), 2)

	// an explicit trigger does not
	s.syncAll(ctx)
	assert.Len(t, log.list(), 4)

	now = now.Add(o.Backoff(2) + time.Second)
	h.push = Ok(1)
	s.tick(ctx)
	assert.Len(t, log.list(), 6)
	assert.Zero(t, s.failures)

	s.tick(ctx)
	assert.Len(t, log.list(), 8)
}

func TestScheduler_OfflineTickCleansJournal(t *testing.T) {
	policy := queue.DefaultPolicy()
	policy.Retention = -time.Hour
	e := newTestEnv(t, policy)
	ctx := context.Background()

	id, err := e.queue.Enqueue(ctx, models.DataTypeNote, "n1", models.ChangeCreate, nil)
	require.NoError(t, err)
	require.NoError(t, e.queue.MarkSynced(ctx, id))

	o := NewOrchestrator(e.queue, nil, 1, logging.Nop())
	log := &callLog{}
	require.NoError(t, o.Register(&fakeHandler{dt: models.DataTypeNote, log: log}))

	s, err := NewScheduler(o, &fakeNetwork{online: false}, time.Minute, logging.Nop())
	require.NoError(t, err)
	s.tick(ctx)

	assert.Empty(t, log.list())
	_, err = repomanager.Pending(e.db).GetByID(ctx, id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
