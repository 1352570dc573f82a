// Package queue journals local mutations so they survive offline periods and
// keeps the retry bookkeeping of their delivery.
//
// At most one unsynced change exists per (entity type, entity id, change
// type): enqueueing the same kind again replaces the payload. A delete
// supersedes everything outstanding for the entity. Failed deliveries record
// the attempt and an exponential backoff due time, which the automatic
// scheduler honours; every sync pass still retries them. After MaxAttempts
// the change is parked: skipped and reported until an operator resets it.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/pending"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/logging"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// Retention is how long delivered changes are kept for inspection.
	Retention time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     10,
		InitialInterval: 30 * time.Second,
		MaxInterval:     time.Hour,
		Multiplier:      2,
		Retention:       7 * 24 * time.Hour,
	}
}

// Delay returns the wait after the given number of failed attempts.
func (p Policy) Delay(attempts int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.Reset()

	var d time.Duration
	for i := 0; i < attempts; i++ {
		d = b.NextBackOff()
	}
	return d
}

// State is the delivery disposition of an entity.
type State int

const (
	Ready State = iota
	// Deferred means the last delivery failed and its backoff has not
	// elapsed. Sync passes still try it.
	Deferred
	// Parked means MaxAttempts was exhausted.
	Parked
)

type Queue struct {
	repo   pending.Repository
	policy Policy
	logger logging.Logger
	now    func() time.Time
}

func New(repo pending.Repository, policy Policy, logger logging.Logger) *Queue {
	return &Queue{repo: repo, policy: policy, logger: logger.With("module", "queue"), now: time.Now}
}

func (q *Queue) Policy() Policy { return q.policy }

// Enqueue journals a change and returns its id.
func (q *Queue) Enqueue(ctx context.Context, t models.DataType, entityID string, change models.ChangeType, payload any) (int64, error) {
	if !change.Valid() {
		return 0, fmt.Errorf("unknown change type %q", change)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode payload: %w", err)
	}
	if payload == nil {
		raw = []byte("{}")
	}
	now := q.now().UTC()

	if change == models.ChangeDelete {
		if _, err := q.repo.MarkEntitySynced(ctx, t, entityID); err != nil {
			return 0, err
		}
	}

	existing, err := q.repo.FindOutstanding(ctx, t, entityID, change)
	switch {
	case err == nil:
		if err := q.repo.UpdatePayload(ctx, existing.ID, raw, now); err != nil {
			return 0, err
		}
		return existing.ID, nil
	case !errors.Is(err, common.ErrNotFound):
		return 0, err
	}

	return q.repo.Insert(ctx, &models.PendingChange{
		EntityType: t,
		EntityID:   entityID,
		ChangeType: change,
		Payload:    raw,
		CreatedAt:  now,
	})
}

// Outstanding lists undelivered changes of t (every type when empty).
func (q *Queue) Outstanding(ctx context.Context, t models.DataType) ([]models.PendingChange, error) {
	return q.repo.ListOutstanding(ctx, t)
}

// Backoff returns the wait after n consecutive failed sync runs.
func (q *Queue) Backoff(n int) time.Duration {
	return q.policy.Delay(n)
}

// StateOf classifies a single change.
func (q *Queue) StateOf(c models.PendingChange) State {
	if q.policy.MaxAttempts > 0 && c.SyncAttempts >= q.policy.MaxAttempts {
		return Parked
	}
	if c.NextAttemptAt != nil && c.NextAttemptAt.After(q.now()) {
		return Deferred
	}
	return Ready
}

// EntityState folds the states of an entity's outstanding changes: parked
// wins over deferred, which wins over ready. The returned change is the one
// that decided the state, nil when nothing is outstanding.
func (q *Queue) EntityState(ctx context.Context, t models.DataType, entityID string) (State, *models.PendingChange, error) {
	changes, err := q.repo.ListOutstandingForEntity(ctx, t, entityID)
	if err != nil {
		return Ready, nil, err
	}
	state := Ready
	var decided *models.PendingChange
	for i := range changes {
		s := q.StateOf(changes[i])
		if s > state {
			state = s
			decided = &changes[i]
		}
	}
	return state, decided, nil
}

func (q *Queue) MarkSynced(ctx context.Context, changeID int64) error {
	return q.repo.MarkSynced(ctx, changeID)
}

// Resolve marks every outstanding change of an entity delivered.
func (q *Queue) Resolve(ctx context.Context, t models.DataType, entityID string) error {
	_, err := q.repo.MarkEntitySynced(ctx, t, entityID)
	return err
}

// RecordChangeFailure bumps the attempt counter of one change and schedules
// its next attempt.
func (q *Queue) RecordChangeFailure(ctx context.Context, c models.PendingChange, cause error) error {
	now := q.now().UTC()
	attempts := c.SyncAttempts + 1
	next := now.Add(q.policy.Delay(attempts))
	if err := q.repo.RecordAttempt(ctx, c.ID, attempts, now, cause.Error(), next); err != nil {
		return err
	}
	if q.policy.MaxAttempts > 0 && attempts >= q.policy.MaxAttempts {
		q.logger.Warn(ctx, "change parked", "type", c.EntityType, "id", c.EntityID,
			"change", c.ChangeType, "attempts", attempts, "error", cause.Error())
	}
	return nil
}

// RecordFailure records a failed delivery for every outstanding change of
// an entity. Entities changed without a journal entry (imports, pulls that
// lost a race) get one of kind fallback first.
func (q *Queue) RecordFailure(ctx context.Context, t models.DataType, entityID string, fallback models.ChangeType, cause error) error {
	changes, err := q.repo.ListOutstandingForEntity(ctx, t, entityID)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		if _, err := q.Enqueue(ctx, t, entityID, fallback, nil); err != nil {
			return err
		}
		if changes, err = q.repo.ListOutstandingForEntity(ctx, t, entityID); err != nil {
			return err
		}
	}
	for _, c := range changes {
		if err := q.RecordChangeFailure(ctx, c, cause); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the retry bookkeeping of an entity so the next pass tries it
// immediately.
func (q *Queue) Reset(ctx context.Context, t models.DataType, entityID string) (int64, error) {
	return q.repo.ResetAttempts(ctx, t, entityID)
}

// Cleanup drops delivered changes older than the retention window.
func (q *Queue) Cleanup(ctx context.Context) (int64, error) {
	return q.repo.DeleteSyncedBefore(ctx, q.now().Add(-q.policy.Retention))
}

// PurgeSynced drops every delivered change of t.
func (q *Queue) PurgeSynced(ctx context.Context, t models.DataType) (int64, error) {
	return q.repo.DeleteSynced(ctx, t)
}

// ParkedMessage renders the report line for a parked change.
func ParkedMessage(c models.PendingChange) string {
	return fmt.Sprintf("%s %s: gave up after %d attempts: %s", c.EntityType, c.EntityID, c.SyncAttempts, c.LastError)
}
