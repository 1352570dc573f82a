package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/queue"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/store"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/dbx"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/dmitrijs2005/boatlog/internal/timex"
	"github.com/google/uuid"
)

// Requester is told about single-entity changes so a running scheduler can
// push them without waiting for the next full pass.
type Requester interface {
	Request(t models.DataType, id string) bool
}

// Records edits local entities of one kind. Every mutation is written
// together with its journal entry in one transaction.
type Records[T models.Record] struct {
	db     *sql.DB
	dt     models.DataType
	repo   func(dbx.DBTX) store.Repository[T]
	policy queue.Policy
	logger logging.Logger
	now    func() time.Time
	notify Requester
}

func NewRecords[T models.Record](db *sql.DB, dt models.DataType, repo func(dbx.DBTX) store.Repository[T], policy queue.Policy, logger logging.Logger) *Records[T] {
	return &Records[T]{
		db:     db,
		dt:     dt,
		repo:   repo,
		policy: policy,
		logger: logger.With("module", "records", "type", string(dt)),
		now:    timex.Now,
	}
}

// SetRequester routes change notifications to r.
func (s *Records[T]) SetRequester(r Requester) { s.notify = r }

func (s *Records[T]) DataType() models.DataType { return s.dt }

func (s *Records[T]) queue(tx dbx.DBTX) *queue.Queue {
	return queue.New(repomanager.Pending(tx), s.policy, s.logger)
}

func (s *Records[T]) request(id string) {
	if s.notify != nil {
		s.notify.Request(s.dt, id)
	}
}

func (s *Records[T]) List(ctx context.Context) ([]T, error) {
	return s.repo(s.db).GetAll(ctx)
}

// Get returns a live entity; soft-deleted ones are common.ErrNotFound.
func (s *Records[T]) Get(ctx context.Context, id string) (T, error) {
	item, err := s.repo(s.db).GetByID(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	if item.Meta().Deleted {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", s.dt, id, common.ErrNotFound)
	}
	return item, nil
}

// Create stores a new entity and journals its creation. An empty ID is
// generated.
func (s *Records[T]) Create(ctx context.Context, item T) (T, error) {
	m := item.Meta()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Touch(s.now())

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repo(tx).Insert(ctx, item); err != nil {
			return err
		}
		_, err := s.queue(tx).Enqueue(ctx, s.dt, m.ID, models.ChangeCreate, nil)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	s.logger.Info(ctx, "created", "id", m.ID)
	s.request(m.ID)
	return item, nil
}

// Update applies mutate to the stored entity and journals an update.
// Imported read-only entities are rejected with common.ErrReadOnly.
func (s *Records[T]) Update(ctx context.Context, id string, mutate func(T) error) (T, error) {
	return s.change(ctx, id, models.ChangeUpdate, func(item T) (any, error) {
		return nil, mutate(item)
	})
}

// change runs fn on the stored entity and journals change with the payload
// fn returns.
func (s *Records[T]) change(ctx context.Context, id string, change models.ChangeType, fn func(T) (any, error)) (T, error) {
	var out T
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		item, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		m := item.Meta()
		if m.Deleted {
			return fmt.Errorf("%s %s: %w", s.dt, id, common.ErrNotFound)
		}
		if m.ReadOnly {
			return fmt.Errorf("%s %s: %w", s.dt, id, common.ErrReadOnly)
		}
		payload, err := fn(item)
		if err != nil {
			return err
		}
		m.ID = id
		m.Touch(s.now())
		if err := repo.Update(ctx, item); err != nil {
			return err
		}
		if _, err := s.queue(tx).Enqueue(ctx, s.dt, id, change, payload); err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return out, err
	}
	s.request(id)
	return out, nil
}

// Delete soft-deletes the entity and journals the deletion. The tombstone
// is purged once the remote confirms it.
func (s *Records[T]) Delete(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		item, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if item.Meta().Deleted {
			return fmt.Errorf("%s %s: %w", s.dt, id, common.ErrNotFound)
		}
		if err := repo.SoftDelete(ctx, id, s.now()); err != nil {
			return err
		}
		_, err = s.queue(tx).Enqueue(ctx, s.dt, id, models.ChangeDelete, nil)
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "deleted", "id", id)
	s.request(id)
	return nil
}

