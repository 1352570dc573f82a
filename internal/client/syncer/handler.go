package syncer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/boatlog/internal/client/client"
	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/queue"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/store"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/dbx"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/dmitrijs2005/boatlog/internal/timex"
)

type Handler interface {
	DataType() models.DataType
	PullFromRemote(ctx context.Context) Result
	PushToRemote(ctx context.Context) Result
	SyncEntity(ctx context.Context, id string) Result
}

// Network is the part of the connectivity monitor handlers consult.
type Network interface {
	Online() bool
	Metered() bool
}

// Deps are the collaborators shared by every handler.
type Deps struct {
	DB      *sql.DB
	Remote  client.Client
	Queue   *queue.Queue
	Network Network
	Logger  logging.Logger
}

// Hooks customize EntityHandler for a single entity type.
type Hooks[T models.Record] struct {
	// BeforePush prepares an item before its record is sent.
	BeforePush func(ctx context.Context, item T) error
	// ResolveCreate runs before an item that was never pushed is created
	// remotely. It may give the item an existing remote identity.
	ResolveCreate func(ctx context.Context, item T) (T, error)
}

// EntityHandler syncs one entity type whose records map 1:1 to remote
// records.
type EntityHandler[T models.Record] struct {
	dataType models.DataType
	db       *sql.DB
	repoFn   func(db dbx.DBTX) store.Repository[T]
	newFn    func() T
	remote   client.Client
	queue    *queue.Queue
	logger   logging.Logger
	hooks    Hooks[T]
}

func NewEntityHandler[T models.Record](
	dt models.DataType,
	repoFn func(db dbx.DBTX) store.Repository[T],
	newFn func() T,
	deps Deps,
	hooks Hooks[T],
) *EntityHandler[T] {
	return &EntityHandler[T]{
		dataType: dt,
		db:       deps.DB,
		repoFn:   repoFn,
		newFn:    newFn,
		remote:   deps.Remote,
		queue:    deps.Queue,
		logger:   deps.Logger.With("module", "syncer", "type", string(dt)),
		hooks:    hooks,
	}
}

func (h *EntityHandler[T]) DataType() models.DataType { return h.dataType }

func (h *EntityHandler[T]) repo() store.Repository[T] { return h.repoFn(h.db) }

func (h *EntityHandler[T]) itemError(id string, err error) string {
	return fmt.Sprintf("%s %s: %v", h.dataType, id, err)
}

// fromRecord builds a synced local entity from a remote record.
func (h *EntityHandler[T]) fromRecord(rec client.Record, local T, hasLocal bool) (T, error) {
	item := h.newFn()
	if err := json.Unmarshal(rec.Data, item); err != nil {
		return item, fmt.Errorf("decode remote %s %s: %w", h.dataType, rec.ID, err)
	}

	m := item.Meta()
	m.ID = rec.ID
	m.Synced = true
	m.ServerVersion = rec.Version
	m.OriginSource = rec.OriginSource
	m.OriginID = rec.OriginID
	m.OriginTimestamp = rec.OriginTimestamp
	m.ReadOnly = rec.ReadOnly
	m.UpdatedAt = rec.UpdatedAt.UTC()
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = timex.Now()
	}
	m.CreatedAt = m.UpdatedAt
	if hasLocal {
		m.CreatedAt = local.Meta().CreatedAt
	}
	return item, nil
}

func toRecord(item models.Record) (client.Record, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return client.Record{}, err
	}
	m := item.Meta()
	return client.Record{
		ID:              m.ID,
		Version:         m.ServerVersion,
		UpdatedAt:       m.UpdatedAt,
		OriginSource:    m.OriginSource,
		OriginID:        m.OriginID,
		OriginTimestamp: m.OriginTimestamp,
		ReadOnly:        m.ReadOnly,
		Data:            data,
	}, nil
}

// PullFromRemote writes every remote record into the local store. Local
// records with unpushed changes are left alone; their state is pushed next.
// Remote tombstones purge synced local copies.
func (h *EntityHandler[T]) PullFromRemote(ctx context.Context) Result {
	recs, err := h.remote.List(ctx, h.dataType)
	if err != nil {
		h.logger.Warn(ctx, "pull failed", "error", err)
		return Failed(fmt.Sprintf("%s pull failed: %v", h.dataType, err))
	}

	repo := h.repo()
	res := Ok(0)
	for _, rec := range recs {
		if ctx.Err() != nil {
			res.fail(cancelledMessage)
			break
		}

		local, err := repo.GetByID(ctx, rec.ID)
		hasLocal := err == nil
		switch {
		case hasLocal:
			m := local.Meta()
			if !m.Synced {
				continue
			}
			if rec.Deleted {
				if err := repo.Purge(ctx, rec.ID); err != nil {
					res.fail(h.itemError(rec.ID, err))
					continue
				}
				res.SyncedCount++
				continue
			}
			if m.ServerVersion >= rec.Version {
				continue
			}
		case errors.Is(err, common.ErrNotFound):
			if rec.Deleted {
				continue
			}
		default:
			res.fail(h.itemError(rec.ID, err))
			continue
		}

		item, err := h.fromRecord(rec, local, hasLocal)
		if err != nil {
			res.fail(h.itemError(rec.ID, err))
			continue
		}
		if err := repo.Upsert(ctx, item); err != nil {
			res.fail(h.itemError(rec.ID, err))
			continue
		}
		res.SyncedCount++
	}

	h.logger.Debug(ctx, "pull finished", "written", res.SyncedCount, "errors", len(res.Errors))
	return res
}

// PushToRemote sends every unsynced local record. Items that failed before
// are tried again; only parked ones are skipped, and reported.
func (h *EntityHandler[T]) PushToRemote(ctx context.Context) Result {
	items, err := h.repo().GetUnsynced(ctx)
	if err != nil {
		return Failed(fmt.Sprintf("%s push failed: %v", h.dataType, err))
	}
	return h.pushItems(ctx, items)
}

func (h *EntityHandler[T]) pushItems(ctx context.Context, items []T) Result {
	res := Ok(0)
	for _, item := range items {
		if ctx.Err() != nil {
			res.fail(cancelledMessage)
			break
		}

		id := item.Meta().ID
		state, change, err := h.queue.EntityState(ctx, h.dataType, id)
		if err != nil {
			res.fail(h.itemError(id, err))
			continue
		}
		if state == queue.Parked {
			res.fail(queue.ParkedMessage(*change))
			continue
		}

		if err := h.pushOne(ctx, item); err != nil {
			res.fail(h.itemError(id, err))
			continue
		}
		res.SyncedCount++
	}

	h.logger.Debug(ctx, "push finished", "pushed", res.SyncedCount, "errors", len(res.Errors))
	return res
}

// SyncEntity pushes or deletes one record, parked or not.
func (h *EntityHandler[T]) SyncEntity(ctx context.Context, id string) Result {
	item, err := h.repo().GetByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return Failed(fmt.Sprintf("%s %s not found", h.dataType, id))
	}
	if err != nil {
		return Failed(h.itemError(id, err))
	}
	if item.Meta().Synced {
		return Ok(0)
	}
	if err := h.pushOne(ctx, item); err != nil {
		return Failed(h.itemError(id, err))
	}
	return Ok(1)
}

// pushOne delivers one item and records a failed attempt on the queue.
func (h *EntityHandler[T]) pushOne(ctx context.Context, item T) error {
	m := item.Meta()
	fallback := models.ChangeUpdate
	switch {
	case m.Deleted:
		fallback = models.ChangeDelete
	case !m.Pushed():
		fallback = models.ChangeCreate
	}
	id := m.ID

	err := h.deliver(ctx, item)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil {
		if qerr := h.queue.RecordFailure(ctx, h.dataType, item.Meta().ID, fallback, err); qerr != nil {
			h.logger.Error(ctx, "failed to record sync failure", "id", id, "error", qerr)
		}
	}
	h.logger.Warn(ctx, "push failed", "id", id, "error", err)
	return err
}

func (h *EntityHandler[T]) deliver(ctx context.Context, item T) error {
	repo := h.repo()
	m := item.Meta()
	seen := m.UpdatedAt

	if m.Deleted {
		if m.Pushed() {
			if err := h.remote.Delete(ctx, h.dataType, m.ID); err != nil && !errors.Is(err, client.ErrNotFound) {
				return err
			}
		}
		if err := repo.Purge(ctx, m.ID); err != nil {
			return err
		}
		return h.queue.Resolve(ctx, h.dataType, m.ID)
	}

	if h.hooks.BeforePush != nil {
		if err := h.hooks.BeforePush(ctx, item); err != nil {
			return err
		}
	}
	if !m.Pushed() && h.hooks.ResolveCreate != nil {
		resolved, err := h.hooks.ResolveCreate(ctx, item)
		if err != nil {
			return err
		}
		item = resolved
		m = item.Meta()
	}

	body, err := toRecord(item)
	if err != nil {
		return err
	}

	var rec client.Record
	if !m.Pushed() {
		rec, err = h.remote.Create(ctx, h.dataType, body)
		if errors.Is(err, client.ErrConflict) {
			rec, err = h.remote.Update(ctx, h.dataType, body)
		}
	} else {
		rec, err = h.remote.Update(ctx, h.dataType, body)
		if errors.Is(err, client.ErrNotFound) {
			rec, err = h.remote.Create(ctx, h.dataType, body)
		}
	}
	if err != nil {
		return err
	}

	if err := repo.MarkSynced(ctx, m.ID, rec.Version, seen); err != nil {
		return err
	}
	return h.queue.Resolve(ctx, h.dataType, m.ID)
}
