package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/client"
	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/queue"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/common"
)

// TemplateHandler replays the journal of template changes in order, so
// schedule and information edits reach the remote as partial updates.
type TemplateHandler struct {
	*EntityHandler[*models.MaintenanceTemplate]
}

func NewTemplateHandler(deps Deps) *TemplateHandler {
	return &TemplateHandler{
		EntityHandler: NewEntityHandler(models.DataTypeTemplate, repomanager.Templates,
			func() *models.MaintenanceTemplate { return &models.MaintenanceTemplate{} }, deps,
			Hooks[*models.MaintenanceTemplate]{}),
	}
}

type replayed struct {
	version int64
	seen    time.Time
	purged  bool
}

func (h *TemplateHandler) PushToRemote(ctx context.Context) Result {
	changes, err := h.queue.Outstanding(ctx, models.DataTypeTemplate)
	if err != nil {
		return Failed(fmt.Sprintf("%s push failed: %v", h.dataType, err))
	}

	res := Ok(0)
	done := map[string]*replayed{}
	failed := map[string]bool{}
	handled := map[string]bool{}

	for _, c := range changes {
		if ctx.Err() != nil {
			res.fail(cancelledMessage)
			break
		}
		handled[c.EntityID] = true
		if failed[c.EntityID] {
			continue
		}

		if h.queue.StateOf(c) == queue.Parked {
			failed[c.EntityID] = true
			res.fail(queue.ParkedMessage(c))
			continue
		}

		state := done[c.EntityID]
		if state == nil {
			state = &replayed{}
		}
		if err := h.replay(ctx, c, state); err != nil {
			failed[c.EntityID] = true
			res.fail(h.itemError(c.EntityID, fmt.Errorf("%s: %w", c.ChangeType, err)))
			if ctx.Err() == nil {
				if qerr := h.queue.RecordChangeFailure(ctx, c, err); qerr != nil {
					h.logger.Error(ctx, "failed to record sync failure", "id", c.EntityID, "error", qerr)
				}
			}
			continue
		}
		done[c.EntityID] = state
		if err := h.queue.MarkSynced(ctx, c.ID); err != nil {
			res.fail(h.itemError(c.EntityID, err))
			continue
		}
		res.SyncedCount++
	}

	repo := h.repo()
	for id, state := range done {
		if failed[id] || state.purged {
			continue
		}
		if err := repo.MarkSynced(ctx, id, state.version, state.seen); err != nil && !errors.Is(err, common.ErrNotFound) {
			res.fail(h.itemError(id, err))
		}
	}

	// unsynced templates without a journal entry take the generic path
	if ctx.Err() == nil {
		unsynced, err := repo.GetUnsynced(ctx)
		if err != nil {
			res.fail(fmt.Sprintf("%s push failed: %v", h.dataType, err))
		} else {
			var rest []*models.MaintenanceTemplate
			for _, t := range unsynced {
				if !handled[t.ID] {
					rest = append(rest, t)
				}
			}
			if len(rest) > 0 {
				res = res.Merge(h.pushItems(ctx, rest))
			}
		}
	}

	if _, err := h.queue.PurgeSynced(ctx, models.DataTypeTemplate); err != nil {
		h.logger.Warn(ctx, "failed to purge template changes", "error", err)
	}
	return res
}

func (h *TemplateHandler) replay(ctx context.Context, c models.PendingChange, state *replayed) error {
	repo := h.repo()

	if c.ChangeType == models.ChangeDelete {
		item, err := repo.GetByID(ctx, c.EntityID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if err == nil && item.Pushed() {
			if err := h.remote.Delete(ctx, h.dataType, c.EntityID); err != nil && !errors.Is(err, client.ErrNotFound) {
				return err
			}
		}
		if err := repo.Purge(ctx, c.EntityID); err != nil {
			return err
		}
		state.purged = true
		return nil
	}

	item, err := repo.GetByID(ctx, c.EntityID)
	if err != nil {
		return err
	}
	if state.seen.IsZero() {
		state.seen = item.UpdatedAt
	}
	if state.version > 0 {
		item.ServerVersion = state.version
	}

	var rec client.Record
	switch c.ChangeType {
	case models.ChangeCreate, models.ChangeUpdate:
		body, err := toRecord(item)
		if err != nil {
			return err
		}
		if item.Pushed() {
			rec, err = h.remote.Update(ctx, h.dataType, body)
			if errors.Is(err, client.ErrNotFound) {
				rec, err = h.remote.Create(ctx, h.dataType, body)
			}
		} else {
			rec, err = h.remote.Create(ctx, h.dataType, body)
			if errors.Is(err, client.ErrConflict) {
				rec, err = h.remote.Update(ctx, h.dataType, body)
			}
		}
		if err != nil {
			return err
		}
	case models.ChangeSchedule, models.ChangeInformation:
		var fields map[string]any
		if err := json.Unmarshal(c.Payload, &fields); err != nil {
			return fmt.Errorf("decode %s payload: %w", c.ChangeType, err)
		}
		rec, err = h.remote.Patch(ctx, h.dataType, c.EntityID, fields)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported change %q", c.ChangeType)
	}

	state.version = rec.Version
	return nil
}
