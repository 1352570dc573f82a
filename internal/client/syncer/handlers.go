package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
)

// NewHandlers builds one handler per DataType in models.DataTypes order.
func NewHandlers(deps Deps) []Handler {
	return []Handler{
		NewBoatHandler(deps),
		NewEntityHandler(models.DataTypeTrip, repomanager.Trips,
			func() *models.Trip { return &models.Trip{} }, deps, Hooks[*models.Trip]{}),
		NewEntityHandler(models.DataTypeNote, repomanager.Notes,
			func() *models.Note { return &models.Note{} }, deps, Hooks[*models.Note]{}),
		NewEntityHandler(models.DataTypeTodo, repomanager.Todos,
			func() *models.TodoList { return &models.TodoList{} }, deps, Hooks[*models.TodoList]{}),
		NewTemplateHandler(deps),
		NewEntityHandler(models.DataTypeMaintenanceEvent, repomanager.Events,
			func() *models.MaintenanceEvent { return &models.MaintenanceEvent{} }, deps, Hooks[*models.MaintenanceEvent]{}),
		NewEntityHandler(models.DataTypeLocation, repomanager.Locations,
			func() *models.MarkedLocation { return &models.MarkedLocation{} }, deps, Hooks[*models.MarkedLocation]{}),
		NewPhotoHandler(deps),
	}
}

// NewBoatHandler merges a new local boat into a same-named remote boat
// instead of creating a duplicate.
func NewBoatHandler(deps Deps) *EntityHandler[*models.Boat] {
	var h *EntityHandler[*models.Boat]
	h = NewEntityHandler(models.DataTypeBoat, repomanager.Boats,
		func() *models.Boat { return &models.Boat{} }, deps,
		Hooks[*models.Boat]{
			ResolveCreate: func(ctx context.Context, b *models.Boat) (*models.Boat, error) {
				return resolveBoat(ctx, h, b)
			},
		})
	return h
}

func resolveBoat(ctx context.Context, h *EntityHandler[*models.Boat], b *models.Boat) (*models.Boat, error) {
	recs, err := h.remote.List(ctx, models.DataTypeBoat)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(b.Name)
	for _, rec := range recs {
		if rec.Deleted || rec.ID == b.ID {
			continue
		}
		var remote models.Boat
		if err := json.Unmarshal(rec.Data, &remote); err != nil {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(remote.Name), name) {
			continue
		}

		if err := repomanager.ReidentifyBoat(ctx, h.db, b.ID, rec.ID, rec.Version); err != nil {
			return nil, fmt.Errorf("merge with remote boat %s: %w", rec.ID, err)
		}
		h.logger.Info(ctx, "merged local boat into remote boat", "local", b.ID, "remote", rec.ID)
		b.ID = rec.ID
		b.ServerVersion = rec.Version
		return b, nil
	}
	return b, nil
}

// PhotoHandler uploads image files before their metadata and holds every
// push back while the network is metered.
type PhotoHandler struct {
	*EntityHandler[*models.Photo]
	network Network
}

func NewPhotoHandler(deps Deps) *PhotoHandler {
	p := &PhotoHandler{network: deps.Network}
	p.EntityHandler = NewEntityHandler(models.DataTypePhoto, repomanager.Photos,
		func() *models.Photo { return &models.Photo{} }, deps,
		Hooks[*models.Photo]{BeforePush: p.upload})
	return p
}

func (p *PhotoHandler) metered() bool {
	return p.network != nil && p.network.Metered()
}

func (p *PhotoHandler) PushToRemote(ctx context.Context) Result {
	if p.metered() {
		p.logger.Info(ctx, "metered network, photo push deferred")
		return Ok(0)
	}
	return p.EntityHandler.PushToRemote(ctx)
}

func (p *PhotoHandler) SyncEntity(ctx context.Context, id string) Result {
	if p.metered() {
		return Ok(0)
	}
	return p.EntityHandler.SyncEntity(ctx, id)
}

func (p *PhotoHandler) upload(ctx context.Context, photo *models.Photo) error {
	if photo.Local.Uploaded || photo.Local.Path == "" {
		return nil
	}

	f, err := os.Open(photo.Local.Path)
	if err != nil {
		return fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat photo: %w", err)
	}

	target, err := p.remote.PhotoUploadURL(ctx, photo.ID)
	if err != nil {
		return err
	}
	if err := p.remote.Upload(ctx, target.URL, f, info.Size()); err != nil {
		return err
	}

	photo.RemoteKey = target.Key
	photo.Local.Uploaded = true
	return p.repo().Update(ctx, photo)
}
