package services

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/queue"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/dbx"
	"github.com/dmitrijs2005/boatlog/internal/filex"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/google/uuid"
)

type BoatService struct {
	*Records[*models.Boat]
}

// Activate makes id the only active boat. Every boat whose flag flips is
// journaled as an update.
func (s *BoatService) Activate(ctx context.Context, id string) error {
	var changed []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		boats, err := repo.GetAll(ctx)
		if err != nil {
			return err
		}
		found := false
		for _, b := range boats {
			want := b.ID == id
			found = found || want
			if b.Active == want {
				continue
			}
			if b.ReadOnly {
				return fmt.Errorf("boat %s: %w", b.ID, common.ErrReadOnly)
			}
			b.Active = want
			b.Touch(s.now())
			if err := repo.Update(ctx, b); err != nil {
				return err
			}
			if _, err := s.queue(tx).Enqueue(ctx, s.dt, b.ID, models.ChangeUpdate, nil); err != nil {
				return err
			}
			changed = append(changed, b.ID)
		}
		if !found {
			return fmt.Errorf("boat %s: %w", id, common.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, bid := range changed {
		s.request(bid)
	}
	return nil
}

type TripService struct {
	*Records[*models.Trip]
}

func (s *TripService) Crew(ctx context.Context, tripID string) ([]models.CrewMember, error) {
	return repomanager.Crew(s.db).ListByTrip(ctx, tripID)
}

// AddCrew appends a member without a device to a live trip.
func (s *TripService) AddCrew(ctx context.Context, tripID, name, role string) (models.CrewMember, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.CrewMember{}, fmt.Errorf("%w: crew member name is empty", common.ErrValidation)
	}
	if _, err := s.Get(ctx, tripID); err != nil {
		return models.CrewMember{}, err
	}
	return repomanager.Crew(s.db).Append(ctx, models.CrewMember{TripID: tripID, Name: name, Role: role})
}

// TemplateService journals schedule and information edits as partial
// changes so each part syncs on its own.
type TemplateService struct {
	*Records[*models.MaintenanceTemplate]
}

func (s *TemplateService) UpdateSchedule(ctx context.Context, id string, days, engineHours int) (*models.MaintenanceTemplate, error) {
	if days < 0 || engineHours < 0 {
		return nil, fmt.Errorf("%w: intervals must not be negative", common.ErrValidation)
	}
	return s.change(ctx, id, models.ChangeSchedule, func(m *models.MaintenanceTemplate) (any, error) {
		m.IntervalDays = days
		m.IntervalEngineHours = engineHours
		return m.SchedulePatch(), nil
	})
}

func (s *TemplateService) UpdateInformation(ctx context.Context, id, description, information string) (*models.MaintenanceTemplate, error) {
	return s.change(ctx, id, models.ChangeInformation, func(m *models.MaintenanceTemplate) (any, error) {
		m.Description = description
		m.Information = information
		return m.InformationPatch(), nil
	})
}

type PhotoService struct {
	*Records[*models.Photo]
	dir string
}

// Add copies file into the photo directory and records it. The image is
// uploaded by the next photo push.
func (s *PhotoService) Add(ctx context.Context, tripID, caption, file string) (*models.Photo, error) {
	id := uuid.NewString()
	path, err := filex.CopyInto(file, s.dir, id+strings.ToLower(filepath.Ext(file)))
	if err != nil {
		return nil, err
	}
	p := &models.Photo{TripID: tripID, Caption: caption, Local: models.PhotoLocal{Path: path}}
	p.ID = id
	return s.Create(ctx, p)
}

// Logbook groups the record services of every entity kind.
type Logbook struct {
	Boats     *BoatService
	Trips     *TripService
	Notes     *Records[*models.Note]
	Todos     *Records[*models.TodoList]
	Templates *TemplateService
	Events    *Records[*models.MaintenanceEvent]
	Locations *Records[*models.MarkedLocation]
	Photos    *PhotoService
}

func NewLogbook(db *sql.DB, policy queue.Policy, photoDir string, logger logging.Logger) *Logbook {
	return &Logbook{
		Boats:     &BoatService{NewRecords(db, models.DataTypeBoat, repomanager.Boats, policy, logger)},
		Trips:     &TripService{NewRecords(db, models.DataTypeTrip, repomanager.Trips, policy, logger)},
		Notes:     NewRecords(db, models.DataTypeNote, repomanager.Notes, policy, logger),
		Todos:     NewRecords(db, models.DataTypeTodo, repomanager.Todos, policy, logger),
		Templates: &TemplateService{NewRecords(db, models.DataTypeTemplate, repomanager.Templates, policy, logger)},
		Events:    NewRecords(db, models.DataTypeMaintenanceEvent, repomanager.Events, policy, logger),
		Locations: NewRecords(db, models.DataTypeLocation, repomanager.Locations, policy, logger),
		Photos:    &PhotoService{Records: NewRecords(db, models.DataTypePhoto, repomanager.Photos, policy, logger), dir: photoDir},
	}
}

// SetRequester routes change notifications of every kind to r.
func (l *Logbook) SetRequester(r Requester) {
	l.Boats.SetRequester(r)
	l.Trips.SetRequester(r)
	l.Notes.SetRequester(r)
	l.Todos.SetRequester(r)
	l.Templates.SetRequester(r)
	l.Events.SetRequester(r)
	l.Locations.SetRequester(r)
	l.Photos.SetRequester(r)
}
