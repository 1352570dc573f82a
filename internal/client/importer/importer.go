package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/client/exchange"
	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/dbx"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/dmitrijs2005/boatlog/internal/timex"
	"github.com/google/uuid"
)

// Identity describes the importing device.
type Identity interface {
	// Origin is this device's origin source, "device:<uuid>".
	Origin(ctx context.Context) (string, error)
	// CrewName is the name this device joins crews under.
	CrewName(ctx context.Context) (string, error)
}

type Importer struct {
	db       *sql.DB
	identity Identity
	logger   logging.Logger
	now      func() time.Time
}

func New(db *sql.DB, identity Identity, logger logging.Logger) *Importer {
	return &Importer{
		db:       db,
		identity: identity,
		logger:   logger.With("module", "importer"),
		now:      timex.Now,
	}
}

// Import decodes a completed envelope and merges it. A payload that does not
// decode as its declared type, or an unknown type, is skipped as not
// recognized so a foreign QR code never surfaces as a failure.
func (im *Importer) Import(ctx context.Context, c exchange.Complete) Result {
	switch c.Type {
	case exchange.TypeBoat:
		s, err := exchange.DecodeBoat(c.Payload)
		if err != nil {
			return im.unrecognized(ctx, c, err)
		}
		return im.ImportBoat(ctx, s)
	case exchange.TypeTrip:
		s, err := exchange.DecodeTrip(c.Payload)
		if err != nil {
			return im.unrecognized(ctx, c, err)
		}
		return im.ImportTrip(ctx, s)
	case exchange.TypeCrewJoin:
		s, err := exchange.DecodeCrewJoin(c.Payload)
		if err != nil {
			return im.unrecognized(ctx, c, err)
		}
		return im.ImportCrewJoin(ctx, s)
	case exchange.TypeCrewResponse:
		s, err := exchange.DecodeCrewResponse(c.Payload)
		if err != nil {
			return im.unrecognized(ctx, c, err)
		}
		return im.ImportCrewResponse(ctx, s)
	}
	return im.unrecognized(ctx, c, fmt.Errorf("%w: %q", exchange.ErrUnknownType, c.Type))
}

func (im *Importer) unrecognized(ctx context.Context, c exchange.Complete, err error) Result {
	im.logger.Warn(ctx, "payload not recognized", "envelope", c.ID, "type", c.Type, "error", err)
	return Skipped{Reason: reasonNotRecognized + ": " + err.Error()}
}

// run executes fn in one transaction and folds errors into Failed.
func (im *Importer) run(ctx context.Context, what string, fn func(ctx context.Context, tx dbx.DBTX) (Result, error)) Result {
	var res Result
	err := dbx.WithTx(ctx, im.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		res, err = fn(ctx, tx)
		return err
	})
	if err != nil {
		im.logger.Error(ctx, "import failed", "what", what, "error", err)
		return Failed{Message: fmt.Sprintf("import %s: %v", what, err)}
	}
	im.logger.Info(ctx, "imported", "what", what, "result", Describe(res))
	return res
}

func (im *Importer) ImportBoat(ctx context.Context, s exchange.BoatShare) Result {
	own, err := im.identity.Origin(ctx)
	if err != nil {
		return Failed{Message: err.Error()}
	}
	return im.run(ctx, "boat "+s.Data.ID, func(ctx context.Context, tx dbx.DBTX) (Result, error) {
		res, _, err := im.importBoat(ctx, tx, own, s)
		return res, err
	})
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// findBoat looks a boat up by origin identity, then by name or official
// number.
func findBoat(ctx context.Context, tx dbx.DBTX, s exchange.BoatShare) (*models.Boat, error) {
	boats := repomanager.Boats(tx)

	b, err := boats.GetByOrigin(ctx, s.Origin, s.Data.ID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	all, err := boats.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	name := normalizeName(s.Data.Name)
	number := ""
	if s.Data.OfficialNumber != nil {
		number = normalizeName(*s.Data.OfficialNumber)
	}
	for _, b := range all {
		if normalizeName(b.Name) == name {
			return b, nil
		}
		if number != "" && normalizeName(b.OfficialNumber) == number {
			return b, nil
		}
	}
	return nil, nil
}

func applyBoat(b *models.Boat, d exchange.BoatData) {
	b.Name = d.Name
	if d.OfficialNumber != nil {
		b.OfficialNumber = *d.OfficialNumber
	}
	if d.HomePort != nil {
		b.HomePort = *d.HomePort
	}
	if d.Kind != nil {
		b.Kind = *d.Kind
	}
	if d.LengthMeters != nil {
		b.LengthMeters = *d.LengthMeters
	}
}

// importBoat returns the result and the id of the local boat the share maps
// to, "" when there is none.
func (im *Importer) importBoat(ctx context.Context, tx dbx.DBTX, own string, s exchange.BoatShare) (Result, string, error) {
	boats := repomanager.Boats(tx)

	if s.Origin == own {
		b, err := boats.GetByID(ctx, s.Data.ID)
		if err == nil {
			return Skipped{Reason: reasonOwnShare}, b.ID, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return nil, "", err
		}
	}

	existing, err := findBoat(ctx, tx, s)
	if err != nil {
		return nil, "", err
	}

	if existing == nil {
		b := &models.Boat{}
		b.ID = uuid.NewString()
		b.OriginSource = s.Origin
		b.OriginID = s.Data.ID
		b.OriginTimestamp = s.Timestamp
		applyBoat(b, s.Data)
		b.Touch(im.now())
		if err := boats.Insert(ctx, b); err != nil {
			return nil, "", err
		}
		return Created{ID: b.ID}, b.ID, nil
	}

	switch {
	case !existing.Imported():
		return Skipped{Reason: reasonLocalBoat}, existing.ID, nil
	case existing.Deleted:
		return Skipped{Reason: reasonDeleted}, "", nil
	case s.Timestamp <= existing.OriginTimestamp:
		return Skipped{Reason: reasonOlder}, existing.ID, nil
	}

	applyBoat(existing, s.Data)
	existing.OriginTimestamp = s.Timestamp
	existing.Touch(im.now())
	if err := boats.Update(ctx, existing); err != nil {
		return nil, "", err
	}
	return Updated{ID: existing.ID}, existing.ID, nil
}

func (im *Importer) ImportTrip(ctx context.Context, s exchange.TripShare) Result {
	own, err := im.identity.Origin(ctx)
	if err != nil {
		return Failed{Message: err.Error()}
	}
	return im.run(ctx, "trip "+s.Data.ID, func(ctx context.Context, tx dbx.DBTX) (Result, error) {
		res, _, err := im.importTrip(ctx, tx, own, s)
		return res, err
	})
}

func applyTrip(t *models.Trip, d exchange.TripData) {
	t.Title = d.Title
	if d.Departure != nil {
		t.Departure = *d.Departure
	}
	if d.Destination != nil {
		t.Destination = *d.Destination
	}
	if d.Skipper != nil {
		t.Skipper = *d.Skipper
	}
	if d.StartedAt != nil {
		started := d.StartedAt.UTC()
		t.StartedAt = &started
	}
	if d.EndedAt != nil {
		ended := d.EndedAt.UTC()
		t.EndedAt = &ended
	}
}

// tripBoat resolves the local boat a shared trip belongs to, importing the
// embedded boat first when present.
func (im *Importer) tripBoat(ctx context.Context, tx dbx.DBTX, own string, s exchange.TripShare) (string, error) {
	if s.Data.Boat != nil {
		_, id, err := im.importBoat(ctx, tx, own, exchange.BoatShare{
			Origin:    s.Origin,
			Timestamp: s.Timestamp,
			Data:      *s.Data.Boat,
		})
		return id, err
	}
	if s.Data.BoatID == nil {
		return "", nil
	}

	boats := repomanager.Boats(tx)
	b, err := boats.GetByOrigin(ctx, s.Origin, *s.Data.BoatID)
	if errors.Is(err, common.ErrNotFound) && s.Origin == own {
		b, err = boats.GetByID(ctx, *s.Data.BoatID)
	}
	if errors.Is(err, common.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return b.ID, nil
}

// importTrip returns the result and the local trip id, "" when none.
func (im *Importer) importTrip(ctx context.Context, tx dbx.DBTX, own string, s exchange.TripShare) (Result, string, error) {
	trips := repomanager.Trips(tx)

	if s.Origin == own {
		t, err := trips.GetByID(ctx, s.Data.ID)
		if err == nil {
			return Skipped{Reason: reasonOwnShare}, t.ID, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return nil, "", err
		}
	}

	boatID, err := im.tripBoat(ctx, tx, own, s)
	if err != nil {
		return nil, "", fmt.Errorf("trip boat: %w", err)
	}

	existing, err := trips.GetByOrigin(ctx, s.Origin, s.Data.ID)
	if errors.Is(err, common.ErrNotFound) {
		t := &models.Trip{BoatID: boatID}
		t.ID = uuid.NewString()
		t.OriginSource = s.Origin
		t.OriginID = s.Data.ID
		t.OriginTimestamp = s.Timestamp
		t.ReadOnly = true
		applyTrip(t, s.Data)
		t.Touch(im.now())
		if err := trips.Insert(ctx, t); err != nil {
			return nil, "", err
		}
		return Created{ID: t.ID}, t.ID, nil
	}
	if err != nil {
		return nil, "", err
	}

	if existing.Deleted {
		return Skipped{Reason: reasonDeleted}, "", nil
	}
	if s.Timestamp <= existing.OriginTimestamp {
		return Skipped{Reason: reasonOlder}, existing.ID, nil
	}

	applyTrip(existing, s.Data)
	if boatID != "" {
		existing.BoatID = boatID
	}
	existing.OriginTimestamp = s.Timestamp
	existing.Touch(im.now())
	if err := trips.Update(ctx, existing); err != nil {
		return nil, "", err
	}
	return Updated{ID: existing.ID}, existing.ID, nil
}

func crewMember(d exchange.CrewData) models.CrewMember {
	m := models.CrewMember{Name: d.Name}
	if d.Role != nil {
		m.Role = *d.Role
	}
	if d.DeviceOrigin != nil {
		m.DeviceOrigin = *d.DeviceOrigin
	}
	return m
}

// ImportCrewJoin imports the invitation's trip and, when the trip changed,
// replaces its crew with the invitation's crew plus this device.
func (im *Importer) ImportCrewJoin(ctx context.Context, s exchange.CrewJoin) Result {
	own, err := im.identity.Origin(ctx)
	if err != nil {
		return Failed{Message: err.Error()}
	}
	if s.Origin == own {
		return Skipped{Reason: reasonSelfJoin}
	}
	name, err := im.identity.CrewName(ctx)
	if err != nil {
		return Failed{Message: err.Error()}
	}

	share := exchange.TripShare{Origin: s.Origin, Timestamp: s.Timestamp, Data: s.Data.Trip}
	return im.run(ctx, "crew join "+s.Data.Trip.ID, func(ctx context.Context, tx dbx.DBTX) (Result, error) {
		res, tripID, err := im.importTrip(ctx, tx, own, share)
		if err != nil {
			return nil, err
		}
		switch res.(type) {
		case Created, Updated:
		default:
			return res, nil
		}

		members := make([]models.CrewMember, 0, len(s.Data.Crew)+1)
		for _, c := range s.Data.Crew {
			if c.DeviceOrigin != nil && *c.DeviceOrigin == own {
				continue
			}
			members = append(members, crewMember(c))
		}
		members = append(members, models.CrewMember{Name: name, DeviceOrigin: own})

		if err := repomanager.Crew(tx).ReplaceForTrip(ctx, tripID, members); err != nil {
			return nil, err
		}
		return res, nil
	})
}

// ImportCrewResponse adds the responding device to a locally authored trip.
func (im *Importer) ImportCrewResponse(ctx context.Context, s exchange.CrewResponse) Result {
	own, err := im.identity.Origin(ctx)
	if err != nil {
		return Failed{Message: err.Error()}
	}
	if s.Origin == own {
		return Skipped{Reason: reasonSelfJoin}
	}

	return im.run(ctx, "crew response "+s.Data.TripID, func(ctx context.Context, tx dbx.DBTX) (Result, error) {
		t, err := repomanager.Trips(tx).GetByID(ctx, s.Data.TripID)
		if errors.Is(err, common.ErrNotFound) || (err == nil && t.Deleted) {
			return Skipped{Reason: reasonUnknownTrip}, nil
		}
		if err != nil {
			return nil, err
		}

		crew := repomanager.Crew(tx)
		_, err = crew.FindByDevice(ctx, t.ID, s.Origin)
		if err == nil {
			return Skipped{Reason: reasonAlreadyOnCrew}, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}

		m := crewMember(s.Data.Member)
		m.TripID = t.ID
		m.DeviceOrigin = s.Origin
		if _, err := crew.Append(ctx, m); err != nil {
			return nil, err
		}
		return Updated{ID: t.ID}, nil
	})
}
