package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/boatlog/internal/client/exchange"
	"github.com/dmitrijs2005/boatlog/internal/client/importer"
	"github.com/dmitrijs2005/boatlog/internal/client/models"
	"github.com/dmitrijs2005/boatlog/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/boatlog/internal/common"
)

var (
	ErrNotReceived = errors.New("trip was not received from another device")
	ErrNotAuthored = errors.New("trip was received from another device")
)

// ShareService renders local entities as chunk sequences for another device
// to scan.
type ShareService struct {
	db           *sql.DB
	identity     importer.Identity
	fragmentSize int
}

func NewShareService(db *sql.DB, identity importer.Identity, fragmentSize int) *ShareService {
	if fragmentSize <= 0 {
		fragmentSize = exchange.DefaultFragmentSize
	}
	return &ShareService{db: db, identity: identity, fragmentSize: fragmentSize}
}

// origin is the identity a share carries: an imported entity keeps the
// identity it arrived with, a local one is stamped with this device.
type origin struct {
	source    string
	id        string
	timestamp int64
}

func (s *ShareService) originOf(ctx context.Context, m *models.SyncMeta) (origin, error) {
	if m.Imported() {
		return origin{source: m.OriginSource, id: m.OriginID, timestamp: m.OriginTimestamp}, nil
	}
	own, err := s.identity.Origin(ctx)
	if err != nil {
		return origin{}, err
	}
	return origin{source: own, id: m.ID, timestamp: m.UpdatedAt.UnixMilli()}, nil
}

func optional[V comparable](v V) *V {
	var zero V
	if v == zero {
		return nil
	}
	return &v
}

func boatData(b *models.Boat, id string) exchange.BoatData {
	return exchange.BoatData{
		ID:             id,
		Name:           b.Name,
		OfficialNumber: optional(b.OfficialNumber),
		HomePort:       optional(b.HomePort),
		Kind:           optional(b.Kind),
		LengthMeters:   optional(b.LengthMeters),
	}
}

func tripData(t *models.Trip, id string) exchange.TripData {
	return exchange.TripData{
		ID:          id,
		Title:       t.Title,
		Departure:   optional(t.Departure),
		Destination: optional(t.Destination),
		Skipper:     optional(t.Skipper),
		StartedAt:   t.StartedAt,
		EndedAt:     t.EndedAt,
	}
}

func (s *ShareService) encode(t exchange.EnvelopeType, v any) ([]string, error) {
	payload, err := exchange.EncodePayload(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return exchange.EncodeChunks(t, payload, s.fragmentSize)
}

func live[T models.Record](item T, err error) (T, error) {
	if err == nil && item.Meta().Deleted {
		var zero T
		return zero, fmt.Errorf("%s: %w", item.Meta().ID, common.ErrNotFound)
	}
	return item, err
}

func (s *ShareService) ShareBoat(ctx context.Context, boatID string) ([]string, error) {
	b, err := repomanager.Boats(s.db).GetByID(ctx, boatID)
	if b, err = live(b, err); err != nil {
		return nil, err
	}
	o, err := s.originOf(ctx, &b.SyncMeta)
	if err != nil {
		return nil, err
	}
	return s.encode(exchange.TypeBoat, exchange.BoatShare{
		Origin:    o.source,
		Timestamp: o.timestamp,
		Data:      boatData(b, o.id),
	})
}

// tripShare builds the trip part of a share. The trip's boat is embedded
// when both come from the same origin; otherwise the receiver could not map
// the boat id and it is left out.
func (s *ShareService) tripShare(ctx context.Context, tripID string) (*models.Trip, exchange.TripShare, error) {
	t, err := repomanager.Trips(s.db).GetByID(ctx, tripID)
	if t, err = live(t, err); err != nil {
		return nil, exchange.TripShare{}, err
	}
	o, err := s.originOf(ctx, &t.SyncMeta)
	if err != nil {
		return nil, exchange.TripShare{}, err
	}
	data := tripData(t, o.id)

	if t.BoatID != "" {
		b, err := repomanager.Boats(s.db).GetByID(ctx, t.BoatID)
		b, err = live(b, err)
		switch {
		case err == nil:
			bo, err := s.originOf(ctx, &b.SyncMeta)
			if err != nil {
				return nil, exchange.TripShare{}, err
			}
			if bo.source == o.source {
				bd := boatData(b, bo.id)
				data.Boat = &bd
				data.BoatID = &bd.ID
			}
		case !errors.Is(err, common.ErrNotFound):
			return nil, exchange.TripShare{}, err
		}
	}
	return t, exchange.TripShare{Origin: o.source, Timestamp: o.timestamp, Data: data}, nil
}

func (s *ShareService) ShareTrip(ctx context.Context, tripID string) ([]string, error) {
	_, share, err := s.tripShare(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return s.encode(exchange.TypeTrip, share)
}

func crewData(m models.CrewMember) exchange.CrewData {
	return exchange.CrewData{
		Name:         m.Name,
		Role:         optional(m.Role),
		DeviceOrigin: optional(m.DeviceOrigin),
	}
}

// InviteCrew shares a locally authored trip together with its crew. This
// device is listed first when it is not on the crew yet.
func (s *ShareService) InviteCrew(ctx context.Context, tripID string) ([]string, error) {
	t, share, err := s.tripShare(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.Imported() {
		return nil, ErrNotAuthored
	}
	own := share.Origin
	members, err := repomanager.Crew(s.db).ListByTrip(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	crew := make([]exchange.CrewData, 0, len(members)+1)
	onCrew := false
	for _, m := range members {
		onCrew = onCrew || m.DeviceOrigin == own
		crew = append(crew, crewData(m))
	}
	if !onCrew {
		name, err := s.identity.CrewName(ctx)
		if err != nil {
			return nil, err
		}
		crew = append([]exchange.CrewData{{Name: name, DeviceOrigin: &own}}, crew...)
	}

	return s.encode(exchange.TypeCrewJoin, exchange.CrewJoin{
		Type:      exchange.CrewJoinKind,
		Origin:    own,
		Timestamp: share.Timestamp,
		Data:      exchange.CrewJoinData{Trip: share.Data, Crew: crew},
	})
}

// RespondToCrew answers an invitation for a trip received from another
// device, so the inviting device can add this one to its crew.
func (s *ShareService) RespondToCrew(ctx context.Context, tripID, role string) ([]string, error) {
	t, err := repomanager.Trips(s.db).GetByID(ctx, tripID)
	if t, err = live(t, err); err != nil {
		return nil, err
	}
	if !t.Imported() {
		return nil, ErrNotReceived
	}
	own, err := s.identity.Origin(ctx)
	if err != nil {
		return nil, err
	}
	name, err := s.identity.CrewName(ctx)
	if err != nil {
		return nil, err
	}
	return s.encode(exchange.TypeCrewResponse, exchange.CrewResponse{
		Type:      exchange.CrewResponseKind,
		Origin:    own,
		Timestamp: t.UpdatedAt.UnixMilli(),
		Data: exchange.CrewResponseData{
			TripID: t.OriginID,
			Member: exchange.CrewData{Name: name, Role: optional(role)},
		},
	})
}
