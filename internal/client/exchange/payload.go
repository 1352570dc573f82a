package exchange

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/validation"
)

var (
	ErrInvalidPayload   = errors.New("invalid share payload")
	ErrWrongPayloadType = errors.New("share payload has the wrong type")
)

// Discriminators carried by crew payloads.
const (
	CrewJoinKind     = "crew_join"
	CrewResponseKind = "crew_response"
)

// Optional fields are pointers so absence survives decoding.

type BoatData struct {
	ID             string   `json:"id" validate:"required"`
	Name           string   `json:"name" validate:"required"`
	OfficialNumber *string  `json:"official_number,omitempty"`
	HomePort       *string  `json:"home_port,omitempty"`
	Kind           *string  `json:"kind,omitempty"`
	LengthMeters   *float64 `json:"length_meters,omitempty" validate:"omitempty,gte=0"`
}

type TripData struct {
	ID          string     `json:"id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	BoatID      *string    `json:"boat_id,omitempty"`
	Departure   *string    `json:"departure,omitempty"`
	Destination *string    `json:"destination,omitempty"`
	Skipper     *string    `json:"skipper,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Boat        *BoatData  `json:"boat,omitempty"`
}

type CrewData struct {
	Name         string  `json:"name" validate:"required"`
	Role         *string `json:"role,omitempty"`
	DeviceOrigin *string `json:"device_origin,omitempty"`
}

// BoatShare and the other share types carry the origin device and its
// logical timestamp (epoch millis) used for newer-wins merging.
type BoatShare struct {
	Origin    string   `json:"origin" validate:"required"`
	Timestamp int64    `json:"timestamp" validate:"gt=0"`
	Data      BoatData `json:"data"`
}

type TripShare struct {
	Origin    string   `json:"origin" validate:"required"`
	Timestamp int64    `json:"timestamp" validate:"gt=0"`
	Data      TripData `json:"data"`
}

type CrewJoinData struct {
	Trip TripData   `json:"trip"`
	Crew []CrewData `json:"crew" validate:"dive"`
}

// CrewJoin invites the scanning device onto a trip.
type CrewJoin struct {
	Type      string       `json:"type" validate:"required"`
	Origin    string       `json:"origin" validate:"required"`
	Timestamp int64        `json:"timestamp" validate:"gt=0"`
	Data      CrewJoinData `json:"data"`
}

type CrewResponseData struct {
	// TripID is the trip id on the inviting device.
	TripID string   `json:"trip_id" validate:"required"`
	Member CrewData `json:"member"`
}

// CrewResponse answers a CrewJoin from the joining device.
type CrewResponse struct {
	Type      string           `json:"type" validate:"required"`
	Origin    string           `json:"origin" validate:"required"`
	Timestamp int64            `json:"timestamp" validate:"gt=0"`
	Data      CrewResponseData `json:"data"`
}

// EncodePayload renders a share as base64(JSON).
func EncodePayload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func decode(payload string, v any) error {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("%w: base64: %v", ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: json: %v", ErrInvalidPayload, err)
	}
	return nil
}

func check(v any) error {
	if err := validation.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPayload, validation.Describe(err))
	}
	return nil
}

func DecodeBoat(payload string) (BoatShare, error) {
	var s BoatShare
	if err := decode(payload, &s); err != nil {
		return s, err
	}
	return s, check(s)
}

func DecodeTrip(payload string) (TripShare, error) {
	var s TripShare
	if err := decode(payload, &s); err != nil {
		return s, err
	}
	return s, check(s)
}

func DecodeCrewJoin(payload string) (CrewJoin, error) {
	var s CrewJoin
	if err := decode(payload, &s); err != nil {
		return s, err
	}
	if s.Type != CrewJoinKind {
		return s, fmt.Errorf("%w: expected %s, got %q", ErrWrongPayloadType, CrewJoinKind, s.Type)
	}
	return s, check(s)
}

func DecodeCrewResponse(payload string) (CrewResponse, error) {
	var s CrewResponse
	if err := decode(payload, &s); err != nil {
		return s, err
	}
	if s.Type != CrewResponseKind {
		return s, fmt.Errorf("%w: expected %s, got %q", ErrWrongPayloadType, CrewResponseKind, s.Type)
	}
	return s, check(s)
}
