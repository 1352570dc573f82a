package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/validation"
)

// Version is the only envelope version this build reads and writes.
const Version = 1

type EnvelopeType string

const (
	TypeTrip         EnvelopeType = "trip"
	TypeBoat         EnvelopeType = "boat"
	TypeCrewJoin     EnvelopeType = "crew_join"
	TypeCrewResponse EnvelopeType = "crew_response"
)

func (t EnvelopeType) Valid() bool {
	switch t {
	case TypeTrip, TypeBoat, TypeCrewJoin, TypeCrewResponse:
		return true
	}
	return false
}

var (
	ErrMalformedChunk     = errors.New("malformed chunk")
	ErrUnsupportedVersion = errors.New("unsupported envelope version")
	ErrUnknownType        = errors.New("unknown envelope type")
)

// Envelope is one scanned chunk.
type Envelope struct {
	Version     int
	Type        EnvelopeType
	ID          string
	Part        int
	Total       int
	GeneratedAt time.Time
	Data        string
}

// wireEnvelope keeps every field optional so a missing field is told apart
// from a zero value.
type wireEnvelope struct {
	Version     *int       `json:"version" validate:"required"`
	Type        *string    `json:"type" validate:"required"`
	ID          *string    `json:"id" validate:"required"`
	Part        *int       `json:"part" validate:"required"`
	Total       *int       `json:"total" validate:"required"`
	GeneratedAt *time.Time `json:"generatedAt" validate:"required"`
	Data        *string    `json:"data" validate:"required"`
}

// ParseChunk decodes one scanned chunk.
func ParseChunk(raw string) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedChunk, err)
	}
	if w.Version != nil && *w.Version != Version {
		return Envelope{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, *w.Version)
	}
	if w.Type != nil && !EnvelopeType(*w.Type).Valid() {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownType, *w.Type)
	}
	if err := validation.Struct(w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %s", ErrMalformedChunk, validation.Describe(err))
	}
	if *w.ID == "" {
		return Envelope{}, fmt.Errorf("%w: empty id", ErrMalformedChunk)
	}

	return Envelope{
		Version:     *w.Version,
		Type:        EnvelopeType(*w.Type),
		ID:          *w.ID,
		Part:        *w.Part,
		Total:       *w.Total,
		GeneratedAt: w.GeneratedAt.UTC(),
		Data:        *w.Data,
	}, nil
}

// Encode renders the chunk text carried by one QR code.
func (e Envelope) Encode() (string, error) {
	typ := string(e.Type)
	generatedAt := e.GeneratedAt.UTC()
	b, err := json.Marshal(wireEnvelope{
		Version:     &e.Version,
		Type:        &typ,
		ID:          &e.ID,
		Part:        &e.Part,
		Total:       &e.Total,
		GeneratedAt: &generatedAt,
		Data:        &e.Data,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
