package exchange

import (
	"fmt"

	"github.com/dmitrijs2005/boatlog/internal/timex"
	"github.com/google/uuid"
)

// DefaultFragmentSize keeps one envelope comfortably inside a medium
// density QR code.
const DefaultFragmentSize = 800

// Split cuts an encoded payload into envelopes sharing a fresh id and
// generation time.
func Split(t EnvelopeType, payload string, fragmentSize int) ([]Envelope, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if fragmentSize <= 0 {
		return nil, fmt.Errorf("fragment size must be positive, got %d", fragmentSize)
	}

	total := (len(payload) + fragmentSize - 1) / fragmentSize
	if total == 0 {
		total = 1
	}
	if total > MaxParts {
		return nil, fmt.Errorf("payload needs %d parts, at most %d allowed", total, MaxParts)
	}

	id := uuid.NewString()
	generatedAt := timex.Now()
	out := make([]Envelope, 0, total)
	for part := 1; part <= total; part++ {
		start := (part - 1) * fragmentSize
		end := min(start+fragmentSize, len(payload))
		out = append(out, Envelope{
			Version:     Version,
			Type:        t,
			ID:          id,
			Part:        part,
			Total:       total,
			GeneratedAt: generatedAt,
			Data:        payload[start:end],
		})
	}
	return out, nil
}

// EncodeChunks splits payload and renders every envelope as chunk text.
func EncodeChunks(t EnvelopeType, payload string, fragmentSize int) ([]string, error) {
	envs, err := Split(t, payload, fragmentSize)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(envs))
	for _, e := range envs {
		s, err := e.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
