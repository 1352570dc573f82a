package importer

import (
	"context"

	"github.com/dmitrijs2005/boatlog/internal/client/exchange"
)

// Event reports what one scanned chunk did.
type Event struct {
	// Chunk is the assembler's answer.
	Chunk exchange.Result
	// Import is set once an envelope completed.
	Import Result
	// Repeat marks a chunk of an envelope already imported in this session.
	Repeat bool
}

// Session drives a scan: chunks are assembled and every completed envelope
// is imported once. The assembler is cleared after a completion so a session
// can read several envelopes in a row. A failure sticks, with the collected
// parts kept, until the caller calls Reset.
type Session struct {
	im   *Importer
	asm  exchange.Assembler
	done map[string]bool
}

func NewSession(im *Importer) *Session {
	return &Session{im: im, done: map[string]bool{}}
}

// Feed parses and assembles one chunk. Unparseable text is returned as an
// error and leaves the assembly in progress untouched.
func (s *Session) Feed(ctx context.Context, raw string) (Event, error) {
	e, err := exchange.ParseChunk(raw)
	if err != nil {
		return Event{}, err
	}
	if s.done[e.ID] {
		return Event{Repeat: true}, nil
	}

	res := s.asm.Add(e)
	ev := Event{Chunk: res}
	switch r := res.(type) {
	case exchange.Complete:
		s.done[r.ID] = true
		s.asm.Reset()
		ev.Import = s.im.Import(ctx, r)
	}
	return ev, nil
}

// Pending reports the envelope being assembled, if any.
func (s *Session) Pending() (id string, collected, total int, ok bool) {
	if !s.asm.InProgress() {
		return "", 0, 0, false
	}
	collected, total = s.asm.Progress()
	return s.asm.EnvelopeID(), collected, total, true
}

// Failed returns why assembly stopped, "" while the session can take chunks.
func (s *Session) Failed() string {
	return s.asm.Failed()
}

// Reset drops the current assembly, failed or not. Envelopes already
// imported stay remembered.
func (s *Session) Reset() {
	s.asm.Reset()
}
