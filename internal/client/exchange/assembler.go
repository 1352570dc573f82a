package exchange

import (
	"fmt"
	"strings"
	"time"
)

// Result is what the Assembler reports after each chunk: Progress, Complete
// or Failure.
type Result interface {
	isResult()
}

type Progress struct {
	ID        string
	Type      EnvelopeType
	Collected int
	Total     int
}

type Complete struct {
	ID          string
	Type        EnvelopeType
	GeneratedAt time.Time
	// Payload is the concatenation of all fragments in part order.
	Payload string
}

type Failure struct {
	Reason string
}

func (Progress) isResult() {}
func (Complete) isResult() {}
func (Failure) isResult()  {}

// MaxParts bounds the total an envelope may declare. At the default
// fragment size it allows payloads of about 800 KB.
const MaxParts = 1000

type state int

const (
	stateEmpty state = iota
	stateCollecting
	stateComplete
	stateFailed
)

// Assembler collects the chunks of one envelope during a scan session. It
// performs no I/O and is not safe for concurrent use; the zero value is
// ready. After a failure every further chunk reports the same failure until
// Reset is called; collected parts are kept for inspection.
type Assembler struct {
	state       state
	id          string
	typ         EnvelopeType
	total       int
	generatedAt time.Time
	parts       map[int]string
	failure     string
}

// Add feeds one parsed chunk.
func (a *Assembler) Add(e Envelope) Result {
	switch a.state {
	case stateFailed:
		return Failure{Reason: a.failure}
	case stateComplete:
		if e.ID == a.id {
			return a.complete()
		}
		return Failure{Reason: fmt.Sprintf("envelope %s already complete; reset before scanning %s", a.id, e.ID)}
	case stateEmpty:
		return a.start(e)
	}

	switch {
	case e.ID != a.id:
		return a.fail("chunk belongs to envelope %s, expected %s", e.ID, a.id)
	case e.Type != a.typ:
		return a.fail("chunk type %s does not match envelope type %s", e.Type, a.typ)
	case e.Total != a.total:
		return a.fail("chunk total %d does not match envelope total %d", e.Total, a.total)
	case !e.GeneratedAt.Equal(a.generatedAt):
		return a.fail("chunk generatedAt %s does not match envelope", e.GeneratedAt.Format(time.RFC3339))
	case e.Part < 1 || e.Part > a.total:
		return a.fail("part %d out of range 1..%d", e.Part, a.total)
	}

	if _, seen := a.parts[e.Part]; !seen {
		a.parts[e.Part] = e.Data
	}
	if len(a.parts) == a.total {
		a.state = stateComplete
		return a.complete()
	}
	return a.progress()
}

func (a *Assembler) start(e Envelope) Result {
	a.id = e.ID
	a.typ = e.Type
	a.total = e.Total
	a.generatedAt = e.GeneratedAt
	a.parts = make(map[int]string)

	if e.Part != 1 {
		return a.fail("first chunk must be part 1, got part %d", e.Part)
	}
	if e.Total < 1 || e.Total > MaxParts {
		return a.fail("invalid total %d, must be 1..%d", e.Total, MaxParts)
	}

	a.parts[1] = e.Data
	if e.Total == 1 {
		a.state = stateComplete
		return a.complete()
	}
	a.state = stateCollecting
	return a.progress()
}

func (a *Assembler) fail(format string, args ...any) Result {
	a.state = stateFailed
	a.failure = fmt.Sprintf(format, args...)
	return Failure{Reason: a.failure}
}

func (a *Assembler) progress() Progress {
	return Progress{ID: a.id, Type: a.typ, Collected: len(a.parts), Total: a.total}
}

func (a *Assembler) complete() Complete {
	var sb strings.Builder
	for i := 1; i <= a.total; i++ {
		sb.WriteString(a.parts[i])
	}
	return Complete{ID: a.id, Type: a.typ, GeneratedAt: a.generatedAt, Payload: sb.String()}
}

// Reset returns the assembler to its empty state.
func (a *Assembler) Reset() {
	*a = Assembler{}
}

// Progress reports collected and expected part counts; (0, 0) when empty.
func (a *Assembler) Progress() (collected, total int) {
	return len(a.parts), a.total
}

// InProgress is true while an envelope is partially collected.
func (a *Assembler) InProgress() bool {
	return a.state == stateCollecting
}

// EnvelopeID returns the id of the envelope being assembled, "" when empty.
func (a *Assembler) EnvelopeID() string {
	return a.id
}

// Failed returns the failure reason, "" unless the assembler has failed.
func (a *Assembler) Failed() string {
	if a.state != stateFailed {
		return ""
	}
	return a.failure
}
