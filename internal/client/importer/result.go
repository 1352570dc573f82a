// Package importer merges decoded share payloads into the local store using
// origin identity and newer-wins timestamps.
package importer

// Result is one of Created, Updated, Skipped or Failed.
type Result interface {
	isResult()
}

type Created struct {
	ID string
}

type Updated struct {
	ID string
}

// Skipped is a conflict or no-op, not an error.
type Skipped struct {
	Reason string
}

// Failed reports an unexpected failure, typically storage.
type Failed struct {
	Message string
}

func (Created) isResult() {}
func (Updated) isResult() {}
func (Skipped) isResult() {}
func (Failed) isResult()  {}

const (
	reasonOlder         = "local version is newer or same age"
	reasonLocalBoat     = "matches existing local boat"
	reasonOwnShare      = "shared from this device"
	reasonSelfJoin      = "crew invitation was issued by this device"
	reasonDeleted       = "local copy is deleted"
	reasonUnknownTrip   = "trip not found"
	reasonAlreadyOnCrew = "device is already on the crew"
	reasonNotRecognized = "not recognized"
)

// Describe renders a result for logs and the CLI.
func Describe(r Result) string {
	switch v := r.(type) {
	case Created:
		return "created " + v.ID
	case Updated:
		return "updated " + v.ID
	case Skipped:
		return "skipped: " + v.Reason
	case Failed:
		return "failed: " + v.Message
	}
	return "unknown result"
}
