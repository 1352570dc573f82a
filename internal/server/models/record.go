// Package models holds the server's persisted types.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordType names a collection of the records API.
type RecordType string

const (
	RecordBoat             RecordType = "boat"
	RecordTrip             RecordType = "trip"
	RecordNote             RecordType = "note"
	RecordTodo             RecordType = "todo"
	RecordTemplate         RecordType = "template"
	RecordMaintenanceEvent RecordType = "maintenance_event"
	RecordLocation         RecordType = "location"
	RecordPhoto            RecordType = "photo"
)

var recordTypes = map[RecordType]struct{}{
	RecordBoat: {}, RecordTrip: {}, RecordNote: {}, RecordTodo: {},
	RecordTemplate: {}, RecordMaintenanceEvent: {}, RecordLocation: {}, RecordPhoto: {},
}

func ParseRecordType(s string) (RecordType, error) {
	t := RecordType(s)
	if _, ok := recordTypes[t]; !ok {
		return "", fmt.Errorf("unknown record type %q", s)
	}
	return t, nil
}

// Record is one entity owned by a user. Data is the client's JSON body and
// is stored opaquely. Version increases by one on every write.
type Record struct {
	UserID          string          `json:"-"`
	Type            RecordType      `json:"-"`
	ID              string          `json:"id" validate:"required,max=64"`
	Version         int64           `json:"version"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Deleted         bool            `json:"deleted,omitempty"`
	OriginSource    string          `json:"origin_source,omitempty" validate:"max=128"`
	OriginID        string          `json:"origin_id,omitempty" validate:"max=64"`
	OriginTimestamp int64           `json:"origin_timestamp,omitempty" validate:"gte=0"`
	ReadOnly        bool            `json:"read_only,omitempty"`
	Data            json.RawMessage `json:"data" validate:"required"`
}
