// Package models contains the client's logbook entities and the bookkeeping
// types the synchronization engine moves around.
package models

import "fmt"

// DataType names a synchronizable entity kind. The value doubles as the
// remote API path segment.
type DataType string

const (
	DataTypeBoat             DataType = "boat"
	DataTypeTrip             DataType = "trip"
	DataTypeNote             DataType = "note"
	DataTypeTodo             DataType = "todo"
	DataTypeTemplate         DataType = "template"
	DataTypeMaintenanceEvent DataType = "maintenance_event"
	DataTypeLocation         DataType = "location"
	DataTypePhoto            DataType = "photo"
)

// DataTypes lists every kind in dependency order: parents before children.
var DataTypes = []DataType{
	DataTypeBoat,
	DataTypeTrip,
	DataTypeNote,
	DataTypeTodo,
	DataTypeTemplate,
	DataTypeMaintenanceEvent,
	DataTypeLocation,
	DataTypePhoto,
}

func (t DataType) Valid() bool {
	for _, v := range DataTypes {
		if v == t {
			return true
		}
	}
	return false
}

func ParseDataType(s string) (DataType, error) {
	t := DataType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown data type %q", s)
	}
	return t, nil
}
