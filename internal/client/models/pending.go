package models

import (
	"encoding/json"
	"time"
)

type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
	// ChangeSchedule and ChangeInformation are partial template updates.
	ChangeSchedule    ChangeType = "schedule"
	ChangeInformation ChangeType = "information"
)

func (c ChangeType) Valid() bool {
	switch c {
	case ChangeCreate, ChangeUpdate, ChangeDelete, ChangeSchedule, ChangeInformation:
		return true
	}
	return false
}

// PendingChange is one journaled local mutation awaiting delivery.
type PendingChange struct {
	ID            int64
	EntityType    DataType
	EntityID      string
	ChangeType    ChangeType
	Payload       json.RawMessage
	CreatedAt     time.Time
	Synced        bool
	SyncAttempts  int
	LastAttemptAt *time.Time
	LastError     string
	NextAttemptAt *time.Time
}
