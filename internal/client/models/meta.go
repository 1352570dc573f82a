package models

import "time"

// SyncMeta is embedded in every synchronizable entity.
//
// An entity is either locally authored (OriginSource empty) or imported from
// another device (OriginSource set, OriginID/OriginTimestamp describe the
// copy it was built from). OriginTimestamp is epoch millis and is only
// compared, never interpreted as wall time.
type SyncMeta struct {
	ID              string
	Synced          bool
	ServerVersion   int64
	OriginSource    string
	OriginID        string
	OriginTimestamp int64
	ReadOnly        bool
	Deleted         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (m *SyncMeta) Meta() *SyncMeta { return m }

func (m *SyncMeta) Imported() bool { return m.OriginSource != "" }

// Pushed reports whether the remote has ever acknowledged this entity.
func (m *SyncMeta) Pushed() bool { return m.ServerVersion > 0 }

// Touch marks a local mutation.
func (m *SyncMeta) Touch(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	m.Synced = false
}

// Record is implemented by pointers to every synchronizable entity.
type Record interface {
	Meta() *SyncMeta
	DisplayName() string
}

// LocalStater is implemented by entities with device-only state. The store
// persists LocalState separately from the synced payload.
type LocalStater interface {
	LocalState() any
}
