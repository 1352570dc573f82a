package models

import "time"

type Boat struct {
	SyncMeta       `json:"-"`
	Name           string  `json:"name"`
	OfficialNumber string  `json:"official_number,omitempty"`
	HomePort       string  `json:"home_port,omitempty"`
	Kind           string  `json:"kind,omitempty"`
	LengthMeters   float64 `json:"length_meters,omitempty"`
	// Active marks the boat the logbook currently records trips for.
	Active bool `json:"active"`
}

func (b *Boat) DisplayName() string { return b.Name }

type Trip struct {
	SyncMeta    `json:"-"`
	BoatID      string     `json:"boat_id"`
	Title       string     `json:"title"`
	Departure   string     `json:"departure,omitempty"`
	Destination string     `json:"destination,omitempty"`
	Skipper     string     `json:"skipper,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

func (t *Trip) DisplayName() string { return t.Title }

// CrewMember is local-only; crew lists travel inside crew exchange payloads.
type CrewMember struct {
	ID           string
	TripID       string
	Name         string
	Role         string
	DeviceOrigin string
	Position     int
}

type Note struct {
	SyncMeta `json:"-"`
	TripID   string `json:"trip_id,omitempty"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

func (n *Note) DisplayName() string { return n.Title }

type TodoItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type TodoList struct {
	SyncMeta `json:"-"`
	BoatID   string     `json:"boat_id,omitempty"`
	Title    string     `json:"title"`
	Items    []TodoItem `json:"items"`
}

func (l *TodoList) DisplayName() string { return l.Title }

// MaintenanceTemplate describes recurring work on a boat. Its schedule and
// information parts change independently and are synced as partial updates.
type MaintenanceTemplate struct {
	SyncMeta            `json:"-"`
	BoatID              string `json:"boat_id"`
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	IntervalDays        int    `json:"interval_days,omitempty"`
	IntervalEngineHours int    `json:"interval_engine_hours,omitempty"`
	Information         string `json:"information,omitempty"`
}

func (m *MaintenanceTemplate) DisplayName() string { return m.Name }

// SchedulePatch is the partial payload of a "schedule" change.
func (m *MaintenanceTemplate) SchedulePatch() map[string]any {
	return map[string]any{
		"interval_days":         m.IntervalDays,
		"interval_engine_hours": m.IntervalEngineHours,
	}
}

// InformationPatch is the partial payload of an "information" change.
func (m *MaintenanceTemplate) InformationPatch() map[string]any {
	return map[string]any{
		"description": m.Description,
		"information": m.Information,
	}
}

type MaintenanceEvent struct {
	SyncMeta    `json:"-"`
	TemplateID  string    `json:"template_id,omitempty"`
	BoatID      string    `json:"boat_id"`
	PerformedAt time.Time `json:"performed_at"`
	EngineHours float64   `json:"engine_hours,omitempty"`
	Remarks     string    `json:"remarks,omitempty"`
}

func (e *MaintenanceEvent) DisplayName() string { return e.Remarks }

type MarkedLocation struct {
	SyncMeta  `json:"-"`
	TripID    string  `json:"trip_id,omitempty"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Category  string  `json:"category,omitempty"`
}

func (l *MarkedLocation) DisplayName() string { return l.Name }

// Photo metadata is synced like any other record; the image itself goes to
// object storage first and is referenced by RemoteKey.
type Photo struct {
	SyncMeta  `json:"-"`
	TripID    string     `json:"trip_id,omitempty"`
	Caption   string     `json:"caption,omitempty"`
	RemoteKey string     `json:"remote_key,omitempty"`
	Local     PhotoLocal `json:"-"`
}

// PhotoLocal never leaves the device.
type PhotoLocal struct {
	Path     string `json:"path"`
	Uploaded bool   `json:"uploaded"`
}

func (p *Photo) DisplayName() string { return p.Caption }

func (p *Photo) LocalState() any { return &p.Local }
