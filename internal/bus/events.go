package bus

import (
	"fmt"
	"time"
)

// Subjects the resolver consumes.
const (
	SubjectAnnounce            = "event.device.announce"
	SubjectRemove              = "event.device.remove"
	SubjectStale               = "event.device.stale"
	SubjectStateChanged        = "event.device.statechanged"
	SubjectSensorTriggered     = "event.security.sensortriggered"
	SubjectBatteryLevelChanged = "event.device.batterylevelchanged"
	SubjectTimeChanged         = "event.environment.timechanged"
	SubjectPositionChanged     = "event.environment.positionchanged"
)

// Subjects the resolver publishes.
const (
	SubjectRoomNameChanged        = "event.system.roomnamechanged"
	SubjectDeviceNameChanged      = "event.system.devicenamechanged"
	SubjectRoomDeleted            = "event.system.roomdeleted"
	SubjectFloorplanNameChanged   = "event.system.floorplannamechanged"
	SubjectFloorplanDeviceChanged = "event.system.floorplandevicechanged"
	SubjectFloorplanDeviceRemoved = "event.system.floorplandeviceremoved"
	SubjectFloorplanDeleted       = "event.system.floorplandeleted"
	SubjectLocationNameChanged    = "event.system.locationnamechanged"
	SubjectLocationDeleted        = "event.system.locationdeleted"
)

// CommandDiscover is the command carried by a discovery broadcast.
const CommandDiscover = "discover"

// Event is an event as received: its subject and undecoded fields.
// Use the typed accessors to read it.
type Event struct {
	Subject string
	Fields  map[string]any
}

// ParseEvent parses a JSON object payload for subject.
func ParseEvent(subject string, payload []byte) (Event, error) {
	if subject == "" {
		return Event{}, fmt.Errorf("%w: subject", ErrMissingField)
	}
	fields, err := parseObject(payload)
	if err != nil {
		return Event{}, fmt.Errorf("%s: %w", subject, err)
	}
	return Event{Subject: subject, Fields: fields}, nil
}

// DeviceUUID returns the event's uuid field. Events without one are not
// device-scoped.
func (e Event) DeviceUUID() (string, bool) {
	uuid, ok := e.Fields["uuid"].(string)
	return uuid, ok && uuid != ""
}

// Announce decodes a device.announce event.
func (e Event) Announce() (Announce, error) {
	var a Announce
	return a, bind(e.Fields, &a)
}

// Remove decodes a device.remove event.
func (e Event) Remove() (Remove, error) {
	var r Remove
	return r, bind(e.Fields, &r)
}

// Stale decodes a device.stale event.
func (e Event) Stale() (Stale, error) {
	var s Stale
	return s, bind(e.Fields, &s)
}

// Reading decodes any device-scoped level event.
func (e Event) Reading() (Reading, error) {
	var r Reading
	return r, bind(e.Fields, &r)
}

// TimeChanged decodes an environment.timechanged event.
func (e Event) TimeChanged() (TimeChanged, error) {
	var t TimeChanged
	return t, bind(e.Fields, &t)
}

// PositionChanged decodes an environment.positionchanged event.
func (e Event) PositionChanged() (PositionChanged, error) {
	var p PositionChanged
	return p, bind(e.Fields, &p)
}

// Announce is sent by a driver for every device it handles.
type Announce struct {
	UUID       string `json:"uuid"`
	DeviceType string `json:"devicetype"`
	InternalID string `json:"internalid"`
	HandledBy  string `json:"handled-by"`
}

// Validate implements Validator.
func (a *Announce) Validate() error {
	if err := required("uuid", a.UUID); err != nil {
		return err
	}
	return required("devicetype", a.DeviceType)
}

// Remove asks the resolver to forget a device.
type Remove struct {
	UUID string `json:"uuid"`
}

// Validate implements Validator.
func (r *Remove) Validate() error {
	return required("uuid", r.UUID)
}

// Stale sets a device's stale flag.
type Stale struct {
	UUID  string `json:"uuid"`
	Stale *bool  `json:"stale"`
}

// Validate implements Validator.
func (s *Stale) Validate() error {
	if err := required("uuid", s.UUID); err != nil {
		return err
	}
	return requiredPresent("stale", s.Stale)
}

// Reading is a device-scoped measurement or state change. Level keeps the
// JSON type it arrived with.
type Reading struct {
	UUID  string `json:"uuid"`
	Level any    `json:"level"`
	Unit  string `json:"unit"`
}

// Validate implements Validator.
func (r *Reading) Validate() error {
	if err := required("uuid", r.UUID); err != nil {
		return err
	}
	if r.Level == nil {
		return fmt.Errorf("%w: level", ErrMissingField)
	}
	return nil
}

// TimeChanged carries the calendar fields. Absent fields are empty.
type TimeChanged struct {
	Minute  string `json:"minute"`
	Hour    string `json:"hour"`
	Day     string `json:"day"`
	Weekday string `json:"weekday"`
	Month   string `json:"month"`
	Year    string `json:"year"`
}

// Validate implements Validator.
func (*TimeChanged) Validate() error { return nil }

// PositionChanged carries the site position. UUID is set when a device
// reported it.
type PositionChanged struct {
	UUID      string   `json:"uuid"`
	Unit      string   `json:"unit"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Validate implements Validator.
func (p *PositionChanged) Validate() error {
	if err := requiredPresent("latitude", p.Latitude); err != nil {
		return err
	}
	return requiredPresent("longitude", p.Longitude)
}

// NameChanged is published after a room, device, floorplan or location
// is renamed.
type NameChanged struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Deleted is published after a room, floorplan or location is deleted.
type Deleted struct {
	UUID string `json:"uuid"`
}

// FloorplanDeviceChanged is published after a device is placed.
type FloorplanDeviceChanged struct {
	UUID      string `json:"uuid"`
	Floorplan string `json:"floorplan"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

// FloorplanDeviceRemoved is published after a placement is removed.
type FloorplanDeviceRemoved struct {
	UUID      string `json:"uuid"`
	Floorplan string `json:"floorplan"`
}

// Discover is the untargeted discovery broadcast.
type Discover struct {
	Command   string    `json:"command"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDiscover returns a discovery broadcast stamped with now.
func NewDiscover(now time.Time) Discover {
	return Discover{Command: CommandDiscover, Timestamp: now.UTC()}
}
