package inventory

import (
	"time"

	"github.com/nerrad567/gray-logic-resolver/internal/jsonfile"
)

// Logger defines the logging interface used by the inventory.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Inventory maps device UUIDs to live entries.
type Inventory struct {
	devices    map[string]*Device
	mirrorPath string
	logger     Logger
}

// New creates an empty inventory without a mirror file.
func New() *Inventory {
	return &Inventory{
		devices: make(map[string]*Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the inventory.
func (inv *Inventory) SetLogger(logger Logger) {
	inv.logger = logger
}

// EnableMirror makes Flush write the inventory to path.
func (inv *Inventory) EnableMirror(path string) {
	inv.mirrorPath = path
}

// Mirrored reports whether a mirror file is configured.
func (inv *Inventory) Mirrored() bool {
	return inv.mirrorPath != ""
}

// Restore replaces the inventory with the contents of the mirror file. A
// missing file leaves the inventory empty.
func (inv *Inventory) Restore() error {
	if inv.mirrorPath == "" {
		return nil
	}
	devices := make(map[string]*Device)
	found, err := jsonfile.Load(inv.mirrorPath, &devices)
	if err != nil {
		return err
	}
	if !found {
		inv.logger.Info("inventory mirror not found, starting empty", "path", inv.mirrorPath)
		return nil
	}
	for uuid, d := range devices {
		if d == nil {
			delete(devices, uuid)
			continue
		}
		if d.Values == nil {
			inv.logger.Warn("restored device has no values map", "uuid", uuid)
		}
	}
	inv.devices = devices
	inv.logger.Info("inventory restored", "path", inv.mirrorPath, "devices", len(devices))
	return nil
}

// Flush writes the inventory to the mirror file when one is configured.
// Failures are logged; the in-memory inventory stays authoritative.
func (inv *Inventory) Flush() {
	if inv.mirrorPath == "" {
		return
	}
	if err := jsonfile.Save(inv.mirrorPath, inv.devices); err != nil {
		inv.logger.Error("failed to write inventory mirror", "path", inv.mirrorPath, "error", err)
	}
}

// Len returns the number of devices.
func (inv *Inventory) Len() int {
	return len(inv.devices)
}

// StaleCount returns the number of devices flagged stale.
func (inv *Inventory) StaleCount() int {
	n := 0
	for _, d := range inv.devices {
		if d.Stale {
			n++
		}
	}
	return n
}

// Get returns a copy of the device with the given UUID.
func (inv *Inventory) Get(uuid string) (*Device, bool) {
	d, ok := inv.devices[uuid]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// Contains reports whether the UUID is in the inventory.
func (inv *Inventory) Contains(uuid string) bool {
	_, ok := inv.devices[uuid]
	return ok
}

// Snapshot returns copies of every device keyed by UUID.
func (inv *Inventory) Snapshot() map[string]*Device {
	out := make(map[string]*Device, len(inv.devices))
	for uuid, d := range inv.devices {
		out[uuid] = d.Clone()
	}
	return out
}

// Announce creates or refreshes an entry.
//
// A new entry starts with state "0" and no values. An existing entry keeps
// its state and values; identity, name, room and lastseen are refreshed
// and the stale flag is cleared. An unnamed controller is named after its
// device type.
func (inv *Inventory) Announce(a Announcement, naming Naming, now time.Time) AnnounceResult {
	name := naming.Name
	if name == "" && a.DeviceType == ControllerType {
		name = ControllerType
	}

	d, ok := inv.devices[a.UUID]
	if !ok {
		inv.devices[a.UUID] = &Device{
			DeviceType: a.DeviceType,
			InternalID: a.InternalID,
			HandledBy:  a.HandledBy,
			Name:       name,
			Room:       naming.Room,
			State:      initialState,
			Values:     make(map[string]Value),
			LastSeen:   now.Unix(),
		}
		return AnnounceResult{Created: true}
	}

	var result AnnounceResult
	if d.DeviceType != a.DeviceType {
		result.PreviousType = d.DeviceType
	}
	d.DeviceType = a.DeviceType
	d.InternalID = a.InternalID
	d.HandledBy = a.HandledBy
	d.Name = name
	d.Room = naming.Room
	d.LastSeen = now.Unix()
	d.Stale = false
	return result
}

// Remove deletes an entry. It reports whether the UUID was present.
func (inv *Inventory) Remove(uuid string) bool {
	if _, ok := inv.devices[uuid]; !ok {
		return false
	}
	delete(inv.devices, uuid)
	return true
}

// SetStale sets the stale flag of an existing entry.
func (inv *Inventory) SetStale(uuid string, stale bool) error {
	d, ok := inv.devices[uuid]
	if !ok {
		return ErrDeviceNotFound
	}
	d.Stale = stale
	return nil
}

// SetState records a state report: the "state" value and the top-level
// state string.
func (inv *Inventory) SetState(uuid string, level any, unit string, now time.Time) error {
	if err := inv.RecordValue(uuid, "state", Value{Level: level, Unit: unit}, now); err != nil {
		return err
	}
	inv.devices[uuid].State = FormatLevel(level)
	return nil
}

// RecordValue stores a measurement under quantity, stamped with now.
func (inv *Inventory) RecordValue(uuid, quantity string, v Value, now time.Time) error {
	d, ok := inv.devices[uuid]
	if !ok {
		return ErrDeviceNotFound
	}
	if d.Values == nil {
		return ErrMissingValues
	}
	v.Timestamp = now.Unix()
	d.Values[quantity] = v
	return nil
}

// SetName mirrors a directory rename. It reports whether the UUID was present.
func (inv *Inventory) SetName(uuid, name string) bool {
	d, ok := inv.devices[uuid]
	if ok {
		d.Name = name
	}
	return ok
}

// SetRoom mirrors a directory room change. It reports whether the UUID was present.
func (inv *Inventory) SetRoom(uuid, room string) bool {
	d, ok := inv.devices[uuid]
	if ok {
		d.Room = room
	}
	return ok
}

// ClearRoom removes room from every entry assigned to it and returns how
// many entries changed.
func (inv *Inventory) ClearRoom(room string) int {
	n := 0
	for _, d := range inv.devices {
		if d.Room == room {
			d.Room = ""
			n++
		}
	}
	return n
}

// MarkStale flags every entry not seen within maxAge of now and returns
// the UUIDs that changed. Entries already stale are left alone.
func (inv *Inventory) MarkStale(now time.Time, maxAge time.Duration) []string {
	cutoff := now.Add(-maxAge).Unix()
	var flipped []string
	for uuid, d := range inv.devices {
		if !d.Stale && d.LastSeen < cutoff {
			d.Stale = true
			flipped = append(flipped, uuid)
		}
	}
	return flipped
}
