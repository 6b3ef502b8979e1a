package inventory

import "maps"

// ControllerType is the device type the resolver announces itself with.
const ControllerType = "agocontroller"

// initialState is the state of a device that has never reported one.
const initialState = "0"

// Value is one timestamped measurement of a device quantity.
type Value struct {
	Level     any    `json:"level"`
	Unit      string `json:"unit"`
	Timestamp int64  `json:"timestamp"`

	// Latitude and Longitude are set only for position readings.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Device is a live inventory entry.
type Device struct {
	DeviceType string           `json:"devicetype"`
	InternalID string           `json:"internalid"`
	HandledBy  string           `json:"handled-by"`
	Name       string           `json:"name"`
	Room       string           `json:"room"`
	State      string           `json:"state"`
	Values     map[string]Value `json:"values"`
	LastSeen   int64            `json:"lastseen"`
	Stale      bool             `json:"stale"`
}

// Clone returns an independent copy of the device.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	if d.Values != nil {
		cpy.Values = maps.Clone(d.Values)
	}
	return &cpy
}

// Announcement carries the identity fields of a device.announce event.
type Announcement struct {
	UUID       string
	DeviceType string
	InternalID string
	HandledBy  string
}

// Naming is the name and room copied from the durable directory.
type Naming struct {
	Name string
	Room string
}

// AnnounceResult describes what an announcement changed.
type AnnounceResult struct {
	// Created is true when the UUID was not in the inventory before.
	Created bool

	// PreviousType is set when an existing entry was re-announced with a
	// different device type. The new type replaces it.
	PreviousType string
}

// Conflict reports whether the announcement changed the device type.
func (r AnnounceResult) Conflict() bool {
	return r.PreviousType != ""
}
