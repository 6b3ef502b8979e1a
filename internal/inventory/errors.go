package inventory

import "errors"

var (
	// ErrDeviceNotFound is returned when a UUID is not in the inventory.
	ErrDeviceNotFound = errors.New("inventory: device not found")

	// ErrMissingValues is returned when an entry has no values map. Only
	// entries restored from a damaged mirror file can be in this state.
	ErrMissingValues = errors.New("inventory: device has no values")
)
