package directory

import "errors"

// Domain errors for the directory package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, directory.ErrVerificationFailed) {
//	    // the write did not stick
//	}
var (
	// ErrVerificationFailed is returned when a value read back after a
	// write differs from the value written, or when a delete left its
	// primary row behind.
	ErrVerificationFailed = errors.New("directory: verification failed")

	// ErrDeviceNotFound is returned when no name row exists for a device.
	ErrDeviceNotFound = errors.New("directory: device not found")

	// ErrRoomNotFound is returned when a room UUID does not exist.
	ErrRoomNotFound = errors.New("directory: room not found")

	// ErrFloorplanNotFound is returned when a floorplan UUID does not exist.
	ErrFloorplanNotFound = errors.New("directory: floorplan not found")

	// ErrLocationNotFound is returned when a location UUID does not exist.
	ErrLocationNotFound = errors.New("directory: location not found")

	// ErrPlacementNotFound is returned when a device has no position on a floorplan.
	ErrPlacementNotFound = errors.New("directory: placement not found")

	// ErrUnsupported is returned by user and permission operations, which
	// have no backing storage.
	ErrUnsupported = errors.New("directory: operation not supported")
)
