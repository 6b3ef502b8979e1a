package resolver

import "errors"

var (
	// ErrUnknownCommand is returned for commands the addressed surface does
	// not implement.
	ErrUnknownCommand = errors.New("resolver: unknown command")

	// ErrNoSuchVariable is returned by delvariable for an unset variable.
	ErrNoSuchVariable = errors.New("resolver: no such variable")

	// ErrNoSuchDevice is returned by getdevice for a UUID not in the inventory.
	ErrNoSuchDevice = errors.New("resolver: no such device")
)
