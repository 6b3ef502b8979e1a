package bus

import "errors"

var (
	// ErrMalformed is returned when a payload is not a JSON object or a
	// field cannot be converted to its declared type.
	ErrMalformed = errors.New("bus: malformed payload")

	// ErrMissingField is returned when a required field is absent or empty.
	ErrMissingField = errors.New("bus: missing required field")
)
