package bus

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Validator is implemented by every typed payload with required fields.
type Validator interface {
	Validate() error
}

// decode converts a loosely typed map into out, using json tags for field
// names. Unknown keys are ignored.
func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}

// bind decodes in and validates the result.
func bind(in map[string]any, out Validator) error {
	if err := decode(in, out); err != nil {
		return err
	}
	return out.Validate()
}

func parseObject(payload []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return nil
}

func requiredPresent[T any](field string, value *T) error {
	if value == nil {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return nil
}
