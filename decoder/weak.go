package decoder

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Weak decodes with mapstructure using `mapstructure` tags and weakly typed
// input, so "1000" decodes into a number field and 1 into a bool. Metadata
// documents written by hand or exported from env vars rely on this.
// Keys without a matching field are an error.
func Weak(m map[string]any, target any) error {
	return decode(m, target, true)
}

// Lenient is like Weak but ignores keys without a matching field, so a
// struct can pick a few parameters out of a component.
func Lenient(m map[string]any, target any) error {
	return decode(m, target, false)
}

func decode(m map[string]any, target any, errorUnused bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		ErrorUnused:      errorUnused,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return fmt.Errorf("failed to decode map: %w", err)
	}
	return nil
}
