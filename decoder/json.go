package decoder

import (
	"encoding/json"
	"fmt"
)

// JSON decodes through a JSON marshal/unmarshal round trip. Field names come
// from `json` tags and values must already have the right JSON kind.
func JSON(m map[string]any, target any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal map: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal to target type: %w", err)
	}

	return nil
}
