package factsys

import (
	"github.com/groundstation/factsys/layer"
)

// LayerPriority is an alias for layer.Priority.
type LayerPriority = layer.Priority

// LayerName is an alias for layer.Name.
type LayerName = layer.Name

// Priority constants for the usual parameter layers of a vehicle.
// Higher values take precedence. They use a step of 10, matching the
// default step of auto-assigned priorities.
const (
	// PriorityDefaults is the lowest priority, used for firmware defaults.
	PriorityDefaults LayerPriority = 0

	// PriorityVehicle is for values read back from the vehicle.
	PriorityVehicle LayerPriority = 10

	// PriorityProfile is for a saved parameter profile (e.g. a .params file).
	PriorityProfile LayerPriority = 20

	// PriorityEnv is for environment variable overrides.
	PriorityEnv LayerPriority = 30

	// PriorityUser is the highest priority, used for the layer recording
	// edits made through Fact.SetValue.
	PriorityUser LayerPriority = 40
)
