// Package factsys models vehicle parameters as observable Facts.
//
// A Fact is a named, typed value owned by a component (an autopilot, a
// gimbal, a camera). Every Fact is bound to shared, read-only MetaData that
// carries its default, range, units and descriptions. Facts notify in two
// phases: writes go first to the owning Container, which validates them
// against the metadata and stores them, and only accepted values are
// announced to public subscribers such as UI bindings.
//
// Key features:
//   - Tagged Value variant checked at every mutation boundary
//   - Shared metadata looked up by parameter name
//   - Layered parameter store with priority ordering (defaults, vehicle,
//     profile, environment, user edits)
//   - Comment-preserving saves for YAML and JSONC parameter files
//   - Hot reload of parameter files via Watch
package factsys
