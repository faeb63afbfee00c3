// Package fan implements the remote-controlled fan entity for Breeze Core.
//
// A fan entity owns the in-memory state for one physical fan (speed,
// direction, oscillation, last non-off speed) and translates high-level
// operations into pre-recorded IR/RF command transmissions through a
// pluggable controller. There is no readback channel: the fan is presumed
// to be in whatever state the last command selected, optionally corrected
// by a power consumption sensor.
//
// # State Model
//
// Fan state is a tri-state:
//
//   - Off: the fan is powered down.
//   - On at a named speed: the normal commanded state.
//   - On with unknown speed: the power sensor reported the fan running but
//     no command from this service selected a speed (someone used the
//     physical remote). Percentage and speed read as unknown until the next
//     command or an OFF sensor reading.
//
// # Command Selection
//
// Each operation mutates state and resolves exactly one command:
//
//   - off state: the profile's "off" command
//   - oscillation enabled: the profile's "oscillate" command
//   - otherwise: the per-speed command for the current direction
//
// Speed percentages map to named levels by partitioning (0, 100] into
// equal-width buckets in speed list order; 0 means off.
//
// # Failure Policy
//
// Transmission failures are logged and swallowed without rolling back the
// in-memory state, so state can diverge from the physical device until the
// next successful command. Command resolution failures (a state the profile
// cannot express) surface as profile.ErrCommandNotFound.
//
// # Concurrency
//
// All entity methods are safe for concurrent use. A single per-entity mutex
// serialises read-decide-mutate-send, so user commands and power sensor
// callbacks never interleave mid-transmission.
//
// # Persistence
//
// Speed, direction and last non-off speed survive restarts through an
// AttributeStore: saved after every transition, restored (and re-validated
// against the profile) on startup without transmitting. Every transition is
// also appended to a state history repository with its source (command,
// sensor, mqtt, restore).
package fan
