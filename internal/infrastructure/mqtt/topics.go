package mqtt

import "fmt"

// Topic prefixes for the Breeze MQTT namespace.
const (
	// PrefixFan is the root for per-fan topics.
	PrefixFan = "breeze/fan"

	// PrefixSystem is the root for daemon-level topics.
	PrefixSystem = "breeze/system"
)

// Topics provides type-safe MQTT topic construction.
//
// Using methods instead of string concatenation prevents typos and
// keeps the topic layout in one place:
//
//	topics := mqtt.Topics{}
//	topic := topics.FanState("bedroom_fan_1080")
//	// "breeze/fan/bedroom_fan_1080/state"
type Topics struct{}

// FanState returns the retained state topic for a fan entity.
// Payload: full JSON state snapshot, published on every state change.
func (Topics) FanState(fanID string) string {
	return fmt.Sprintf("%s/%s/state", PrefixFan, fanID)
}

// FanSet returns the command topic for a fan entity.
// Payload: JSON command envelope ({"command":"turn_on"} etc.).
func (Topics) FanSet(fanID string) string {
	return fmt.Sprintf("%s/%s/set", PrefixFan, fanID)
}

// FanAvailability returns the retained availability topic for a fan entity.
// Payload: "online" or "offline".
func (Topics) FanAvailability(fanID string) string {
	return fmt.Sprintf("%s/%s/availability", PrefixFan, fanID)
}

// SystemStatus returns the daemon status topic (also used for LWT).
func (Topics) SystemStatus() string {
	return PrefixSystem + "/status"
}

// AllFanStates returns a wildcard pattern matching every fan state topic.
func (Topics) AllFanStates() string {
	return PrefixFan + "/+/state"
}

// AllFanSets returns a wildcard pattern matching every fan command topic.
func (Topics) AllFanSets() string {
	return PrefixFan + "/+/set"
}
