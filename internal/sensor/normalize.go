package sensor

import (
	"encoding/json"
	"strings"
)

// Normalised power sensor states.
const (
	StateOn      = "on"
	StateOff     = "off"
	StateUnknown = "unknown"
)

// stateEnvelope matches JSON payloads like {"state": "ON"} published by
// zigbee2mqtt and similar firmware.
type stateEnvelope struct {
	State string `json:"state"`
}

// Normalize maps a raw sensor payload to StateOn, StateOff or StateUnknown.
//
// Accepted forms, all case-insensitive: "on"/"off", "1"/"0", "true"/"false",
// and a JSON object carrying any of those under a "state" key. Anything else
// normalises to StateUnknown.
func Normalize(payload []byte) string {
	value := strings.TrimSpace(string(payload))
	if value == "" {
		return StateUnknown
	}

	if strings.HasPrefix(value, "{") {
		var envelope stateEnvelope
		if err := json.Unmarshal([]byte(value), &envelope); err != nil {
			return StateUnknown
		}
		value = envelope.State
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "1", "true":
		return StateOn
	case "off", "0", "false":
		return StateOff
	default:
		return StateUnknown
	}
}
