package profile

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Command table keys with reserved meaning.
const (
	keyOff       = "off"
	keyOscillate = "oscillate"

	// DirectionDefault is the lookup key for profiles without direction support.
	DirectionDefault = "default"

	// DirectionForward and DirectionReverse are the two rotation directions.
	// A profile supports direction selection when both blocks are present.
	DirectionForward = "forward"
	DirectionReverse = "reverse"
)

// CommandPayload is an opaque pre-recorded IR/RF signal, meaningful only to
// the controller that transmits it. Profiles may record a command as a single
// packet or as a list of packets sent in order with a delay between them.
type CommandPayload struct {
	Packets []string
}

// UnmarshalJSON accepts either a bare string or a list of strings.
func (p *CommandPayload) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		p.Packets = []string{single}
		return nil
	}

	var packets []string
	if err := json.Unmarshal(data, &packets); err != nil {
		return errors.New("command payload must be a string or a list of strings")
	}
	p.Packets = packets
	return nil
}

// CommandSet is the profile's command table. Top-level entries are either a
// direct payload ("off", "oscillate") or a per-speed block keyed by direction
// ("default", "forward", "reverse").
type CommandSet map[string]CommandNode

// CommandNode is one top-level command table entry. Exactly one of Payload
// and BySpeed is set, depending on the JSON shape.
type CommandNode struct {
	Payload *CommandPayload
	BySpeed map[string]CommandPayload
}

// UnmarshalJSON distinguishes direct payloads from per-speed blocks by the
// leading JSON token.
func (n *CommandNode) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		bySpeed := make(map[string]CommandPayload)
		if err := json.Unmarshal(data, &bySpeed); err != nil {
			return err
		}
		n.BySpeed = bySpeed
		return nil
	}

	var payload CommandPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	n.Payload = &payload
	return nil
}
