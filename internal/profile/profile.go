package profile

import (
	"fmt"
	"strings"
)

// SpeedOff is the reserved speed sentinel. It never appears in a profile's
// speed list; the fan synthesizes it for the powered-down state.
const SpeedOff = "off"

// Profile describes one fan model: identity metadata, the ordered speed
// levels (lowest first), and the command table. Profiles are immutable after
// loading.
type Profile struct {
	Manufacturer        string     `json:"manufacturer"`
	SupportedModels     []string   `json:"supportedModels"`
	SupportedController string     `json:"supportedController"`
	CommandsEncoding    string     `json:"commandsEncoding"`
	Speeds              []string   `json:"speed"`
	Commands            CommandSet `json:"commands"`
}

// SupportsDirection reports whether the command table carries both rotation
// directions. Only then can the fan offer direction selection.
func (p *Profile) SupportsDirection() bool {
	_, forward := p.Commands[DirectionForward]
	_, reverse := p.Commands[DirectionReverse]
	return forward && reverse
}

// SupportsOscillation reports whether the command table carries an oscillate
// command.
func (p *Profile) SupportsOscillation() bool {
	_, ok := p.Commands[keyOscillate]
	return ok
}

// SpeedCount returns the number of named speed levels.
func (p *Profile) SpeedCount() int {
	return len(p.Speeds)
}

// HasSpeed reports whether name is one of the profile's speed levels.
func (p *Profile) HasSpeed(name string) bool {
	for _, s := range p.Speeds {
		if s == name {
			return true
		}
	}
	return false
}

// ResolveOff returns the power-off command.
func (p *Profile) ResolveOff() (CommandPayload, error) {
	return p.direct(keyOff)
}

// ResolveOscillate returns the oscillate command.
func (p *Profile) ResolveOscillate() (CommandPayload, error) {
	return p.direct(keyOscillate)
}

// ResolveSpeed returns the command for a named speed in the given direction.
// Profiles without direction support are keyed under "default" regardless of
// the direction argument.
func (p *Profile) ResolveSpeed(direction, speed string) (CommandPayload, error) {
	key := DirectionDefault
	if p.SupportsDirection() && direction != "" {
		key = strings.ToLower(direction)
	}

	node, ok := p.Commands[key]
	if !ok || node.BySpeed == nil {
		return CommandPayload{}, fmt.Errorf("%w: no %q command block", ErrCommandNotFound, key)
	}
	payload, ok := node.BySpeed[speed]
	if !ok {
		return CommandPayload{}, fmt.Errorf("%w: no %q command for speed %q", ErrCommandNotFound, key, speed)
	}
	return payload, nil
}

func (p *Profile) direct(key string) (CommandPayload, error) {
	node, ok := p.Commands[key]
	if !ok || node.Payload == nil {
		return CommandPayload{}, fmt.Errorf("%w: no %q command", ErrCommandNotFound, key)
	}
	return *node.Payload, nil
}

// Validate checks the profile for structural completeness: every fan state
// reachable through the entity must resolve to a command. Returns an error
// wrapping ErrInvalidProfile listing all problems found.
func (p *Profile) Validate() error {
	var errs []string

	if p.Manufacturer == "" {
		errs = append(errs, "manufacturer is required")
	}
	if p.SupportedController == "" {
		errs = append(errs, "supportedController is required")
	}
	if p.CommandsEncoding == "" {
		errs = append(errs, "commandsEncoding is required")
	}

	if len(p.Speeds) == 0 {
		errs = append(errs, "speed list cannot be empty")
	}
	seen := make(map[string]bool, len(p.Speeds))
	for _, speed := range p.Speeds {
		switch {
		case speed == "":
			errs = append(errs, "speed names cannot be empty")
		case speed == SpeedOff:
			errs = append(errs, fmt.Sprintf("speed list cannot contain the reserved name %q", SpeedOff))
		case seen[speed]:
			errs = append(errs, fmt.Sprintf("duplicate speed name %q", speed))
		}
		seen[speed] = true
	}

	if p.Commands == nil {
		errs = append(errs, "commands table is required")
		return p.validationError(errs)
	}

	errs = append(errs, p.validateDirect(keyOff, true)...)
	errs = append(errs, p.validateDirect(keyOscillate, false)...)

	_, forward := p.Commands[DirectionForward]
	_, reverse := p.Commands[DirectionReverse]
	switch {
	case forward != reverse:
		errs = append(errs, "forward and reverse command blocks must both be present or both absent")
	case forward && reverse:
		errs = append(errs, p.validateSpeedBlock(DirectionForward)...)
		errs = append(errs, p.validateSpeedBlock(DirectionReverse)...)
	default:
		errs = append(errs, p.validateSpeedBlock(DirectionDefault)...)
	}

	return p.validationError(errs)
}

// validateDirect checks that a top-level key, if present, is a direct payload
// with at least one non-empty packet.
func (p *Profile) validateDirect(key string, required bool) []string {
	node, ok := p.Commands[key]
	if !ok {
		if required {
			return []string{fmt.Sprintf("%q command is required", key)}
		}
		return nil
	}
	if node.Payload == nil {
		return []string{fmt.Sprintf("%q command must be a direct payload, not a block", key)}
	}
	return validatePackets(key, *node.Payload)
}

// validateSpeedBlock checks that a per-speed block exists and covers every
// speed level.
func (p *Profile) validateSpeedBlock(key string) []string {
	node, ok := p.Commands[key]
	if !ok || node.BySpeed == nil {
		return []string{fmt.Sprintf("%q command block is required", key)}
	}

	var errs []string
	for _, speed := range p.Speeds {
		payload, ok := node.BySpeed[speed]
		if !ok {
			errs = append(errs, fmt.Sprintf("%q block is missing speed %q", key, speed))
			continue
		}
		errs = append(errs, validatePackets(key+"/"+speed, payload)...)
	}
	return errs
}

func validatePackets(name string, payload CommandPayload) []string {
	if len(payload.Packets) == 0 {
		return []string{fmt.Sprintf("%q command has no packets", name)}
	}
	for _, packet := range payload.Packets {
		if packet == "" {
			return []string{fmt.Sprintf("%q command has an empty packet", name)}
		}
	}
	return nil
}

func (p *Profile) validationError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(errs, "; "))
}
