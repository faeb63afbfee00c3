package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/breezehub/breeze-core/internal/fan"
)

const (
	// minSetTopicParts is the number of segments in breeze/fan/<id>/set.
	minSetTopicParts = 4

	// commandTimeout bounds one command dispatch. Generous: HTTP transports
	// pace multi-packet payloads with per-packet delays.
	commandTimeout = 30 * time.Second
)

// setCommand is the JSON body accepted on breeze/fan/<id>/set. All fields
// are optional; pointers distinguish absent from zero values.
type setCommand struct {
	State      *string `json:"state"`
	Percentage *int    `json:"percentage"`
	Oscillate  *bool   `json:"oscillate"`
	Direction  *string `json:"direction"`
}

func (c setCommand) empty() bool {
	return c.State == nil && c.Percentage == nil && c.Oscillate == nil && c.Direction == nil
}

// handleSetMessage decodes a command message and dispatches it to the
// addressed fan. Malformed messages and unknown fans are logged and dropped;
// a bad command from the bus must never take the bridge down.
func (b *Bridge) handleSetMessage(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < minSetTopicParts {
		b.logger.Warn("invalid command topic", "topic", topic)
		return
	}
	fanID := parts[2]

	entity, err := b.registry.Get(fanID)
	if err != nil {
		b.logger.Warn("command for unknown fan", "fan_id", fanID)
		return
	}

	var cmd setCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("malformed fan command", "fan_id", fanID, "error", err)
		return
	}
	if cmd.empty() {
		b.logger.Warn("fan command carries no instruction", "fan_id", fanID)
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	b.dispatch(ctx, entity, cmd)
}

// dispatch applies a command's fields to the entity. Direction and
// oscillation settle first so a power-on in the same message activates with
// them already applied. Field failures are logged individually; the
// remaining fields still run.
func (b *Bridge) dispatch(ctx context.Context, entity *fan.Entity, cmd setCommand) {
	if cmd.Direction != nil {
		if err := entity.SetDirection(ctx, *cmd.Direction); err != nil {
			b.logger.Warn("set direction failed",
				"fan_id", entity.ID(), "direction", *cmd.Direction, "error", err)
		}
	}

	if cmd.Oscillate != nil {
		if err := entity.Oscillate(ctx, *cmd.Oscillate); err != nil {
			b.logger.Warn("oscillate failed",
				"fan_id", entity.ID(), "oscillating", *cmd.Oscillate, "error", err)
		}
	}

	switch {
	case cmd.State != nil && strings.EqualFold(*cmd.State, fan.StateOn):
		if err := entity.TurnOn(ctx, cmd.Percentage); err != nil {
			b.logger.Warn("turn on failed", "fan_id", entity.ID(), "error", err)
		}
	case cmd.State != nil && strings.EqualFold(*cmd.State, fan.StateOff):
		if err := entity.TurnOff(ctx); err != nil {
			b.logger.Warn("turn off failed", "fan_id", entity.ID(), "error", err)
		}
	case cmd.State != nil:
		b.logger.Warn("unknown fan state command",
			"fan_id", entity.ID(), "state", *cmd.State)
	case cmd.Percentage != nil:
		if err := entity.SetPercentage(ctx, *cmd.Percentage); err != nil {
			b.logger.Warn("set percentage failed",
				"fan_id", entity.ID(), "percentage", *cmd.Percentage, "error", err)
		}
	}
}
