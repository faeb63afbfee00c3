package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/breezehub/breeze-core/internal/profile"
)

// mqttController publishes packets to the broker topic an MQTT-attached
// transmitter subscribes to. Packets go out at QoS 0: a broker redelivery
// would re-blast the command, which is worse than losing it.
type mqttController struct {
	topic     string
	delay     time.Duration
	publisher Publisher
}

func (m *mqttController) Send(ctx context.Context, payload profile.CommandPayload) error {
	for i, packet := range payload.Packets {
		if i > 0 {
			if err := pause(ctx, m.delay); err != nil {
				return err
			}
		}
		if err := m.publisher.PublishString(m.topic, packet, 0, false); err != nil {
			return fmt.Errorf("%w: packet %d/%d on %s: %v",
				ErrSendFailed, i+1, len(payload.Packets), m.topic, err)
		}
	}
	return nil
}
