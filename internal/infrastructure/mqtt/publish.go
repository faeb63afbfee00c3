package mqtt

import "fmt"

// maxPayloadSize caps outbound messages at 1MB. Mosquitto's default
// message_size_limit is in the same region; anything near this size is a
// bug in the caller, not a legitimate fan payload.
const maxPayloadSize = 1 << 20

// Publish sends a payload to the given topic and waits for broker
// acknowledgement at the requested QoS. Retained messages replace the
// broker's stored value for the topic, so new subscribers see the latest
// state without waiting for the next change.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload is %d bytes, limit is %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	return waitToken(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// PublishString publishes a string payload.
func (c *Client) PublishString(topic, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes a retained message at the configured default
// QoS. This is the normal path for state topics.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
