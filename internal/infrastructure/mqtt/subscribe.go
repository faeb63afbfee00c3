package mqtt

import "fmt"

// Subscribe registers a handler for a topic pattern. Standard MQTT
// wildcards apply: "breeze/fan/+/set" matches every fan's command topic,
// "breeze/#" matches the whole namespace.
//
// The subscription is tracked and replayed automatically after a
// reconnect. Handlers run on paho's dispatch goroutine and should return
// promptly.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Track before the broker round trip so a reconnect racing this call
	// still replays the topic. Rolled back if the broker refuses it.
	c.trackSubscription(topic, qos, handler)

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	if err := waitToken(token, ErrSubscribeFailed); err != nil {
		c.dropSubscription(topic)
		return err
	}

	return nil
}

// Unsubscribe stops delivery for a topic pattern. The pattern must match
// the one passed to Subscribe exactly; messages already in flight may
// still reach the handler.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.dropSubscription(topic)

	return waitToken(c.client.Unsubscribe(topic), ErrUnsubscribeFailed)
}

// SubscriptionCount returns the number of tracked subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription reports whether the exact topic pattern is tracked.
// No wildcard matching is performed on the argument.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, ok := c.subscriptions[topic]
	return ok
}

func (c *Client) trackSubscription(topic string, qos byte, handler MessageHandler) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscriptions[topic] = subscription{topic: topic, qos: qos, handler: handler}
}

func (c *Client) dropSubscription(topic string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	delete(c.subscriptions, topic)
}
