package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/breezehub/breeze-core/internal/infrastructure/config"
)

// MessageHandler processes one inbound message. A returned error is logged
// at warning level; MQTT has no nack, so the message is not redelivered.
type MessageHandler func(topic string, payload []byte) error

// Logger is the minimal logging surface the client needs. The logging
// package's Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription holds what is needed to replay a topic registration after
// the broker session is re-established.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// Client is a paho wrapper that adds subscription replay across reconnects,
// a retained online/offline status pair on breeze/system/status, panic-safe
// handler dispatch and bounded token waits. All methods are safe for
// concurrent use. Construct with Connect.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	mu           sync.RWMutex
	connected    bool
	onConnect    func()
	onDisconnect func(error)
	log          Logger
}

// Connect dials the configured broker and returns a ready client.
//
// The session auto-reconnects with backoff between the configured initial
// and maximum delays. Every reconnect replays tracked subscriptions and
// republishes the retained online status, so consumers never observe a
// silently resurrected daemon.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleConnectionLost(err) })

	c.client = pahomqtt.NewClient(opts)

	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: %s:%d did not answer within %v",
			ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// handleConnect fires on paho's goroutine and may not have run yet;
	// flag the session here so the client is usable as soon as we return.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

// handleConnect runs on every connect and reconnect: flag the session,
// replay subscriptions, announce presence, then invoke the user callback.
func (c *Client) handleConnect() {
	c.mu.Lock()
	c.connected = true
	fn := c.onConnect
	c.mu.Unlock()

	c.restoreSubscriptions()
	c.announceOnline()

	if fn != nil {
		fn()
	}
}

// handleConnectionLost clears the session flag and notifies the user
// callback. Logging is left to the callback so the owner picks severity.
func (c *Client) handleConnectionLost(err error) {
	c.mu.Lock()
	c.connected = false
	fn := c.onDisconnect
	c.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}

// restoreSubscriptions re-registers every tracked topic with the broker.
// The table is snapshotted first so the lock is never held across a token
// wait.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	subs := make([]subscription, 0, len(c.subscriptions))
	for _, s := range c.subscriptions {
		subs = append(subs, s)
	}
	c.subMu.RUnlock()

	for _, s := range subs {
		token := c.client.Subscribe(s.topic, s.qos, c.wrapHandler(s.handler))
		if err := waitToken(token, ErrSubscribeFailed); err != nil {
			c.logger().Warn("failed to restore subscription", "topic", s.topic, "error", err)
		}
	}
}

// announceOnline publishes the retained online status that pairs with the
// offline LWT registered at connect time.
func (c *Client) announceOnline() {
	payload := buildOnlinePayload(c.cfg.Broker.ClientID)
	token := c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
	if err := waitToken(token, ErrPublishFailed); err != nil {
		c.logger().Warn("failed to publish online status", "error", err)
	}
}

// Close publishes a graceful offline status and disconnects. Safe to call
// on a client that never connected.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		payload := buildOfflinePayload(c.cfg.Broker.ClientID)
		token := c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
		// Best effort: the LWT covers the case where this never lands.
		token.WaitTimeout(opTimeout)
	}

	c.client.Disconnect(disconnectQuiesceMs)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	return nil
}

// HealthCheck reports whether the broker session is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the client holds a live broker session. Both
// the client's own flag and paho's view must agree, since paho reports
// connected while its auto-reconnect is still in flight.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	flagged := c.connected
	c.mu.RUnlock()

	return flagged && c.client != nil && c.client.IsConnected()
}

// SetOnConnect registers a callback invoked after every successful connect
// or reconnect, once subscriptions have been replayed.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback invoked when the broker session
// drops unexpectedly. Not invoked by Close.
func (c *Client) SetOnDisconnect(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// SetLogger routes client diagnostics to the given logger. Without one the
// client stays silent.
func (c *Client) SetLogger(l Logger) {
	c.mu.Lock()
	c.log = l
	c.mu.Unlock()
}

func (c *Client) logger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.log == nil {
		return noopLogger{}
	}
	return c.log
}

// noopLogger discards diagnostics when no logger has been set.
type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// wrapHandler adapts a MessageHandler to paho's callback shape. A panic in
// a handler must not kill paho's dispatch goroutine, so it is recovered
// and logged instead.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger().Error("recovered panic in MQTT handler",
					"topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger().Warn("MQTT message handler failed",
				"topic", msg.Topic(), "error", err)
		}
	}
}

// waitToken blocks on a paho token with the package operation timeout and
// folds the outcome into the given sentinel.
func waitToken(token pahomqtt.Token, sentinel error) error {
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("%w: timed out after %v", sentinel, opTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}
