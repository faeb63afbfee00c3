package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/breezehub/breeze-core/internal/fan"
	"github.com/breezehub/breeze-core/internal/infrastructure/mqtt"
	"github.com/breezehub/breeze-core/internal/sensor"
)

// Availability payloads, retained per fan. Plain strings rather than JSON:
// this is the convention MQTT fan consumers expect on availability topics.
const (
	availabilityOnline  = "online"
	availabilityOffline = "offline"
)

// MQTTClient is the slice of broker functionality the bridge uses.
// Tests substitute a recording fake; production hands in an adapter
// over the infrastructure client.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	IsConnected() bool
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SensorBinding ties a fan to the MQTT topic its power sensor reports on.
type SensorBinding struct {
	FanID string
	Topic string
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Registry holds the fan entities the bridge serves.
	Registry *fan.Registry

	// MQTTClient carries command and state traffic. Required.
	MQTTClient MQTTClient

	// Sensors lists the power sensor topics to watch, if any.
	Sensors []SensorBinding

	// Logger is optional structured logging.
	Logger Logger
}

// Bridge relays fan state to the broker and broker commands to the fans.
// All methods may be called from any goroutine.
type Bridge struct {
	registry *fan.Registry
	mqtt     MQTTClient
	watcher  *sensor.Watcher
	sensors  []SensorBinding
	logger   Logger

	// Bridge-level context, cancelled on Stop() so in-flight command
	// dispatches abort during shutdown.
	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once
}

// New creates a bridge instance. Call Start() to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("bridge: registry is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("bridge: MQTT client is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	return &Bridge{
		registry:  opts.Registry,
		mqtt:      opts.MQTTClient,
		watcher:   sensor.NewWatcher(opts.MQTTClient, logger),
		sensors:   opts.Sensors,
		logger:    logger,
		ctx:       ctx,
		ctxCancel: ctxCancel,
	}, nil
}

// Start subscribes to the command topics, wires the power sensors and marks
// every registered fan available with an initial retained state.
func (b *Bridge) Start() error {
	setTopic := mqtt.Topics{}.AllFanSets()
	if err := b.mqtt.Subscribe(setTopic, 1, b.handleSetMessage); err != nil {
		return fmt.Errorf("bridge: subscribing to fan commands: %w", err)
	}
	b.logger.Info("subscribed to fan commands", "topic", setTopic)

	for _, binding := range b.sensors {
		entity, err := b.registry.Get(binding.FanID)
		if err != nil {
			b.logger.Warn("power sensor bound to unknown fan",
				"fan_id", binding.FanID, "topic", binding.Topic)
			continue
		}
		target := entity
		err = b.watcher.Watch(binding.Topic, func(oldState, newState string) {
			target.HandlePowerEvent(b.ctx, oldState, newState)
		})
		if err != nil {
			return fmt.Errorf("bridge: watching power sensor for %s: %w", binding.FanID, err)
		}
	}

	for _, entity := range b.registry.List() {
		b.publishAvailability(entity.ID(), availabilityOnline)
		b.publishState(entity.Snapshot())
	}

	b.logger.Info("fan bridge started",
		"fans", b.registry.Count(),
		"sensors", b.watcher.TopicCount())
	return nil
}

// Stop marks every fan unavailable and aborts in-flight command dispatches.
// Call before closing the MQTT client so the offline payloads still go out.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		for _, entity := range b.registry.List() {
			b.publishAvailability(entity.ID(), availabilityOffline)
		}
		b.logger.Info("fan bridge stopped")
	})
}

// NotifyStateChanged implements fan.Notifier: every entity transition is
// published as retained state.
func (b *Bridge) NotifyStateChanged(snapshot fan.Snapshot) {
	b.publishState(snapshot)
}

func (b *Bridge) publishState(snapshot fan.Snapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		b.logger.Error("marshalling fan state failed", "fan_id", snapshot.ID, "error", err)
		return
	}

	topic := mqtt.Topics{}.FanState(snapshot.ID)
	if err := b.mqtt.Publish(topic, payload, 1, true); err != nil {
		b.logger.Warn("publishing fan state failed", "fan_id", snapshot.ID, "error", err)
	}
}

func (b *Bridge) publishAvailability(fanID, status string) {
	topic := mqtt.Topics{}.FanAvailability(fanID)
	if err := b.mqtt.Publish(topic, []byte(status), 1, true); err != nil {
		b.logger.Warn("publishing fan availability failed",
			"fan_id", fanID, "status", status, "error", err)
	}
}

// Metrics contains bridge metrics for the API metrics endpoint.
type Metrics struct {
	Connected      bool
	FansManaged    int
	SensorsWatched int
}

// GetMetrics returns current bridge metrics.
func (b *Bridge) GetMetrics() Metrics {
	return Metrics{
		Connected:      b.mqtt.IsConnected(),
		FansManaged:    b.registry.Count(),
		SensorsWatched: b.watcher.TopicCount(),
	}
}
