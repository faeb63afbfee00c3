package sensor

import (
	"bytes"
	"fmt"
	"sync"
)

// Callback receives a power state transition: the previously delivered state
// for the topic (empty before the first reading) and the new state.
type Callback func(oldState, newState string)

// Subscriber is the slice of the MQTT client the watcher needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
}

// Logger defines the logging interface used by the sensor package.
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

// Watcher subscribes to power sensor topics and delivers normalised state
// transitions to registered callbacks. Several fans may watch the same topic;
// the broker subscription is made once.
type Watcher struct {
	subscriber Subscriber
	logger     Logger

	mu        sync.Mutex
	previous  map[string]string
	callbacks map[string][]Callback
}

// NewWatcher creates a watcher using the given subscriber.
func NewWatcher(subscriber Subscriber, logger Logger) *Watcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Watcher{
		subscriber: subscriber,
		logger:     logger,
		previous:   make(map[string]string),
		callbacks:  make(map[string][]Callback),
	}
}

// Watch registers a callback for a sensor topic. The first watch on a topic
// subscribes it on the broker; later watches only add callbacks.
func (w *Watcher) Watch(topic string, callback Callback) error {
	if topic == "" {
		return fmt.Errorf("sensor: topic is required")
	}
	if callback == nil {
		return fmt.Errorf("sensor: callback is required")
	}

	w.mu.Lock()
	_, subscribed := w.callbacks[topic]
	w.callbacks[topic] = append(w.callbacks[topic], callback)
	w.mu.Unlock()

	if subscribed {
		return nil
	}

	if err := w.subscriber.Subscribe(topic, 1, w.handleMessage); err != nil {
		w.mu.Lock()
		registered := w.callbacks[topic]
		if len(registered) <= 1 {
			delete(w.callbacks, topic)
		} else {
			w.callbacks[topic] = registered[:len(registered)-1]
		}
		w.mu.Unlock()
		return fmt.Errorf("sensor: subscribing %s: %w", topic, err)
	}

	w.logger.Debug("watching power sensor", "topic", topic)
	return nil
}

// TopicCount returns the number of distinct topics being watched.
func (w *Watcher) TopicCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.callbacks)
}

// handleMessage normalises an incoming payload and fans the transition out
// to the topic's callbacks. Empty payloads (a cleared retained message)
// carry no reading and are skipped without touching the tracked state.
func (w *Watcher) handleMessage(topic string, payload []byte) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return
	}

	state := Normalize(payload)
	if state == StateUnknown {
		w.logger.Debug("unrecognised sensor payload", "topic", topic, "payload", string(payload))
	}

	w.mu.Lock()
	old := w.previous[topic]
	w.previous[topic] = state
	callbacks := make([]Callback, len(w.callbacks[topic]))
	copy(callbacks, w.callbacks[topic])
	w.mu.Unlock()

	for _, callback := range callbacks {
		callback(old, state)
	}
}
