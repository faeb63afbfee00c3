package sensor

import (
	"errors"
	"sync"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"lowercase on", "on", StateOn},
		{"uppercase on", "ON", StateOn},
		{"mixed case off", "Off", StateOff},
		{"numeric on", "1", StateOn},
		{"numeric off", "0", StateOff},
		{"boolean on", "true", StateOn},
		{"boolean off", "FALSE", StateOff},
		{"padded", "  on\n", StateOn},
		{"json envelope on", `{"state": "ON"}`, StateOn},
		{"json envelope off", `{"state": "off"}`, StateOff},
		{"json envelope numeric", `{"state": "1"}`, StateOn},
		{"json without state key", `{"power": "on"}`, StateUnknown},
		{"malformed json", `{"state": `, StateUnknown},
		{"unrecognised word", "standby", StateUnknown},
		{"empty", "", StateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize([]byte(tt.payload)); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.payload, got, tt.want)
			}
		})
	}
}

// fakeSubscriber records subscriptions and lets tests inject payloads
// through the registered handlers.
type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]func(topic string, payload []byte)
	err      error
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]func(topic string, payload []byte))}
}

func (s *fakeSubscriber) Subscribe(topic string, _ byte, handler func(topic string, payload []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.handlers[topic] = handler
	return nil
}

func (s *fakeSubscriber) deliver(topic string, payload string) {
	s.mu.Lock()
	handler := s.handlers[topic]
	s.mu.Unlock()
	if handler != nil {
		handler(topic, []byte(payload))
	}
}

func (s *fakeSubscriber) subscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

type transition struct {
	old string
	new string
}

func TestWatcherDeliversTransitions(t *testing.T) {
	sub := newFakeSubscriber()
	watcher := NewWatcher(sub, nil)

	var mu sync.Mutex
	var seen []transition
	err := watcher.Watch("plug/fan/state", func(oldState, newState string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, transition{old: oldState, new: newState})
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	sub.deliver("plug/fan/state", "ON")
	sub.deliver("plug/fan/state", "ON")
	sub.deliver("plug/fan/state", "off")

	mu.Lock()
	defer mu.Unlock()
	want := []transition{
		{old: "", new: StateOn},
		{old: StateOn, new: StateOn},
		{old: StateOn, new: StateOff},
	}
	if len(seen) != len(want) {
		t.Fatalf("delivered %d transitions, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition[%d] = %+v, want %+v", i, seen[i], want[i])
		}
	}
}

func TestWatcherSkipsEmptyPayloads(t *testing.T) {
	sub := newFakeSubscriber()
	watcher := NewWatcher(sub, nil)

	var mu sync.Mutex
	var calls int
	if err := watcher.Watch("plug/fan/state", func(string, string) {
		mu.Lock()
		calls++
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	sub.deliver("plug/fan/state", "")
	sub.deliver("plug/fan/state", "  \n")

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("delivered %d transitions for empty payloads, want 0", calls)
	}
}

func TestWatcherTracksUnknown(t *testing.T) {
	sub := newFakeSubscriber()
	watcher := NewWatcher(sub, nil)

	var mu sync.Mutex
	var seen []transition
	if err := watcher.Watch("plug/fan/state", func(oldState, newState string) {
		mu.Lock()
		seen = append(seen, transition{old: oldState, new: newState})
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	sub.deliver("plug/fan/state", "standby")
	sub.deliver("plug/fan/state", "on")

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("delivered %d transitions, want 2", len(seen))
	}
	if seen[0] != (transition{old: "", new: StateUnknown}) {
		t.Errorf("transition[0] = %+v, want unknown delivered", seen[0])
	}
	if seen[1] != (transition{old: StateUnknown, new: StateOn}) {
		t.Errorf("transition[1] = %+v, want unknown as previous state", seen[1])
	}
}

func TestWatcherSharedTopic(t *testing.T) {
	sub := newFakeSubscriber()
	watcher := NewWatcher(sub, nil)

	var mu sync.Mutex
	var first, second int
	if err := watcher.Watch("plug/shared/state", func(string, string) {
		mu.Lock()
		first++
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := watcher.Watch("plug/shared/state", func(string, string) {
		mu.Lock()
		second++
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if sub.subscriptionCount() != 1 {
		t.Errorf("broker subscriptions = %d, want 1 for a shared topic", sub.subscriptionCount())
	}
	if watcher.TopicCount() != 1 {
		t.Errorf("TopicCount() = %d, want 1", watcher.TopicCount())
	}

	sub.deliver("plug/shared/state", "on")

	mu.Lock()
	defer mu.Unlock()
	if first != 1 || second != 1 {
		t.Errorf("callbacks fired (%d, %d) times, want (1, 1)", first, second)
	}
}

func TestWatcherValidation(t *testing.T) {
	watcher := NewWatcher(newFakeSubscriber(), nil)

	if err := watcher.Watch("", func(string, string) {}); err == nil {
		t.Error("Watch() = nil error for empty topic, want error")
	}
	if err := watcher.Watch("plug/fan/state", nil); err == nil {
		t.Error("Watch() = nil error for nil callback, want error")
	}
}

func TestWatcherSubscribeFailure(t *testing.T) {
	sub := newFakeSubscriber()
	sub.err = errors.New("not connected")
	watcher := NewWatcher(sub, nil)

	if err := watcher.Watch("plug/fan/state", func(string, string) {}); err == nil {
		t.Fatal("Watch() = nil error, want subscribe failure")
	}
	if watcher.TopicCount() != 0 {
		t.Errorf("TopicCount() = %d after failed subscribe, want 0", watcher.TopicCount())
	}

	// A later retry succeeds and subscribes the topic.
	sub.err = nil
	if err := watcher.Watch("plug/fan/state", func(string, string) {}); err != nil {
		t.Fatalf("Watch() retry error = %v", err)
	}
	if sub.subscriptionCount() != 1 {
		t.Errorf("broker subscriptions = %d, want 1", sub.subscriptionCount())
	}
}
