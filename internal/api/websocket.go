package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/breezehub/breeze-core/internal/fan"
	"github.com/breezehub/breeze-core/internal/infrastructure/mqtt"
	"github.com/breezehub/breeze-core/internal/profile"
)

// Message types spoken over the WebSocket endpoint.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// ChannelFanState is the broadcast channel carrying fan snapshots.
const ChannelFanState = "fan.state_changed"

// wsSendBufferSize caps the per-client outbound queue. Once it fills,
// further events for that client are dropped until it drains.
const wsSendBufferSize = 256

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload names the channels a subscribe or unsubscribe
// frame applies to.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// upgrader performs the HTTP to WebSocket handshake. Origins are not
// filtered here; the CORS middleware has already vetted them.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// handleWebSocket upgrades the request and hands the connection to the
// hub. Authentication already happened in the middleware chain.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	s.hub.Register(client)

	go client.writeLoop()
	go client.readLoop()
}

// subscribeStateUpdates subscribes to the retained fan state topics the
// bridge publishes and relays every change to WebSocket clients and the
// telemetry writer.
func (s *Server) subscribeStateUpdates() error {
	if s.mqtt == nil {
		return nil // MQTT not configured; WebSocket relay disabled
	}

	topic := mqtt.Topics{}.AllFanStates()
	s.logger.Info("subscribing to fan state for WebSocket relay", "topic", topic)
	return s.mqtt.Subscribe(topic, 1, func(t string, payload []byte) error {
		s.relayStateMessage(t, payload)
		return nil
	})
}

// relayStateMessage fans a bus state publication out to the WebSocket hub
// and InfluxDB. History is not written here: the entity records its own
// transitions with accurate sources, and this relay sees the same events
// echoed back through the broker.
func (s *Server) relayStateMessage(topic string, payload []byte) {
	var snap fan.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		s.logger.Warn("failed to parse fan state for WebSocket broadcast",
			"topic", topic, "error", err)
		return
	}
	if snap.ID == "" {
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(ChannelFanState, snap)
	}

	s.writeStateTelemetry(snap)
}

// writeStateTelemetry records numeric gauges derived from a snapshot.
func (s *Server) writeStateTelemetry(snap fan.Snapshot) {
	if s.influx == nil {
		return
	}

	running := 0.0
	if snap.State == fan.StateOn {
		running = 1.0
	}
	s.influx.WriteFanMetric(snap.ID, "running", running)

	if snap.Percentage != nil {
		s.influx.WriteFanMetric(snap.ID, "percentage", float64(*snap.Percentage))
	}

	if snap.Oscillating != nil {
		oscillating := 0.0
		if *snap.Oscillating {
			oscillating = 1.0
		}
		s.influx.WriteFanMetric(snap.ID, "oscillating", oscillating)
	}

	if snap.Direction != "" {
		forward := 0.0
		if snap.Direction == profile.DirectionForward {
			forward = 1.0
		}
		s.influx.WriteFanMetric(snap.ID, "direction_forward", forward)
	}
}
