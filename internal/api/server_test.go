package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/breezehub/breeze-core/internal/bridge"
	"github.com/breezehub/breeze-core/internal/fan"
	"github.com/breezehub/breeze-core/internal/infrastructure/config"
	"github.com/breezehub/breeze-core/internal/infrastructure/logging"
	"github.com/breezehub/breeze-core/internal/profile"
)

// ─── Fixtures ──────────────────────────────────────────────────────

// stubController records transmitted payloads without touching hardware.
type stubController struct {
	mu   sync.Mutex
	sent []profile.CommandPayload
}

func (c *stubController) Send(_ context.Context, payload profile.CommandPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, payload)
	return nil
}

func (c *stubController) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *stubController) lastPacket() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1].Packets[0]
}

// stubHistory satisfies StateHistory with canned entries.
type stubHistory struct {
	entries   []fan.StateHistoryEntry
	err       error
	lastFanID string
	lastLimit int
}

func (s *stubHistory) GetHistory(_ context.Context, fanID string, limit int) ([]fan.StateHistoryEntry, error) {
	s.lastFanID = fanID
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

// stubBridgeMetrics satisfies BridgeMetricsProvider.
type stubBridgeMetrics struct {
	metrics bridge.Metrics
}

func (s stubBridgeMetrics) GetMetrics() bridge.Metrics { return s.metrics }

// testProfile is a three-speed profile with direction and oscillation
// support, using marker packets so assertions can name the exact command.
func testProfile() *profile.Profile {
	direct := func(packet string) profile.CommandNode {
		return profile.CommandNode{Payload: &profile.CommandPayload{Packets: []string{packet}}}
	}
	block := func(packets map[string]string) profile.CommandNode {
		bySpeed := make(map[string]profile.CommandPayload, len(packets))
		for speed, packet := range packets {
			bySpeed[speed] = profile.CommandPayload{Packets: []string{packet}}
		}
		return profile.CommandNode{BySpeed: bySpeed}
	}

	return &profile.Profile{
		Manufacturer:        "Hunter",
		SupportedModels:     []string{"Original"},
		SupportedController: "MQTT",
		CommandsEncoding:    "Raw",
		Speeds:              []string{"low", "medium", "high"},
		Commands: profile.CommandSet{
			"off":       direct("OFF"),
			"oscillate": direct("OSC"),
			"forward": block(map[string]string{
				"low": "FWD-LOW", "medium": "FWD-MED", "high": "FWD-HIGH",
			}),
			"reverse": block(map[string]string{
				"low": "REV-LOW", "medium": "REV-MED", "high": "REV-HIGH",
			}),
		},
	}
}

// basicProfile has neither direction nor oscillation support.
func basicProfile() *profile.Profile {
	return &profile.Profile{
		Manufacturer:        "Sonte",
		SupportedController: "Broadlink",
		CommandsEncoding:    "Base64",
		Speeds:              []string{"low", "high"},
		Commands: profile.CommandSet{
			"off": profile.CommandNode{Payload: &profile.CommandPayload{Packets: []string{"SON-OFF"}}},
			"default": profile.CommandNode{BySpeed: map[string]profile.CommandPayload{
				"low":  {Packets: []string{"SON-LOW"}},
				"high": {Packets: []string{"SON-HIGH"}},
			}},
		},
	}
}

// testServer creates a Server with an empty fan registry and an initialised hub.
func testServer(t *testing.T) (*Server, *fan.Registry) {
	t.Helper()

	registry := fan.NewRegistry()
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:   log,
		Registry: registry,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests that exercise broadcast paths
	srv.hub = NewHub(srv.wsCfg, log)

	return srv, registry
}

// addTestFan registers a fan backed by a recording controller.
func addTestFan(t *testing.T, registry *fan.Registry, id string, p *profile.Profile) *stubController {
	t.Helper()

	ctrl := &stubController{}
	entity, err := fan.New(
		fan.Config{ID: id, Name: "Test Fan", DeviceCode: 1080},
		fan.Deps{Profile: p, Controller: ctrl},
	)
	if err != nil {
		t.Fatalf("fan.New() error: %v", err)
	}
	if err := registry.Add(entity); err != nil {
		t.Fatalf("registry.Add() error: %v", err)
	}
	return ctrl
}

// doJSON performs a request against the router and returns the recorder.
func doJSON(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ─── Health and Middleware ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(router, http.MethodGet, "/api/v1/system/health", "")

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestRequestIDGenerated(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(router, http.MethodGet, "/api/v1/system/health", "")

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestIDPreservesClient(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/system/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestNotFoundRoute(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(router, http.MethodGet, "/api/v1/nonexistent", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Authentication ────────────────────────────────────────────────

func TestAuthDisabled(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(router, http.MethodGet, "/api/v1/fans", "")

	if w.Code != http.StatusOK {
		t.Errorf("status without token = %d, want %d (auth disabled)", w.Code, http.StatusOK)
	}
}

func TestAuthToken(t *testing.T) {
	srv, _ := testServer(t)
	srv.cfg.AuthToken = "test-token-0123456789abcdef"
	router := srv.buildRouter()

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{"missing token", "", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", "", http.StatusUnauthorized},
		{"valid header", "Bearer test-token-0123456789abcdef", "", http.StatusOK},
		{"valid query param", "", "?token=test-token-0123456789abcdef", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/fans"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestAuthSkipsSystemEndpoints(t *testing.T) {
	srv, _ := testServer(t)
	srv.cfg.AuthToken = "test-token-0123456789abcdef"
	router := srv.buildRouter()

	for _, path := range []string{"/api/v1/system/health", "/api/v1/system/metrics", "/api/v1/system/info"} {
		w := doJSON(router, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want %d (system routes are open)", path, w.Code, http.StatusOK)
		}
	}
}

// ─── System Endpoints ──────────────────────────────────────────────

func TestSystemInfo(t *testing.T) {
	srv, _ := testServer(t)
	srv.commit = "abc1234"
	router := srv.buildRouter()

	w := doJSON(router, http.MethodGet, "/api/v1/system/info", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var info SystemInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if info.Version != "test" {
		t.Errorf("version = %q, want test", info.Version)
	}
	if info.Commit != "abc1234" {
		t.Errorf("commit = %q, want abc1234", info.Commit)
	}
	if info.GoVersion == "" {
		t.Error("go_version is empty")
	}
	if info.UptimeSeconds < 0 {
		t.Errorf("uptime_seconds = %d, want >= 0", info.UptimeSeconds)
	}
}

func TestSystemMetrics(t *testing.T) {
	srv, registry := testServer(t)
	addTestFan(t, registry, "bedroom_fan", testProfile())
	srv.bridgeMetrics = stubBridgeMetrics{metrics: bridge.Metrics{
		Connected:      true,
		FansManaged:    1,
		SensorsWatched: 2,
	}}
	router := srv.buildRouter()

	w := doJSON(router, http.MethodGet, "/api/v1/system/metrics", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var metrics SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if metrics.Runtime.Goroutines <= 0 {
		t.Errorf("goroutines = %d, want > 0", metrics.Runtime.Goroutines)
	}
	if metrics.Fans.Total != 1 {
		t.Errorf("fans.total = %d, want 1", metrics.Fans.Total)
	}
	if metrics.Fans.Off != 1 {
		t.Errorf("fans.off = %d, want 1", metrics.Fans.Off)
	}
	if metrics.Bridge == nil {
		t.Fatal("bridge metrics missing")
	}
	if !metrics.Bridge.Connected || metrics.Bridge.SensorsWatched != 2 {
		t.Errorf("bridge = %+v, want connected with 2 sensors", metrics.Bridge)
	}
	if metrics.MQTT.Connected {
		t.Error("mqtt.connected = true, want false (no client configured)")
	}
}

// ─── WebSocket ─────────────────────────────────────────────────────

// dialWebSocket connects to the test server's WebSocket endpoint.
func dialWebSocket(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestWebSocketSubscribeAndBroadcast(t *testing.T) {
	srv, _ := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	ws := dialWebSocket(t, ts)

	// Subscribe to the fan state channel
	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{ChannelFanState}},
	}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WSMessage
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read subscribe response: %v", err)
	}
	if resp.Type != WSTypeResponse || resp.ID != "sub-1" {
		t.Errorf("subscribe response = (%s, %s), want (response, sub-1)", resp.Type, resp.ID)
	}
	if srv.hub.ClientCount() != 1 {
		t.Errorf("hub client count = %d, want 1", srv.hub.ClientCount())
	}

	// A broadcast on the subscribed channel reaches the client
	srv.hub.Broadcast(ChannelFanState, map[string]any{"id": "bedroom_fan", "state": "on"})

	var event WSMessage
	if err := ws.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != WSTypeEvent || event.EventType != ChannelFanState {
		t.Errorf("event = (%s, %s), want (event, %s)", event.Type, event.EventType, ChannelFanState)
	}
	payload, ok := event.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T, want map", event.Payload)
	}
	if payload["id"] != "bedroom_fan" {
		t.Errorf("payload id = %v, want bedroom_fan", payload["id"])
	}
}

func TestWebSocketPing(t *testing.T) {
	srv, _ := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	ws := dialWebSocket(t, ts)

	if err := ws.WriteJSON(WSMessage{Type: WSTypePing, ID: "ping-1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WSMessage
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if resp.Type != WSTypePong || resp.ID != "ping-1" {
		t.Errorf("response = (%s, %s), want (pong, ping-1)", resp.Type, resp.ID)
	}
}

func TestWebSocketInvalidMessage(t *testing.T) {
	srv, _ := testServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(ts.Close)

	ws := dialWebSocket(t, ts)

	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write invalid message: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WSMessage
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("read error response: %v", err)
	}
	if resp.Type != WSTypeError {
		t.Errorf("response type = %s, want error", resp.Type)
	}
}

// ─── State Relay ───────────────────────────────────────────────────

func TestRelayStateMessage(t *testing.T) {
	srv, _ := testServer(t)

	client := &WSClient{
		hub:           srv.hub,
		send:          make(chan []byte, 4),
		subscriptions: map[string]struct{}{ChannelFanState: {}},
	}
	srv.hub.Register(client)

	payload := `{"id": "bedroom_fan", "state": "on", "percentage": 66, "speed": "medium"}`
	srv.relayStateMessage("breeze/fan/bedroom_fan/state", []byte(payload))

	select {
	case data := <-client.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if msg.EventType != ChannelFanState {
			t.Errorf("event type = %q, want %q", msg.EventType, ChannelFanState)
		}
		snap, ok := msg.Payload.(map[string]any)
		if !ok {
			t.Fatalf("payload type = %T, want map", msg.Payload)
		}
		if snap["id"] != "bedroom_fan" {
			t.Errorf("payload id = %v, want bedroom_fan", snap["id"])
		}
	default:
		t.Fatal("no broadcast delivered to subscribed client")
	}
}

func TestRelayStateMessageMalformed(t *testing.T) {
	srv, _ := testServer(t)

	client := &WSClient{
		hub:           srv.hub,
		send:          make(chan []byte, 4),
		subscriptions: map[string]struct{}{ChannelFanState: {}},
	}
	srv.hub.Register(client)

	srv.relayStateMessage("breeze/fan/bedroom_fan/state", []byte("{broken"))
	srv.relayStateMessage("breeze/fan/bedroom_fan/state", []byte(`{"state": "on"}`)) // no id

	select {
	case <-client.send:
		t.Fatal("malformed state message should not be broadcast")
	default:
	}
}
