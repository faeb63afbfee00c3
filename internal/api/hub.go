package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/breezehub/breeze-core/internal/infrastructure/config"
	"github.com/breezehub/breeze-core/internal/infrastructure/logging"
)

// Hub tracks connected WebSocket clients and fans events out to them.
type Hub struct {
	cfg     config.WebSocketConfig
	log     *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient is one upgraded connection together with its channel filter
// and outbound queue.
type WSClient struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}
	mu            sync.RWMutex
}

// NewHub returns an empty hub. Clients arrive through Register once the
// HTTP handler has upgraded their connections.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		log:     logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then tears down every
// client so the write loops unwind.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.dropAll()
}

// Register adds a client to the roster.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("websocket client connected", "clients", h.ClientCount())
}

// Unregister removes a client. Whichever caller actually deletes the
// roster entry owns closing the send queue; a later duplicate call
// finds the entry gone and leaves the channel alone, so a read loop
// exiting can race hub shutdown without a double close.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, present := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if present {
		close(client.send)
	}
	h.log.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// Broadcast encodes one event and queues it for every client subscribed
// to the channel. The roster is copied out first so the hub lock and
// the per-client locks never nest.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.log.Error("cannot encode broadcast event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	roster := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		roster = append(roster, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range roster {
		if c.subscribedTo(channel) {
			c.enqueue(data)
			delivered++
		}
	}
	if delivered > 0 {
		h.log.Debug("event broadcast", "channel", channel, "recipients", delivered)
	}
}

// ClientCount reports how many clients are currently registered.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// dropAll disconnects every client and empties the roster.
func (h *Hub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// readLoop consumes frames from the peer until the connection dies. It
// owns deregistration, so whatever kills the read side tears the client
// down exactly once.
func (c *WSClient) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	idle := readIdleTimeout(c.hub.cfg)
	c.conn.SetReadLimit(int64(c.hub.cfg.MaxMessageSize))
	_ = c.conn.SetReadDeadline(time.Now().Add(idle))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("websocket read error", "error", err)
			} else {
				c.hub.log.Debug("websocket closed", "error", err)
			}
			return
		}
		// Inbound frames count as liveness too; some clients never
		// answer protocol-level pings.
		_ = c.conn.SetReadDeadline(time.Now().Add(idle))
		c.dispatch(data)
	}
}

// readIdleTimeout is how long a connection may stay silent before the
// read side gives up on it. A healthy peer answers a ping well inside
// one interval plus the pong grace.
func readIdleTimeout(cfg config.WebSocketConfig) time.Duration {
	return time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
}

// writeLoop drains the send queue onto the wire and keeps the
// connection alive with periodic pings.
func (c *WSClient) writeLoop() {
	writeWait := time.Duration(c.hub.cfg.PongTimeout) * time.Second
	pings := time.NewTicker(time.Duration(c.hub.cfg.PingInterval) * time.Second)
	defer func() {
		pings.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				// Queue closed by Unregister; say goodbye before
				// dropping the socket.
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-pings.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound frame.
func (c *WSClient) dispatch(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.replyError("", "malformed JSON")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.handleSubscribe(msg)
	case WSTypeUnsubscribe:
		c.handleUnsubscribe(msg)
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.replyError(msg.ID, "unrecognised message type: "+msg.Type)
	}
}

func (c *WSClient) handleSubscribe(msg WSMessage) {
	channels, err := decodeChannels(msg.Payload)
	if err != nil {
		c.replyError(msg.ID, "bad subscribe payload")
		return
	}

	c.mu.Lock()
	for _, ch := range channels {
		c.subscriptions[ch] = struct{}{}
	}
	c.mu.Unlock()

	c.hub.log.Info("websocket client subscribed", "channels", channels)
	c.reply(msg.ID, WSTypeResponse, map[string]any{"subscribed": channels})
}

func (c *WSClient) handleUnsubscribe(msg WSMessage) {
	channels, err := decodeChannels(msg.Payload)
	if err != nil {
		c.replyError(msg.ID, "bad unsubscribe payload")
		return
	}

	c.mu.Lock()
	for _, ch := range channels {
		delete(c.subscriptions, ch)
	}
	c.mu.Unlock()

	c.reply(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": channels})
}

// decodeChannels recovers the channel list from an already-decoded
// payload. The payload arrives as whatever the JSON decoder produced
// for an any-typed field, so it goes back through the codec rather
// than being walked by hand.
func decodeChannels(payload any) ([]string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var sub WSSubscribePayload
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, err
	}
	return sub.Channels, nil
}

// enqueue offers data to the write loop without blocking. Events for a
// client whose queue is full are dropped rather than stalling the
// broadcaster.
func (c *WSClient) enqueue(data []byte) {
	defer func() {
		// The queue can close between the roster snapshot and this
		// send; absorb the resulting panic.
		_ = recover()
	}()

	select {
	case c.send <- data:
	default:
	}
}

// subscribedTo reports whether the client asked for events on channel.
func (c *WSClient) subscribedTo(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}

// reply queues a direct message for this client only.
func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *WSClient) replyError(id, text string) {
	c.reply(id, WSTypeError, map[string]string{"message": text})
}
