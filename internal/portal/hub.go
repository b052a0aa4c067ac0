package portal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/muurk/wifictl/internal/logging"
	"github.com/muurk/wifictl/internal/metrics"
	"github.com/muurk/wifictl/internal/wifi"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Outgoing messages buffered per client before it is dropped
	sendBuffer = 16
)

// Hub tracks connected portal clients and fans manager events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	wg      sync.WaitGroup

	handler  *Handler
	recorder *metrics.Recorder
	limit    rate.Limit
	burst    int
	log      *zap.Logger
}

// NewHub creates a hub dispatching requests to handler. A zero limit
// disables rate limiting. recorder may be nil.
func NewHub(handler *Handler, limit rate.Limit, burst int, recorder *metrics.Recorder, log *zap.Logger) *Hub {
	if log == nil {
		log = logging.Named("portal")
	}
	if burst <= 0 {
		burst = 1
	}
	return &Hub{
		clients:  make(map[*client]struct{}),
		handler:  handler,
		recorder: recorder,
		limit:    limit,
		burst:    burst,
		log:      log,
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Observe broadcasts a manager event to every client. It satisfies
// wifi.Observer.
func (h *Hub) Observe(ev wifi.Event) {
	h.Broadcast(eventMessage(ev))
}

// Broadcast queues msg for every client. Clients whose queue is full are
// disconnected.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("Failed to encode broadcast", zap.String("status", msg.Status), zap.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("Client send queue full, disconnecting", zap.String("remote_addr", c.remoteAddr))
		_ = c.conn.Close()
	}
}

// Serve runs a client on an upgraded connection and blocks until it
// disconnects.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) {
	c := &client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		remoteAddr: conn.RemoteAddr().String(),
	}
	if h.limit > 0 {
		c.limiter = rate.NewLimiter(h.limit, h.burst)
	}

	h.register(c)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()

	c.enqueue(event(TargetSystem, "ws_ready", nil))
	c.readPump(ctx)
}

// Close disconnects every client and waits for their writers to exit.
func (h *Hub) Close(ctx context.Context) {
	h.mu.RLock()
	for c := range h.clients {
		logging.Info("Closing active connection", zap.String("remote_addr", c.remoteAddr))
		_ = c.conn.Close()
	}
	h.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		h.log.Warn("Timed out waiting for portal clients to close")
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	if h.recorder != nil {
		h.recorder.PortalClientConnected(1)
	}
	logging.LogConnection(c.remoteAddr, "websocket_upgraded")
	h.log.Debug("Portal client registered", zap.Int("clients", n))
}

// unregister is called once, by the client's reader. Closing send under
// the write lock keeps Broadcast from sending on a closed channel.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if h.recorder != nil {
		h.recorder.PortalClientConnected(-1)
	}
	logging.LogConnection(c.remoteAddr, "websocket_closed")
}

type client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	limiter    *rate.Limiter
}

func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log := c.hub.log
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("Connection closed or error reading frame",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
			} else {
				log.Debug("Connection closed by client", zap.String("remote_addr", c.remoteAddr))
			}
			return
		}
		if kind != websocket.TextMessage {
			log.Warn("Received frame with unsupported type",
				zap.String("remote_addr", c.remoteAddr),
				zap.Int("type", kind),
			)
			continue
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.enqueue(c.process(ctx, data))
	}
}

func (c *client) process(ctx context.Context, data []byte) Message {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		// The frame may carry a password that cannot be redacted unparsed.
		c.hub.log.Warn("JSON parse error",
			zap.String("remote_addr", c.remoteAddr),
			zap.Int("length", len(data)),
			zap.Error(err),
		)
		return response(TargetSystem, "error_json", "invalid json")
	}
	logging.LogPortalMessage(c.remoteAddr, "received", redact(msg))

	if c.hub.recorder != nil {
		c.hub.recorder.PortalMessage(actionLabel(msg))
	}
	if c.limiter != nil && !c.limiter.Allow() {
		if c.hub.recorder != nil {
			c.hub.recorder.PortalThrottled()
		}
		target := msg.Target
		if target == "" {
			target = TargetSystem
		}
		return response(target, "error_rate_limited", "too many requests")
	}
	return c.hub.handler.Handle(ctx, msg)
}

// actionLabel bounds the metric label set to the known actions.
func actionLabel(msg Message) string {
	switch msg.Action {
	case ActionScanStart, ActionScanResult, ActionConnect, ActionDisconnect, ActionStatus,
		ActionConfig, ActionStart, ActionStop, ActionAutoReconnect, ActionPing,
		ActionReboot, ActionReset:
		return msg.Action
	}
	return "other"
}

// enqueue queues a reply for this client, dropping it if the queue is full.
func (c *client) enqueue(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Error("Failed to encode response", zap.String("status", msg.Status), zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.log.Warn("Client send queue full, dropping response",
			zap.String("remote_addr", c.remoteAddr),
			zap.String("status", msg.Status),
		)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.log.Debug("Failed to send message",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
				return
			}
			logging.LogPortalMessage(c.remoteAddr, "sent", data)
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// redact re-encodes a request with any password replaced.
func redact(msg Message) []byte {
	if hasData(msg.Data) {
		var fields map[string]interface{}
		if err := json.Unmarshal(msg.Data, &fields); err == nil {
			if _, ok := fields["password"]; ok {
				fields["password"] = "***"
				if raw, err := json.Marshal(fields); err == nil {
					msg.Data = raw
				}
			}
		}
	}
	out, _ := json.Marshal(msg)
	return out
}
