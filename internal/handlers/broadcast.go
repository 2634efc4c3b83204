package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

// BroadcastHandler pushes labeled events to connected operator clients over
// WebSocket. Delivery is best effort: a slow or dead client is evicted, never
// waited on, so broadcasting cannot stall the handler chain.
type BroadcastHandler struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*broadcastClient

	clientSeq int64
}

// send is never closed: pipeline workers fan out to it concurrently, so
// eviction is signaled through done instead.
type broadcastClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewBroadcastHandler creates a BroadcastHandler with no connected clients.
func NewBroadcastHandler(logger *slog.Logger) *BroadcastHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BroadcastHandler{
		logger: logger.With("component", "broadcast"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients: make(map[string]*broadcastClient),
	}
}

func (h *BroadcastHandler) Name() string { return "broadcast" }

// Handle serializes the event once and fans it out to every connected
// client. Returns the number of clients reached.
func (h *BroadcastHandler) Handle(ctx context.Context, ev *events.LabeledEvent) (any, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	h.mu.RLock()
	targets := make([]*broadcastClient, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		select {
		case <-c.done:
			// Evicted by a concurrent fanout or a read error; skip.
		case c.send <- payload:
			delivered++
		default:
			// Send buffer full: the client cannot keep up with the stream.
			h.logger.Warn("evicting slow client", "client_id", c.id)
			h.evict(c)
		}
	}

	return delivered, nil
}

// ServeHTTP upgrades the request to a WebSocket connection and registers the
// client for the event stream.
func (h *BroadcastHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	h.mu.Lock()
	h.clientSeq++
	c := &broadcastClient{
		id:   fmt.Sprintf("client-%d", h.clientSeq),
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Info("client connected", "client_id", c.id, "remote_addr", conn.RemoteAddr().String())

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *BroadcastHandler) writeLoop(c *broadcastClient) {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("write failed", "client_id", c.id, "error", err)
				h.evict(c)
				return
			}
		}
	}
}

// readLoop drains inbound frames so control messages are processed and
// detects client disconnects.
func (h *BroadcastHandler) readLoop(c *broadcastClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.evict(c)
			return
		}
	}
}

// evict unregisters the client and signals its writeLoop to exit. Map
// presence under the mutex makes eviction idempotent, so concurrent fanouts
// and the read loop can all race to it safely.
func (h *BroadcastHandler) evict(c *broadcastClient) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.done)
	}
	h.mu.Unlock()
}

// ClientCount reports the number of connected clients.
func (h *BroadcastHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *BroadcastHandler) Close() {
	h.mu.Lock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.done)
	}
	h.mu.Unlock()
}
