// Package realtime carries the JSON event envelope over websocket connections.
package realtime

import (
	"context"
	"sync"

	"handyhub/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ConnInfo identifies a live connection. PartyID and Role are set only when the socket was opened
// with a valid token.
type ConnInfo struct {
	ID      string
	PartyID string
	Role    models.Role
}

// Authenticated reports whether the connection carries a verified identity.
func (i ConnInfo) Authenticated() bool {
	return i.PartyID != ""
}

// Dispatcher handles the frames read from a connection, one at a time and in order.
type Dispatcher interface {
	Dispatch(ctx context.Context, conn ConnInfo, event models.SocketEvent)
	Disconnect(connectionID string)
}

// Hub owns every live websocket connection and implements notification.Sender.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	logger *zap.Logger
	limit  rate.Limit
	burst  int
}

// NewHub returns an empty hub. Each connection may send eventsPerSec frames per second with
// bursts of burst; a non-positive rate disables the limit.
func NewHub(logger *zap.Logger, eventsPerSec float64, burst int) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if eventsPerSec > 0 {
		limit = rate.Limit(eventsPerSec)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		limit:   limit,
		burst:   burst,
	}
}

// NewConnectionID returns a fresh connection identifier.
func NewConnectionID() string {
	return uuid.New().String()
}

// Serve runs conn until it closes or ctx is done. Frames are dispatched synchronously from the
// read loop; writes happen on a separate goroutine.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, info ConnInfo, d Dispatcher) {
	if info.ID == "" {
		info.ID = NewConnectionID()
	}
	c := newClient(h, conn, info)

	h.mu.Lock()
	h.clients[info.ID] = c
	h.mu.Unlock()
	h.logger.Info("Socket connected",
		zap.String("connectionId", info.ID),
		zap.String("partyId", info.PartyID),
		zap.String("role", string(info.Role)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		c.close()
	}()
	go c.writePump()

	c.readPump(ctx, d)

	h.mu.Lock()
	if h.clients[info.ID] == c {
		delete(h.clients, info.ID)
	}
	h.mu.Unlock()
	c.close()
	d.Disconnect(info.ID)
	h.logger.Info("Socket disconnected", zap.String("connectionId", info.ID))
}

// Send queues event for connectionID. It reports false when the connection is gone or its
// outbound buffer is full.
func (h *Hub) Send(connectionID string, event models.OutboundEvent) bool {
	h.mu.RLock()
	c, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return c.enqueue(event)
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every connection; their Serve calls return shortly after.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}
