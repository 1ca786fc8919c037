package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"handyhub/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Client is one websocket connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	info    ConnInfo
	send    chan models.OutboundEvent
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
}

func newClient(h *Hub, conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{
		hub:     h,
		conn:    conn,
		info:    info,
		send:    make(chan models.OutboundEvent, sendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(h.limit, h.burst),
	}
}

func (c *Client) enqueue(event models.OutboundEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- event:
		return true
	case <-c.done:
		return false
	default:
		c.hub.logger.Warn("Socket send buffer full",
			zap.String("connectionId", c.info.ID),
			zap.String("event", event.Event))
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// readPump reads frames until the connection fails or is closed.
func (c *Client) readPump(ctx context.Context, d Dispatcher) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Info("Socket read failed", zap.String("connectionId", c.info.ID), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if !c.limiter.Allow() {
			c.enqueue(errorEvent("too many events, slow down"))
			continue
		}

		var event models.SocketEvent
		if err := json.Unmarshal(data, &event); err != nil || event.Event == "" {
			c.enqueue(errorEvent("malformed frame: expected {\"event\": name, \"data\": {...}}"))
			continue
		}
		d.Dispatch(ctx, c.info, event)
	}
}

// writePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.hub.logger.Info("Socket write failed", zap.String("connectionId", c.info.ID), zap.Error(err))
				}
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func errorEvent(msg string) models.OutboundEvent {
	return models.OutboundEvent{Event: models.EventError, Data: models.ErrorPayload{Message: msg}}
}
