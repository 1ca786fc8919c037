package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"handyhub/models"
	"handyhub/services/booking"
	"handyhub/services/realtime"
	"handyhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const eventTimeout = 15 * time.Second

var errMalformedData = errors.New("malformed event data")

// ChatService is the chat surface reachable from a socket.
type ChatService interface {
	SendMessage(ctx context.Context, connectionID string, in models.SendMessagePayload) (*models.ChatMessage, error)
	MarkAsRead(ctx context.Context, connectionID string, in models.MarkAsReadPayload) error
}

type eventHandler func(ctx context.Context, conn realtime.ConnInfo, data json.RawMessage) error

// SocketHandler upgrades HTTP requests to websockets and routes their frames to the booking and
// chat services.
type SocketHandler struct {
	hub          *realtime.Hub
	coordinator  booking.CoordinationService
	chat         ChatService
	authRequired bool
	upgrader     websocket.Upgrader
	logger       *zap.Logger
	baseCtx      context.Context
	handlers     map[string]eventHandler
}

// NewSocketHandler builds the handler. baseCtx bounds the lifetime of every connection.
func NewSocketHandler(
	baseCtx context.Context,
	hub *realtime.Hub,
	coordinator booking.CoordinationService,
	chat ChatService,
	authRequired bool,
	allowedOrigins []string,
	logger *zap.Logger,
) *SocketHandler {
	h := &SocketHandler{
		hub:          hub,
		coordinator:  coordinator,
		chat:         chat,
		authRequired: authRequired,
		logger:       logger,
		baseCtx:      baseCtx,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	h.handlers = h.eventHandlers()
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

// ServeWS handles GET /ws. A token may be passed as ?token= or a Bearer header; it is mandatory
// when socket auth is required.
func (h *SocketHandler) ServeWS(c *gin.Context) {
	info := realtime.ConnInfo{ID: realtime.NewConnectionID()}

	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token != "" {
		sub, role, err := utils.ExtractClaims(token)
		if err != nil || !models.Role(role).Valid() {
			utils.JSONError(c, http.StatusUnauthorized, "Invalid token", "the socket token could not be verified")
			return
		}
		info.PartyID, info.Role = sub, models.Role(role)
	} else if h.authRequired {
		utils.JSONError(c, http.StatusUnauthorized, "Missing token", "pass a bearer token or ?token= to open a socket")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		getLogger(c).Info("Websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.Serve(h.baseCtx, conn, info, h)
}

// Dispatch implements realtime.Dispatcher.
func (h *SocketHandler) Dispatch(ctx context.Context, conn realtime.ConnInfo, event models.SocketEvent) {
	handle, ok := h.handlers[event.Event]
	if !ok {
		h.reply(conn.ID, models.EventError, models.ErrorPayload{Message: fmt.Sprintf("unknown event %q", event.Event)})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	err := handle(ctx, conn, event.Data)
	switch {
	case err == nil:
	case errors.Is(err, errMalformedData):
		h.logger.Info("Malformed event data", zap.String("connectionId", conn.ID), zap.String("event", event.Event), zap.Error(err))
		h.reply(conn.ID, models.EventError, models.ErrorPayload{Message: fmt.Sprintf("invalid data for %s", event.Event)})
	default:
		h.logger.Debug("Event handled with error", zap.String("connectionId", conn.ID), zap.String("event", event.Event), zap.Error(err))
	}
}

// Disconnect implements realtime.Dispatcher.
func (h *SocketHandler) Disconnect(connectionID string) {
	h.coordinator.Disconnect(connectionID)
}

func (h *SocketHandler) reply(connectionID, event string, payload any) {
	h.hub.Send(connectionID, models.OutboundEvent{Event: event, Data: payload})
}

func (h *SocketHandler) eventHandlers() map[string]eventHandler {
	c := h.coordinator
	return map[string]eventHandler{
		models.EventRegister: decode(h.register),
		models.EventSendBookingRequest: decode(func(ctx context.Context, conn realtime.ConnInfo, in models.BookingRequestPayload) error {
			_, err := c.SendBookingRequest(ctx, conn.ID, in)
			return err
		}),
		models.EventAcceptBooking:            byConnection(c.AcceptBooking),
		models.EventDeclineBooking:           byConnection(c.DeclineBooking),
		models.EventConfirmBooking:           byConnection(c.ConfirmBooking),
		models.EventCancelBooking:            byConnection(c.CancelBooking),
		models.EventSubmitProblemDescription: byConnection(c.SubmitProblemDescription),
		models.EventStartJob:                 byConnection(c.StartJob),
		models.EventUpdateMaintenanceDetails: byConnection(c.UpdateMaintenanceDetails),
		models.EventCompleteJob:              byConnection(c.CompleteJob),
		models.EventSubmitPayment:            byConnection(c.SubmitPayment),
		models.EventSaveBookingForPayment: decode(func(ctx context.Context, conn realtime.ConnInfo, in models.PaymentPayload) error {
			_, err := c.SaveBookingForPayment(ctx, conn.ID, in)
			return err
		}),
		models.EventSubmitReview: byConnection(c.SubmitReview),
		models.EventSendMessage: decode(func(ctx context.Context, conn realtime.ConnInfo, in models.SendMessagePayload) error {
			_, err := h.chat.SendMessage(ctx, conn.ID, in)
			return err
		}),
		models.EventMarkAsRead: byConnection(h.chat.MarkAsRead),
	}
}

// register binds the connection, holding authenticated sockets to the identity in their token.
func (h *SocketHandler) register(ctx context.Context, conn realtime.ConnInfo, in models.RegisterPayload) error {
	if conn.Authenticated() {
		if in.PartyID == "" {
			in.PartyID = conn.PartyID
		}
		if in.Role == "" {
			in.Role = conn.Role
		}
		if in.PartyID != conn.PartyID || in.Role != conn.Role {
			h.reply(conn.ID, models.EventRegisterError, models.ErrorPayload{Message: "registration does not match the authenticated identity"})
			return fmt.Errorf("%w: token identity mismatch", booking.ErrNotParticipant)
		}
	}
	return h.coordinator.Register(ctx, conn.ID, in)
}

func decode[T any](fn func(ctx context.Context, conn realtime.ConnInfo, in T) error) eventHandler {
	return func(ctx context.Context, conn realtime.ConnInfo, data json.RawMessage) error {
		var in T
		if len(data) > 0 && string(data) != "null" {
			if err := json.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("%w: %w", errMalformedData, err)
			}
		}
		return fn(ctx, conn, in)
	}
}

func byConnection[T any](fn func(ctx context.Context, connectionID string, in T) error) eventHandler {
	return decode(func(ctx context.Context, conn realtime.ConnInfo, in T) error {
		return fn(ctx, conn.ID, in)
	})
}
