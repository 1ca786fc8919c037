package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"handyhub/models"
	"handyhub/services/booking"
	"handyhub/services/notification"
	"handyhub/services/realtime"
	"handyhub/services/registry"
	"handyhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopCommitter struct{}

func (nopCommitter) Commit(ctx context.Context, session models.BookingSession, method string) (string, error) {
	return "rec-" + session.BookingID, nil
}

func (nopCommitter) AttachReview(ctx context.Context, bookingID string, review models.Review) error {
	return nil
}

type chatCalls struct {
	mu   sync.Mutex
	sent []models.SendMessagePayload
}

func (c *chatCalls) SendMessage(ctx context.Context, connectionID string, in models.SendMessagePayload) (*models.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, in)
	return &models.ChatMessage{ConversationID: in.ConversationID, Content: in.Content}, nil
}

func (c *chatCalls) MarkAsRead(ctx context.Context, connectionID string, in models.MarkAsReadPayload) error {
	return nil
}

func (c *chatCalls) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type socketStack struct {
	url         string
	hub         *realtime.Hub
	coordinator *booking.DefaultCoordinationService
	chat        *chatCalls
}

func newSocketStack(t *testing.T, authRequired bool) *socketStack {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	logger := zap.NewNop()

	hub := realtime.NewHub(logger, 0, 0)
	reg := registry.NewInMemoryRegistry()
	coordinator := &booking.DefaultCoordinationService{
		Sessions: booking.NewSessionStore(),
		Registry: reg,
		Router:   notification.NewRouter(reg, hub, logger),
		Records:  nopCommitter{},
		Logger:   logger,
	}
	chat := &chatCalls{}
	socket := NewSocketHandler(ctx, hub, coordinator, chat, authRequired, nil, logger)

	r := gin.New()
	r.GET("/ws", socket.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		hub.CloseAll()
		srv.Close()
	})
	return &socketStack{
		url:         "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		hub:         hub,
		coordinator: coordinator,
		chat:        chat,
	}
}

func (s *socketStack) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.url+query, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

// await reads frames until one named event arrives.
func await(t *testing.T, conn *websocket.Conn, event string) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %s", event)
		if f.Event == event {
			return f
		}
	}
}

func register(t *testing.T, conn *websocket.Conn, partyID string, role models.Role) {
	t.Helper()
	send(t, conn, models.EventRegister, models.RegisterPayload{PartyID: partyID, Role: role})
	await(t, conn, models.EventRegistered)
}

func TestSocket_BookingRequestAndAccept(t *testing.T) {
	stack := newSocketStack(t, false)
	user := stack.dial(t, "")
	provider := stack.dial(t, "")
	register(t, user, "u1", models.RoleUser)
	register(t, provider, "p1", models.RoleProvider)

	send(t, user, models.EventSendBookingRequest, models.BookingRequestPayload{
		PartyID:       "u1",
		CounterpartID: "p1",
		ServiceType:   "plumbing",
		Issue:         "leak",
	})

	var received models.BookingUpdate
	require.NoError(t, json.Unmarshal(await(t, provider, models.EventBookingRequestReceived).Data, &received))
	assert.Equal(t, models.StatusPending, received.Status)
	assert.Equal(t, "plumbing", received.Session.Details.ServiceType)
	await(t, user, models.EventBookingRequestSent)

	send(t, provider, models.EventAcceptBooking, models.BookingRef{BookingID: received.BookingID})
	await(t, user, models.EventBookingAccepted)
	await(t, provider, models.EventBookingAcceptedSuccess)

	session, err := stack.coordinator.GetSession(received.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, session.Status)
}

func TestSocket_UnknownAndMalformedEvents(t *testing.T) {
	stack := newSocketStack(t, false)
	conn := stack.dial(t, "")

	send(t, conn, "teleport", nil)
	var payload models.ErrorPayload
	require.NoError(t, json.Unmarshal(await(t, conn, models.EventError).Data, &payload))
	assert.Contains(t, payload.Message, "teleport")

	send(t, conn, models.EventAcceptBooking, "not an object")
	require.NoError(t, json.Unmarshal(await(t, conn, models.EventError).Data, &payload))
	assert.Equal(t, "invalid data for acceptBooking", payload.Message)
}

func TestSocket_ChatEventsReachChatService(t *testing.T) {
	stack := newSocketStack(t, false)
	conn := stack.dial(t, "")

	send(t, conn, models.EventSendMessage, models.SendMessagePayload{ConversationID: "b1", Content: "hello"})
	assert.Eventually(t, func() bool { return stack.chat.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSocket_Auth(t *testing.T) {
	stack := newSocketStack(t, true)

	_, resp, err := websocket.DefaultDialer.Dial(stack.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(stack.url+"?token=forged", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := utils.GenerateToken("u1", "user", time.Hour)
	require.NoError(t, err)
	conn := stack.dial(t, "?token="+token)

	send(t, conn, models.EventRegister, models.RegisterPayload{PartyID: "u2", Role: models.RoleUser})
	await(t, conn, models.EventRegisterError)

	// Identity is filled in from the token when omitted.
	send(t, conn, models.EventRegister, models.RegisterPayload{})
	var entry models.ConnectionEntry
	require.NoError(t, json.Unmarshal(await(t, conn, models.EventRegistered).Data, &entry))
	assert.Equal(t, "u1", entry.PartyID)
	assert.Equal(t, models.RoleUser, entry.Role)
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	open := originChecker([]string{"*"})
	assert.True(t, open(req("https://anywhere.example")))

	strict := originChecker([]string{"https://app.handyhub.example"})
	assert.True(t, strict(req("https://app.handyhub.example")))
	assert.True(t, strict(req("")), "non-browser clients send no origin")
	assert.False(t, strict(req("https://evil.example")))
}
