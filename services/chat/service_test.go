package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"handyhub/models"
	"handyhub/services/booking"
	"handyhub/services/notification"
	"handyhub/services/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryMessages struct {
	mu   sync.Mutex
	msgs []models.ChatMessage
}

func (m *memoryMessages) Insert(ctx context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = fmt.Sprintf("m%d", len(m.msgs)+1)
	m.msgs = append(m.msgs, *msg)
	return nil
}

func (m *memoryMessages) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i, msg := range m.msgs {
		if msg.ConversationID != conversationID || msg.SenderID == readerID {
			continue
		}
		already := false
		for _, r := range msg.ReadBy {
			already = already || r == readerID
		}
		if !already {
			m.msgs[i].ReadBy = append(m.msgs[i].ReadBy, readerID)
			n++
		}
	}
	return n, nil
}

func (m *memoryMessages) ListByConversation(ctx context.Context, conversationID string, limit int64) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ChatMessage{}
	for _, msg := range m.msgs {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[int64(len(out))-limit:]
	}
	return out, nil
}

type inbox struct {
	mu     sync.Mutex
	frames map[string][]string
}

func (i *inbox) Send(connectionID string, event models.OutboundEvent) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.frames[connectionID] = append(i.frames[connectionID], event.Event)
	return true
}

type recordLookup map[string]*models.BookingRecord

func (r recordLookup) RecordForBooking(ctx context.Context, bookingID string) (*models.BookingRecord, error) {
	return r[bookingID], nil
}

func newChat(t *testing.T) (*Service, *inbox, *memoryMessages) {
	t.Helper()
	reg := registry.NewInMemoryRegistry()
	reg.Register("u-phone", "u1", models.RoleUser)
	reg.Register("u-web", "u1", models.RoleUser)
	reg.Register("p-phone", "p1", models.RoleProvider)
	reg.Register("ops", "admin", models.RoleAdmin)
	reg.Register("stranger", "u9", models.RoleUser)

	sessions := booking.NewSessionStore()
	require.NoError(t, sessions.Create(models.BookingSession{BookingID: "live", UserID: "u1", ProviderID: "p1"}))

	box := &inbox{frames: map[string][]string{}}
	msgs := &memoryMessages{}
	svc := &Service{
		Messages: msgs,
		Registry: reg,
		Router:   notification.NewRouter(reg, box, nil),
		Sessions: &booking.DefaultCoordinationService{Sessions: sessions},
		Records: recordLookup{
			"archived": {BookingID: "archived", UserID: "u1", ProviderID: "p1"},
		},
	}
	return svc, box, msgs
}

func TestSendMessage_FansOutToOtherParticipantsAndAdmins(t *testing.T) {
	svc, box, msgs := newChat(t)

	msg, err := svc.SendMessage(context.Background(), "u-phone", models.SendMessagePayload{ConversationID: "live", Content: " on my way "})
	require.NoError(t, err)
	assert.Equal(t, "on my way", msg.Content)
	assert.Equal(t, "u1", msg.SenderID)
	assert.Equal(t, []string{"u1"}, msg.ReadBy)
	assert.Len(t, msgs.msgs, 1)

	assert.Equal(t, []string{models.EventMessageSent}, box.frames["u-phone"])
	assert.Empty(t, box.frames["u-web"], "the sender's other devices are not echoed")
	assert.Equal(t, []string{models.EventNewMessage}, box.frames["p-phone"])
	assert.Equal(t, []string{models.EventNewMessage}, box.frames["ops"])
	assert.Empty(t, box.frames["stranger"])
}

func TestSendMessage_FallsBackToRecord(t *testing.T) {
	svc, box, _ := newChat(t)

	_, err := svc.SendMessage(context.Background(), "p-phone", models.SendMessagePayload{ConversationID: "archived", Content: "thanks!"})
	require.NoError(t, err)
	assert.Contains(t, box.frames["u-phone"], models.EventNewMessage)
}

func TestSendMessage_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("non participant", func(t *testing.T) {
		svc, box, msgs := newChat(t)
		_, err := svc.SendMessage(ctx, "stranger", models.SendMessagePayload{ConversationID: "live", Content: "hi"})
		assert.ErrorIs(t, err, booking.ErrNotParticipant)
		assert.Equal(t, []string{models.EventMessageError}, box.frames["stranger"])
		assert.Empty(t, msgs.msgs)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		svc, _, _ := newChat(t)
		_, err := svc.SendMessage(ctx, "u-phone", models.SendMessagePayload{ConversationID: "nope", Content: "hi"})
		assert.ErrorIs(t, err, ErrConversationNotFound)
	})

	t.Run("empty and oversized content", func(t *testing.T) {
		svc, _, _ := newChat(t)
		_, err := svc.SendMessage(ctx, "u-phone", models.SendMessagePayload{ConversationID: "live", Content: "   "})
		assert.ErrorIs(t, err, booking.ErrInvalidPayload)
		_, err = svc.SendMessage(ctx, "u-phone", models.SendMessagePayload{ConversationID: "live", Content: strings.Repeat("a", MaxMessageLength+1)})
		assert.ErrorIs(t, err, booking.ErrInvalidPayload)
	})

	t.Run("unregistered connection", func(t *testing.T) {
		svc, box, _ := newChat(t)
		_, err := svc.SendMessage(ctx, "ghost", models.SendMessagePayload{ConversationID: "live", Content: "hi"})
		assert.ErrorIs(t, err, booking.ErrNotRegistered)
		assert.Equal(t, []string{models.EventError}, box.frames["ghost"])
	})

	t.Run("admins may join any conversation", func(t *testing.T) {
		svc, box, _ := newChat(t)
		_, err := svc.SendMessage(ctx, "ops", models.SendMessagePayload{ConversationID: "live", Content: "checking in"})
		require.NoError(t, err)
		assert.Contains(t, box.frames["p-phone"], models.EventNewMessage)
	})
}

func TestMarkAsRead(t *testing.T) {
	svc, box, msgs := newChat(t)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, "p-phone", models.SendMessagePayload{ConversationID: "live", Content: "arriving at 3"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "p-phone", models.SendMessagePayload{ConversationID: "live", Content: "bring the key"})
	require.NoError(t, err)

	require.NoError(t, svc.MarkAsRead(ctx, "u-phone", models.MarkAsReadPayload{ConversationID: "live"}))
	for _, m := range msgs.msgs {
		assert.Contains(t, m.ReadBy, "u1")
	}
	assert.Contains(t, box.frames["u-phone"], models.EventMarkAsReadSuccess)
	assert.Contains(t, box.frames["p-phone"], models.EventMessagesRead)
	assert.NotContains(t, box.frames["u-web"], models.EventMessagesRead)
}

func TestHistory(t *testing.T) {
	svc, _, _ := newChat(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.SendMessage(ctx, "u-phone", models.SendMessagePayload{ConversationID: "live", Content: text})
		require.NoError(t, err)
	}

	msgs, err := svc.History(ctx, "p1", models.RoleProvider, "live", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content)
	assert.Equal(t, "three", msgs[1].Content)

	msgs, err = svc.History(ctx, "admin", models.RoleAdmin, "live", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)

	msgs, err = svc.History(ctx, "u1", models.RoleUser, "archived", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = svc.History(ctx, "u9", models.RoleUser, "live", 10)
	assert.ErrorIs(t, err, booking.ErrNotParticipant)

	_, err = svc.History(ctx, "u1", models.RoleUser, "nope", 10)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
