// Package chat relays and stores the messages exchanged on a booking.
package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	messagesRepo "handyhub/database/repository/messages"
	"handyhub/models"
	"handyhub/services/booking"
	"handyhub/services/registry"

	"go.uber.org/zap"
)

const MaxMessageLength = 2000

var ErrConversationNotFound = errors.New("conversation not found")

// Broadcaster is the part of the event router chat needs.
type Broadcaster interface {
	Broadcast(partyIDs []string, withAdmins bool, skip []string, event string, payload any) int
	FanOut(partyIDs []string, excludePartyID string, event string, payload any) int
	RouteToInitiator(connectionID, event string, payload any) bool
}

type SessionSource interface {
	GetSession(bookingID string) (models.BookingSession, error)
}

type RecordSource interface {
	RecordForBooking(ctx context.Context, bookingID string) (*models.BookingRecord, error)
}

// Service handles sendMessage and markAsRead. A conversation ID is the booking ID; its members
// are the booking's two parties, with admins able to read and write any conversation.
type Service struct {
	Messages messagesRepo.MessageRepository
	Registry registry.ConnectionRegistry
	Router   Broadcaster
	Sessions SessionSource
	Records  RecordSource // optional
	Logger   *zap.Logger
	Now      func() time.Time
}

func (s *Service) SendMessage(ctx context.Context, connectionID string, in models.SendMessagePayload) (*models.ChatMessage, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" || utf8.RuneCountInString(content) > MaxMessageLength {
		s.fail(connectionID, in.ConversationID, fmt.Sprintf("message must be between 1 and %d characters", MaxMessageLength))
		return nil, fmt.Errorf("%w: message length", booking.ErrInvalidPayload)
	}

	entry, participants, err := s.authorize(ctx, connectionID, in.ConversationID)
	if err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		ConversationID: in.ConversationID,
		SenderID:       entry.PartyID,
		SenderRole:     entry.Role,
		Content:        content,
		ReadBy:         []string{entry.PartyID},
		CreatedAt:      s.now(),
	}
	if err := s.Messages.Insert(ctx, msg); err != nil {
		s.log().Error("Failed to store message", zap.String("conversationId", in.ConversationID), zap.Error(err))
		s.fail(connectionID, in.ConversationID, "We couldn't send your message. Please try again.")
		return nil, err
	}

	delivered := s.Router.FanOut(participants, entry.PartyID, models.EventNewMessage, msg)
	s.Router.RouteToInitiator(connectionID, models.EventMessageSent, msg)
	s.log().Debug("Message relayed",
		zap.String("conversationId", msg.ConversationID),
		zap.String("messageId", msg.ID),
		zap.Int("delivered", delivered))
	return msg, nil
}

// MarkAsRead marks everything the caller has received in the conversation as read and tells the
// other members.
func (s *Service) MarkAsRead(ctx context.Context, connectionID string, in models.MarkAsReadPayload) error {
	entry, participants, err := s.authorize(ctx, connectionID, in.ConversationID)
	if err != nil {
		return err
	}

	count, err := s.Messages.MarkRead(ctx, in.ConversationID, entry.PartyID)
	if err != nil {
		s.log().Error("Failed to mark messages read", zap.String("conversationId", in.ConversationID), zap.Error(err))
		s.fail(connectionID, in.ConversationID, "We couldn't update your messages. Please try again.")
		return err
	}

	receipt := models.ReadReceipt{
		ConversationID: in.ConversationID,
		ReaderID:       entry.PartyID,
		Count:          count,
		ReadAt:         s.now(),
	}
	if count > 0 {
		s.Router.Broadcast(participants, false, s.Registry.FindAll([]string{entry.PartyID}), models.EventMessagesRead, receipt)
	}
	s.Router.RouteToInitiator(connectionID, models.EventMarkAsReadSuccess, receipt)
	return nil
}

// History returns the latest messages of a conversation, oldest first, to one of its members or
// an admin.
func (s *Service) History(ctx context.Context, partyID string, role models.Role, conversationID string, limit int64) ([]models.ChatMessage, error) {
	participants, err := s.participants(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && !slices.Contains(participants, partyID) {
		return nil, fmt.Errorf("%w: %s in %s", booking.ErrNotParticipant, partyID, conversationID)
	}

	messages, err := s.Messages.ListByConversation(ctx, conversationID, limit)
	if err != nil {
		s.log().Error("Failed to list messages", zap.String("conversationId", conversationID), zap.Error(err))
		return nil, err
	}
	return messages, nil
}

// authorize resolves the caller and the conversation members, rejecting callers that are not
// members.
func (s *Service) authorize(ctx context.Context, connectionID, conversationID string) (models.ConnectionEntry, []string, error) {
	entry, ok := s.Registry.Lookup(connectionID)
	if !ok {
		s.Router.RouteToInitiator(connectionID, models.EventError, models.ErrorPayload{Message: "register this connection before chatting"})
		return entry, nil, booking.ErrNotRegistered
	}

	participants, err := s.participants(ctx, conversationID)
	if err != nil {
		s.log().Info("Chat on unknown conversation", zap.String("conversationId", conversationID), zap.Error(err))
		s.fail(connectionID, conversationID, "conversation not found")
		return entry, nil, err
	}
	if entry.Role != models.RoleAdmin && !slices.Contains(participants, entry.PartyID) {
		s.fail(connectionID, conversationID, "you are not part of this conversation")
		return entry, nil, fmt.Errorf("%w: %s in %s", booking.ErrNotParticipant, entry.PartyID, conversationID)
	}
	return entry, participants, nil
}

// participants reads the members from the live session, falling back to the durable record once
// the session is gone.
func (s *Service) participants(ctx context.Context, conversationID string) ([]string, error) {
	if conversationID == "" {
		return nil, ErrConversationNotFound
	}
	if session, err := s.Sessions.GetSession(conversationID); err == nil {
		return session.Participants(), nil
	}
	if s.Records == nil {
		return nil, ErrConversationNotFound
	}
	record, err := s.Records.RecordForBooking(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrConversationNotFound
	}
	return []string{record.UserID, record.ProviderID}, nil
}

func (s *Service) fail(connectionID, conversationID, msg string) {
	s.Router.RouteToInitiator(connectionID, models.EventMessageError, models.ErrorPayload{BookingID: conversationID, Message: msg})
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) log() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}
