package handlers

import (
	"context"
	"errors"
	"net/http"

	"handyhub/middleware"
	"handyhub/models"
	"handyhub/services/booking"
	"handyhub/services/chat"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageReader is the read side of the chat service.
type MessageReader interface {
	History(ctx context.Context, partyID string, role models.Role, conversationID string, limit int64) ([]models.ChatMessage, error)
}

// MessageHandler serves stored chat history to conversation members and admins.
type MessageHandler struct {
	Messages MessageReader
}

// GetConversation handles GET /api/messages/:conversationId. Callers who are not members see 404.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	conversationID := c.Param("conversationId")
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	partyID, role := middleware.Identity(c)
	messages, err := h.Messages.History(c.Request.Context(), partyID, role, conversationID, limit)
	switch {
	case errors.Is(err, chat.ErrConversationNotFound), errors.Is(err, booking.ErrNotParticipant):
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	case err != nil:
		getLogger(c).Error("Failed to load conversation", zap.String("conversationId", conversationID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
