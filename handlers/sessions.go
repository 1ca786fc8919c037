package handlers

import (
	"errors"
	"net/http"

	"handyhub/models"
	"handyhub/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionReader exposes live sessions.
type SessionReader interface {
	GetSession(bookingID string) (models.BookingSession, error)
}

// SessionHandler serves snapshots of live booking sessions.
type SessionHandler struct {
	Sessions SessionReader
}

// GetSession handles GET /api/sessions/:bookingId. Callers who are not a party see 404.
func (h *SessionHandler) GetSession(c *gin.Context) {
	bookingID := c.Param("bookingId")

	session, err := h.Sessions.GetSession(bookingID)
	if errors.Is(err, booking.ErrSessionNotFound) || (err == nil && !canRead(c, session.UserID, session.ProviderID)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking session not found"})
		return
	}
	if err != nil {
		getLogger(c).Error("Failed to load booking session", zap.String("bookingId", bookingID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load booking session"})
		return
	}
	c.JSON(http.StatusOK, session)
}
