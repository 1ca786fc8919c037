package handlers

import (
	"context"
	"net/http"
	"strconv"

	"handyhub/middleware"
	"handyhub/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// RecordReader is the read side of the record bridge.
type RecordReader interface {
	RecordForBooking(ctx context.Context, bookingID string) (*models.BookingRecord, error)
	RecordByID(ctx context.Context, recordID string) (*models.BookingRecord, error)
	History(ctx context.Context, role models.Role, partyID string, limit int64) ([]models.BookingRecord, error)
}

// RecordHandler serves durable booking records to their parties and to admins.
type RecordHandler struct {
	Records RecordReader
}

// GetRecordByBooking handles GET /api/records/booking/:bookingId.
func (h *RecordHandler) GetRecordByBooking(c *gin.Context) {
	logger := getLogger(c)
	bookingID := c.Param("bookingId")

	record, err := h.Records.RecordForBooking(c.Request.Context(), bookingID)
	if err != nil {
		logger.Error("Failed to load booking record", zap.String("bookingId", bookingID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load booking record"})
		return
	}
	if record == nil || !canRead(c, record.UserID, record.ProviderID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking record not found"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetRecordByID handles GET /api/records/id/:recordId.
func (h *RecordHandler) GetRecordByID(c *gin.Context) {
	logger := getLogger(c)
	recordID := c.Param("recordId")

	record, err := h.Records.RecordByID(c.Request.Context(), recordID)
	if err != nil {
		logger.Error("Failed to load booking record", zap.String("recordId", recordID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load booking record"})
		return
	}
	if record == nil || !canRead(c, record.UserID, record.ProviderID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking record not found"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListUserRecords handles GET /api/records/user/:id.
func (h *RecordHandler) ListUserRecords(c *gin.Context) {
	h.history(c, models.RoleUser)
}

// ListProviderRecords handles GET /api/records/provider/:id.
func (h *RecordHandler) ListProviderRecords(c *gin.Context) {
	h.history(c, models.RoleProvider)
}

func (h *RecordHandler) history(c *gin.Context, role models.Role) {
	logger := getLogger(c)
	partyID := c.Param("id")

	callerID, callerRole := middleware.Identity(c)
	if callerRole != models.RoleAdmin && (callerRole != role || callerID != partyID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You may only list your own records"})
		return
	}

	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	records, err := h.Records.History(c.Request.Context(), role, partyID, limit)
	if err != nil {
		logger.Error("Failed to list booking records", zap.String("partyId", partyID), zap.String("role", string(role)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list booking records"})
		return
	}
	if records == nil {
		records = []models.BookingRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// queryLimit reads ?limit, capped at maxHistoryLimit. It writes a 400 and reports false when the
// value is not a positive integer.
func queryLimit(c *gin.Context) (int64, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultHistoryLimit, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return min(n, maxHistoryLimit), true
}

// canRead reports whether the authenticated caller is an admin or one of the parties.
func canRead(c *gin.Context, userID, providerID string) bool {
	callerID, role := middleware.Identity(c)
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleUser:
		return callerID == userID
	case models.RoleProvider:
		return callerID == providerID
	}
	return false
}
