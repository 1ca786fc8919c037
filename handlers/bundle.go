package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the endpoint handlers the router mounts.
type HandlerBundle struct {
	// Realtime
	ServeWS gin.HandlerFunc

	// Durable records
	GetRecordByBooking  gin.HandlerFunc
	GetRecordByID       gin.HandlerFunc
	ListUserRecords     gin.HandlerFunc
	ListProviderRecords gin.HandlerFunc

	// Live sessions
	GetSession gin.HandlerFunc

	// Chat history
	GetConversation gin.HandlerFunc

	Health gin.HandlerFunc
}

// NewHandlerBundle wires the handlers into a bundle.
func NewHandlerBundle(socket *SocketHandler, records *RecordHandler, sessions *SessionHandler, messages *MessageHandler, health gin.HandlerFunc) *HandlerBundle {
	return &HandlerBundle{
		ServeWS:             socket.ServeWS,
		GetRecordByBooking:  records.GetRecordByBooking,
		GetRecordByID:       records.GetRecordByID,
		ListUserRecords:     records.ListUserRecords,
		ListProviderRecords: records.ListProviderRecords,
		GetSession:          sessions.GetSession,
		GetConversation:     messages.GetConversation,
		Health:              health,
	}
}
