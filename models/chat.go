package models

import "time"

// ChatMessage is a persisted chat line. ConversationID is the booking ID the chat belongs to.
type ChatMessage struct {
	ID             string    `bson:"id" json:"id"`
	ConversationID string    `bson:"conversationId" json:"conversationId"`
	SenderID       string    `bson:"senderId" json:"senderId"`
	SenderRole     Role      `bson:"senderRole" json:"senderRole"`
	Content        string    `bson:"content" json:"content"`
	ReadBy         []string  `bson:"readBy" json:"readBy"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}
