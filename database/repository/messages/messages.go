package messagesRepo

import (
	"context"
	"fmt"
	"slices"
	"time"

	"handyhub/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository stores chat messages per conversation.
type MessageRepository interface {
	Insert(ctx context.Context, msg *models.ChatMessage) error
	// MarkRead adds readerID to every message of the conversation it has not read yet and
	// returns how many messages changed.
	MarkRead(ctx context.Context, conversationID, readerID string) (int64, error)
	// ListByConversation returns the latest limit messages, oldest first. A limit of 0 returns
	// every message.
	ListByConversation(ctx context.Context, conversationID string, limit int64) ([]models.ChatMessage, error)
}

type mongoMessageRepo struct {
	coll *mongo.Collection
}

func NewMongoMessageRepo(db *mongo.Database) (MessageRepository, error) {
	repo := &mongoMessageRepo{coll: db.Collection("messages")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create message indexes: %w", err)
	}
	return repo, nil
}

func (r *mongoMessageRepo) Insert(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to store message in %s: %w", msg.ConversationID, err)
	}
	return nil
}

func (r *mongoMessageRepo) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	filter := bson.M{
		"conversationId": conversationID,
		"senderId":       bson.M{"$ne": readerID},
		"readBy":         bson.M{"$ne": readerID},
	}
	update := bson.M{"$addToSet": bson.M{"readBy": readerID}}
	result, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark %s read: %w", conversationID, err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoMessageRepo) ListByConversation(ctx context.Context, conversationID string, limit int64) ([]models.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := []models.ChatMessage{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	slices.Reverse(messages)
	return messages, nil
}
