package recordsRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"handyhub/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *mongoRecordRepo) Insert(ctx context.Context, record *models.BookingRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateBooking, record.BookingID)
		}
		return fmt.Errorf("failed to insert record for booking %s: %w", record.BookingID, err)
	}
	return nil
}

func (r *mongoRecordRepo) FindByBookingID(ctx context.Context, bookingID string) (*models.BookingRecord, error) {
	var record models.BookingRecord
	if err := r.coll.FindOne(ctx, bson.M{"bookingId": bookingID}).Decode(&record); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch record for booking %s: %w", bookingID, err)
	}
	return &record, nil
}

func (r *mongoRecordRepo) GetByID(ctx context.Context, id string) (*models.BookingRecord, error) {
	var record models.BookingRecord
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&record); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch record %s: %w", id, err)
	}
	return &record, nil
}

func (r *mongoRecordRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.BookingRecord, error) {
	return r.list(ctx, bson.M{"userId": userID}, limit)
}

func (r *mongoRecordRepo) ListByProvider(ctx context.Context, providerID string, limit int64) ([]models.BookingRecord, error) {
	return r.list(ctx, bson.M{"providerId": providerID}, limit)
}

// list returns matching records, newest first.
func (r *mongoRecordRepo) list(ctx context.Context, filter bson.M, limit int64) ([]models.BookingRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.BookingRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

func (r *mongoRecordRepo) SetReview(ctx context.Context, bookingID string, review models.Review) error {
	update := bson.M{"$set": bson.M{
		"review":    review,
		"status":    string(models.StatusReviewed),
		"updatedAt": time.Now(),
	}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"bookingId": bookingID}, update)
	if err != nil {
		return fmt.Errorf("failed to attach review to booking %s: %w", bookingID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no record for booking %s", bookingID)
	}
	return nil
}
