package recordsRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"handyhub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateBooking is returned by Insert when a record for the booking already exists.
var ErrDuplicateBooking = errors.New("a record for this booking already exists")

// BookingRecordRepository stores committed bookings.
type BookingRecordRepository interface {
	// Insert stores record, assigning its ID when empty.
	Insert(ctx context.Context, record *models.BookingRecord) error
	// FindByBookingID returns nil, nil when the booking has no record.
	FindByBookingID(ctx context.Context, bookingID string) (*models.BookingRecord, error)
	GetByID(ctx context.Context, id string) (*models.BookingRecord, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.BookingRecord, error)
	ListByProvider(ctx context.Context, providerID string, limit int64) ([]models.BookingRecord, error)
	SetReview(ctx context.Context, bookingID string, review models.Review) error
}

type mongoRecordRepo struct {
	coll *mongo.Collection
}

// NewMongoRecordRepo returns a BookingRecordRepository backed by the booking_records collection.
func NewMongoRecordRepo(db *mongo.Database) (BookingRecordRepository, error) {
	repo := &mongoRecordRepo{coll: db.Collection("booking_records")}
	if err := repo.ensureIndexes(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *mongoRecordRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "bookingId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "providerId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create booking record indexes: %w", err)
	}
	return nil
}
