// Package records turns finished booking sessions into durable booking records.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	recordsRepo "handyhub/database/repository/records"
	"handyhub/models"
	"handyhub/services/booking"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrSave wraps every failure to persist a record.
var ErrSave = errors.New("failed to save booking record")

// RecordCache is a fast booking ID to record ID lookup in front of the repository.
type RecordCache interface {
	// Get returns "" on a miss.
	Get(ctx context.Context, bookingID string) (string, error)
	Set(ctx context.Context, bookingID, recordID string) error
}

// ReceiptQueue schedules the receipt push for a new record.
type ReceiptQueue interface {
	EnqueueReceipt(ctx context.Context, payload models.ReceiptPayload) error
}

// Bridge commits sessions to the record repository at most once per booking. Concurrent commits
// for one booking share a single write; later commits find the existing record.
type Bridge struct {
	Repo     recordsRepo.BookingRecordRepository
	Cache    RecordCache  // optional
	Receipts ReceiptQueue // optional
	Logger   *zap.Logger
	Now      func() time.Time

	group singleflight.Group
}

func NewBridge(repo recordsRepo.BookingRecordRepository, cache RecordCache, receipts ReceiptQueue, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{Repo: repo, Cache: cache, Receipts: receipts, Logger: logger, Now: time.Now}
}

// Commit returns the record ID for session's booking, creating the record on first use.
func (b *Bridge) Commit(ctx context.Context, session models.BookingSession, paymentMethod string) (string, error) {
	if session.RecordID != "" {
		return session.RecordID, nil
	}
	v, err, _ := b.group.Do(session.BookingID, func() (any, error) {
		return b.commit(ctx, session, paymentMethod)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (b *Bridge) commit(ctx context.Context, session models.BookingSession, paymentMethod string) (string, error) {
	if id := b.cached(ctx, session.BookingID); id != "" {
		return id, nil
	}

	existing, err := b.Repo.FindByBookingID(ctx, session.BookingID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSave, err)
	}
	if existing != nil {
		b.remember(ctx, session.BookingID, existing.ID)
		return existing.ID, nil
	}

	record := BuildRecord(session, paymentMethod, b.Now())
	if err := b.Repo.Insert(ctx, &record); err != nil {
		if !errors.Is(err, recordsRepo.ErrDuplicateBooking) {
			return "", fmt.Errorf("%w: %w", ErrSave, err)
		}
		// Another instance won the insert; its record is the one to use.
		existing, findErr := b.Repo.FindByBookingID(ctx, session.BookingID)
		if findErr != nil {
			return "", fmt.Errorf("%w: %w", ErrSave, findErr)
		}
		if existing == nil {
			return "", fmt.Errorf("%w: %w", ErrSave, err)
		}
		b.remember(ctx, session.BookingID, existing.ID)
		return existing.ID, nil
	}

	b.Logger.Info("Booking record committed",
		zap.String("bookingId", record.BookingID),
		zap.String("recordId", record.ID),
		zap.Float64("totalPrice", record.TotalPrice))
	b.remember(ctx, session.BookingID, record.ID)
	b.enqueueReceipt(ctx, record)
	return record.ID, nil
}

func (b *Bridge) cached(ctx context.Context, bookingID string) string {
	if b.Cache == nil {
		return ""
	}
	id, err := b.Cache.Get(ctx, bookingID)
	if err != nil {
		b.Logger.Warn("Record cache lookup failed", zap.String("bookingId", bookingID), zap.Error(err))
		return ""
	}
	return id
}

func (b *Bridge) remember(ctx context.Context, bookingID, recordID string) {
	if b.Cache == nil {
		return
	}
	if err := b.Cache.Set(ctx, bookingID, recordID); err != nil {
		b.Logger.Warn("Record cache write failed", zap.String("bookingId", bookingID), zap.Error(err))
	}
}

func (b *Bridge) enqueueReceipt(ctx context.Context, record models.BookingRecord) {
	if b.Receipts == nil {
		return
	}
	payload := models.ReceiptPayload{
		RecordID:      record.ID,
		BookingID:     record.BookingID,
		UserID:        record.UserID,
		ProviderID:    record.ProviderID,
		ServiceType:   record.ServiceType,
		Amount:        record.TotalPrice,
		PaymentMethod: record.PaymentMethod,
	}
	if err := b.Receipts.EnqueueReceipt(ctx, payload); err != nil {
		b.Logger.Warn("Failed to enqueue receipt", zap.String("bookingId", record.BookingID), zap.Error(err))
	}
}

// AttachReview copies a review onto the booking's record.
func (b *Bridge) AttachReview(ctx context.Context, bookingID string, review models.Review) error {
	if err := b.Repo.SetReview(ctx, bookingID, review); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	return nil
}

// RecordForBooking returns the record of a booking, or nil when it has none.
func (b *Bridge) RecordForBooking(ctx context.Context, bookingID string) (*models.BookingRecord, error) {
	return b.Repo.FindByBookingID(ctx, bookingID)
}

// RecordByID returns nil, nil when no record has that ID.
func (b *Bridge) RecordByID(ctx context.Context, recordID string) (*models.BookingRecord, error) {
	return b.Repo.GetByID(ctx, recordID)
}

// History lists a party's records, newest first.
func (b *Bridge) History(ctx context.Context, role models.Role, partyID string, limit int64) ([]models.BookingRecord, error) {
	switch role {
	case models.RoleUser:
		return b.Repo.ListByUser(ctx, partyID, limit)
	case models.RoleProvider:
		return b.Repo.ListByProvider(ctx, partyID, limit)
	}
	return nil, fmt.Errorf("no history for role %q", role)
}

// BuildRecord maps a session to its durable form. Records are written as paid: they exist only
// once the user is settling the bill. Without a maintenance breakdown the record is priced by the
// session's base charge.
func BuildRecord(session models.BookingSession, paymentMethod string, now time.Time) models.BookingRecord {
	record := models.BookingRecord{
		BookingID:     session.BookingID,
		UserID:        session.UserID,
		ProviderID:    session.ProviderID,
		ServiceType:   session.Details.ServiceType,
		Issue:         session.Details.Issue,
		Description:   session.Details.Description,
		Location:      session.Details.Location,
		BaseCharge:    session.BaseCharge,
		TotalPrice:    booking.AmountDue(session),
		PaymentMethod: paymentMethod,
		Status:        string(models.StatusPaid),
		Materials:     []models.Material{},
		StartedAt:     session.StartedAt,
		CompletedAt:   session.CompletedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if m := session.Maintenance; m != nil {
		record.JobDurationHours = m.JobDurationHours
		record.HourlyRate = m.HourlyRate
		record.HourlyCharge = m.HourlyCharge
		record.Materials = append(record.Materials, m.Materials...)
		record.MaterialCost = m.MaterialCost
		record.AdditionalCharge = m.AdditionalCharge
		record.Notes = m.Notes
	}
	return record
}
