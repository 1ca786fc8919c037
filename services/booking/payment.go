package booking

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"handyhub/models"
	"handyhub/utils"

	"go.uber.org/zap"
)

const DefaultPaymentMethod = "cash"

// SaveBookingForPayment commits the finished booking so the user can pay against a durable
// record. Repeating it returns the same record ID.
func (s *DefaultCoordinationService) SaveBookingForPayment(ctx context.Context, connectionID string, in models.PaymentPayload) (string, error) {
	session, err := s.commit(ctx, connectionID, in, models.EventSaveBookingForPayment, models.EventBookingSaveError)
	if err != nil {
		return "", err
	}

	s.Router.RouteToInitiator(connectionID, models.EventBookingSavedForPayment, paymentUpdate(session))
	return session.RecordID, nil
}

// SubmitPayment marks the booking paid, committing the record first if nobody saved it yet.
func (s *DefaultCoordinationService) SubmitPayment(ctx context.Context, connectionID string, in models.PaymentPayload) error {
	session, err := s.commit(ctx, connectionID, in, models.EventSubmitPayment, models.EventPaymentError)
	if err != nil {
		return err
	}

	update := paymentUpdate(session)
	s.log().Info("Payment recorded",
		zap.String("bookingId", session.BookingID),
		zap.String("recordId", session.RecordID),
		zap.Float64("amount", update.Amount),
		zap.String("method", update.PaymentMethod))
	s.Router.RouteToRole(session, models.RoleProvider, models.EventPaymentReceived, update)
	s.Router.RouteToInitiator(connectionID, models.EventPaymentSuccess, update)
	return nil
}

// commit runs event in three steps: count the write as in flight under the session lock, write
// the record with no lock held, then apply event and store the record ID. A failed write drops
// its own count and leaves the session as it was. The payment method is fixed by the first
// successful write.
func (s *DefaultCoordinationService) commit(ctx context.Context, connectionID string, in models.PaymentPayload, event, errorEvent string) (models.BookingSession, error) {
	now := s.now()
	snapshot, _, err := s.mutate(connectionID, in.BookingID, event, func(session *models.BookingSession, actor models.Role) error {
		if err := Validate(event, session, actor); err != nil {
			return err
		}
		session.Committing++
		return nil
	})
	if err != nil {
		return models.BookingSession{}, err
	}

	method := snapshot.PaymentMethod
	if snapshot.RecordID == "" || method == "" {
		method = resolvePaymentMethod(in.PaymentMethod, snapshot.PaymentMethod)
	}
	recordID, err := s.Records.Commit(ctx, snapshot, method)
	if err != nil {
		s.log().Error("Failed to commit booking record",
			zap.String("bookingId", snapshot.BookingID),
			zap.String("event", event),
			zap.Error(err))
		s.release(snapshot.BookingID)
		s.Router.RouteToInitiator(connectionID, errorEvent, models.ErrorPayload{
			BookingID: snapshot.BookingID,
			Message:   "We couldn't save your booking right now. Please try again.",
		})
		return models.BookingSession{}, newCoordinationError(errorEvent, "record could not be saved", err)
	}

	session, _, err := s.mutate(connectionID, in.BookingID, event, func(session *models.BookingSession, actor models.Role) error {
		session.Committing = max(session.Committing-1, 0)
		if err := Apply(event, session, actor, now); err != nil {
			return err
		}
		if session.RecordID == "" {
			session.RecordID = recordID
			session.PaymentMethod = method
		}
		return nil
	})
	if err != nil {
		s.release(in.BookingID)
		return models.BookingSession{}, err
	}
	return session, nil
}

// release drops one in-flight write without touching anything else.
func (s *DefaultCoordinationService) release(bookingID string) {
	_, _ = s.Sessions.Update(bookingID, func(session *models.BookingSession) error {
		session.Committing = max(session.Committing-1, 0)
		return nil
	})
}

func resolvePaymentMethod(requested, current string) string {
	if m := strings.TrimSpace(requested); m != "" {
		return m
	}
	if current != "" {
		return current
	}
	return DefaultPaymentMethod
}

func paymentUpdate(session models.BookingSession) models.PaymentUpdate {
	return models.PaymentUpdate{
		BookingID:     session.BookingID,
		RecordID:      session.RecordID,
		Amount:        AmountDue(session),
		PaymentMethod: session.PaymentMethod,
	}
}

// SubmitReview closes the booking with the user's rating. The review is copied onto the durable
// record and the session is dropped.
func (s *DefaultCoordinationService) SubmitReview(ctx context.Context, connectionID string, in models.ReviewPayload) error {
	rating, ok := utils.ToFloat(in.Rating)
	if !ok {
		s.Router.RouteToInitiator(connectionID, models.EventError, models.ErrorPayload{
			BookingID: in.BookingID,
			Message:   "rating must be a number between 1 and 5",
		})
		return fmt.Errorf("%w: rating %v is not numeric", ErrInvalidPayload, in.Rating)
	}

	now := s.now()
	review := models.Review{
		Rating:    clampRating(rating),
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: now,
	}
	session, _, err := s.mutate(connectionID, in.BookingID, models.EventSubmitReview, func(session *models.BookingSession, actor models.Role) error {
		if err := Apply(models.EventSubmitReview, session, actor, now); err != nil {
			return err
		}
		session.Review = &review
		return nil
	})
	if err != nil {
		return err
	}
	s.Sessions.Remove(session.BookingID)

	reviewCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Records.AttachReview(reviewCtx, session.BookingID, review); err != nil {
		s.log().Warn("Failed to attach review to record",
			zap.String("bookingId", session.BookingID),
			zap.Error(err))
	}

	update := models.ReviewUpdate{BookingID: session.BookingID, Review: review}
	s.Router.RouteToRole(session, models.RoleProvider, models.EventReviewReceived, update)
	s.Router.RouteToInitiator(connectionID, models.EventReviewSubmitted, update)
	return nil
}

func clampRating(r float64) float64 {
	return math.Min(5, math.Max(1, r))
}
