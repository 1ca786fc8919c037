package booking

import (
	"context"
	"time"

	"handyhub/models"
	"handyhub/services/registry"

	"go.uber.org/zap"
)

// CoordinationService handles every inbound booking event of a live connection.
type CoordinationService interface {
	Register(ctx context.Context, connectionID string, in models.RegisterPayload) error
	Disconnect(connectionID string)
	SendBookingRequest(ctx context.Context, connectionID string, in models.BookingRequestPayload) (string, error)
	AcceptBooking(ctx context.Context, connectionID string, in models.BookingRef) error
	DeclineBooking(ctx context.Context, connectionID string, in models.DeclinePayload) error
	ConfirmBooking(ctx context.Context, connectionID string, in models.BookingRef) error
	CancelBooking(ctx context.Context, connectionID string, in models.CancelPayload) error
	SubmitProblemDescription(ctx context.Context, connectionID string, in models.ProblemDescriptionPayload) error
	StartJob(ctx context.Context, connectionID string, in models.BookingRef) error
	UpdateMaintenanceDetails(ctx context.Context, connectionID string, in models.MaintenanceInput) error
	CompleteJob(ctx context.Context, connectionID string, in models.CompleteJobPayload) error
	SaveBookingForPayment(ctx context.Context, connectionID string, in models.PaymentPayload) (string, error)
	SubmitPayment(ctx context.Context, connectionID string, in models.PaymentPayload) error
	SubmitReview(ctx context.Context, connectionID string, in models.ReviewPayload) error
	GetSession(bookingID string) (models.BookingSession, error)
}

// EventRouter delivers notifications to live connections, best effort.
type EventRouter interface {
	RouteToRole(session models.BookingSession, target models.Role, event string, payload any) bool
	RouteToInitiator(connectionID, event string, payload any) bool
}

// RecordCommitter converts a finished session into its durable record.
type RecordCommitter interface {
	Commit(ctx context.Context, session models.BookingSession, paymentMethod string) (string, error)
	AttachReview(ctx context.Context, bookingID string, review models.Review) error
}

// PushTokenStore keeps the push token a party supplied when registering.
type PushTokenStore interface {
	Save(ctx context.Context, partyID, token string) error
}

// DefaultCoordinationService implements CoordinationService.
type DefaultCoordinationService struct {
	Sessions *SessionStore
	Registry registry.ConnectionRegistry
	Router   EventRouter
	Records  RecordCommitter
	Tokens   PushTokenStore // optional
	Rates    Rates
	Logger   *zap.Logger
	Now      func() time.Time
}

func (s *DefaultCoordinationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DefaultCoordinationService) log() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s *DefaultCoordinationService) rates() Rates {
	if s.Rates.MinimumCharge == 0 && s.Rates.HourlyRate == 0 {
		return DefaultRates()
	}
	return s.Rates
}

// GetSession returns a copy of a live session.
func (s *DefaultCoordinationService) GetSession(bookingID string) (models.BookingSession, error) {
	return s.Sessions.Get(bookingID)
}
