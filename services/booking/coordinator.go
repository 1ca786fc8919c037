package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"handyhub/models"

	"go.uber.org/zap"
)

// DeriveBookingID builds the ID of a new booking from its parties and creation time.
func DeriveBookingID(userID, providerID string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d", userID, providerID, at.UnixMilli())
}

func bookingUpdate(session models.BookingSession) models.BookingUpdate {
	return models.BookingUpdate{
		BookingID: session.BookingID,
		Status:    session.Status,
		Session:   session,
	}
}

// Register binds the connection to the party it claims and acknowledges the registration.
func (s *DefaultCoordinationService) Register(ctx context.Context, connectionID string, in models.RegisterPayload) error {
	in.PartyID = strings.TrimSpace(in.PartyID)
	if in.PartyID == "" || !in.Role.Valid() {
		s.Router.RouteToInitiator(connectionID, models.EventRegisterError, models.ErrorPayload{
			Message: "partyId and a role of user, provider or admin are required",
		})
		return fmt.Errorf("%w: register needs partyId and role", ErrInvalidPayload)
	}

	s.Registry.Register(connectionID, in.PartyID, in.Role)
	if in.PushToken != "" && s.Tokens != nil {
		if err := s.Tokens.Save(ctx, in.PartyID, in.PushToken); err != nil {
			s.log().Warn("Failed to store push token", zap.String("partyId", in.PartyID), zap.Error(err))
		}
	}

	entry, _ := s.Registry.Lookup(connectionID)
	s.log().Info("Connection registered",
		zap.String("connectionId", connectionID),
		zap.String("partyId", in.PartyID),
		zap.String("role", string(in.Role)))
	s.Router.RouteToInitiator(connectionID, models.EventRegistered, entry)
	return nil
}

// Disconnect forgets the connection. Sessions it took part in stay live.
func (s *DefaultCoordinationService) Disconnect(connectionID string) {
	s.Registry.Unregister(connectionID)
	s.log().Debug("Connection unregistered", zap.String("connectionId", connectionID))
}

// SendBookingRequest opens a pending session between the calling user and the requested
// provider. The request is refused outright when the provider has no live connection.
func (s *DefaultCoordinationService) SendBookingRequest(ctx context.Context, connectionID string, in models.BookingRequestPayload) (string, error) {
	entry, err := s.caller(connectionID)
	if err != nil {
		return "", err
	}

	reject := func(msg string, cause error) (string, error) {
		s.log().Info("Booking request rejected",
			zap.String("connectionId", connectionID),
			zap.String("userId", entry.PartyID),
			zap.String("providerId", in.CounterpartID),
			zap.Error(cause))
		s.Router.RouteToInitiator(connectionID, models.EventBookingRequestError, models.ErrorPayload{Message: msg})
		return "", newCoordinationError(models.EventBookingRequestError, msg, cause)
	}

	if entry.Role != models.RoleUser {
		return reject("only users can request a booking", ErrActorNotAllowed)
	}
	if in.PartyID != "" && in.PartyID != entry.PartyID {
		return reject("partyId does not match the registered connection", ErrNotParticipant)
	}
	providerID := strings.TrimSpace(in.CounterpartID)
	if providerID == "" {
		return reject("counterpartId is required", ErrInvalidPayload)
	}
	if _, ok := s.Registry.Find(providerID, models.RoleProvider); !ok {
		return reject("The provider is not available right now. Please try again later.", ErrCounterpartOffline)
	}

	now := s.now()
	session := models.BookingSession{
		BookingID:  DeriveBookingID(entry.PartyID, providerID, now),
		UserID:     entry.PartyID,
		ProviderID: providerID,
		Status:     models.StatusPending,
		Details: models.BookingDetails{
			ServiceType:      in.ServiceType,
			Issue:            in.Issue,
			Description:      in.ServiceDescription,
			Location:         in.Location,
			ContactInfo:      in.ContactInfo,
			ProviderName:     in.CounterpartName,
			ProviderServices: in.CounterpartServices,
			ProviderImage:    in.CounterpartImage,
			UserName:         in.UserName,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Sessions.Create(session); err != nil {
		return reject("A request to this provider is already being created. Please wait a moment.", err)
	}

	s.log().Info("Booking requested",
		zap.String("bookingId", session.BookingID),
		zap.String("userId", session.UserID),
		zap.String("providerId", session.ProviderID))

	update := bookingUpdate(session)
	s.Router.RouteToRole(session, models.RoleProvider, models.EventBookingRequestReceived, update)
	s.Router.RouteToInitiator(connectionID, models.EventBookingRequestSent, update)
	return session.BookingID, nil
}

// caller resolves the registry entry behind connectionID. Unregistered connections are told to
// register first.
func (s *DefaultCoordinationService) caller(connectionID string) (models.ConnectionEntry, error) {
	entry, ok := s.Registry.Lookup(connectionID)
	if !ok {
		s.Router.RouteToInitiator(connectionID, models.EventError, models.ErrorPayload{
			Message: "register this connection before sending booking events",
		})
		return models.ConnectionEntry{}, ErrNotRegistered
	}
	return entry, nil
}

// actorRole is the role entry plays on session. Admins act as admin on any booking; everyone
// else must be the party holding their role.
func actorRole(entry models.ConnectionEntry, session *models.BookingSession) (models.Role, error) {
	switch {
	case entry.Role == models.RoleAdmin:
		return models.RoleAdmin, nil
	case entry.Role == models.RoleUser && entry.PartyID == session.UserID:
		return models.RoleUser, nil
	case entry.Role == models.RoleProvider && entry.PartyID == session.ProviderID:
		return models.RoleProvider, nil
	}
	return "", fmt.Errorf("%w: %s (%s) on %s", ErrNotParticipant, entry.PartyID, entry.Role, session.BookingID)
}

// mutate runs fn on the booking under its lock for the calling connection and returns the
// committed session with the role the caller acted as.
func (s *DefaultCoordinationService) mutate(
	connectionID, bookingID, event string,
	fn func(session *models.BookingSession, actor models.Role) error,
) (models.BookingSession, models.Role, error) {
	entry, err := s.caller(connectionID)
	if err != nil {
		return models.BookingSession{}, "", err
	}

	var actor models.Role
	session, err := s.Sessions.Update(bookingID, func(session *models.BookingSession) error {
		role, err := actorRole(entry, session)
		if err != nil {
			return err
		}
		actor = role
		return fn(session, role)
	})
	if err != nil {
		s.dropped(connectionID, bookingID, event, err)
		return models.BookingSession{}, actor, err
	}

	s.log().Info("Booking updated",
		zap.String("bookingId", bookingID),
		zap.String("event", event),
		zap.String("actor", string(actor)),
		zap.String("status", string(session.Status)))
	return session, actor, nil
}

// dropped logs an event that had no effect on the booking.
func (s *DefaultCoordinationService) dropped(connectionID, bookingID, event string, err error) {
	fields := []zap.Field{
		zap.String("connectionId", connectionID),
		zap.String("bookingId", bookingID),
		zap.String("event", event),
		zap.Error(err),
	}
	if Ignorable(err) {
		s.log().Info("Booking event ignored", fields...)
		return
	}
	s.log().Warn("Booking event rejected", fields...)
}
