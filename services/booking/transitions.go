package booking

import (
	"context"
	"fmt"
	"strings"

	"handyhub/models"
	"handyhub/utils"

	"go.uber.org/zap"
)

func (s *DefaultCoordinationService) AcceptBooking(ctx context.Context, connectionID string, in models.BookingRef) error {
	now := s.now()
	session, _, err := s.mutate(connectionID, in.BookingID, models.EventAcceptBooking, func(session *models.BookingSession, actor models.Role) error {
		return Apply(models.EventAcceptBooking, session, actor, now)
	})
	if err != nil {
		return err
	}

	update := bookingUpdate(session)
	s.Router.RouteToRole(session, models.RoleUser, models.EventBookingAccepted, update)
	s.Router.RouteToInitiator(connectionID, models.EventBookingAcceptedSuccess, update)
	return nil
}

// DeclineBooking ends a pending request. The session is dropped straight away.
func (s *DefaultCoordinationService) DeclineBooking(ctx context.Context, connectionID string, in models.DeclinePayload) error {
	now := s.now()
	session, _, err := s.mutate(connectionID, in.BookingID, models.EventDeclineBooking, func(session *models.BookingSession, actor models.Role) error {
		return Apply(models.EventDeclineBooking, session, actor, now)
	})
	if err != nil {
		return err
	}
	s.Sessions.Remove(session.BookingID)

	update := models.CancellationUpdate{
		BookingID:   session.BookingID,
		Reason:      strings.TrimSpace(in.Reason),
		CancelledBy: models.RoleProvider,
		CancelledAt: now,
	}
	s.Router.RouteToRole(session, models.RoleUser, models.EventBookingDeclined, update)
	s.Router.RouteToInitiator(connectionID, models.EventBookingDeclinedSuccess, update)
	return nil
}

func (s *DefaultCoordinationService) ConfirmBooking(ctx context.Context, connectionID string, in models.BookingRef) error {
	now := s.now()
	session, _, err := s.mutate(connectionID, in.BookingID, models.EventConfirmBooking, func(session *models.BookingSession, actor models.Role) error {
		return Apply(models.EventConfirmBooking, session, actor, now)
	})
	if err != nil {
		return err
	}

	update := bookingUpdate(session)
	s.Router.RouteToRole(session, models.RoleProvider, models.EventBookingConfirmed, update)
	s.Router.RouteToInitiator(connectionID, models.EventBookingConfirmedSuccess, update)
	return nil
}

// CancelBooking cancels on behalf of in.InitiatingRole, which defaults to the caller's own role.
// Only admins may cancel on behalf of another role. The other side is notified; an admin
// cancellation notifies both. A booking cancelled while still pending is dropped at once.
func (s *DefaultCoordinationService) CancelBooking(ctx context.Context, connectionID string, in models.CancelPayload) error {
	now := s.now()
	reason := strings.TrimSpace(in.Reason)

	var (
		initiator models.Role
		previous  models.BookingStatus
	)
	session, _, err := s.mutate(connectionID, in.BookingID, models.EventCancelBooking, func(session *models.BookingSession, actor models.Role) error {
		initiator = in.InitiatingRole
		if initiator == "" {
			initiator = actor
		}
		if !initiator.Valid() {
			return fmt.Errorf("%w: unknown initiating role %q", ErrInvalidPayload, initiator)
		}
		if actor != models.RoleAdmin && initiator != actor {
			return fmt.Errorf("%w: %s cannot cancel as %s", ErrActorNotAllowed, actor, initiator)
		}
		previous = session.Status
		return ApplyCancellation(session, actor, initiator, reason, now)
	})
	if err != nil {
		return err
	}
	if previous == models.StatusPending {
		s.Sessions.Remove(session.BookingID)
	}

	update := models.CancellationUpdate{
		BookingID:   session.BookingID,
		Reason:      reason,
		CancelledBy: initiator,
		CancelledAt: now,
	}
	targets := []models.Role{initiator.Counterpart()}
	if initiator == models.RoleAdmin {
		targets = []models.Role{models.RoleUser, models.RoleProvider}
	}
	for _, target := range targets {
		s.Router.RouteToRole(session, target, models.EventBookingCancelled, update)
	}
	s.Router.RouteToInitiator(connectionID, models.EventBookingCancelledSuccess, update)
	return nil
}

func (s *DefaultCoordinationService) SubmitProblemDescription(ctx context.Context, connectionID string, in models.ProblemDescriptionPayload) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		s.Router.RouteToInitiator(connectionID, models.EventError, models.ErrorPayload{
			BookingID: in.BookingID,
			Message:   "problem description cannot be empty",
		})
		return fmt.Errorf("%w: empty problem description", ErrInvalidPayload)
	}

	now := s.now()
	session, actor, err := s.mutate(connectionID, in.BookingID, models.EventSubmitProblemDescription, func(session *models.BookingSession, actor models.Role) error {
		if err := Apply(models.EventSubmitProblemDescription, session, actor, now); err != nil {
			return err
		}
		session.Details.ProblemDescription = text
		return nil
	})
	if err != nil {
		return err
	}

	update := bookingUpdate(session)
	s.Router.RouteToRole(session, actor.Counterpart(), models.EventProblemDescriptionReceived, update)
	s.Router.RouteToInitiator(connectionID, models.EventProblemDescriptionSubmitted, update)
	return nil
}

func (s *DefaultCoordinationService) StartJob(ctx context.Context, connectionID string, in models.BookingRef) error {
	now := s.now()
	session, _, err := s.mutate(connectionID, in.BookingID, models.EventStartJob, func(session *models.BookingSession, actor models.Role) error {
		if err := Apply(models.EventStartJob, session, actor, now); err != nil {
			return err
		}
		session.StartedAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	update := bookingUpdate(session)
	s.Router.RouteToRole(session, models.RoleUser, models.EventJobStarted, update)
	s.Router.RouteToInitiator(connectionID, models.EventJobStartedSuccess, update)
	return nil
}

// UpdateMaintenanceDetails replaces the provider's cost breakdown. Every derived amount is
// recomputed here. Once the record is committed (or being committed) the breakdown is frozen.
func (s *DefaultCoordinationService) UpdateMaintenanceDetails(ctx context.Context, connectionID string, in models.MaintenanceInput) error {
	now := s.now()
	session, _, err := s.mutate(connectionID, in.BookingID, models.EventUpdateMaintenanceDetails, func(session *models.BookingSession, actor models.Role) error {
		if err := Apply(models.EventUpdateMaintenanceDetails, session, actor, now); err != nil {
			return err
		}
		if session.RecordID != "" || session.Committing > 0 {
			return fmt.Errorf("%w: %s is already committed", ErrInvalidTransition, session.BookingID)
		}
		maintenance := s.rates().BuildMaintenance(in)
		session.Maintenance = &maintenance
		return nil
	})
	if err != nil {
		return err
	}

	update := models.MaintenanceUpdate{BookingID: session.BookingID, Maintenance: *session.Maintenance}
	s.Router.RouteToRole(session, models.RoleUser, models.EventMaintenanceDetailsUpdated, update)
	s.Router.RouteToInitiator(connectionID, models.EventMaintenanceDetailsSaved, update)
	return nil
}

// CompleteJob records one side's completion signal. The first signal is forwarded to the other
// side and acknowledged to the sender; the second completes the job, prices it by elapsed time and
// tells both sides.
func (s *DefaultCoordinationService) CompleteJob(ctx context.Context, connectionID string, in models.CompleteJobPayload) error {
	now := s.now()
	var completed bool
	session, actor, err := s.mutate(connectionID, in.BookingID, models.EventCompleteJob, func(session *models.BookingSession, actor models.Role) error {
		role := in.CompletedByRole
		if role == "" {
			role = actor
		}
		if role != actor {
			return fmt.Errorf("%w: %s cannot complete as %s", ErrActorNotAllowed, actor, role)
		}
		done, err := ApplyCompletion(session, role, now)
		if err != nil {
			return err
		}
		completed = done
		if done {
			session.BaseCharge = s.rates().ComputeCharge(elapsedHours(*session))
		}
		return nil
	})
	if err != nil {
		return err
	}

	update := models.CompletionUpdate{
		BookingID:   session.BookingID,
		Status:      session.Status,
		CompletedBy: session.CompletedBy,
	}
	if !completed {
		event := models.EventProviderCompletedJob
		if actor == models.RoleUser {
			event = models.EventUserCompletedJob
		}
		s.Router.RouteToRole(session, actor.Counterpart(), event, update)
		s.Router.RouteToInitiator(connectionID, models.EventCompleteJobSuccess, update)
		return nil
	}

	update.ElapsedHours = elapsedHours(session)
	update.SuggestedCharge = session.BaseCharge
	s.log().Info("Job completed",
		zap.String("bookingId", session.BookingID),
		zap.Float64("elapsedHours", update.ElapsedHours),
		zap.Float64("suggestedCharge", update.SuggestedCharge))
	s.Router.RouteToRole(session, models.RoleUser, models.EventJobCompleted, update)
	s.Router.RouteToRole(session, models.RoleProvider, models.EventJobCompleted, update)
	return nil
}

// elapsedHours is the time between startJob and completion, 0 when either is unknown.
func elapsedHours(session models.BookingSession) float64 {
	if session.StartedAt == nil || session.CompletedAt == nil {
		return 0
	}
	hours := session.CompletedAt.Sub(*session.StartedAt).Hours()
	if hours < 0 {
		return 0
	}
	return utils.RoundMoney(hours)
}
