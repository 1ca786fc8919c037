package booking

import (
	"fmt"
	"slices"
	"time"

	"handyhub/models"
)

// Transition describes one inbound lifecycle event: the statuses it may fire from, the status it
// moves to (empty when the event only amends the session) and the roles allowed to send it.
type Transition struct {
	Event  string
	From   []models.BookingStatus
	To     models.BookingStatus
	Actors []models.Role
}

var transitions = map[string]Transition{
	models.EventAcceptBooking: {
		From:   []models.BookingStatus{models.StatusPending},
		To:     models.StatusAccepted,
		Actors: []models.Role{models.RoleProvider},
	},
	models.EventDeclineBooking: {
		From:   []models.BookingStatus{models.StatusPending},
		To:     models.StatusDeclined,
		Actors: []models.Role{models.RoleProvider},
	},
	models.EventConfirmBooking: {
		From:   []models.BookingStatus{models.StatusAccepted},
		To:     models.StatusConfirmed,
		Actors: []models.Role{models.RoleUser},
	},
	models.EventCancelBooking: {
		From:   []models.BookingStatus{models.StatusPending, models.StatusAccepted, models.StatusConfirmed},
		To:     models.StatusCancelled,
		Actors: []models.Role{models.RoleUser, models.RoleProvider, models.RoleAdmin},
	},
	models.EventSubmitProblemDescription: {
		From:   []models.BookingStatus{models.StatusAccepted, models.StatusConfirmed, models.StatusOngoing},
		Actors: []models.Role{models.RoleUser, models.RoleProvider},
	},
	models.EventStartJob: {
		From:   []models.BookingStatus{models.StatusConfirmed},
		To:     models.StatusOngoing,
		Actors: []models.Role{models.RoleProvider},
	},
	models.EventUpdateMaintenanceDetails: {
		From:   []models.BookingStatus{models.StatusOngoing, models.StatusCompleted},
		Actors: []models.Role{models.RoleProvider},
	},
	// completeJob only moves to completed once both roles have signalled; see ApplyCompletion.
	models.EventCompleteJob: {
		From:   []models.BookingStatus{models.StatusOngoing},
		Actors: []models.Role{models.RoleUser, models.RoleProvider},
	},
	models.EventSaveBookingForPayment: {
		From:   []models.BookingStatus{models.StatusCompleted, models.StatusPaid},
		Actors: []models.Role{models.RoleUser, models.RoleProvider},
	},
	models.EventSubmitPayment: {
		From:   []models.BookingStatus{models.StatusCompleted},
		To:     models.StatusPaid,
		Actors: []models.Role{models.RoleUser},
	},
	models.EventSubmitReview: {
		From:   []models.BookingStatus{models.StatusPaid},
		To:     models.StatusReviewed,
		Actors: []models.Role{models.RoleUser},
	},
}

func init() {
	for name, t := range transitions {
		t.Event = name
		transitions[name] = t
	}
}

// TransitionFor returns the rule for a lifecycle event.
func TransitionFor(event string) (Transition, bool) {
	t, ok := transitions[event]
	return t, ok
}

// Validate checks event against the session's current status and the acting role without
// changing anything.
func Validate(event string, session *models.BookingSession, actor models.Role) error {
	t, ok := transitions[event]
	if !ok {
		return fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, event)
	}
	if !slices.Contains(t.Actors, actor) {
		return fmt.Errorf("%w: %s cannot send %s", ErrActorNotAllowed, actor, event)
	}
	if !slices.Contains(t.From, session.Status) {
		return fmt.Errorf("%w: %s not allowed from %s", ErrInvalidTransition, event, session.Status)
	}
	return nil
}

// Apply validates event and moves the session to the event's target status.
func Apply(event string, session *models.BookingSession, actor models.Role, now time.Time) error {
	if err := Validate(event, session, actor); err != nil {
		return err
	}
	if t := transitions[event]; t.To != "" {
		session.Status = t.To
	}
	session.UpdatedAt = now
	return nil
}

// ApplyCompletion records role's completion signal. The first signal leaves the status at
// ongoing; the second (from the other role) moves the session to completed and returns true.
// A repeated signal from the same role is an invalid transition.
func ApplyCompletion(session *models.BookingSession, role models.Role, now time.Time) (bool, error) {
	if err := Validate(models.EventCompleteJob, session, role); err != nil {
		return false, err
	}
	if session.HasCompleted(role) {
		return false, fmt.Errorf("%w: %s already signalled completion", ErrInvalidTransition, role)
	}

	session.CompletedBy = append(session.CompletedBy, role)
	session.UpdatedAt = now
	if len(session.CompletedBy) < 2 {
		return false, nil
	}
	session.Status = models.StatusCompleted
	session.CompletedAt = &now
	return true, nil
}

// ApplyCancellation cancels the session on behalf of initiator and records why.
func ApplyCancellation(session *models.BookingSession, actor, initiator models.Role, reason string, now time.Time) error {
	if err := Apply(models.EventCancelBooking, session, actor, now); err != nil {
		return err
	}
	session.Cancellation = &models.Cancellation{
		Reason:      reason,
		InitiatedBy: initiator,
		CancelledAt: now,
	}
	return nil
}
