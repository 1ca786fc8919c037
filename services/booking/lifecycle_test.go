package booking

import (
	"slices"
	"testing"
	"time"

	"handyhub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []models.BookingStatus{
	models.StatusPending, models.StatusAccepted, models.StatusConfirmed, models.StatusOngoing,
	models.StatusCompleted, models.StatusPaid, models.StatusReviewed, models.StatusDeclined,
	models.StatusCancelled,
}

func TestTransitionTable(t *testing.T) {
	now := time.Now()
	for event, rule := range transitions {
		for _, status := range allStatuses {
			for _, actor := range rule.Actors {
				session := &models.BookingSession{Status: status}
				err := Apply(event, session, actor, now)
				if slices.Contains(rule.From, status) {
					require.NoError(t, err, "%s from %s by %s", event, status, actor)
					if rule.To != "" {
						assert.Equal(t, rule.To, session.Status)
					} else {
						assert.Equal(t, status, session.Status)
					}
					continue
				}
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s from %s by %s", event, status, actor)
				assert.Equal(t, status, session.Status)
			}
		}
	}
}

func TestTerminalStatusesAcceptNothing(t *testing.T) {
	for event, rule := range transitions {
		for _, status := range []models.BookingStatus{models.StatusDeclined, models.StatusCancelled, models.StatusReviewed} {
			session := &models.BookingSession{Status: status}
			assert.Error(t, Validate(event, session, rule.Actors[0]))
		}
	}
}

func TestValidate_ChecksActor(t *testing.T) {
	session := &models.BookingSession{Status: models.StatusPending}
	assert.ErrorIs(t, Validate(models.EventAcceptBooking, session, models.RoleUser), ErrActorNotAllowed)
	assert.ErrorIs(t, Validate(models.EventAcceptBooking, session, models.RoleAdmin), ErrActorNotAllowed)
	assert.NoError(t, Validate(models.EventCancelBooking, session, models.RoleAdmin))
	assert.ErrorIs(t, Validate("teleport", session, models.RoleUser), ErrInvalidTransition)
}

func TestApplyCompletion(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	session := &models.BookingSession{Status: models.StatusOngoing}

	done, err := ApplyCompletion(session, models.RoleUser, now)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, models.StatusOngoing, session.Status)

	_, err = ApplyCompletion(session, models.RoleUser, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, session.CompletedBy, 1)

	done, err = ApplyCompletion(session, models.RoleProvider, now)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, models.StatusCompleted, session.Status)
	require.NotNil(t, session.CompletedAt)
	assert.Equal(t, now, *session.CompletedAt)
}

func TestApplyCancellation(t *testing.T) {
	now := time.Now()
	session := &models.BookingSession{Status: models.StatusConfirmed}

	require.NoError(t, ApplyCancellation(session, models.RoleAdmin, models.RoleUser, "duplicate", now))
	assert.Equal(t, models.StatusCancelled, session.Status)
	assert.Equal(t, &models.Cancellation{Reason: "duplicate", InitiatedBy: models.RoleUser, CancelledAt: now}, session.Cancellation)

	assert.ErrorIs(t, ApplyCancellation(session, models.RoleUser, models.RoleUser, "", now), ErrInvalidTransition)
}
