package booking

import (
	"errors"
	"sync"
	"testing"
	"time"

	"handyhub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_CreateAndGet(t *testing.T) {
	store := NewSessionStore()
	require.NoError(t, store.Create(models.BookingSession{BookingID: "b1", Status: models.StatusPending}))
	assert.ErrorIs(t, store.Create(models.BookingSession{BookingID: "b1"}), ErrSessionExists)

	got, err := store.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	_, err = store.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_UpdateRollsBackOnError(t *testing.T) {
	store := NewSessionStore()
	require.NoError(t, store.Create(models.BookingSession{BookingID: "b1", Status: models.StatusOngoing}))

	boom := errors.New("boom")
	_, err := store.Update("b1", func(s *models.BookingSession) error {
		s.Status = models.StatusCompleted
		s.CompletedBy = append(s.CompletedBy, models.RoleUser)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOngoing, got.Status)
	assert.Empty(t, got.CompletedBy)
}

func TestSessionStore_CopiesDoNotAlias(t *testing.T) {
	store := NewSessionStore()
	require.NoError(t, store.Create(models.BookingSession{
		BookingID:   "b1",
		Maintenance: &models.MaintenanceDetails{Materials: []models.Material{{Name: "pipe", Cost: 10}}},
	}))

	got, err := store.Get("b1")
	require.NoError(t, err)
	got.Maintenance.Materials[0].Cost = 999

	again, err := store.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, again.Maintenance.Materials[0].Cost)
}

func TestSessionStore_SerializesUpdatesPerSession(t *testing.T) {
	store := NewSessionStore()
	require.NoError(t, store.Create(models.BookingSession{BookingID: "b1", Maintenance: &models.MaintenanceDetails{}}))

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Update("b1", func(s *models.BookingSession) error {
				s.Maintenance.AdditionalCharge++
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := store.Get("b1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Maintenance.AdditionalCharge)
}

func TestSessionStore_RemoveWhileLocked(t *testing.T) {
	store := NewSessionStore()
	require.NoError(t, store.Create(models.BookingSession{BookingID: "b1"}))

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)
	go func() {
		_, err := store.Update("b1", func(s *models.BookingSession) error {
			close(entered)
			<-release
			return nil
		})
		done <- err
	}()
	<-entered

	removed := make(chan struct{})
	go func() {
		store.Remove("b1")
		close(removed)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	assert.NoError(t, <-done)
	<-removed

	_, err := store.Update("b1", func(s *models.BookingSession) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.View("b1", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_Sweep(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore()
	require.NoError(t, store.Create(models.BookingSession{BookingID: "old-cancelled", Status: models.StatusCancelled, UpdatedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.Create(models.BookingSession{BookingID: "fresh-cancelled", Status: models.StatusCancelled, UpdatedAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Create(models.BookingSession{BookingID: "active", Status: models.StatusOngoing, UpdatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, store.Create(models.BookingSession{BookingID: "abandoned", Status: models.StatusPending, UpdatedAt: now.Add(-48 * time.Hour)}))

	evicted := store.Sweep(now, 30*time.Minute, 24*time.Hour)
	assert.ElementsMatch(t, []string{"old-cancelled", "abandoned"}, evicted)
	assert.Equal(t, 2, store.Len())

	_, err := store.Get("active")
	assert.NoError(t, err)
}
