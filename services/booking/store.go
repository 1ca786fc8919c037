package booking

import (
	"sync"
	"time"

	"handyhub/models"
)

// SessionStore owns every live BookingSession. Each session has its own lock, so events on
// different bookings never wait on each other while events on one booking are serialized.
// Sessions never leave the store by reference; callers always receive copies.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session *models.BookingSession
	removed bool
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*sessionEntry)}
}

// Create adds a new session. It fails with ErrSessionExists if the booking ID is taken.
func (s *SessionStore) Create(session models.BookingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.BookingID]; ok {
		return ErrSessionExists
	}
	c := session.Clone()
	s.sessions[session.BookingID] = &sessionEntry{session: &c}
	return nil
}

func (s *SessionStore) entry(bookingID string) (*sessionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[bookingID]
	return e, ok
}

// Get returns a copy of the session.
func (s *SessionStore) Get(bookingID string) (models.BookingSession, error) {
	return s.View(bookingID, nil)
}

// View runs fn against a copy of the session while holding the session lock, so fn observes a
// state no concurrent event can change underneath it. A nil fn just returns the copy.
func (s *SessionStore) View(bookingID string, fn func(models.BookingSession) error) (models.BookingSession, error) {
	e, ok := s.entry(bookingID)
	if !ok {
		return models.BookingSession{}, ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return models.BookingSession{}, ErrSessionNotFound
	}

	snapshot := e.session.Clone()
	if fn != nil {
		if err := fn(snapshot.Clone()); err != nil {
			return models.BookingSession{}, err
		}
	}
	return snapshot, nil
}

// Update applies fn to the session under its lock. fn works on a working copy which replaces the
// stored session only when fn returns nil, so a rejected event leaves no partial change behind.
// The returned value is a copy of the updated session.
func (s *SessionStore) Update(bookingID string, fn func(*models.BookingSession) error) (models.BookingSession, error) {
	e, ok := s.entry(bookingID)
	if !ok {
		return models.BookingSession{}, ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return models.BookingSession{}, ErrSessionNotFound
	}

	working := e.session.Clone()
	if err := fn(&working); err != nil {
		return models.BookingSession{}, err
	}
	e.session = &working
	return working.Clone(), nil
}

// Remove deletes the session. Events already waiting on its lock will see ErrSessionNotFound.
func (s *SessionStore) Remove(bookingID string) {
	s.mu.Lock()
	e, ok := s.sessions[bookingID]
	delete(s.sessions, bookingID)
	s.mu.Unlock()

	if !ok {
		return
	}
	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts sessions in a terminal state untouched for retention, and any session untouched
// for staleAfter when staleAfter is positive. It returns the evicted booking IDs.
func (s *SessionStore) Sweep(now time.Time, retention, staleAfter time.Duration) []string {
	s.mu.RLock()
	entries := make(map[string]*sessionEntry, len(s.sessions))
	for id, e := range s.sessions {
		entries[id] = e
	}
	s.mu.RUnlock()

	var evicted []string
	for id, e := range entries {
		if !e.evictIf(func(session *models.BookingSession) bool {
			idle := now.Sub(session.UpdatedAt)
			if session.Status.Terminal() && idle >= retention {
				return true
			}
			return staleAfter > 0 && idle >= staleAfter
		}) {
			continue
		}

		s.mu.Lock()
		if s.sessions[id] == e {
			delete(s.sessions, id)
		}
		s.mu.Unlock()
		evicted = append(evicted, id)
	}
	return evicted
}

// evictIf marks the entry removed when pred holds, checked under the entry lock.
func (e *sessionEntry) evictIf(pred func(*models.BookingSession) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed || !pred(e.session) {
		return false
	}
	e.removed = true
	return true
}
