// Package registry tracks which party is behind each live socket connection.
package registry

import (
	"slices"
	"sync"
	"time"

	"handyhub/models"
)

// ConnectionRegistry maps transient connection IDs to (party, role) pairs. A miss is a normal
// outcome: the party is simply offline.
type ConnectionRegistry interface {
	Register(connectionID, partyID string, role models.Role)
	Unregister(connectionID string)
	// Find returns the most recently registered live connection of partyID holding role.
	Find(partyID string, role models.Role) (string, bool)
	// FindAll returns every live connection belonging to any of partyIDs.
	FindAll(partyIDs []string) []string
	FindByRole(role models.Role) []string
	Lookup(connectionID string) (models.ConnectionEntry, bool)
	Count() int
}

// InMemoryRegistry is a process-local ConnectionRegistry indexed by connection and by party.
type InMemoryRegistry struct {
	mu      sync.RWMutex
	byConn  map[string]models.ConnectionEntry
	byParty map[string][]string // connection IDs in registration order
	now     func() time.Time
}

// NewInMemoryRegistry returns an empty registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		byConn:  make(map[string]models.ConnectionEntry),
		byParty: make(map[string][]string),
		now:     time.Now,
	}
}

// Register upserts the entry for connectionID, replacing whatever was registered on it before.
func (r *InMemoryRegistry) Register(connectionID, partyID string, role models.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(connectionID)
	r.byConn[connectionID] = models.ConnectionEntry{
		ConnectionID: connectionID,
		PartyID:      partyID,
		Role:         role,
		RegisteredAt: r.now(),
	}
	r.byParty[partyID] = append(r.byParty[partyID], connectionID)
}

// Unregister drops connectionID. Other connections of the same party are untouched.
func (r *InMemoryRegistry) Unregister(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(connectionID)
}

func (r *InMemoryRegistry) removeLocked(connectionID string) {
	entry, ok := r.byConn[connectionID]
	if !ok {
		return
	}
	delete(r.byConn, connectionID)

	conns := slices.DeleteFunc(r.byParty[entry.PartyID], func(id string) bool { return id == connectionID })
	if len(conns) == 0 {
		delete(r.byParty, entry.PartyID)
		return
	}
	r.byParty[entry.PartyID] = conns
}

func (r *InMemoryRegistry) Find(partyID string, role models.Role) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byParty[partyID]
	for i := len(conns) - 1; i >= 0; i-- {
		if r.byConn[conns[i]].Role == role {
			return conns[i], true
		}
	}
	return "", false
}

func (r *InMemoryRegistry) FindAll(partyIDs []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(partyIDs))
	var out []string
	for _, partyID := range partyIDs {
		if seen[partyID] {
			continue
		}
		seen[partyID] = true
		out = append(out, r.byParty[partyID]...)
	}
	return out
}

// FindByRole returns all live connections registered with role, sorted for stable fan-out order.
func (r *InMemoryRegistry) FindByRole(role models.Role) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for id, entry := range r.byConn {
		if entry.Role == role {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (r *InMemoryRegistry) Lookup(connectionID string) (models.ConnectionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byConn[connectionID]
	return entry, ok
}

// Count returns the number of live registered connections.
func (r *InMemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
