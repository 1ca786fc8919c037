package models

import "time"

// Role is the function a party plays in a booking.
type Role string

const (
	RoleUser     Role = "user"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Counterpart returns the opposite booking role. Admins have no counterpart.
func (r Role) Counterpart() Role {
	switch r {
	case RoleUser:
		return RoleProvider
	case RoleProvider:
		return RoleUser
	}
	return ""
}

// ConnectionEntry binds a live socket connection to the party that registered on it.
type ConnectionEntry struct {
	ConnectionID string    `json:"connectionId"`
	PartyID      string    `json:"partyId"`
	Role         Role      `json:"role"`
	RegisteredAt time.Time `json:"registeredAt"`
}
