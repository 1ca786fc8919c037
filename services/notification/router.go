// Package notification delivers booking events to live sockets and push receipts to devices.
package notification

import (
	"slices"

	"handyhub/models"
	"handyhub/services/registry"

	"go.uber.org/zap"
)

// Sender writes one frame to a live connection. It reports false when the connection is gone or
// cannot take more frames.
type Sender interface {
	Send(connectionID string, event models.OutboundEvent) bool
}

// Router resolves booking roles to live connections and hands frames to the Sender. Delivery is
// best effort: an offline target is logged and skipped.
type Router struct {
	Registry registry.ConnectionRegistry
	Sender   Sender
	Logger   *zap.Logger
}

func NewRouter(reg registry.ConnectionRegistry, sender Sender, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{Registry: reg, Sender: sender, Logger: logger}
}

// RouteToRole sends event to the most recent connection of whoever holds target on session.
// An admin target reaches every admin connection.
func (r *Router) RouteToRole(session models.BookingSession, target models.Role, event string, payload any) bool {
	if target == models.RoleAdmin {
		return r.Broadcast(nil, true, nil, event, payload) > 0
	}

	partyID := session.PartyFor(target)
	connectionID, ok := r.Registry.Find(partyID, target)
	if !ok {
		r.Logger.Info("Notification target offline",
			zap.String("bookingId", session.BookingID),
			zap.String("partyId", partyID),
			zap.String("role", string(target)),
			zap.String("event", event))
		return false
	}
	return r.RouteToInitiator(connectionID, event, payload)
}

// RouteToInitiator replies on the connection that sent the triggering event.
func (r *Router) RouteToInitiator(connectionID, event string, payload any) bool {
	if connectionID == "" {
		return false
	}
	if !r.Sender.Send(connectionID, models.OutboundEvent{Event: event, Data: payload}) {
		r.Logger.Warn("Notification dropped",
			zap.String("connectionId", connectionID),
			zap.String("event", event))
		return false
	}
	return true
}

// FanOut sends event to every participant and every admin, leaving out all connections of
// excludePartyID so a sender's other devices are not echoed.
func (r *Router) FanOut(partyIDs []string, excludePartyID string, event string, payload any) int {
	var skip []string
	if excludePartyID != "" {
		skip = r.Registry.FindAll([]string{excludePartyID})
	}
	return r.Broadcast(partyIDs, true, skip, event, payload)
}

// Broadcast sends event to every live connection of partyIDs, and of every admin when
// withAdmins is set. Connections listed in skip are left out. It returns the number of frames
// handed to the Sender.
func (r *Router) Broadcast(partyIDs []string, withAdmins bool, skip []string, event string, payload any) int {
	targets := r.Registry.FindAll(partyIDs)
	if withAdmins {
		targets = append(targets, r.Registry.FindByRole(models.RoleAdmin)...)
	}
	slices.Sort(targets)
	targets = slices.Compact(targets)

	sent := 0
	for _, connectionID := range targets {
		if slices.Contains(skip, connectionID) {
			continue
		}
		if r.RouteToInitiator(connectionID, event, payload) {
			sent++
		}
	}
	return sent
}
