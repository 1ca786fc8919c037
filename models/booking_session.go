package models

import (
	"slices"
	"time"
)

// BookingStatus is the lifecycle state of a live booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusAccepted  BookingStatus = "accepted"
	StatusConfirmed BookingStatus = "confirmed"
	StatusOngoing   BookingStatus = "ongoing"
	StatusCompleted BookingStatus = "completed"
	StatusPaid      BookingStatus = "paid"
	StatusReviewed  BookingStatus = "reviewed"
	StatusDeclined  BookingStatus = "declined"
	StatusCancelled BookingStatus = "cancelled"
)

// Terminal reports whether no further lifecycle event can apply.
func (s BookingStatus) Terminal() bool {
	return s == StatusDeclined || s == StatusCancelled || s == StatusReviewed
}

// BookingDetails is captured when the user sends the request. The counterpart fields are a
// human-readable snapshot so neither side has to look the other up while the booking is live.
type BookingDetails struct {
	ServiceType        string   `json:"serviceType"`
	Issue              string   `json:"issue,omitempty"`
	Description        string   `json:"description,omitempty"`
	Location           string   `json:"location,omitempty"`
	ContactInfo        string   `json:"contactInfo,omitempty"`
	ProblemDescription string   `json:"problemDescription,omitempty"`
	ProviderName       string   `json:"providerName,omitempty"`
	ProviderServices   []string `json:"providerServices,omitempty"`
	ProviderImage      string   `json:"providerImage,omitempty"`
	UserName           string   `json:"userName,omitempty"`
}

// Material is a single line of parts used on the job.
type Material struct {
	Name string  `bson:"name" json:"name"`
	Cost float64 `bson:"cost" json:"cost"`
}

// MaintenanceDetails is the provider's cost breakdown. Every derived field is recomputed
// server-side; totals sent by a client are never trusted.
type MaintenanceDetails struct {
	JobDurationHours float64    `bson:"jobDurationHours" json:"jobDurationHours"`
	HourlyRate       float64    `bson:"hourlyRate" json:"hourlyRate"`
	HourlyCharge     float64    `bson:"hourlyCharge" json:"hourlyCharge"`
	Materials        []Material `bson:"materials" json:"materials"`
	MaterialCost     float64    `bson:"materialCost" json:"materialCost"`
	AdditionalCharge float64    `bson:"additionalCharge" json:"additionalCharge"`
	TotalPrice       float64    `bson:"totalPrice" json:"totalPrice"`
	Notes            string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Cancellation records who cancelled a booking, when and why.
type Cancellation struct {
	Reason      string    `json:"reason"`
	InitiatedBy Role      `json:"initiatedBy"`
	CancelledAt time.Time `json:"cancelledAt"`
}

// BookingSession is the in-memory state of one booking transaction.
type BookingSession struct {
	BookingID     string              `json:"bookingId"`
	UserID        string              `json:"userId"`
	ProviderID    string              `json:"providerId"`
	Status        BookingStatus       `json:"status"`
	Details       BookingDetails      `json:"details"`
	Maintenance   *MaintenanceDetails `json:"maintenance,omitempty"`
	CompletedBy   []Role              `json:"completedBy,omitempty"`
	BaseCharge    float64             `json:"baseCharge,omitempty"`
	Review        *Review             `json:"review,omitempty"`
	Cancellation  *Cancellation       `json:"cancellation,omitempty"`
	RecordID      string              `json:"recordId,omitempty"`
	PaymentMethod string              `json:"paymentMethod,omitempty"`
	Committing    int                 `json:"-"` // durable writes in flight
	StartedAt     *time.Time          `json:"startedAt,omitempty"`
	CompletedAt   *time.Time          `json:"completedAt,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// PartyFor returns the party holding role on this booking.
func (s *BookingSession) PartyFor(role Role) string {
	switch role {
	case RoleUser:
		return s.UserID
	case RoleProvider:
		return s.ProviderID
	}
	return ""
}

// Participants returns the party IDs taking part in the booking.
func (s *BookingSession) Participants() []string {
	return []string{s.UserID, s.ProviderID}
}

// HasCompleted reports whether role already signalled completion.
func (s *BookingSession) HasCompleted(role Role) bool {
	return slices.Contains(s.CompletedBy, role)
}

// Clone returns a deep copy that shares no mutable state with s.
func (s *BookingSession) Clone() BookingSession {
	c := *s
	c.Details.ProviderServices = slices.Clone(s.Details.ProviderServices)
	c.CompletedBy = slices.Clone(s.CompletedBy)
	if s.Maintenance != nil {
		m := *s.Maintenance
		m.Materials = slices.Clone(s.Maintenance.Materials)
		c.Maintenance = &m
	}
	if s.Review != nil {
		r := *s.Review
		c.Review = &r
	}
	if s.Cancellation != nil {
		cn := *s.Cancellation
		c.Cancellation = &cn
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
