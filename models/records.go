// File: models/records.go
package models

import "time"

// BookingRecord is the durable form of a paid booking. BookingID is unique across records.
type BookingRecord struct {
	ID               string     `bson:"id" json:"id"`               // Storage-assigned record ID
	BookingID        string     `bson:"bookingId" json:"bookingId"` // Live booking this record was committed from
	UserID           string     `bson:"userId" json:"userId"`
	ProviderID       string     `bson:"providerId" json:"providerId"`
	ServiceType      string     `bson:"serviceType" json:"serviceType"`
	Issue            string     `bson:"issue,omitempty" json:"issue,omitempty"`
	Description      string     `bson:"description,omitempty" json:"description,omitempty"`
	Location         string     `bson:"location,omitempty" json:"location,omitempty"`
	JobDurationHours float64    `bson:"jobDurationHours" json:"jobDurationHours"`
	HourlyRate       float64    `bson:"hourlyRate" json:"hourlyRate"`
	HourlyCharge     float64    `bson:"hourlyCharge" json:"hourlyCharge"`
	Materials        []Material `bson:"materials" json:"materials"`
	MaterialCost     float64    `bson:"materialCost" json:"materialCost"`
	AdditionalCharge float64    `bson:"additionalCharge" json:"additionalCharge"`
	TotalPrice       float64    `bson:"totalPrice" json:"totalPrice"`
	BaseCharge       float64    `bson:"baseCharge" json:"baseCharge"` // Duration-based suggested labour charge
	Notes            string     `bson:"notes,omitempty" json:"notes,omitempty"`
	PaymentMethod    string     `bson:"paymentMethod" json:"paymentMethod"`
	Status           string     `bson:"status" json:"status"`
	Review           *Review    `bson:"review,omitempty" json:"review,omitempty"`
	StartedAt        *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt      *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt        time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type Review struct {
	Rating    float64   `bson:"rating" json:"rating"`   // Expected value between 1 and 5.
	Comment   string    `bson:"comment" json:"comment"` // Customer's feedback.
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
