package models

import (
	"encoding/json"
	"time"
)

// Inbound socket events (party -> server).
const (
	EventRegister                 = "register"
	EventSendBookingRequest       = "sendBookingRequest"
	EventAcceptBooking            = "acceptBooking"
	EventDeclineBooking           = "declineBooking"
	EventConfirmBooking           = "confirmBooking"
	EventCancelBooking            = "cancelBooking"
	EventSubmitProblemDescription = "submitProblemDescription"
	EventStartJob                 = "startJob"
	EventUpdateMaintenanceDetails = "updateMaintenanceDetails"
	EventCompleteJob              = "completeJob"
	EventSubmitPayment            = "submitPayment"
	EventSaveBookingForPayment    = "saveBookingForPayment"
	EventSubmitReview             = "submitReview"
	EventMarkAsRead               = "markAsRead"
	EventSendMessage              = "sendMessage"
)

// Outbound socket events (server -> party).
const (
	EventRegistered    = "registered"
	EventRegisterError = "registerError"
	EventError         = "error"

	EventBookingRequestSent     = "bookingRequestSent"
	EventBookingRequestReceived = "bookingRequestReceived"
	EventBookingRequestError    = "bookingRequestError"

	EventBookingAccepted        = "bookingAccepted"
	EventBookingAcceptedSuccess = "bookingAcceptedSuccess"
	EventBookingDeclined        = "bookingDeclined"
	EventBookingDeclinedSuccess = "bookingDeclinedSuccess"

	EventBookingConfirmed        = "bookingConfirmed"
	EventBookingConfirmedSuccess = "bookingConfirmedSuccess"
	EventBookingCancelled        = "bookingCancelled"
	EventBookingCancelledSuccess = "bookingCancelledSuccess"

	EventProblemDescriptionReceived  = "problemDescriptionReceived"
	EventProblemDescriptionSubmitted = "problemDescriptionSubmitted"

	EventJobStarted        = "jobStarted"
	EventJobStartedSuccess = "jobStartedSuccess"

	EventMaintenanceDetailsUpdated = "maintenanceDetailsUpdated"
	EventMaintenanceDetailsSaved   = "maintenanceDetailsSaved"

	EventProviderCompletedJob = "providerCompletedJob"
	EventUserCompletedJob     = "userCompletedJob"
	EventCompleteJobSuccess   = "completeJobSuccess"
	EventJobCompleted         = "jobCompleted"

	EventBookingSavedForPayment = "bookingSavedForPayment"
	EventBookingSaveError       = "bookingSaveError"
	EventPaymentReceived        = "paymentReceived"
	EventPaymentSuccess         = "paymentSuccess"
	EventPaymentError           = "paymentError"

	EventReviewReceived  = "reviewReceived"
	EventReviewSubmitted = "reviewSubmitted"

	EventNewMessage        = "newMessage"
	EventMessageSent       = "messageSent"
	EventMessageError      = "messageError"
	EventMessagesRead      = "messagesRead"
	EventMarkAsReadSuccess = "markAsReadSuccess"
)

// SocketEvent is the wire envelope for every inbound frame.
type SocketEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundEvent is the wire envelope for every outbound frame.
type OutboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ErrorPayload is the body of every *Error event.
type ErrorPayload struct {
	BookingID string `json:"bookingId,omitempty"`
	Message   string `json:"message"`
}

type RegisterPayload struct {
	PartyID   string `json:"partyId"`
	Role      Role   `json:"role"`
	PushToken string `json:"pushToken,omitempty"`
}

type BookingRequestPayload struct {
	PartyID             string   `json:"partyId"`
	CounterpartID       string   `json:"counterpartId"`
	ServiceType         string   `json:"serviceType"`
	Issue               string   `json:"issue"`
	ServiceDescription  string   `json:"serviceDescription"`
	Location            string   `json:"location"`
	ContactInfo         string   `json:"contactInfo"`
	CounterpartName     string   `json:"counterpartName"`
	CounterpartServices []string `json:"counterpartServices"`
	CounterpartImage    string   `json:"counterpartImage"`
	UserName            string   `json:"userName"`
}

// BookingRef addresses an existing booking; events without further payload use it directly.
type BookingRef struct {
	BookingID string `json:"bookingId"`
}

type DeclinePayload struct {
	BookingID string `json:"bookingId"`
	Reason    string `json:"reason,omitempty"`
}

type CancelPayload struct {
	BookingID      string `json:"bookingId"`
	Reason         string `json:"reason"`
	InitiatingRole Role   `json:"initiatingRole"`
}

type ProblemDescriptionPayload struct {
	BookingID string `json:"bookingId"`
	Text      string `json:"text"`
}

// MaterialInput keeps the cost loosely typed so malformed numbers can be coerced instead of rejected.
type MaterialInput struct {
	Name string `json:"name"`
	Cost any    `json:"cost"`
}

// MaintenanceInput is the provider-submitted cost breakdown. Numeric fields are loosely typed.
type MaintenanceInput struct {
	BookingID        string          `json:"bookingId"`
	DurationHours    any             `json:"durationHours"`
	HourlyRate       any             `json:"hourlyRate"`
	Materials        []MaterialInput `json:"materials"`
	AdditionalCharge any             `json:"additionalCharge"`
	Notes            string          `json:"notes"`
}

type CompleteJobPayload struct {
	BookingID       string `json:"bookingId"`
	CompletedByRole Role   `json:"completedByRole"`
}

type PaymentPayload struct {
	BookingID     string `json:"bookingId"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

type ReviewPayload struct {
	BookingID string `json:"bookingId"`
	Rating    any    `json:"rating"`
	Comment   string `json:"comment"`
}

type SendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

type MarkAsReadPayload struct {
	ConversationID string `json:"conversationId"`
}

// BookingUpdate is the common body of lifecycle notifications.
type BookingUpdate struct {
	BookingID string         `json:"bookingId"`
	Status    BookingStatus  `json:"status"`
	Session   BookingSession `json:"session"`
}

type CompletionUpdate struct {
	BookingID       string        `json:"bookingId"`
	Status          BookingStatus `json:"status"`
	CompletedBy     []Role        `json:"completedBy"`
	ElapsedHours    float64       `json:"elapsedHours,omitempty"`
	SuggestedCharge float64       `json:"suggestedCharge,omitempty"`
}

type CancellationUpdate struct {
	BookingID   string    `json:"bookingId"`
	Reason      string    `json:"reason"`
	CancelledBy Role      `json:"cancelledBy"`
	CancelledAt time.Time `json:"cancelledAt"`
}

type PaymentUpdate struct {
	BookingID     string  `json:"bookingId"`
	RecordID      string  `json:"recordId"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
}

type ReadReceipt struct {
	ConversationID string    `json:"conversationId"`
	ReaderID       string    `json:"readerId"`
	Count          int64     `json:"count"`
	ReadAt         time.Time `json:"readAt"`
}

type MaintenanceUpdate struct {
	BookingID   string             `json:"bookingId"`
	Maintenance MaintenanceDetails `json:"maintenance"`
}

type ReviewUpdate struct {
	BookingID string `json:"bookingId"`
	Review    Review `json:"review"`
}
