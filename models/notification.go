package models

// ReceiptPayload is the body of the receipt task enqueued once a booking record is committed.
type ReceiptPayload struct {
	RecordID      string  `json:"recordId"`
	BookingID     string  `json:"bookingId"`
	UserID        string  `json:"userId"`
	ProviderID    string  `json:"providerId"`
	ServiceType   string  `json:"serviceType"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
}
