package notification

import (
	"context"
	"fmt"

	"handyhub/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// PushService sends receipts to devices that are not necessarily connected.
type PushService interface {
	SendReceipt(ctx context.Context, receipt models.ReceiptPayload) error
}

// MessageSender is the part of the FCM client the push service needs.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// TokenSource resolves a party's push token.
type TokenSource interface {
	Token(ctx context.Context, partyID string) (string, error)
}

// FCMPushService delivers pushes through Firebase Cloud Messaging. A nil Client turns every
// send into a logged no-op.
type FCMPushService struct {
	Client MessageSender
	Tokens TokenSource
	Logger *zap.Logger
}

func NewFCMPushService(client MessageSender, tokens TokenSource, logger *zap.Logger) *FCMPushService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FCMPushService{Client: client, Tokens: tokens, Logger: logger}
}

// SendReceipt tells both parties the booking has been recorded. A party without a token is
// skipped; the first send error is returned so the task can be retried.
func (s *FCMPushService) SendReceipt(ctx context.Context, receipt models.ReceiptPayload) error {
	data := map[string]string{
		"type":      "booking_receipt",
		"bookingId": receipt.BookingID,
		"recordId":  receipt.RecordID,
		"amount":    fmt.Sprintf("%.2f", receipt.Amount),
	}

	var firstErr error
	targets := []struct {
		partyID string
		role    models.Role
		body    string
	}{
		{receipt.UserID, models.RoleUser, fmt.Sprintf("Your %s booking is saved. Amount due: %.2f (%s).", receipt.ServiceType, receipt.Amount, receipt.PaymentMethod)},
		{receipt.ProviderID, models.RoleProvider, fmt.Sprintf("Booking %s is saved for payment of %.2f.", receipt.BookingID, receipt.Amount)},
	}
	for _, t := range targets {
		if err := s.send(ctx, t.partyID, t.role, "Booking receipt", t.body, data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *FCMPushService) send(ctx context.Context, partyID string, role models.Role, title, body string, data map[string]string) error {
	if s.Client == nil {
		s.Logger.Debug("Push disabled, skipping", zap.String("partyId", partyID))
		return nil
	}
	token, err := s.Tokens.Token(ctx, partyID)
	if err != nil {
		return err
	}
	if token == "" {
		s.Logger.Info("No push token on file", zap.String("partyId", partyID), zap.String("role", string(role)))
		return nil
	}

	payload := make(map[string]string, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["role"] = string(role)

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: payload,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
		},
	}
	id, err := s.Client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to push receipt to %s %s: %w", role, partyID, err)
	}
	s.Logger.Info("Receipt pushed", zap.String("partyId", partyID), zap.String("messageId", id))
	return nil
}
