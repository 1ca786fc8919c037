package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"handyhub/models"
	"handyhub/services/booking"
	"handyhub/services/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type receiptSender struct {
	got []models.ReceiptPayload
	err error
}

func (s *receiptSender) SendReceipt(ctx context.Context, receipt models.ReceiptPayload) error {
	s.got = append(s.got, receipt)
	return s.err
}

func TestHandleReceiptTask(t *testing.T) {
	payload := models.ReceiptPayload{RecordID: "r1", BookingID: "b1", UserID: "u1", ProviderID: "p1", Amount: 400}
	task, _, err := tasks.NewReceiptTask(payload)
	require.NoError(t, err)

	sender := &receiptSender{}
	require.NoError(t, handleReceiptTask(sender, zap.NewNop())(context.Background(), task))
	require.Len(t, sender.got, 1)
	assert.Equal(t, payload, sender.got[0])

	sender.err = errors.New("fcm unavailable")
	err = handleReceiptTask(sender, zap.NewNop())(context.Background(), task)
	assert.ErrorIs(t, err, sender.err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleReceiptTask_MalformedPayloadSkipsRetry(t *testing.T) {
	task := asynq.NewTask(tasks.TypeSendReceipt, []byte("{"))
	sender := &receiptSender{}

	err := handleReceiptTask(sender, zap.NewNop())(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, sender.got)
}

func TestSweepOnce(t *testing.T) {
	store := booking.NewSessionStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(models.BookingSession{BookingID: "done", Status: models.StatusCancelled, UpdatedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.Create(models.BookingSession{BookingID: "fresh", Status: models.StatusCancelled, UpdatedAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Create(models.BookingSession{BookingID: "live", Status: models.StatusOngoing, UpdatedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.Create(models.BookingSession{BookingID: "abandoned", Status: models.StatusAccepted, UpdatedAt: now.Add(-2 * staleSessionAge)}))

	assert.Equal(t, 2, sweepOnce(store, now, 30*time.Minute, zap.NewNop()))
	assert.Equal(t, 2, store.Len())
	_, err := store.Get("live")
	assert.NoError(t, err)
	_, err = store.Get("done")
	assert.ErrorIs(t, err, booking.ErrSessionNotFound)
}

func TestStartSessionSweeper(t *testing.T) {
	store := booking.NewSessionStore()
	require.NoError(t, store.Create(models.BookingSession{BookingID: "done", Status: models.StatusDeclined, UpdatedAt: time.Now().Add(-time.Hour)}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartSessionSweeper(ctx, store, 10*time.Millisecond, time.Minute, zap.NewNop())

	assert.Eventually(t, func() bool { return store.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
