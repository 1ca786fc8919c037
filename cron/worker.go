package cron

import (
	"context"
	"fmt"
	"time"

	"handyhub/models"
	"handyhub/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ReceiptSender delivers a receipt to both parties of a booking.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, receipt models.ReceiptPayload) error
}

// ReceiptWorker consumes receipt:send tasks.
type ReceiptWorker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewReceiptWorker builds a worker reading from the task queue at opt.
func NewReceiptWorker(opt asynq.RedisClientOpt, sender ReceiptSender, logger *zap.Logger) *ReceiptWorker {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Warn("Task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendReceipt, handleReceiptTask(sender, logger))
	return &ReceiptWorker{srv: srv, mux: mux, logger: logger}
}

// Start runs the worker in the background, retrying the start with a growing delay.
func (w *ReceiptWorker) Start() {
	go func() {
		const maxAttempts = 5
		w.logger.Info("Starting receipt worker")
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			w.logger.Error("Receipt worker failed to start",
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err))
			if attempt == maxAttempts {
				w.logger.Error("Receipt worker gave up; receipts stay queued until the next restart")
				return
			}
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
	}()
}

// Shutdown stops taking tasks and waits for running handlers.
func (w *ReceiptWorker) Shutdown() {
	w.srv.Shutdown()
}

func handleReceiptTask(sender ReceiptSender, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseReceiptTask(task)
		if err != nil {
			logger.Error("Dropping malformed receipt task", zap.Error(err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}

		if err := sender.SendReceipt(ctx, p); err != nil {
			logger.Warn("Failed to send receipt",
				zap.String("bookingId", p.BookingID),
				zap.String("recordId", p.RecordID),
				zap.Error(err))
			return err
		}
		logger.Info("Receipt sent", zap.String("bookingId", p.BookingID), zap.String("recordId", p.RecordID))
		return nil
	}
}
