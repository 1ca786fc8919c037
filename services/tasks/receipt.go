package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"handyhub/models"

	"github.com/hibiken/asynq"
)

const TypeSendReceipt = "receipt:send"

func NewReceiptTask(payload models.ReceiptPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReceipt, b)
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
		// One receipt per record, however many times the commit is retried.
		asynq.TaskID(TypeSendReceipt + ":" + payload.RecordID),
	}
	return task, opts, nil
}

// ParseReceiptTask decodes the payload of a receipt task.
func ParseReceiptTask(task *asynq.Task) (models.ReceiptPayload, error) {
	var p models.ReceiptPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid receipt payload: %w", err)
	}
	return p, nil
}

// Enqueuer puts receipt tasks on the asynq queue.
type Enqueuer struct {
	Client *asynq.Client
}

func NewEnqueuer(opt asynq.RedisClientOpt) *Enqueuer {
	return &Enqueuer{Client: asynq.NewClient(opt)}
}

func (e *Enqueuer) EnqueueReceipt(ctx context.Context, payload models.ReceiptPayload) error {
	task, opts, err := NewReceiptTask(payload)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("failed to enqueue receipt for %s: %w", payload.BookingID, err)
	}
	return nil
}

func (e *Enqueuer) Close() error {
	return e.Client.Close()
}
