package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const (
	// AdminTask carries one message for one administrator.
	AdminTask = "notify:admin"

	maxRetry = 3
)

type AdminPayload struct {
	ChatID  int64   `json:"chat_id"`
	Message Message `json:"message"`
}

// Enqueuer is the part of *asynq.Client the queue needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue hands notifications to asynq so they survive a restart of the bot
// process and are retried by the worker.
type Queue struct {
	client Enqueuer
	admins []int64
	logger logrus.FieldLogger
}

var _ Notifier = (*Queue)(nil)

func NewQueue(client Enqueuer, admins []int64, logger logrus.FieldLogger) *Queue {
	return &Queue{client: client, admins: admins, logger: logger}
}

func (q *Queue) Notify(ctx context.Context, msg Message) error {
	queued := 0
	for _, chatID := range q.admins {
		if err := EnqueueAdmin(ctx, q.client, AdminPayload{ChatID: chatID, Message: msg}); err != nil {
			q.logger.WithFields(logrus.Fields{
				"recipient": chatID,
				"error":     err.Error(),
			}).Warn("enqueue admin notification failed")
			continue
		}
		queued++
	}
	if len(q.admins) > 0 && queued == 0 {
		return ErrUndelivered
	}
	return nil
}

func EnqueueAdmin(ctx context.Context, client Enqueuer, payload AdminPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(AdminTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(maxRetry)); err != nil {
		return fmt.Errorf("enqueue admin task: %w", err)
	}
	return nil
}

// Worker delivers queued notifications through Sender.
type Worker struct {
	sender Sender
	logger logrus.FieldLogger
}

func NewWorker(sender Sender, logger logrus.FieldLogger) *Worker {
	return &Worker{sender: sender, logger: logger}
}

// Handler registers the admin notification handler.
func (w *Worker) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(AdminTask, w.HandleAdmin)
	return mux
}

func (w *Worker) HandleAdmin(ctx context.Context, task *asynq.Task) error {
	var payload AdminPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// A payload that cannot be decoded will never succeed.
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := w.sender.Send(ctx, payload.ChatID, payload.Message); err != nil {
		w.logger.WithFields(logrus.Fields{
			"recipient": payload.ChatID,
			"error":     err.Error(),
		}).Warn("queued admin notification failed")
		return err
	}
	return nil
}
