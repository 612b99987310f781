package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/semaphore"

	"patient-docs/internal/retry"
)

// Options bound the consumer side of the queue.
type Options struct {
	// MaxConcurrent caps the number of tasks a worker handles at once.
	MaxConcurrent int
	// TaskTimeout cancels a handler that runs too long.
	TaskTimeout time.Duration
}

func (o *Options) defaults() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = 5 * time.Minute
	}
}

// NewNATS constructs a NATS-based queue with bounded worker concurrency.
func NewNATS(log *slog.Logger, nc *nats.Conn, opts Options) Queue {
	opts.defaults()
	return &natsQueue{
		log:  log,
		nc:   nc,
		opts: opts,
		sem:  semaphore.NewWeighted(int64(opts.MaxConcurrent)),
	}
}

type natsQueue struct {
	log  *slog.Logger
	nc   *nats.Conn
	opts Options
	sem  *semaphore.Weighted
}

func (q *natsQueue) Enqueue(_ context.Context, task Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Type == "" {
		return errors.New("task type required")
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.nc.Publish("tasks."+string(task.Type), body)
}

func (q *natsQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	subject := "tasks." + string(taskType)
	group := "workers-" + string(taskType)
	sub, err := q.nc.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		// Acquire before spawning so the subscription itself backpressures
		// once MaxConcurrent handlers are inflight.
		if err := q.sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func() {
			defer q.sem.Release(1)
			q.handleMessage(ctx, msg, handler)
		}()
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (q *natsQueue) handleMessage(ctx context.Context, msg *nats.Msg, handler Handler) {
	var task Task
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		q.log.Error("failed to decode task", "err", err)
		return
	}

	if task.NotBefore.After(time.Now()) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(task.NotBefore)):
		}
	}

	taskCtx, cancel := context.WithTimeout(ctx, q.opts.TaskTimeout)
	defer cancel()

	q.log.Debug("handling task", "id", task.ID, "type", task.Type, "attempt", task.Attempts)
	if err := handler(taskCtx, task); err != nil {
		q.retryTask(ctx, task, err)
	}
}

func (q *natsQueue) retryTask(ctx context.Context, task Task, handlerErr error) {
	task.Attempts++
	// A task carries its own retry budget. The default is a single attempt:
	// a failed extraction stays failed until somebody re-triggers it.
	if task.MaxAttempts == 0 {
		task.MaxAttempts = 1
	}

	if task.Attempts < task.MaxAttempts {
		task.NotBefore = time.Now().Add(retry.ExponentialBackoff(task.Attempts, time.Second))
		if err := q.Enqueue(ctx, task); err != nil {
			q.log.Error("failed to re-enqueue task after failure", "id", task.ID, "type", task.Type, "original_err", handlerErr, "enqueue_err", err)
		}
	} else {
		q.log.Error("task permanently failed", "id", task.ID, "type", task.Type, "attempts", task.Attempts, "original_err", handlerErr)
	}
}
