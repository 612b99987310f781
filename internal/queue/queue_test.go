package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

func TestEnqueueWithRetrySucceedsAfterFailures(t *testing.T) {
	q := &MockQueue{}
	task := Task{Type: TaskTypeExtract}

	q.On("Enqueue", mock.Anything, task).Return(errors.New("nats down")).Twice()
	q.On("Enqueue", mock.Anything, task).Return(nil).Once()

	err := EnqueueWithRetry(context.Background(), q, task, 3, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q.AssertExpectations(t)
}

func TestEnqueueWithRetryExhausts(t *testing.T) {
	q := &MockQueue{}
	task := Task{Type: TaskTypeReindexPatient}

	q.On("Enqueue", mock.Anything, task).Return(errors.New("nats down")).Times(3)

	err := EnqueueWithRetry(context.Background(), q, task, 3, time.Millisecond)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	q.AssertExpectations(t)
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	o.defaults()
	if o.MaxConcurrent != 4 {
		t.Errorf("expected default concurrency 4, got %d", o.MaxConcurrent)
	}
	if o.TaskTimeout != 5*time.Minute {
		t.Errorf("expected default timeout 5m, got %v", o.TaskTimeout)
	}
}
