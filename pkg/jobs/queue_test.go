package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job.Type
		return nil
	}, QueueConfig{Workers: 1})

	q.Start(context.Background())
	defer q.Stop()

	if err := q.Enqueue(Job{ID: "j-1", Type: "collector"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case typ := <-done:
		if typ != "collector" {
			t.Fatalf("handled job type = %q, want collector", typ)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job was never handled")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{}, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	if err := q.Enqueue(Job{ID: "j-1", Type: "standings"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-done:
		if got := atomic.LoadInt32(&attempts); got != 3 {
			t.Fatalf("attempts = %d, want 3", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded after retries")
	}
}

func TestQueueRejectsEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		return nil
	}, QueueConfig{})

	if err := q.Enqueue(Job{ID: "j-1"}); err == nil {
		t.Fatal("expected error enqueueing on an unstarted queue")
	}
}
