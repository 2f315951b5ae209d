package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_RunsJobs(t *testing.T) {
	p, err := NewWorkerPool(context.Background(), 2, 8)
	if err != nil {
		t.Fatal(err)
	}

	var n atomic.Int32
	for i := 0; i < 8; i++ {
		if err := p.Submit(context.Background(), func(context.Context) { n.Add(1) }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n.Load() != 8 {
		t.Fatalf("ran %d jobs, want 8", n.Load())
	}
}

func TestWorkerPool_QueueFull(t *testing.T) {
	p, err := NewWorkerPool(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	release := make(chan struct{})
	started := make(chan struct{})
	p.Submit(context.Background(), func(context.Context) {
		close(started)
		<-release
	})
	<-started

	if err := p.Submit(context.Background(), func(context.Context) {}); err != nil {
		t.Fatalf("queued Submit: %v", err)
	}
	if err := p.Submit(context.Background(), func(context.Context) {}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}

	close(release)
	p.Close(context.Background())
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	p, err := NewWorkerPool(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	p.Close(context.Background())

	if err := p.Submit(context.Background(), func(context.Context) {}); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("err = %v, want ErrPoolClosed", err)
	}
}

func TestWorkerPool_CloseDeadlineCancelsJobs(t *testing.T) {
	p, err := NewWorkerPool(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{})
	p.Submit(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestNewWorkerPool_Invalid(t *testing.T) {
	if _, err := NewWorkerPool(context.Background(), 0, 1); err == nil {
		t.Fatal("expected error for zero concurrency")
	}
}
