package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPoolProcessesSubmittedJobs(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(2, 10, func(ctx context.Context, job int) {
		processed.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		if !pool.Submit(i) {
			t.Fatalf("submit %d rejected", i)
		}
	}

	time.Sleep(50 * time.Millisecond)
	cancel()
	pool.Stop()

	if processed.Load() != 5 {
		t.Errorf("expected 5 jobs processed, got %d", processed.Load())
	}
}

func TestPoolSubmitRejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	pool := NewPool(1, 1, func(ctx context.Context, job int) {
		<-release
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	// First job occupies the worker, second fills the queue.
	if !pool.Submit(1) {
		t.Fatal("first submit rejected")
	}
	time.Sleep(20 * time.Millisecond)
	if !pool.Submit(2) {
		t.Fatal("second submit rejected")
	}

	if pool.Submit(3) {
		t.Error("expected rejection on full queue")
	}

	close(release)
	pool.Stop()
}

func TestPoolGracefulShutdown(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool(2, 50, func(ctx context.Context, job int) {
		time.Sleep(5 * time.Millisecond)
		processed.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		pool.Submit(i)
	}

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Stop() timed out")
	}
}
