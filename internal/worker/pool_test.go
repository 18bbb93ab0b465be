package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsJobs(t *testing.T) {
	p := NewPool(4, 16, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var ran int32
	jobs := 100
	for i := 0; i < jobs; i++ {
		err := p.Submit(ctx, func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		})
		if err != nil {
			t.Fatalf("Submit() returned an unexpected error: %v", err)
		}
	}
	p.Close()

	if got := atomic.LoadInt32(&ran); int(got) != jobs {
		t.Errorf("Expected %d jobs executed, but got %d", jobs, got)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	p := NewPool(1, 2, nil)
	p.Start(context.Background())
	p.Close()

	noop := func(context.Context) error { return nil }
	if err := p.Submit(context.Background(), noop); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed from Submit, but got %v", err)
	}
	if err := p.TrySubmit(noop); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed from TrySubmit, but got %v", err)
	}
}

func TestTrySubmitQueueFull(t *testing.T) {
	// Workers are not started so the queue never drains.
	p := NewPool(1, 1, nil)
	noop := func(context.Context) error { return nil }

	if err := p.TrySubmit(noop); err != nil {
		t.Fatalf("Expected first TrySubmit to succeed, but got %v", err)
	}
	if err := p.TrySubmit(noop); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, but got %v", err)
	}
}

func TestCloseUnblocksPendingSubmit(t *testing.T) {
	p := NewPool(1, 1, nil)
	noop := func(context.Context) error { return nil }
	if err := p.Submit(context.Background(), noop); err != nil {
		t.Fatalf("Setup Submit() failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Submit(context.Background(), noop)
	}()
	time.Sleep(20 * time.Millisecond)

	p.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrPoolClosed) {
			t.Errorf("Expected ErrPoolClosed for blocked Submit, but got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Blocked Submit did not return after Close")
	}
}

func TestSubmitHonoursContext(t *testing.T) {
	p := NewPool(1, 1, nil)
	noop := func(context.Context) error { return nil }
	p.TrySubmit(noop)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := p.Submit(ctx, noop); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, but got %v", err)
	}
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	p := NewPool(1, 4, nil)
	p.Start(context.Background())

	var ran int32
	p.Submit(context.Background(), func(context.Context) error { panic("boom") })
	p.Submit(context.Background(), func(context.Context) error { return errors.New("failed") })
	p.Submit(context.Background(), func(context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	p.Close()

	if atomic.LoadInt32(&ran) != 1 {
		t.Error("Expected job after a panic to still run")
	}
}
