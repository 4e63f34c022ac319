package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestUploadLimiter_AcquireRelease(t *testing.T) {
	limiter := NewUploadLimiter(2, time.Second)
	ctx := context.Background()

	if got := limiter.Active(); got != 0 {
		t.Errorf("initial Active = %d, want 0", got)
	}

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}

	status := limiter.Status()
	if status.Active != 2 || status.Available != 0 || status.Max != 2 {
		t.Errorf("status = %+v, want 2 active of 2", status)
	}

	limiter.Release()
	if got := limiter.Active(); got != 1 {
		t.Errorf("after Release, Active = %d, want 1", got)
	}
	limiter.Release()
	if got := limiter.Active(); got != 0 {
		t.Errorf("after second Release, Active = %d, want 0", got)
	}
}

func TestUploadLimiter_TimesOutWhenFull(t *testing.T) {
	limiter := NewUploadLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	start := time.Now()
	err := limiter.Acquire(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTooManyUploads) {
		t.Errorf("error = %v, want ErrTooManyUploads", err)
	}
	if elapsed < 40*time.Millisecond {
		t.Errorf("failed after %v, want the full wait", elapsed)
	}
	if got := limiter.Active(); got != 1 {
		t.Errorf("Active = %d, want 1 (rejected acquire must not count)", got)
	}
}

func TestUploadLimiter_ContextEndsWait(t *testing.T) {
	limiter := NewUploadLimiter(1, time.Minute)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestUploadLimiter_TryAcquire(t *testing.T) {
	limiter := NewUploadLimiter(1, time.Second)

	if !limiter.TryAcquire() {
		t.Fatal("TryAcquire on an idle limiter = false")
	}
	if limiter.TryAcquire() {
		t.Fatal("TryAcquire on a full limiter = true")
	}
	limiter.Release()
	if !limiter.TryAcquire() {
		t.Fatal("TryAcquire after Release = false")
	}
}

func TestUploadLimiter_ReleaseWithoutAcquire(t *testing.T) {
	limiter := NewUploadLimiter(2, time.Second)
	limiter.Release()
	if got := limiter.Active(); got != 0 {
		t.Errorf("Active = %d, want 0", got)
	}
	// The limiter still admits up to its capacity afterwards.
	if !limiter.TryAcquire() || !limiter.TryAcquire() {
		t.Error("capacity corrupted by a stray Release")
	}
	if limiter.TryAcquire() {
		t.Error("admitted beyond capacity")
	}
}

func TestUploadLimiter_Defaults(t *testing.T) {
	limiter := NewUploadLimiter(0, 0)
	status := limiter.Status()
	if status.Max != 1 {
		t.Errorf("Max = %d, want the 1-slot default", status.Max)
	}
}

func TestUploadLimiter_WaitForDrain(t *testing.T) {
	limiter := NewUploadLimiter(1, time.Second)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	go func() {
		time.Sleep(150 * time.Millisecond)
		limiter.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := limiter.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain() error = %v", err)
	}
	if got := limiter.Active(); got != 0 {
		t.Errorf("Active after drain = %d, want 0", got)
	}
}

func TestUploadLimiter_WaitForDrainTimeout(t *testing.T) {
	limiter := NewUploadLimiter(1, time.Second)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := limiter.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForDrain() error = %v, want deadline exceeded", err)
	}
}

func TestUploadLimiter_Concurrent(t *testing.T) {
	limiter := NewUploadLimiter(4, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			time.Sleep(time.Millisecond)
			limiter.Release()
		}()
	}
	wg.Wait()

	if got := limiter.Active(); got != 0 {
		t.Errorf("Active after all released = %d, want 0", got)
	}
}
