package scryfall

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiterBurstThenSpacing(t *testing.T) {
	r := NewRateLimiter(1000)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := r.Wait(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("burst calls should not block: %v", elapsed)
	}
}

func TestRateLimiterCancelledContext(t *testing.T) {
	r := NewRateLimiter(1)
	ctx := context.Background()

	// Drain the burst allowance so the next wait would block.
	for i := 0; i < 4; i++ {
		if err := r.Wait(ctx); err != nil {
			t.Fatal(err)
		}
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := r.Wait(cancelled)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("cancelled wait should return promptly: %v", elapsed)
	}
}
