package middleware

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, time.Minute)
	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if err := cb.Call(ctx, func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open state after max failures")
	}
	if err := cb.Call(ctx, func() error { return nil }); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestCircuitBreakerRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 10*time.Millisecond)
	ctx := context.Background()

	_ = cb.Call(ctx, func() error { return errors.New("boom") })
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open state")
	}

	time.Sleep(20 * time.Millisecond)
	if err := cb.Call(ctx, func() error { return nil }); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed state after successful probe")
	}
}

func TestSlidingWindowLimit(t *testing.T) {
	sw := NewSlidingWindow(time.Minute, 2)
	ctx := context.Background()

	if !sw.Allow(ctx) || !sw.Allow(ctx) {
		t.Fatalf("expected first 2 requests allowed")
	}
	if sw.Allow(ctx) {
		t.Fatalf("expected 3rd request rejected")
	}
}

func TestTokenBucketBurst(t *testing.T) {
	tb := NewTokenBucket(3, 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !tb.Allow(ctx) {
			t.Fatalf("expected burst request %d allowed", i)
		}
	}
	if tb.Allow(ctx) {
		t.Fatalf("expected request beyond burst rejected")
	}
}
