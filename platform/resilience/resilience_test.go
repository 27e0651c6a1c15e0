package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithBackoffRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoffRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, RetryConfig{MaxRetries: 5, InitialBackoff: time.Second}, func() error {
		return errors.New("never")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	b := NewBreaker("test")
	failing := errors.New("downstream down")

	for i := 0; i < 5; i++ {
		if err := b.Do(func() error { return failing }); !errors.Is(err, failing) {
			t.Fatalf("call %d: expected downstream error, got %v", i, err)
		}
	}

	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if called {
		t.Fatal("expected breaker to short-circuit the call")
	}
}

func TestNilBreakerPassesThrough(t *testing.T) {
	var b *Breaker
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
