package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailureThreshold: 2, Cooldown: time.Minute})
	for i := 0; i < 10; i++ {
		if err := b.Call(context.Background(), func(context.Context) error { return nil }); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed, got %s", b.State())
	}
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailureThreshold: 3, Cooldown: time.Minute})
	fail := func(context.Context) error { return errors.New("upstream down") }

	for i := 0; i < 3; i++ {
		_ = b.Call(context.Background(), fail)
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %s", b.State())
	}

	err := b.Call(context.Background(), func(context.Context) error {
		t.Fatal("call should not run while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailureThreshold: 1, Cooldown: 10 * time.Millisecond})
	_ = b.Call(context.Background(), func(context.Context) error { return errors.New("x") })
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	now := time.Now()
	b.now = func() time.Time { return now.Add(time.Second) }
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open after cooldown, got %s", b.State())
	}

	// Successful probe closes the breaker.
	if err := b.Call(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after probe, got %s", b.State())
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailureThreshold: 1, Cooldown: 10 * time.Millisecond})
	_ = b.Call(context.Background(), func(context.Context) error { return errors.New("x") })

	now := time.Now()
	b.now = func() time.Time { return now.Add(time.Second) }
	_ = b.Call(context.Background(), func(context.Context) error { return errors.New("still down") })

	b.now = func() time.Time { return now.Add(time.Second) }
	if b.State() != StateOpen {
		t.Fatalf("expected re-open after failed probe, got %s", b.State())
	}
}
