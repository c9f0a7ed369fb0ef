package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResultBasics(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok result misreported")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatalf("unexpected unwrap: %v %v", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Fatal("Err result misreported")
	}
}

func TestErrfWrapping(t *testing.T) {
	sentinel := errors.New("boom")
	r := Errf[int]("stage failed: %w", sentinel)
	_, err := r.Unwrap()
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
}

func TestThenShortCircuits(t *testing.T) {
	calls := 0
	first := func(_ context.Context, s string) Result[int] {
		return Err[int](errors.New("first failed"))
	}
	second := func(_ context.Context, n int) Result[string] {
		calls++
		return Ok("done")
	}
	r := Then(first, second)(context.Background(), "in")
	if r.IsOk() {
		t.Fatal("expected error")
	}
	if calls != 0 {
		t.Fatal("second stage should not run after failure")
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}
	r := Retry(context.Background(), opts, func(_ context.Context) Result[string] {
		attempts++
		if attempts < 3 {
			return Err[string](errors.New("transient"))
		}
		return Ok("ok")
	})
	if r.IsErr() {
		t.Fatal("expected eventual success")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryExhausted(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(context.Background(), opts, func(_ context.Context) Result[int] {
		return Err[int](errors.New("always"))
	})
	if r.IsOk() {
		t.Fatal("expected failure after exhausting attempts")
	}
}

func TestRetryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := RetryOpts{MaxAttempts: 5, InitialWait: 50 * time.Millisecond, MaxWait: time.Second}
	r := Retry(ctx, opts, func(_ context.Context) Result[int] {
		return Err[int](errors.New("transient"))
	})
	_, err := r.Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTapStagePassesThrough(t *testing.T) {
	var seen int
	tap := TapStage(func(_ context.Context, n int) { seen = n })
	v, err := tap(context.Background(), 9).Unwrap()
	if err != nil || v != 9 {
		t.Fatalf("unexpected result: %v %v", v, err)
	}
	if seen != 9 {
		t.Fatalf("side effect saw %d", seen)
	}
}

func TestMap(t *testing.T) {
	got := Map([]int{1, 2, 3}, func(n int) int { return n * 2 })
	if len(got) != 3 || got[0] != 2 || got[2] != 6 {
		t.Fatalf("unexpected map output: %v", got)
	}
}

func TestFilterKeepsOrder(t *testing.T) {
	got := Filter([]int{5, 1, 4, 2}, func(n int) bool { return n >= 3 })
	if len(got) != 2 || got[0] != 5 || got[1] != 4 {
		t.Fatalf("unexpected filter output: %v", got)
	}
	if Filter([]int{1}, func(int) bool { return false }) != nil {
		t.Fatal("expected nil when nothing passes")
	}
}

func TestChunk(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[2]) != 1 {
		t.Fatalf("expected trailing chunk of 1, got %d", len(chunks[2]))
	}
	if Chunk([]int{}, 2) != nil {
		t.Fatal("empty input should yield nil")
	}
}
