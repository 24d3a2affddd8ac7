package tmdb

import (
	"context"
	"testing"
	"time"
)

func TestPenalizeDoublesAndCaps(t *testing.T) {
	r := newRateLimiter(100 * time.Millisecond)

	r.Penalize()
	if got := r.delay(); got != 200*time.Millisecond {
		t.Errorf("delay after one penalty = %v, want 200ms", got)
	}
	r.Penalize()
	if got := r.delay(); got != 400*time.Millisecond {
		t.Errorf("delay after two penalties = %v, want 400ms", got)
	}

	for i := 0; i < 10; i++ {
		r.Penalize()
	}
	if got := r.delay(); got != maxDelay {
		t.Errorf("delay must cap at %v, got %v", maxDelay, got)
	}
}

func TestRewardDecaysToBase(t *testing.T) {
	base := 100 * time.Millisecond
	r := newRateLimiter(base)
	r.Penalize()
	r.Penalize()

	prev := r.delay()
	for i := 0; i < 100; i++ {
		r.Reward()
		cur := r.delay()
		if cur > prev {
			t.Fatalf("delay must never grow on reward: %v -> %v", prev, cur)
		}
		prev = cur
	}
	if got := r.delay(); got != base {
		t.Errorf("delay must decay back to base %v, got %v", base, got)
	}

	// Rewarding at base is a no-op.
	r.Reward()
	if got := r.delay(); got != base {
		t.Errorf("delay must not drop below base: got %v", got)
	}
}

func TestAcquireHonorsContext(t *testing.T) {
	r := newRateLimiter(time.Hour)

	// First call never waits.
	if err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := r.Acquire(ctx)
	if err == nil {
		t.Fatal("expected context error from second acquire")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled acquire should return promptly, took %v", elapsed)
	}
}
