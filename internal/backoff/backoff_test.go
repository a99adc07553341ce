package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelayBudget(t *testing.T) {
	p := Policy{Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 2, Retries: 2}
	ctx := context.Background()
	if err := p.Delay(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if err := p.Delay(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := p.Delay(ctx, 2); !errors.Is(err, ErrRetriesExceeded) {
		t.Fatalf("want ErrRetriesExceeded, got %v", err)
	}
}

func TestDelayHonorsCancellation(t *testing.T) {
	p := Policy{Initial: time.Minute, Max: time.Minute, Multiplier: 2, Retries: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Delay(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestDelayCapsAtMax(t *testing.T) {
	p := New()
	// A very deep attempt must not overflow past Max into a huge sleep.
	p.Initial = time.Nanosecond
	p.Max = time.Millisecond
	p.Retries = 64
	start := time.Now()
	if err := p.Delay(context.Background(), 63); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("delay exceeded cap")
	}
}
