package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestBreaker(threshold int, reset time.Duration) (*CircuitBreaker, *time.Time) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Threshold: threshold, ResetAfter: reset})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_InitialState(t *testing.T) {
	cb, _ := newTestBreaker(5, 30*time.Second)

	if cb.State() != CircuitClosed {
		t.Errorf("expected initial state to be CircuitClosed, got %v", cb.State())
	}
	if err := cb.Allow(); err != nil {
		t.Errorf("expected no error for closed circuit, got %v", err)
	}
}

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, 30*time.Second)

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed below threshold, got %v", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open after threshold, got %v", cb.State())
	}

	err := cb.Allow()
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SingleProbeAfterReset(t *testing.T) {
	cb, now := newTestBreaker(1, 10*time.Second)
	cb.RecordFailure()

	*now = now.Add(11 * time.Second)

	if err := cb.Allow(); err != nil {
		t.Fatalf("expected probe to be allowed, got %v", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open, got %v", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected second caller to be rejected while probing, got %v", err)
	}

	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after successful probe, got %v", cb.State())
	}
	if cb.ConsecutiveFailures() != 0 {
		t.Errorf("expected failures reset, got %d", cb.ConsecutiveFailures())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb, now := newTestBreaker(3, 10*time.Second)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	*now = now.Add(11 * time.Second)

	if err := cb.Allow(); err != nil {
		t.Fatalf("expected probe to be allowed, got %v", err)
	}
	cb.RecordFailure()

	if cb.State() != CircuitOpen {
		t.Errorf("expected open after failed probe, got %v", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected rejection right after failed probe, got %v", err)
	}
}

func TestCircuitBreaker_Execute(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)
	boom := errors.New("boom")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := cb.Execute(ctx, func(context.Context) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("expected fn not to run while circuit is open")
	}
}

func TestCircuitBreaker_ExecuteIgnoresCanceledContext(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })

	if cb.State() != CircuitClosed {
		t.Errorf("expected cancellation not to trip the circuit, got %v", cb.State())
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := map[CircuitState]string{
		CircuitClosed:    "closed",
		CircuitOpen:      "open",
		CircuitHalfOpen:  "half-open",
		CircuitState(42): "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("CircuitState(%d).String() = %q, want %q", state, got, want)
		}
	}
}
