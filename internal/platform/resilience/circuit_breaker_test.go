package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_BasicTransitions(t *testing.T) {
	var transitions []string
	b := NewCircuitBreaker("scores365", CircuitBreakerConfig{
		FailureThreshold: 2,
		OpenTimeout:      5 * time.Second,
		HalfOpenRequests: 1,
		OnStateChange: func(name string, from, to CircuitState) {
			transitions = append(transitions, name+":"+string(from)+"->"+string(to))
		},
	})

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}

	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open trial call to pass, got %v", err)
	}
	if state := b.State(); state != CircuitStateHalfOpen {
		t.Fatalf("expected half-open state, got %s", state)
	}

	b.RecordSuccess()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful half-open trial call, got %s", state)
	}

	want := []string{
		"scores365:closed->open",
		"scores365:open->half_open",
		"scores365:half_open->closed",
	}
	if len(transitions) != len(want) {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transition %d: want %s got %s", i, want[i], transitions[i])
		}
	}
}

func TestCircuitBreaker_RecordIgnoresNonCountableErrors(t *testing.T) {
	b := NewCircuitBreaker("scores365", CircuitBreakerConfig{FailureThreshold: 1})
	notCounted := errors.New("provider status=404")

	b.Record(notCounted, func(err error) bool { return false })
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed for non-countable error, got %s", state)
	}

	b.Record(errors.New("timeout"), nil)
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after countable failure, got %s", state)
	}
}
