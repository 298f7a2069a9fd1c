package provider

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream failure")

func failN(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.Execute(func() error { return errUpstream })
	}
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	if cb.State() != BreakerClosed {
		t.Errorf("state: got %v, want closed", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("Execute: %v", err)
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	failN(cb, 2)
	if cb.State() != BreakerClosed {
		t.Fatalf("state after 2 failures: got %v, want closed", cb.State())
	}

	failN(cb, 1)
	if cb.State() != BreakerOpen {
		t.Fatalf("state after 3 failures: got %v, want open", cb.State())
	}

	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute while open: got %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_HalfOpenProbeRecovers(t *testing.T) {
	cb := NewCircuitBreaker(2, 10*time.Millisecond)
	failN(cb, 2)
	if cb.State() != BreakerOpen {
		t.Fatalf("state: got %v, want open", cb.State())
	}

	time.Sleep(20 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != BreakerClosed {
		t.Errorf("state after successful probe: got %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(2, 10*time.Millisecond)
	failN(cb, 2)

	time.Sleep(20 * time.Millisecond)
	cb.Execute(func() error { return errUpstream })
	if cb.State() != BreakerOpen {
		t.Errorf("state after failed probe: got %v, want open", cb.State())
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	failN(cb, 2)
	cb.Execute(func() error { return nil })
	failN(cb, 2)

	if cb.State() != BreakerClosed {
		t.Errorf("state: got %v, want closed (failures never hit the limit consecutively)", cb.State())
	}
}

func TestCircuitBreaker_OnStateChangeCallback(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	type change struct{ from, to BreakerState }
	var changes []change
	cb.OnStateChange = func(from, to BreakerState) {
		changes = append(changes, change{from, to})
	}

	failN(cb, 1) // closed -> open
	time.Sleep(20 * time.Millisecond)
	cb.Execute(func() error { return nil }) // open -> half-open -> closed

	want := []change{
		{BreakerClosed, BreakerOpen},
		{BreakerOpen, BreakerHalfOpen},
		{BreakerHalfOpen, BreakerClosed},
	}
	if len(changes) != len(want) {
		t.Fatalf("transitions: got %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("transition %d: got %+v, want %+v", i, changes[i], want[i])
		}
	}
}
