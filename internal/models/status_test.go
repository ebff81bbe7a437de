package models

import "testing"

func TestRideStatusForwardOnly(t *testing.T) {
	order := []RideStatus{StatusDriverAccepted, StatusEnRoute, StatusArrived, StatusInTrip, StatusCompleted}

	prev := StatusRequested
	for _, next := range order {
		if !prev.CanTransitionTo(next) {
			t.Fatalf("%s -> %s should be legal", prev, next)
		}
		if next.CanTransitionTo(prev) {
			t.Fatalf("%s -> %s must not reverse", next, prev)
		}
		prev = next
	}

	if StatusRequested.CanTransitionTo(StatusEnRoute) {
		t.Fatal("skipping DRIVER_ACCEPTED must be illegal")
	}
	if StatusCompleted.CanTransitionTo(StatusCompleted) {
		t.Fatal("terminal state must not self-transition")
	}
	if !StatusDriverPending.CanTransitionTo(StatusDriverAccepted) {
		t.Fatal("DRIVER_PENDING -> DRIVER_ACCEPTED should be legal")
	}
}

func TestTerminalAndActive(t *testing.T) {
	if !StatusCompleted.Terminal() || StatusInTrip.Terminal() {
		t.Fatal("terminal classification wrong")
	}
	for _, s := range []RideStatus{StatusDriverAccepted, StatusEnRoute, StatusArrived, StatusInTrip} {
		if !s.Active() {
			t.Fatalf("%s should be active", s)
		}
	}
	for _, s := range []RideStatus{StatusRequested, StatusDriverPending, StatusCompleted} {
		if s.Active() {
			t.Fatalf("%s should not be active", s)
		}
	}
}
