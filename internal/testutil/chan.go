package testutil

import (
	"testing"
	"time"
)

// Timeout bounds every wait in tests.
const Timeout = 3 * time.Second

// Next returns the next value from ch or fails the test.
func Next[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(Timeout):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

// WaitFor reads ch until a value satisfies ok and returns it.
func WaitFor[T any](t *testing.T, ch <-chan T, ok func(T) bool) T {
	t.Helper()
	deadline := time.After(Timeout)
	var last T
	for {
		select {
		case v, open := <-ch:
			if !open {
				t.Fatalf("channel closed; last value %+v", last)
			}
			if ok(v) {
				return v
			}
			last = v
		case <-deadline:
			t.Fatalf("timed out; last value %+v", last)
		}
	}
}

// Eventually polls cond until it holds or fails the test.
func Eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(Timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
