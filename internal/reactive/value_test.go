package reactive_test

import (
	"context"
	"testing"
	"time"

	"todoer/internal/reactive"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestWatchEmitsCurrentThenChanges(t *testing.T) {
	v := reactive.New("a")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := v.Watch(ctx)
	if got := recv(t, ch); got != "a" {
		t.Fatalf("expected a, got %q", got)
	}

	v.Set("b")
	if got := recv(t, ch); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
}

func TestWatchSkipsToLatest(t *testing.T) {
	v := reactive.New(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := v.Watch(ctx)
	recv(t, ch)

	for i := 1; i <= 5; i++ {
		v.Set(i)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == 5 {
				return
			}
		case <-deadline:
			t.Fatal("never observed latest value")
		}
	}
}

func TestWatchClosesOnCancel(t *testing.T) {
	v := reactive.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	ch := v.Watch(ctx)
	recv(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestUpdate(t *testing.T) {
	v := reactive.New(1)
	v.Update(func(n int) int { return n + 41 })
	if got := v.Get(); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}
