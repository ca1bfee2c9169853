// Package reactive provides an observable value shared between producers and
// any number of watchers.
package reactive

import (
	"context"
	"sync"
)

// Value holds the latest T and wakes watchers whenever it is replaced.
// Watchers that fall behind skip intermediate values and see the latest one.
type Value[T any] struct {
	mu      sync.Mutex
	current T
	version uint64
	changed chan struct{}
}

// New returns a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{current: initial, changed: make(chan struct{})}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set replaces the current value and wakes every watcher.
func (v *Value[T]) Set(next T) {
	v.mu.Lock()
	v.current = next
	v.version++
	close(v.changed)
	v.changed = make(chan struct{})
	v.mu.Unlock()
}

// Update replaces the current value with fn applied to it, atomically with
// respect to other writers.
func (v *Value[T]) Update(fn func(T) T) {
	v.mu.Lock()
	v.current = fn(v.current)
	v.version++
	close(v.changed)
	v.changed = make(chan struct{})
	v.mu.Unlock()
}

func (v *Value[T]) snapshot() (T, uint64, <-chan struct{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.version, v.changed
}

// Watch emits the current value immediately and then every later value until
// ctx is done, at which point the channel is closed.
func (v *Value[T]) Watch(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		var seen uint64
		first := true
		for {
			cur, version, changed := v.snapshot()
			if first || version != seen {
				select {
				case out <- cur:
				case <-ctx.Done():
					return
				}
				first = false
				seen = version
			}
			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
