package docstore

import (
	"context"
	"sync"
	"time"
)

// Hub fans change notifications out to the listeners of a collection.
type Hub struct {
	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{listeners: make(map[string]map[chan struct{}]struct{})}
}

func (h *Hub) listen(collection string) chan struct{} {
	wake := make(chan struct{}, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listeners[collection] == nil {
		h.listeners[collection] = make(map[chan struct{}]struct{})
	}
	h.listeners[collection][wake] = struct{}{}
	return wake
}

func (h *Hub) release(collection string, wake chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners[collection], wake)
	if len(h.listeners[collection]) == 0 {
		delete(h.listeners, collection)
	}
}

// Listeners returns the number of live listeners on collection.
func (h *Hub) Listeners(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[collection])
}

// Notify wakes every listener of the given collections. A listener that has
// not yet consumed an earlier wake-up is left as is.
func (h *Hub) Notify(collections ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range collections {
		for wake := range h.listeners[c] {
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}
}

// NotifyAll wakes every listener of every collection.
func (h *Hub) NotifyAll() {
	h.mu.Lock()
	collections := make([]string, 0, len(h.listeners))
	for c := range h.listeners {
		collections = append(collections, c)
	}
	h.mu.Unlock()
	h.Notify(collections...)
}

// Follow runs read once and again after every notification on q's
// collection, sending each result as a Snapshot. A read error is sent once
// and ends the stream. The listener is released before the channel closes.
func (h *Hub) Follow(ctx context.Context, q Query, read func(context.Context) ([]Document, error)) <-chan Snapshot {
	out := make(chan Snapshot)
	wake := h.listen(q.Collection)
	go func() {
		defer close(out)
		defer h.release(q.Collection, wake)
		for {
			docs, err := read(ctx)
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- Snapshot{Docs: docs, Err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
			select {
			case <-wake:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Clock hands out strictly increasing timestamps, so consecutive writes
// always order after one another even within the wall clock's resolution.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewClock returns a clock reading now, or time.Now when now is nil.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Now returns a UTC time later than every previous reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Round(0)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
