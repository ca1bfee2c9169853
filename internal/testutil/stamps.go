package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"todoer/internal/docstore"
)

// RunStampOrder checks that a store stamps ServerTimestamp fields inside
// its write critical section. setNow installs the store's time source and
// inCritical reports whether a write currently holds that section.
func RunStampOrder(t *testing.T, store docstore.Store, setNow func(func() time.Time), inCritical func() bool) {
	t.Helper()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var (
		ticks    atomic.Int64
		outside  atomic.Int32
		mu       sync.Mutex
		lastTick time.Time
	)
	setNow(func() time.Time {
		if !inCritical() {
			outside.Add(1)
		}
		now := base.Add(time.Duration(ticks.Add(1)) * time.Millisecond)
		mu.Lock()
		lastTick = now
		mu.Unlock()
		return now
	})

	ctx := docstore.WithPrincipal(context.Background(), "u1")
	id, err := store.Insert(ctx, "tasks", docstore.Fields{
		docstore.OwnerField: "u1",
		"title":             "stamped",
		"updatedAt":         docstore.ServerTimestamp,
	})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Update(ctx, "tasks", id, docstore.Fields{
				"title":     fmt.Sprintf("edit %d", i),
				"updatedAt": docstore.ServerTimestamp,
			})
			if err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	if n := outside.Load(); n != 0 {
		t.Fatalf("%d timestamps were taken outside the write section", n)
	}

	docs, err := store.ReadMany(ctx, docstore.From("tasks").Where(docstore.Eq(docstore.OwnerField, "u1")))
	if err != nil || len(docs) != 1 {
		t.Fatalf("read back: %v (%d docs)", err, len(docs))
	}
	var got struct {
		UpdatedAt time.Time `json:"updatedAt"`
	}
	if err := docs[0].DataTo(&got); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	want := lastTick
	mu.Unlock()
	if !got.UpdatedAt.Equal(want) {
		t.Fatalf("stored updatedAt %s is not the latest stamp %s", got.UpdatedAt, want)
	}
}
