package memory

import (
	"context"
	"testing"
	"time"

	"todoer/internal/docstore"
	"todoer/internal/testutil"
)

func TestStoreContract(t *testing.T) {
	testutil.RunStoreContract(t, func(t *testing.T) docstore.Store {
		return New(nil)
	})
}

func TestWritesStampUnderLock(t *testing.T) {
	s := New(nil)
	testutil.RunStampOrder(t, s,
		func(now func() time.Time) { s.clock = docstore.NewClock(now) },
		func() bool {
			if s.mu.TryLock() {
				s.mu.Unlock()
				return false
			}
			return true
		})
}

func TestReadManyKeepsInsertionOrder(t *testing.T) {
	s := New(nil)
	ctx := docstore.WithPrincipal(context.Background(), "u1")

	var want []string
	for _, title := range []string{"a", "b", "c", "d"} {
		id, err := s.Insert(ctx, "lists", docstore.Fields{docstore.OwnerField: "u1", "name": title})
		if err != nil {
			t.Fatal(err)
		}
		want = append(want, id)
	}
	if err := s.Delete(ctx, "lists", want[1]); err != nil {
		t.Fatal(err)
	}
	want = append(want[:1], want[2:]...)

	docs, err := s.ReadMany(ctx, docstore.From("lists").Where(docstore.Eq(docstore.OwnerField, "u1")))
	if err != nil {
		t.Fatal(err)
	}
	for i, d := range docs {
		if d.ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], d.ID)
		}
	}
}

func TestReadManyReturnsCopies(t *testing.T) {
	s := New(nil)
	ctx := docstore.WithPrincipal(context.Background(), "u1")
	q := docstore.From("lists").Where(docstore.Eq(docstore.OwnerField, "u1"))
	if _, err := s.Insert(ctx, "lists", docstore.Fields{docstore.OwnerField: "u1", "name": "a"}); err != nil {
		t.Fatal(err)
	}

	docs, _ := s.ReadMany(ctx, q)
	docs[0].Fields["name"] = "mutated"

	docs, _ = s.ReadMany(ctx, q)
	if docs[0].Fields["name"] != "a" {
		t.Fatalf("stored document was mutated through a read: %v", docs[0].Fields)
	}
}

func TestSubscriptionReleasesListener(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(docstore.WithPrincipal(context.Background(), "u1"))
	ch, err := s.Subscribe(ctx, docstore.From("tasks").Where(docstore.Eq(docstore.OwnerField, "u1")))
	if err != nil {
		t.Fatal(err)
	}
	testutil.Next(t, ch)
	if got := s.Hub().Listeners("tasks"); got != 1 {
		t.Fatalf("expected one listener, got %d", got)
	}
	cancel()
	for range ch {
	}
	if got := s.Hub().Listeners("tasks"); got != 0 {
		t.Fatalf("expected no listeners, got %d", got)
	}
}
