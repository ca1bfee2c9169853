package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"todoer/internal/docstore"
)

// RunStoreContract exercises the behavior every docstore.Store backend must
// share. newStore is called once per subtest.
func RunStoreContract(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	alice := docstore.WithPrincipal(context.Background(), "alice")
	bob := docstore.WithPrincipal(context.Background(), "bob")
	aliceTasks := docstore.From("tasks").Where(docstore.Eq(docstore.OwnerField, "alice"))

	insert := func(t *testing.T, s docstore.Store, fields docstore.Fields) string {
		t.Helper()
		fields[docstore.OwnerField] = "alice"
		id, err := s.Insert(alice, "tasks", fields)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		return id
	}

	t.Run("insert and filter", func(t *testing.T) {
		s := newStore(t)
		top := insert(t, s, docstore.Fields{"listId": "l1", "title": "top"})
		empty := insert(t, s, docstore.Fields{"listId": "l1", "parentId": "", "title": "legacy"})
		child := insert(t, s, docstore.Fields{"listId": "l1", "parentId": top, "title": "child"})
		insert(t, s, docstore.Fields{"listId": "l2", "title": "elsewhere"})

		docs, err := s.ReadMany(alice, aliceTasks.Where(docstore.Eq("listId", "l1"), docstore.Missing("parentId")))
		if err != nil {
			t.Fatal(err)
		}
		if got := ids(docs); !sameIDs(got, []string{top, empty}) {
			t.Fatalf("expected top-level %v, got %v", []string{top, empty}, got)
		}

		docs, err = s.ReadMany(alice, aliceTasks.Where(docstore.Eq("parentId", top)))
		if err != nil {
			t.Fatal(err)
		}
		if got := ids(docs); !sameIDs(got, []string{child}) {
			t.Fatalf("expected children %v, got %v", []string{child}, got)
		}
	})

	t.Run("owner scoping", func(t *testing.T) {
		s := newStore(t)
		id := insert(t, s, docstore.Fields{"title": "mine"})

		if _, err := s.ReadMany(bob, aliceTasks); !errors.Is(err, docstore.ErrPermissionDenied) {
			t.Fatalf("expected foreign read to be denied, got %v", err)
		}
		if _, err := s.Subscribe(bob, aliceTasks); !errors.Is(err, docstore.ErrPermissionDenied) {
			t.Fatalf("expected foreign subscribe to be denied, got %v", err)
		}
		if err := s.Update(bob, "tasks", id, docstore.Fields{"title": "theirs"}); !errors.Is(err, docstore.ErrPermissionDenied) {
			t.Fatalf("expected foreign update to be denied, got %v", err)
		}
		if err := s.Delete(bob, "tasks", id); !errors.Is(err, docstore.ErrPermissionDenied) {
			t.Fatalf("expected foreign delete to be denied, got %v", err)
		}
		if _, err := s.Insert(bob, "tasks", docstore.Fields{docstore.OwnerField: "alice"}); !errors.Is(err, docstore.ErrPermissionDenied) {
			t.Fatalf("expected insert on behalf of another owner to be denied, got %v", err)
		}
	})

	t.Run("update merges fields", func(t *testing.T) {
		s := newStore(t)
		id := insert(t, s, docstore.Fields{"title": "draft", "status": "todo", "createdAt": docstore.ServerTimestamp})

		if err := s.Update(alice, "tasks", "missing", docstore.Fields{"title": "x"}); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for _, change := range []docstore.Fields{{"title": "final"}, {"status": "wip"}} {
			wg.Add(1)
			go func(change docstore.Fields) {
				defer wg.Done()
				errs <- s.Update(alice, "tasks", id, change)
			}(change)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatal(err)
			}
		}

		docs, err := s.ReadMany(alice, aliceTasks)
		if err != nil {
			t.Fatal(err)
		}
		f := docs[0].Fields
		if f["title"] != "final" || f["status"] != "wip" || f["createdAt"] == nil {
			t.Fatalf("expected merged fields, got %v", f)
		}
	})

	t.Run("batch deletes together", func(t *testing.T) {
		s := newStore(t)
		a := insert(t, s, docstore.Fields{"title": "a"})
		b := insert(t, s, docstore.Fields{"title": "b"})
		c := insert(t, s, docstore.Fields{"title": "c"})

		batch := s.Batch()
		batch.Delete("tasks", a)
		batch.Delete("tasks", b)
		batch.Delete("tasks", "already-gone")
		if err := batch.Commit(alice); err != nil {
			t.Fatal(err)
		}

		docs, err := s.ReadMany(alice, aliceTasks)
		if err != nil {
			t.Fatal(err)
		}
		if got := ids(docs); !sameIDs(got, []string{c}) {
			t.Fatalf("expected %v to remain, got %v", []string{c}, got)
		}

		// A single foreign document fails the whole batch.
		foreign, err := s.Insert(bob, "tasks", docstore.Fields{docstore.OwnerField: "bob", "title": "bob's"})
		if err != nil {
			t.Fatal(err)
		}
		batch = s.Batch()
		batch.Delete("tasks", c)
		batch.Delete("tasks", foreign)
		if err := batch.Commit(alice); !errors.Is(err, docstore.ErrPermissionDenied) {
			t.Fatalf("expected denial, got %v", err)
		}
		docs, _ = s.ReadMany(alice, aliceTasks)
		if got := ids(docs); !sameIDs(got, []string{c}) {
			t.Fatalf("expected failed batch to change nothing, got %v", got)
		}
	})

	t.Run("subscribe sees every write", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(alice)
		defer cancel()

		ch, err := s.Subscribe(ctx, aliceTasks)
		if err != nil {
			t.Fatal(err)
		}
		if snap := Next(t, ch); snap.Err != nil || len(snap.Docs) != 0 {
			t.Fatalf("expected empty first snapshot, got %+v", snap)
		}

		id := insert(t, s, docstore.Fields{"title": "new"})
		WaitFor(t, ch, func(s docstore.Snapshot) bool { return len(s.Docs) == 1 })

		if err := s.Update(alice, "tasks", id, docstore.Fields{"title": "renamed"}); err != nil {
			t.Fatal(err)
		}
		WaitFor(t, ch, func(s docstore.Snapshot) bool {
			return len(s.Docs) == 1 && s.Docs[0].Fields["title"] == "renamed"
		})

		if err := s.Delete(alice, "tasks", id); err != nil {
			t.Fatal(err)
		}
		WaitFor(t, ch, func(s docstore.Snapshot) bool { return len(s.Docs) == 0 })

		cancel()
		for range ch {
		}
	})
}

func ids(docs []docstore.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func sameIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[string]int, len(got))
	for _, id := range got {
		seen[id]++
	}
	for _, id := range want {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
