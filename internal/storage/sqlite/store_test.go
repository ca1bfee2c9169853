package sqlite

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"todoer/internal/docstore"
	"todoer/internal/testutil"
)

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "todoer.db"), nil, opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	testutil.RunStoreContract(t, func(t *testing.T) docstore.Store {
		return openTestStore(t, Options{})
	})
}

func TestWritesStampInsideTransaction(t *testing.T) {
	s := openTestStore(t, Options{})
	testutil.RunStampOrder(t, s,
		func(now func() time.Time) { s.clock = docstore.NewClock(now) },
		func() bool { return s.db.Stats().InUse > 0 })
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("", nil, Options{}); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestDocumentsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "todoer.db")
	ctx := docstore.WithPrincipal(context.Background(), "u1")
	q := docstore.From("lists").Where(docstore.Eq(docstore.OwnerField, "u1"))

	s, err := Open(path, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.Insert(ctx, "lists", docstore.Fields{docstore.OwnerField: "u1", "name": "Inbox", "createdAt": docstore.ServerTimestamp})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	docs, err := s.ReadMany(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != id || docs[0].Fields["name"] != "Inbox" {
		t.Fatalf("unexpected documents after reopen: %+v", docs)
	}
	if _, err := time.Parse(time.RFC3339Nano, docs[0].Fields["createdAt"].(string)); err != nil {
		t.Fatalf("createdAt not stored as a timestamp: %v", err)
	}
}

func TestCompile(t *testing.T) {
	where, args := compile(docstore.From("tasks").Where(docstore.Eq("listId", "l1"), docstore.Missing("parentId")))
	want := "collection = ? AND json_extract(data, ?) = ? AND COALESCE(json_extract(data, ?), '') = ''"
	if where != want {
		t.Fatalf("expected %q, got %q", want, where)
	}
	if len(args) != 4 || args[1] != "$.listId" || args[3] != "$.parentId" {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestExternalWriteWakesSubscribers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todoer.db")
	ctx, cancel := context.WithCancel(docstore.WithPrincipal(context.Background(), "u1"))
	defer cancel()
	q := docstore.From("lists").Where(docstore.Eq(docstore.OwnerField, "u1"))

	watched, err := Open(path, nil, Options{Watch: true, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer watched.Close()
	ch, err := watched.Subscribe(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Next(t, ch)

	// A second handle stands in for another process writing the same file.
	other, err := Open(path, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if _, err := other.Insert(ctx, "lists", docstore.Fields{docstore.OwnerField: "u1", "name": "From elsewhere"}); err != nil {
		t.Fatal(err)
	}

	testutil.WaitFor(t, ch, func(s docstore.Snapshot) bool { return len(s.Docs) == 1 })
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}
	testutil.Eventually(t, func() bool { return calls.Load() == 1 })
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one call, got %d", got)
	}
}

func TestDebouncerCancel(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })
	d.Trigger()
	d.Cancel()
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no call after cancel, got %d", got)
	}
}
