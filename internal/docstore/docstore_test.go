package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFilterMatch(t *testing.T) {
	fields := Fields{"ownerId": "u1", "listId": "l1", "parentId": "", "status": "todo"}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"eq hit", Eq("listId", "l1"), true},
		{"eq miss", Eq("listId", "l2"), false},
		{"eq absent", Eq("title", "x"), false},
		{"missing absent", Missing("title"), true},
		{"missing empty", Missing("parentId"), true},
		{"missing present", Missing("listId"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(fields); got != tt.want {
				t.Errorf("%s: expected %v, got %v", tt.filter, tt.want, got)
			}
		})
	}
}

func TestQueryWhereDoesNotAlias(t *testing.T) {
	base := From("tasks").Where(Eq("ownerId", "u1"))
	a := base.Where(Eq("listId", "a"))
	b := base.Where(Eq("listId", "b"))

	if len(base.Filters) != 1 {
		t.Fatalf("base query was modified: %v", base.Filters)
	}
	if !a.Constrains("listId", "a") || !b.Constrains("listId", "b") {
		t.Fatalf("derived queries share filters: %v / %v", a.Filters, b.Filters)
	}
}

func TestQueryValidate(t *testing.T) {
	if err := From("tasks").Where(Eq("listId", "x")).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := From("tasks").Where(Eq("list'); DROP", "x")).Validate(); err == nil {
		t.Fatal("expected invalid field name to be rejected")
	}
	if err := From("").Validate(); err == nil {
		t.Fatal("expected empty collection to be rejected")
	}
}

func TestAuthorizeQuery(t *testing.T) {
	ctx := WithPrincipal(context.Background(), "u1")

	if err := AuthorizeQuery(ctx, From("lists").Where(Eq(OwnerField, "u1"))); err != nil {
		t.Fatalf("own query denied: %v", err)
	}
	if err := AuthorizeQuery(ctx, From("lists").Where(Eq(OwnerField, "u2"))); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected denial for foreign owner, got %v", err)
	}
	if err := AuthorizeQuery(ctx, From("tasks")); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected denial for unscoped query, got %v", err)
	}
	if err := AuthorizeQuery(context.Background(), From("tasks").Where(Eq(OwnerField, ""))); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected denial without principal, got %v", err)
	}
}

func TestAuthorizeWrite(t *testing.T) {
	ctx := WithPrincipal(context.Background(), "u1")
	mine := Fields{OwnerField: "u1"}

	if err := AuthorizeWrite(ctx, "tasks", mine, Fields{"title": "x"}); err != nil {
		t.Fatalf("own write denied: %v", err)
	}
	if err := AuthorizeWrite(ctx, "tasks", Fields{OwnerField: "u2"}, Fields{"title": "x"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected denial on foreign document, got %v", err)
	}
	if err := AuthorizeWrite(ctx, "tasks", mine, Fields{OwnerField: "u2"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected denial on owner change, got %v", err)
	}
	if err := AuthorizeInsert(ctx, "lists", Fields{OwnerField: "u2"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected denial on foreign insert, got %v", err)
	}
}

func TestPrepareResolvesTimestamps(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fields, raw, err := Prepare(Fields{"title": "x", "createdAt": ServerTimestamp, "isImportant": false}, now)
	if err != nil {
		t.Fatal(err)
	}
	if fields["createdAt"] != now.Format(time.RFC3339Nano) {
		t.Errorf("expected resolved timestamp, got %v", fields["createdAt"])
	}
	if fields["isImportant"] != false || len(raw) == 0 {
		t.Errorf("unexpected prepared fields %v (%s)", fields, raw)
	}
}

func TestDocumentDataTo(t *testing.T) {
	doc := Document{ID: "t1", Fields: Fields{"title": "Buy milk", "isImportant": true}}
	var v struct {
		Title       string `json:"title"`
		IsImportant bool   `json:"isImportant"`
	}
	if err := doc.DataTo(&v); err != nil {
		t.Fatal(err)
	}
	if v.Title != "Buy milk" || !v.IsImportant {
		t.Errorf("unexpected decode %+v", v)
	}
	if err := (Document{ID: "bad", Fields: Fields{"title": 3}}).DataTo(&v); err == nil {
		t.Error("expected a decode error")
	}
}

func TestClockIsStrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(func() time.Time { return fixed })

	prev := c.Now()
	for i := 0; i < 5; i++ {
		next := c.Now()
		if !next.After(prev) {
			t.Fatalf("reading %d did not advance: %v <= %v", i, next, prev)
		}
		prev = next
	}
}

func TestHubFollowRereadsOnNotify(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reads := 0
	ch := h.Follow(ctx, From("tasks"), func(context.Context) ([]Document, error) {
		reads++
		return []Document{{ID: "d"}}, nil
	})

	recv := func() Snapshot {
		t.Helper()
		select {
		case s := <-ch:
			return s
		case <-time.After(3 * time.Second):
			t.Fatal("timed out")
		}
		return Snapshot{}
	}

	recv()
	h.Notify("lists")
	h.Notify("tasks")
	recv()
	h.NotifyAll()
	recv()
	if reads != 3 {
		t.Fatalf("expected 3 reads, got %d", reads)
	}
	if got := h.Listeners("tasks"); got != 1 {
		t.Fatalf("expected one listener, got %d", got)
	}

	cancel()
	for range ch {
	}
	if got := h.Listeners("tasks"); got != 0 {
		t.Fatalf("expected listener to be released, got %d", got)
	}
}

func TestHubFollowEndsAfterError(t *testing.T) {
	h := NewHub()
	boom := errors.New("boom")
	ch := h.Follow(context.Background(), From("lists"), func(context.Context) ([]Document, error) {
		return nil, boom
	})

	s := <-ch
	if !errors.Is(s.Err, boom) {
		t.Fatalf("expected error snapshot, got %+v", s)
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected channel to close after the error")
	}
	if got := h.Listeners("lists"); got != 0 {
		t.Fatalf("expected listener to be released, got %d", got)
	}
}
