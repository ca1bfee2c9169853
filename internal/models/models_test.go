package models

import (
	"testing"
	"time"
)

func TestTaskStatusNext(t *testing.T) {
	tests := map[TaskStatus]TaskStatus{
		StatusTodo:          StatusWIP,
		StatusWIP:           StatusDone,
		StatusDone:          StatusTodo,
		TaskStatus("later"): StatusWIP,
	}
	for in, want := range tests {
		if got := in.Next(); got != want {
			t.Errorf("%q.Next(): expected %q, got %q", in, want, got)
		}
	}
}

func TestSortKeyPrefersUpdatedAt(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	if got := (List{CreatedAt: &created}).SortKey(); !got.Equal(created) {
		t.Errorf("expected createdAt fallback, got %v", got)
	}
	if got := (List{CreatedAt: &created, UpdatedAt: &updated}).SortKey(); !got.Equal(updated) {
		t.Errorf("expected updatedAt, got %v", got)
	}
	if got := (Task{}).SortKey(); !got.IsZero() {
		t.Errorf("expected zero key without timestamps, got %v", got)
	}
}

func TestSortIsStable(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Minute)
	tasks := []Task{
		{ID: "a", UpdatedAt: &early},
		{ID: "b", UpdatedAt: &late},
		{ID: "c", UpdatedAt: &early},
		{ID: "d"},
	}

	assertOrder := func(t *testing.T, got []Task, want ...string) {
		t.Helper()
		for i, id := range want {
			if got[i].ID != id {
				t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
			}
		}
	}

	assertOrder(t, SortNewestFirst(tasks), "b", "a", "c", "d")
	assertOrder(t, SortOldestFirst(tasks), "d", "a", "c", "b")
	assertOrder(t, tasks, "a", "b", "c", "d")
}

func TestDetailsChanged(t *testing.T) {
	task := Task{Description: "notes", DueTime: "09:00"}

	if task.DetailsChanged(Details{Description: "  notes ", DueTime: "09:00"}) {
		t.Error("whitespace-only difference must not count as a change")
	}
	if !task.DetailsChanged(Details{Description: "notes", DueTime: "09:00", IsImportant: true}) {
		t.Error("expected importance change to count")
	}
}
