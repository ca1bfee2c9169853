package models

import (
	"slices"
	"strings"
	"time"
)

// TaskStatus is the board column a task sits in.
type TaskStatus string

const (
	StatusTodo TaskStatus = "todo"
	StatusWIP  TaskStatus = "wip"
	StatusDone TaskStatus = "done"
)

// Next returns the status that follows s in the todo -> wip -> done -> todo cycle.
// Unknown values restart the cycle at wip, the same edge todo takes.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case StatusTodo:
		return StatusWIP
	case StatusWIP:
		return StatusDone
	case StatusDone:
		return StatusTodo
	default:
		return StatusWIP
	}
}

// List groups tasks under a name and a color tag.
type List struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// SortKey is the display ordering key of the list.
func (l List) SortKey() time.Time {
	return sortKey(l.CreatedAt, l.UpdatedAt)
}

// Task is a single card on the board. A task with a ParentID is a subtask.
type Task struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	ListID      string     `json:"listId"`
	ParentID    string     `json:"parentId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueTime     string     `json:"dueTime,omitempty"`
	IsImportant bool       `json:"isImportant,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// SortKey is the display ordering key of the task.
func (t Task) SortKey() time.Time {
	return sortKey(t.CreatedAt, t.UpdatedAt)
}

// IsTopLevel reports whether the task has no parent. Both an absent and an
// empty parent id mean top level.
func (t Task) IsTopLevel() bool {
	return t.ParentID == ""
}

// Details is the set of secondary task fields saved together.
type Details struct {
	Description string `json:"description"`
	DueTime     string `json:"dueTime"`
	IsImportant bool   `json:"isImportant"`
}

// Details returns the task's current details with missing fields defaulted.
func (t Task) Details() Details {
	return Details{
		Description: t.Description,
		DueTime:     t.DueTime,
		IsImportant: t.IsImportant,
	}
}

// DetailsChanged reports whether saving next would change anything. The
// description is compared trimmed, as it would be stored.
func (t Task) DetailsChanged(next Details) bool {
	next.Description = strings.TrimSpace(next.Description)
	return t.Details() != next
}

func sortKey(createdAt, updatedAt *time.Time) time.Time {
	if updatedAt != nil {
		return *updatedAt
	}
	if createdAt != nil {
		return *createdAt
	}
	return time.Time{}
}

// Keyed is anything with a display ordering key.
type Keyed interface {
	SortKey() time.Time
}

// SortNewestFirst orders items by descending key. Items with equal keys keep
// their relative order.
func SortNewestFirst[T Keyed](items []T) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		return b.SortKey().Compare(a.SortKey())
	})
	return out
}

// SortOldestFirst orders items by ascending key, stable for equal keys.
func SortOldestFirst[T Keyed](items []T) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		return a.SortKey().Compare(b.SortKey())
	})
	return out
}

// ListPalette is the set of colors offered when creating a list.
var ListPalette = []string{"#38bdf8", "#60a5fa", "#8b5cf6", "#14b8a6", "#fb7185", "#f59e0b"}

// DefaultListColor is used when a list is created without a color.
const DefaultListColor = "#38bdf8"
