package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"todoer/internal/docstore"
	"todoer/internal/models"
	"todoer/internal/session"
)

const (
	tasksCollection = "tasks"

	fieldListID      = "listId"
	fieldParentID    = "parentId"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldDueTime     = "dueTime"
	fieldIsImportant = "isImportant"
	fieldStatus      = "status"
)

type parentMode int

const (
	parentAny parentMode = iota
	parentNone
	parentIs
)

// ParentFilter restricts tasks by parentage. The zero value does not filter.
type ParentFilter struct {
	mode parentMode
	id   string
}

// AnyParent matches top-level tasks and subtasks alike.
func AnyParent() ParentFilter { return ParentFilter{} }

// TopLevel matches tasks without a parent.
func TopLevel() ParentFilter { return ParentFilter{mode: parentNone} }

// ChildrenOf matches the subtasks of the task with the given id. An empty id
// is the same as TopLevel.
func ChildrenOf(id string) ParentFilter {
	if id == "" {
		return TopLevel()
	}
	return ParentFilter{mode: parentIs, id: id}
}

// TaskFilter selects the tasks a subscription follows.
type TaskFilter struct {
	// ListID restricts to one list; empty means every list.
	ListID string
	Parent ParentFilter
}

// Filters expresses f as store predicates for the tasks owned by uid.
func (f TaskFilter) Filters(uid string) []docstore.Filter {
	filters := []docstore.Filter{docstore.Eq(docstore.OwnerField, uid)}
	if f.ListID != "" {
		filters = append(filters, docstore.Eq(fieldListID, f.ListID))
	}
	switch f.Parent.mode {
	case parentNone:
		filters = append(filters, docstore.Missing(fieldParentID))
	case parentIs:
		filters = append(filters, docstore.Eq(fieldParentID, f.Parent.id))
	}
	return filters
}

func (f TaskFilter) query(uid string) docstore.Query {
	return docstore.From(tasksCollection).Where(f.Filters(uid)...)
}

// Tasks is the repository of the signed-in user's tasks.
type Tasks struct {
	base
}

// NewTasks returns a task repository. notifier may be nil.
func NewTasks(store docstore.Store, sess *session.Session, notifier Notifier, logger *slog.Logger) *Tasks {
	return &Tasks{base: newBase(store, sess, notifier, logger)}
}

// Subscribe streams the tasks matching filter, newest first.
func (r *Tasks) Subscribe(ctx context.Context, filter TaskFilter) <-chan []models.Task {
	return r.Follow(ctx, constant(filter))
}

// Follow is Subscribe with a changing filter. Each new filter tears down the
// previous store subscription before the next one is opened.
func (r *Tasks) Follow(ctx context.Context, filters <-chan TaskFilter) <-chan []models.Task {
	f := follower[TaskFilter, models.Task]{
		base:       &r.base,
		collection: tasksCollection,
		query: func(uid string, filter TaskFilter) docstore.Query {
			return filter.query(uid)
		},
		decode: decodeTask,
	}
	return f.run(ctx, filters)
}

func decodeTask(doc docstore.Document) (models.Task, error) {
	var t models.Task
	if err := doc.DataTo(&t); err != nil {
		return models.Task{}, err
	}
	t.ID = doc.ID
	return t, nil
}

// Snapshot reads the tasks matching filter once, newest first.
func (r *Tasks) Snapshot(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	ctx, uid, err := r.actAs(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.ReadMany(ctx, filter.query(uid))
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	return decodeSorted(r.logger, tasksCollection, docs, decodeTask), nil
}

// Create stores a new task in listID with status todo. parentID makes it a
// subtask; callers pass the parent's current list. An empty parentID leaves
// the field out entirely.
func (r *Tasks) Create(ctx context.Context, title, listID, parentID string) (string, error) {
	ctx, uid, err := r.actAs(ctx)
	if err != nil {
		return "", err
	}
	title = strings.TrimSpace(title)
	if err := requireText("title", title); err != nil {
		return "", err
	}
	if err := requireText("list", listID); err != nil {
		return "", err
	}

	fields := docstore.Fields{
		docstore.OwnerField: uid,
		fieldListID:         listID,
		fieldTitle:          title,
		fieldStatus:         string(models.StatusTodo),
		fieldDescription:    "",
		fieldDueTime:        "",
		fieldIsImportant:    false,
		fieldCreatedAt:      docstore.ServerTimestamp,
		fieldUpdatedAt:      docstore.ServerTimestamp,
	}
	if parentID != "" {
		fields[fieldParentID] = parentID
	}

	id, err := r.store.Insert(ctx, tasksCollection, fields)
	if err != nil {
		r.logger.Error("failed to create task", slog.String("list_id", listID), slog.String("error", err.Error()))
		return "", fmt.Errorf("create task: %w", err)
	}
	r.logger.Debug("created task", slog.String("task_id", id), slog.String("list_id", listID))
	return id, nil
}

// UpdateTitle renames a task. Skipping unchanged titles is up to the caller.
func (r *Tasks) UpdateTitle(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if err := requireText("title", title); err != nil {
		return err
	}
	return r.update(ctx, id, "update task title", docstore.Fields{
		fieldTitle: title,
	})
}

// CycleStatus moves task to the status after the one in the given snapshot.
// The current stored status is deliberately not re-read.
func (r *Tasks) CycleStatus(ctx context.Context, task models.Task) error {
	return r.update(ctx, task.ID, "cycle task status", docstore.Fields{
		fieldStatus: string(task.Status.Next()),
	})
}

// UpdateDetails overwrites description, due time and importance. Callers
// skip the call when nothing changed (see models.Task.DetailsChanged) so a
// no-op save never clobbers a concurrent edit.
func (r *Tasks) UpdateDetails(ctx context.Context, id string, d models.Details) error {
	return r.update(ctx, id, "update task details", docstore.Fields{
		fieldDescription: strings.TrimSpace(d.Description),
		fieldDueTime:     d.DueTime,
		fieldIsImportant: d.IsImportant,
	})
}

// Delete removes one task. Its subtasks are left in place.
func (r *Tasks) Delete(ctx context.Context, id string) error {
	ctx, _, err := r.actAs(ctx)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, tasksCollection, id); err != nil {
		r.logger.Error("failed to delete task", slog.String("task_id", id), slog.String("error", err.Error()))
		return fmt.Errorf("delete task: %w", err)
	}
	r.logger.Debug("deleted task", slog.String("task_id", id))
	return nil
}

func (r *Tasks) update(ctx context.Context, id, action string, fields docstore.Fields) error {
	ctx, _, err := r.actAs(ctx)
	if err != nil {
		return err
	}
	fields[fieldUpdatedAt] = docstore.ServerTimestamp
	if err := r.store.Update(ctx, tasksCollection, id, fields); err != nil {
		r.logger.Error("failed to "+action, slog.String("task_id", id), slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", action, err)
	}
	r.logger.Debug(action, slog.String("task_id", id))
	return nil
}
