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
	listsCollection = "lists"

	fieldName      = "name"
	fieldColor     = "color"
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
)

// Lists is the repository of the signed-in user's lists.
type Lists struct {
	base
}

// NewLists returns a list repository. notifier receives the one-time
// permission denial notice and may be nil.
func NewLists(store docstore.Store, sess *session.Session, notifier Notifier, logger *slog.Logger) *Lists {
	return &Lists{base: newBase(store, sess, notifier, logger)}
}

// Subscribe streams the user's lists, newest first, re-subscribing whenever
// the identity changes. It emits an empty set while signed out.
func (r *Lists) Subscribe(ctx context.Context) <-chan []models.List {
	f := follower[struct{}, models.List]{
		base:       &r.base,
		collection: listsCollection,
		query: func(uid string, _ struct{}) docstore.Query {
			return docstore.From(listsCollection).Where(docstore.Eq(docstore.OwnerField, uid))
		},
		decode: decodeList,
	}
	return f.run(ctx, constant(struct{}{}))
}

func decodeList(doc docstore.Document) (models.List, error) {
	var l models.List
	if err := doc.DataTo(&l); err != nil {
		return models.List{}, err
	}
	l.ID = doc.ID
	return l, nil
}

// Create stores a new list and returns its id. An empty color falls back to
// the default palette color.
func (r *Lists) Create(ctx context.Context, name, color string) (string, error) {
	ctx, uid, err := r.actAs(ctx)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if err := requireText("name", name); err != nil {
		return "", err
	}
	if color == "" {
		color = models.DefaultListColor
	}

	id, err := r.store.Insert(ctx, listsCollection, docstore.Fields{
		docstore.OwnerField: uid,
		fieldName:           name,
		fieldColor:          color,
		fieldCreatedAt:      docstore.ServerTimestamp,
		fieldUpdatedAt:      docstore.ServerTimestamp,
	})
	if err != nil {
		r.logger.Error("failed to create list", slog.String("error", err.Error()))
		return "", fmt.Errorf("create list: %w", err)
	}
	r.logger.Debug("created list", slog.String("list_id", id))
	return id, nil
}

// Update renames and recolors a list. A missing or foreign list surfaces as
// the store's not-found or permission error.
func (r *Lists) Update(ctx context.Context, id, name, color string) error {
	ctx, _, err := r.actAs(ctx)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if err := requireText("name", name); err != nil {
		return err
	}

	err = r.store.Update(ctx, listsCollection, id, docstore.Fields{
		fieldName:      name,
		fieldColor:     color,
		fieldUpdatedAt: docstore.ServerTimestamp,
	})
	if err != nil {
		r.logger.Error("failed to update list", slog.String("list_id", id), slog.String("error", err.Error()))
		return fmt.Errorf("update list: %w", err)
	}
	r.logger.Debug("updated list", slog.String("list_id", id))
	return nil
}

// Delete removes a list together with every task filed under it in one
// atomic commit. If the commit fails nothing is removed.
func (r *Lists) Delete(ctx context.Context, id string) error {
	ctx, uid, err := r.actAs(ctx)
	if err != nil {
		return err
	}

	q := docstore.From(tasksCollection).Where(
		docstore.Eq(docstore.OwnerField, uid),
		docstore.Eq(fieldListID, id),
	)
	tasks, err := r.store.ReadMany(ctx, q)
	if err != nil {
		r.logger.Error("failed to read list tasks", slog.String("list_id", id), slog.String("error", err.Error()))
		return fmt.Errorf("delete list: %w", err)
	}

	batch := r.store.Batch()
	for _, t := range tasks {
		batch.Delete(tasksCollection, t.ID)
	}
	batch.Delete(listsCollection, id)

	if err := batch.Commit(ctx); err != nil {
		r.logger.Error("failed to delete list", slog.String("list_id", id), slog.String("error", err.Error()))
		return fmt.Errorf("delete list: %w", err)
	}
	r.logger.Debug("deleted list", slog.String("list_id", id), slog.Int("tasks", len(tasks)))
	return nil
}
