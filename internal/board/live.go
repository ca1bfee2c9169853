package board

import (
	"context"
	"log/slog"

	"todoer/internal/models"
	"todoer/internal/reactive"
	"todoer/internal/repository"
)

// Live keeps a board up to date with the repositories and the selected list.
type Live struct {
	lists     *repository.Lists
	tasks     *repository.Tasks
	selection *reactive.Value[string]
	current   *reactive.Value[Board]
	labels    Labels
	logger    *slog.Logger
}

// NewLive wires a live board. Call Run to start it.
func NewLive(lists *repository.Lists, tasks *repository.Tasks, labels Labels, logger *slog.Logger) *Live {
	if logger == nil {
		logger = slog.Default()
	}
	labels = labels.withDefaults()
	return &Live{
		lists:     lists,
		tasks:     tasks,
		selection: reactive.New(""),
		current:   reactive.New(Build(Input{}, labels)),
		labels:    labels,
		logger:    logger,
	}
}

// Select shows only the given list; an empty id shows every list.
func (l *Live) Select(listID string) {
	l.selection.Set(listID)
}

// Selected returns the selected list id.
func (l *Live) Selected() string {
	return l.selection.Get()
}

// Current returns the latest board.
func (l *Live) Current() Board {
	return l.current.Get()
}

// Watch emits the latest board and every later one until ctx is done.
func (l *Live) Watch(ctx context.Context) <-chan Board {
	return l.current.Watch(ctx)
}

// Run recomputes the board whenever the lists, the tasks of the selection or
// the selection itself change. It blocks until ctx is done.
func (l *Live) Run(ctx context.Context) {
	selections := l.selection.Watch(ctx)
	filters := make(chan repository.TaskFilter)

	listsCh := l.lists.Subscribe(ctx)
	tasksCh := l.tasks.Follow(ctx, filters)

	var (
		in      Input
		pending []repository.TaskFilter
	)

	for {
		var (
			sendFilter chan<- repository.TaskFilter
			next       repository.TaskFilter
		)
		if len(pending) > 0 {
			sendFilter, next = filters, pending[len(pending)-1]
		}

		select {
		case <-ctx.Done():
			return

		case id, ok := <-selections:
			if !ok {
				return
			}
			in.SelectedListID = id
			pending = append(pending[:0], repository.TaskFilter{ListID: id})

		case sendFilter <- next:
			pending = pending[:0]
			continue

		case lists, ok := <-listsCh:
			if !ok {
				return
			}
			in.Lists = lists

		case tasks, ok := <-tasksCh:
			if !ok {
				return
			}
			in.Tasks = tasks
		}

		b := Build(in, l.labels)
		in.PreviousTarget = b.TargetListID
		l.current.Set(b)
		l.logger.Debug("board rebuilt",
			slog.Int("lists", len(in.Lists)),
			slog.Int("tasks", len(in.Tasks)),
			slog.String("selected", in.SelectedListID))
	}
}

// Lists returns the lists of the latest board.
func (l *Live) Lists() []models.List {
	return l.current.Get().Lists
}
