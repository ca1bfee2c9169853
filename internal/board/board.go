// Package board derives the grouped, sorted board view from the latest list
// and task sets.
package board

import (
	"strings"

	"todoer/internal/models"
)

// Labels are the fixed texts and colors the board falls back to.
type Labels struct {
	// Title is shown when no list is selected or the selected one is gone.
	Title string
	// NoListName and NoListColor tag tasks whose list cannot be found.
	NoListName  string
	NoListColor string
}

// DefaultLabels are used for any empty field of Labels.
var DefaultLabels = Labels{
	Title:       "THRONE82 TODO",
	NoListName:  "Sem lista",
	NoListColor: "#64748b",
}

func (l Labels) withDefaults() Labels {
	if l.Title == "" {
		l.Title = DefaultLabels.Title
	}
	if l.NoListName == "" {
		l.NoListName = DefaultLabels.NoListName
	}
	if l.NoListColor == "" {
		l.NoListColor = DefaultLabels.NoListColor
	}
	return l
}

// Item is a task together with the tag of the list it belongs to.
type Item struct {
	models.Task
	ListName  string `json:"listName"`
	ListColor string `json:"listColor"`
}

// Board is the derived view handed to the presentation layer.
type Board struct {
	Title string `json:"title"`
	// SelectedListID is empty when every list is shown.
	SelectedListID string `json:"selectedListId,omitempty"`
	// TargetListID is where new top-level tasks go. It is empty only when
	// there are no lists.
	TargetListID string        `json:"targetListId,omitempty"`
	Lists        []models.List `json:"lists"`
	WIP          []Item        `json:"wip"`
	Todo         []Item        `json:"todo"`
	Done         []Item        `json:"done"`
}

// Input is everything a board is computed from.
type Input struct {
	Lists          []models.List
	Tasks          []models.Task
	SelectedListID string
	// PreviousTarget is the target list of the last board built.
	PreviousTarget string
}

// Build computes the board. It is a pure function of in and labels.
func Build(in Input, labels Labels) Board {
	labels = labels.withDefaults()

	byID := make(map[string]models.List, len(in.Lists))
	for _, l := range in.Lists {
		byID[l.ID] = l
	}

	var wip, todo, done []models.Task
	for _, t := range in.Tasks {
		switch t.Status {
		case models.StatusWIP:
			wip = append(wip, t)
		case models.StatusTodo:
			todo = append(todo, t)
		case models.StatusDone:
			done = append(done, t)
		}
	}

	tag := func(tasks []models.Task) []Item {
		items := make([]Item, 0, len(tasks))
		for _, t := range tasks {
			item := Item{Task: t, ListName: labels.NoListName, ListColor: labels.NoListColor}
			if l, ok := byID[t.ListID]; ok {
				item.ListName, item.ListColor = l.Name, l.Color
			}
			items = append(items, item)
		}
		return items
	}

	return Board{
		Title:          Title(in.SelectedListID, in.Lists, labels),
		SelectedListID: in.SelectedListID,
		TargetListID:   Target(in.SelectedListID, in.Lists, in.PreviousTarget),
		Lists:          in.Lists,
		WIP:            tag(models.SortNewestFirst(wip)),
		Todo:           tag(models.SortNewestFirst(todo)),
		Done:           tag(models.SortOldestFirst(done)),
	}
}

// Title is the upper-cased name of the selected list, or the application
// title when nothing is selected or the selection no longer exists.
func Title(selected string, lists []models.List, labels Labels) string {
	labels = labels.withDefaults()
	if selected == "" {
		return labels.Title
	}
	for _, l := range lists {
		if l.ID == selected {
			return strings.ToUpper(l.Name)
		}
	}
	return strings.ToUpper(labels.Title)
}

// Target picks the list new top-level tasks go to: the selected list when
// there is one, otherwise previous while it still exists, otherwise the
// first list.
func Target(selected string, lists []models.List, previous string) string {
	if selected != "" {
		return selected
	}
	for _, l := range lists {
		if l.ID == previous {
			return previous
		}
	}
	if len(lists) > 0 {
		return lists[0].ID
	}
	return ""
}

// Find returns the task with id from any group of b.
func (b Board) Find(id string) (models.Task, bool) {
	for _, group := range [][]Item{b.WIP, b.Todo, b.Done} {
		for _, item := range group {
			if item.ID == id {
				return item.Task, true
			}
		}
	}
	return models.Task{}, false
}
