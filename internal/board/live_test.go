package board_test

import (
	"context"
	"testing"

	"todoer/internal/board"
	"todoer/internal/repository"
	"todoer/internal/session"
	"todoer/internal/storage/memory"
	"todoer/internal/testutil"
)

func TestLiveFollowsSelectionAndWrites(t *testing.T) {
	store := memory.New(nil)
	sess := session.New(nil)
	sess.SignIn(session.Identity{UID: "alice"})
	lists := repository.NewLists(store, sess, nil, nil)
	tasks := repository.NewTasks(store, sess, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	work, err := lists.Create(ctx, "Work", "#60a5fa")
	if err != nil {
		t.Fatal(err)
	}
	home, err := lists.Create(ctx, "Home", "#f59e0b")
	if err != nil {
		t.Fatal(err)
	}
	report, err := tasks.Create(ctx, "Write report", work, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tasks.Create(ctx, "Water plants", home, ""); err != nil {
		t.Fatal(err)
	}

	live := board.NewLive(lists, tasks, board.Labels{}, nil)
	go live.Run(ctx)
	boards := live.Watch(ctx)

	b := testutil.WaitFor(t, boards, func(b board.Board) bool {
		return len(b.Lists) == 2 && len(b.Todo) == 2
	})
	if b.Title != "THRONE82 TODO" || b.TargetListID == "" {
		t.Fatalf("unexpected unfiltered board %+v", b)
	}

	live.Select(work)
	b = testutil.WaitFor(t, boards, func(b board.Board) bool {
		return b.SelectedListID == work && len(b.Todo) == 1 && b.Todo[0].ID == report
	})
	if b.Title != "WORK" || b.TargetListID != work || b.Todo[0].ListName != "Work" {
		t.Fatalf("unexpected filtered board %+v", b)
	}

	task, ok := live.Current().Find(report)
	if !ok {
		t.Fatal("expected the report task on the board")
	}
	if err := tasks.CycleStatus(ctx, task); err != nil {
		t.Fatal(err)
	}
	testutil.WaitFor(t, boards, func(b board.Board) bool {
		return len(b.Todo) == 0 && len(b.WIP) == 1 && b.WIP[0].ID == report
	})

	sess.SignOut()
	testutil.WaitFor(t, boards, func(b board.Board) bool {
		return len(b.Lists) == 0 && len(b.WIP) == 0 && b.Title == "THRONE82 TODO"
	})
}
