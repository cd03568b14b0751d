package memory

import (
	"context"
	"testing"
	"time"

	"xplist/core"
	"xplist/engine"
)

var _ engine.Storage = (*Store)(nil)

func TestMemoryStoreXP(t *testing.T) {
	s := New()
	ctx := context.Background()
	total, err := s.AddXP(ctx, "u", 50)
	if err != nil || total != 50 {
		t.Fatalf("got %v %v", total, err)
	}
	if err := s.SaveSnapshot(ctx, "u", core.UserState{TotalXP: 50, Level: 1, CurrentLevelXP: 50, XPToNextLevel: 100}); err != nil {
		t.Fatal(err)
	}
	// stale write is dropped
	if err := s.SaveSnapshot(ctx, "u", core.UserState{TotalXP: 10, Level: 9}); err != nil {
		t.Fatal(err)
	}
	st, _ := s.GetState(ctx, "u")
	if st.TotalXP != 50 || st.Level != 1 || st.CurrentLevelXP != 50 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestMemoryStoreTasks(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()
	if err := s.CreateTask(ctx, core.Task{ID: "b", UserID: "u", Title: "second", CreatedAt: now.Add(time.Second)}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateTask(ctx, core.Task{ID: "a", UserID: "u", Title: "first", CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	list, _ := s.ListTasks(ctx, "u")
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", list)
	}

	task, err := s.GetTask(ctx, "u", "a")
	if err != nil {
		t.Fatal(err)
	}
	task.Completed = true
	if err := s.UpdateTask(ctx, task); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetTask(ctx, "u", "a")
	if !got.Completed {
		t.Fatal("update not applied")
	}

	if err := s.DeleteTask(ctx, "u", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetTask(ctx, "u", "a"); err != core.ErrTaskNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.UpdateTask(ctx, core.Task{ID: "zzz", UserID: "u"}); err != core.ErrTaskNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetTask(ctx, "other", "b"); err != core.ErrTaskNotFound {
		t.Fatalf("tasks must be scoped per user, got %v", err)
	}
}
