package engine

import (
	"context"

	"xplist/core"
)

// LevelStore persists the per-user level document. It is the only state the
// leveling core depends on: the core reads TotalXP and hands back a snapshot.
type LevelStore interface {
	// GetState returns the user's document, creating an empty one (TotalXP 0,
	// Level 0 meaning "never snapshotted") when none exists.
	GetState(ctx context.Context, user core.UserID) (core.UserState, error)
	// AddXP atomically adds delta to the stored total and returns the new total.
	AddXP(ctx context.Context, user core.UserID, delta int64) (newTotal int64, err error)
	// SaveSnapshot stores the cached level fields of state. Implementations drop
	// the write when state.TotalXP no longer matches the stored total.
	SaveSnapshot(ctx context.Context, user core.UserID, state core.UserState) error
}

// TaskStore persists tasks. Missing tasks yield core.ErrTaskNotFound.
type TaskStore interface {
	CreateTask(ctx context.Context, task core.Task) error
	GetTask(ctx context.Context, user core.UserID, id string) (core.Task, error)
	UpdateTask(ctx context.Context, task core.Task) error
	DeleteTask(ctx context.Context, user core.UserID, id string) error
	ListTasks(ctx context.Context, user core.UserID) ([]core.Task, error)
}

// Storage is implemented by every adapter under adapters/.
type Storage interface {
	LevelStore
	TaskStore
}
