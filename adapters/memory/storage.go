package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"xplist/core"
)

// Store is a concurrent in-memory implementation of engine.Storage.
type Store struct {
	users sync.Map // map[core.UserID]*userRecord
}

type userRecord struct {
	mu    sync.Mutex
	state core.UserState
	tasks map[string]core.Task
	order []string
}

func New() *Store { return &Store{} }

func (s *Store) getOrCreate(user core.UserID) *userRecord {
	if v, ok := s.users.Load(user); ok {
		return v.(*userRecord)
	}
	rec := &userRecord{
		state: core.UserState{UserID: user, Updated: time.Now().UTC()},
		tasks: map[string]core.Task{},
	}
	actual, _ := s.users.LoadOrStore(user, rec)
	return actual.(*userRecord)
}

func (s *Store) GetState(_ context.Context, user core.UserID) (core.UserState, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state, nil
}

func (s *Store) AddXP(_ context.Context, user core.UserID, delta int64) (int64, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	next, err := core.AddSafe(rec.state.TotalXP, delta)
	if err != nil {
		return 0, err
	}
	rec.state.TotalXP = next
	rec.state.Updated = time.Now().UTC()
	return next, nil
}

func (s *Store) SaveSnapshot(_ context.Context, user core.UserID, state core.UserState) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.state.TotalXP != state.TotalXP {
		return nil
	}
	rec.state.Level = state.Level
	rec.state.CurrentLevelXP = state.CurrentLevelXP
	rec.state.XPToNextLevel = state.XPToNextLevel
	rec.state.Updated = time.Now().UTC()
	return nil
}

func (s *Store) CreateTask(_ context.Context, task core.Task) error {
	rec := s.getOrCreate(task.UserID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if _, exists := rec.tasks[task.ID]; !exists {
		rec.order = append(rec.order, task.ID)
	}
	rec.tasks[task.ID] = task.Clone()
	return nil
}

func (s *Store) GetTask(_ context.Context, user core.UserID, id string) (core.Task, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	t, ok := rec.tasks[id]
	if !ok {
		return core.Task{}, core.ErrTaskNotFound
	}
	return t.Clone(), nil
}

func (s *Store) UpdateTask(_ context.Context, task core.Task) error {
	rec := s.getOrCreate(task.UserID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if _, ok := rec.tasks[task.ID]; !ok {
		return core.ErrTaskNotFound
	}
	rec.tasks[task.ID] = task.Clone()
	return nil
}

func (s *Store) DeleteTask(_ context.Context, user core.UserID, id string) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if _, ok := rec.tasks[id]; !ok {
		return core.ErrTaskNotFound
	}
	delete(rec.tasks, id)
	for i, tid := range rec.order {
		if tid == id {
			rec.order = append(rec.order[:i], rec.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListTasks returns tasks by creation time, oldest first.
func (s *Store) ListTasks(_ context.Context, user core.UserID) ([]core.Task, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]core.Task, 0, len(rec.order))
	for _, id := range rec.order {
		out = append(out, rec.tasks[id].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
