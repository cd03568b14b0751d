package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"xplist/core"
)

// Store persists every user's level document and tasks to a single JSON file.
// It backs the offline mode of the app, where no remote store is available.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data map[core.UserID]*document
}

type document struct {
	State core.UserState        `json:"state"`
	Tasks map[string]core.Task `json:"tasks"`
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[core.UserID]*document{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw map[string]*document
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if v == nil {
			continue
		}
		if v.Tasks == nil {
			v.Tasks = map[string]core.Task{}
		}
		s.data[core.UserID(k)] = v
	}
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	raw := make(map[string]*document, len(s.data))
	for k, v := range s.data {
		raw[string(k)] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) get(user core.UserID) *document {
	if doc, ok := s.data[user]; ok {
		return doc
	}
	doc := &document{
		State: core.UserState{UserID: user, Updated: time.Now().UTC()},
		Tasks: map[string]core.Task{},
	}
	s.data[user] = doc
	return doc
}

func (s *Store) GetState(_ context.Context, user core.UserID) (core.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(user).State, nil
}

func (s *Store) AddXP(_ context.Context, user core.UserID, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	next, err := core.AddSafe(doc.State.TotalXP, delta)
	if err != nil {
		return 0, err
	}
	prev := doc.State
	doc.State.TotalXP = next
	doc.State.Updated = time.Now().UTC()
	if err := s.persist(); err != nil {
		doc.State = prev
		return 0, err
	}
	return next, nil
}

func (s *Store) SaveSnapshot(_ context.Context, user core.UserID, state core.UserState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	if doc.State.TotalXP != state.TotalXP {
		return nil
	}
	prev := doc.State
	doc.State.Level = state.Level
	doc.State.CurrentLevelXP = state.CurrentLevelXP
	doc.State.XPToNextLevel = state.XPToNextLevel
	doc.State.Updated = time.Now().UTC()
	if err := s.persist(); err != nil {
		doc.State = prev
		return err
	}
	return nil
}

func (s *Store) CreateTask(_ context.Context, task core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(task.UserID)
	prev, existed := doc.Tasks[task.ID]
	doc.Tasks[task.ID] = task.Clone()
	if err := s.persist(); err != nil {
		s.restoreTask(doc, task.ID, prev, existed)
		return err
	}
	return nil
}

func (s *Store) GetTask(_ context.Context, user core.UserID, id string) (core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.get(user).Tasks[id]
	if !ok {
		return core.Task{}, core.ErrTaskNotFound
	}
	return t.Clone(), nil
}

func (s *Store) UpdateTask(_ context.Context, task core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(task.UserID)
	if _, ok := doc.Tasks[task.ID]; !ok {
		return core.ErrTaskNotFound
	}
	prev := doc.Tasks[task.ID]
	doc.Tasks[task.ID] = task.Clone()
	if err := s.persist(); err != nil {
		doc.Tasks[task.ID] = prev
		return err
	}
	return nil
}

func (s *Store) DeleteTask(_ context.Context, user core.UserID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	prev, ok := doc.Tasks[id]
	if !ok {
		return core.ErrTaskNotFound
	}
	delete(doc.Tasks, id)
	if err := s.persist(); err != nil {
		doc.Tasks[id] = prev
		return err
	}
	return nil
}

// restoreTask undoes a task write whose persist failed.
func (s *Store) restoreTask(doc *document, id string, prev core.Task, existed bool) {
	if existed {
		doc.Tasks[id] = prev
		return
	}
	delete(doc.Tasks, id)
}

// ListTasks returns tasks by creation time, oldest first; ties break on id.
func (s *Store) ListTasks(_ context.Context, user core.UserID) ([]core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.get(user)
	out := make([]core.Task, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		out = append(out, t.Clone())
	}
	sortTasks(out)
	return out, nil
}

func sortTasks(tasks []core.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}
