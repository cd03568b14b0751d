package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"xplist/core"
	"xplist/leveling"
)

var ErrInvalidDelta = errors.New("xp delta must be positive")

// Statistics is a user's derived level state plus its display band.
type Statistics struct {
	leveling.Snapshot
	Band leveling.Band `json:"band"`
}

// AwardResult describes the outcome of an XP award.
type AwardResult struct {
	Statistics
	XPReward  int64 `json:"xp_reward"`
	LeveledUp bool  `json:"leveled_up"`
}

// LevelService applies the leveling core to persisted users and tasks. The core
// itself is pure; this type owns the read-modify-write against storage, which
// relies on the store's atomic AddXP.
type LevelService struct {
	levels LevelStore
	tasks  TaskStore
	bus    *EventBus
	system *leveling.System
	logger *slog.Logger
	now    func() time.Time
}

func NewLevelService(store Storage, bus *EventBus, system *leveling.System, logger *slog.Logger) *LevelService {
	if store == nil || bus == nil || system == nil {
		panic("NewLevelService requires non-nil store, bus, and leveling system")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LevelService{
		levels: store,
		tasks:  store,
		bus:    bus,
		system: system,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// System exposes the leveling rules the service was built with.
func (s *LevelService) System() *leveling.System { return s.system }

// Subscribe convenience method.
func (s *LevelService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *LevelService) Close() { s.bus.Close() }

// AwardXPForTask awards the flat reward of difficulty. Streaks are not tracked
// yet, so the reward is always computed with a streak of zero.
func (s *LevelService) AwardXPForTask(ctx context.Context, user core.UserID, difficulty core.Difficulty) (AwardResult, error) {
	return s.award(ctx, user, difficulty, s.system.TaskXPReward(difficulty, 0))
}

// AwardXP adds an arbitrary positive amount of XP.
func (s *LevelService) AwardXP(ctx context.Context, user core.UserID, delta int64) (AwardResult, error) {
	if delta <= 0 {
		return AwardResult{}, ErrInvalidDelta
	}
	return s.award(ctx, user, "", delta)
}

func (s *LevelService) award(ctx context.Context, user core.UserID, difficulty core.Difficulty, reward int64) (AwardResult, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return AwardResult{}, err
	}
	if reward <= 0 {
		return AwardResult{}, ErrInvalidDelta
	}

	total, err := s.levels.AddXP(ctx, normalized, reward)
	if err != nil {
		return AwardResult{}, fmt.Errorf("failed to award XP: %w", err)
	}
	snap := s.system.Snapshot(total)
	s.saveSnapshot(ctx, normalized, snap)

	leveledUp := s.system.CheckLevelUp(total-reward, total)
	s.bus.Publish(ctx, core.NewXPAwarded(normalized, difficulty, reward, total))
	if leveledUp {
		s.logger.Info("level up", "user", normalized, "level", snap.Level, "total_xp", total)
		s.bus.Publish(ctx, core.NewLevelUp(normalized, snap.Level, total))
	}

	return AwardResult{
		Statistics: Statistics{Snapshot: snap, Band: s.system.Band(snap.Level)},
		XPReward:   reward,
		LeveledUp:  leveledUp,
	}, nil
}

// saveSnapshot refreshes the cached level fields. Failure is logged only: the
// total is already stored and every read recomputes from it.
func (s *LevelService) saveSnapshot(ctx context.Context, user core.UserID, snap leveling.Snapshot) {
	state := core.UserState{
		UserID:         user,
		TotalXP:        snap.TotalXP,
		Level:          snap.Level,
		CurrentLevelXP: snap.CurrentLevelXP,
		XPToNextLevel:  snap.XPToNextLevel,
		Updated:        s.now(),
	}
	if err := s.levels.SaveSnapshot(ctx, user, state); err != nil {
		s.logger.Warn("failed to save level snapshot", "user", user, "total_xp", snap.TotalXP, "error", err)
	}
}

// Statistics returns the user's level derived from the stored total. A user
// seen for the first time gets an initial snapshot written.
func (s *LevelService) Statistics(ctx context.Context, user core.UserID) (Statistics, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return Statistics{}, err
	}
	state, err := s.levels.GetState(ctx, normalized)
	if err != nil {
		return Statistics{}, fmt.Errorf("failed to get level info: %w", err)
	}
	snap := s.system.Snapshot(state.TotalXP)
	if state.Level != snap.Level || state.CurrentLevelXP != snap.CurrentLevelXP || state.XPToNextLevel != snap.XPToNextLevel {
		s.saveSnapshot(ctx, normalized, snap)
	}
	return Statistics{Snapshot: snap, Band: s.system.Band(snap.Level)}, nil
}

// CreateTask stores a new open task with its reward frozen at creation time.
func (s *LevelService) CreateTask(ctx context.Context, user core.UserID, title, description string, difficulty core.Difficulty) (core.Task, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.Task{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return core.Task{}, core.ErrEmptyTitle
	}
	d, ok := core.ParseDifficulty(string(difficulty))
	if !ok {
		s.logger.Debug("unknown difficulty, rewarding as easy", "difficulty", difficulty)
	}
	reward := s.system.TaskXPReward(d, 0)
	task := core.Task{
		ID:          uuid.NewString(),
		UserID:      normalized,
		Title:       title,
		Description: strings.TrimSpace(description),
		Difficulty:  d,
		XPReward:    &reward,
		CreatedAt:   s.now(),
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return core.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// ToggleTask flips a task between open and completed. Completing awards the
// task's reward; reopening clears the timestamp but keeps the XP.
func (s *LevelService) ToggleTask(ctx context.Context, user core.UserID, id string) (core.Task, *AwardResult, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return core.Task{}, nil, err
	}
	task, err := s.tasks.GetTask(ctx, normalized, id)
	if err != nil {
		return core.Task{}, nil, err
	}

	if task.Completed {
		task.Completed = false
		task.CompletedAt = nil
		if err := s.tasks.UpdateTask(ctx, task); err != nil {
			return core.Task{}, nil, fmt.Errorf("failed to update task: %w", err)
		}
		return task, nil, nil
	}

	at := s.now()
	task.Completed = true
	task.CompletedAt = &at
	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return core.Task{}, nil, fmt.Errorf("failed to update task: %w", err)
	}
	s.bus.Publish(ctx, core.NewTaskCompleted(normalized, task))

	reward := s.system.TaskXPReward(task.Difficulty, 0)
	if task.XPReward != nil {
		reward = *task.XPReward
	}
	if reward <= 0 {
		return task, nil, nil
	}
	res, err := s.award(ctx, normalized, task.Difficulty, reward)
	if err != nil {
		return task, nil, err
	}
	return task, &res, nil
}

func (s *LevelService) DeleteTask(ctx context.Context, user core.UserID, id string) error {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return err
	}
	return s.tasks.DeleteTask(ctx, normalized, id)
}

func (s *LevelService) ListTasks(ctx context.Context, user core.UserID) ([]core.Task, error) {
	normalized, err := core.NormalizeUserID(user)
	if err != nil {
		return nil, err
	}
	return s.tasks.ListTasks(ctx, normalized)
}

// History groups the user's completed tasks by the level each one contributed to.
func (s *LevelService) History(ctx context.Context, user core.UserID) ([]leveling.LevelGroup, error) {
	tasks, err := s.ListTasks(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return s.system.PartitionHistory(tasks), nil
}
