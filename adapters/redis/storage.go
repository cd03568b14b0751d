package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"xplist/core"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" yaml:"addr" env:"XPLIST_REDIS_ADDR"`
	Password     string        `json:"password,omitempty" yaml:"password" env:"XPLIST_REDIS_PASSWORD"`
	DB           int           `json:"db" yaml:"db" env:"XPLIST_REDIS_DB"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size" env:"XPLIST_REDIS_POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements engine.Storage using Redis as the backend.
// Data structure:
// - user:{user_id}:xp -> int64 (total XP, source of truth)
// - user:{user_id}:level -> hash of the cached snapshot fields
// - user:{user_id}:tasks -> hash of task id -> task JSON
// - user:{user_id}:state -> JSON blob of UserState for quick retrieval
type Store struct {
	client *redis.Client
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func userXPKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:xp", userID)
}

func userLevelKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:level", userID)
}

func userTasksKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:tasks", userID)
}

func userStateKey(userID core.UserID) string {
	return fmt.Sprintf("user:%s:state", userID)
}

// INCRBY fails on int64 overflow, so the total can never wrap.
var addXPScript = redis.NewScript(`
	local next_val = redis.call('INCRBY', KEYS[1], ARGV[1])
	redis.call('DEL', KEYS[2])
	return next_val
`)

// Totals are compared as strings to stay exact beyond 2^53.
var saveSnapshotScript = redis.NewScript(`
	local total = redis.call('GET', KEYS[1]) or '0'
	if total ~= ARGV[1] then
		return 0
	end
	redis.call('HSET', KEYS[2], 'level', ARGV[2], 'current_level_xp', ARGV[3], 'xp_to_next_level', ARGV[4], 'updated', ARGV[5])
	redis.call('DEL', KEYS[3])
	return 1
`)

// The cache is only filled while :xp and the snapshot's updated stamp still
// match what the state was built from; otherwise a concurrent write wins.
var fillStateCacheScript = redis.NewScript(`
	local total = redis.call('GET', KEYS[1]) or '0'
	if total ~= ARGV[1] then
		return 0
	end
	local updated = redis.call('HGET', KEYS[2], 'updated') or ''
	if updated ~= ARGV[2] then
		return 0
	end
	redis.call('SET', KEYS[3], ARGV[3], 'PX', ARGV[4])
	return 1
`)

var updateTaskScript = redis.NewScript(`
	if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
		return 0
	end
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
	return 1
`)

// AddXP atomically adds XP to the user's total
func (s *Store) AddXP(ctx context.Context, userID core.UserID, delta int64) (int64, error) {
	if delta == 0 {
		return 0, errors.New("delta cannot be zero")
	}

	keys := []string{userXPKey(userID), userStateKey(userID)}
	total, err := addXPScript.Run(ctx, s.client, keys, delta).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to add xp: %w", err)
	}
	return total, nil
}

// SaveSnapshot writes the cached level fields if the total is still current
func (s *Store) SaveSnapshot(ctx context.Context, userID core.UserID, state core.UserState) error {
	updated := state.Updated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	keys := []string{userXPKey(userID), userLevelKey(userID), userStateKey(userID)}
	err := saveSnapshotScript.Run(ctx, s.client, keys,
		strconv.FormatInt(state.TotalXP, 10),
		state.Level,
		state.CurrentLevelXP,
		state.XPToNextLevel,
		updated.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// stateCacheTTL bounds how long GetState serves the cached JSON blob.
const stateCacheTTL = 5 * time.Minute

// stateVersion is the raw :xp value and snapshot stamp a state was built from.
type stateVersion struct {
	total   string
	updated string
}

// GetState retrieves the complete user state, using cache when possible
func (s *Store) GetState(ctx context.Context, userID core.UserID) (core.UserState, error) {
	// Try to get from cache first
	cached, err := s.getCachedState(ctx, userID)
	if err == nil {
		return cached, nil
	}

	// Cache miss or error, rebuild from individual keys
	state, version, err := s.buildStateFromKeys(ctx, userID)
	if err != nil {
		return core.UserState{}, err
	}

	// Update cache (best-effort); keep it synchronous for determinism.
	ctxCache, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	_, _ = s.updateStateCache(ctxCache, userID, state, version)

	return state, nil
}

// getCachedState attempts to retrieve the cached user state
func (s *Store) getCachedState(ctx context.Context, userID core.UserID) (core.UserState, error) {
	data, err := s.client.Get(ctx, userStateKey(userID)).Bytes()
	if err != nil {
		return core.UserState{}, err
	}

	var state core.UserState
	if err := json.Unmarshal(data, &state); err != nil {
		return core.UserState{}, err
	}
	return state, nil
}

// updateStateCache caches state unless a write landed after it was built.
// It reports whether the cache was written.
func (s *Store) updateStateCache(ctx context.Context, userID core.UserID, state core.UserState, version stateVersion) (bool, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return false, err
	}

	keys := []string{userXPKey(userID), userLevelKey(userID), userStateKey(userID)}
	n, err := fillStateCacheScript.Run(ctx, s.client, keys,
		version.total, version.updated, data, stateCacheTTL.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to cache state: %w", err)
	}
	return n == 1, nil
}

// buildStateFromKeys reconstructs the user state from individual Redis keys
func (s *Store) buildStateFromKeys(ctx context.Context, userID core.UserID) (core.UserState, stateVersion, error) {
	state := core.UserState{UserID: userID, Updated: time.Now().UTC()}
	version := stateVersion{total: "0"}

	raw, err := s.client.Get(ctx, userXPKey(userID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return core.UserState{}, stateVersion{}, fmt.Errorf("failed to get xp: %w", err)
	default:
		total, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return core.UserState{}, stateVersion{}, fmt.Errorf("failed to parse xp %q: %w", raw, err)
		}
		state.TotalXP = total
		version.total = raw
	}

	fields, err := s.client.HGetAll(ctx, userLevelKey(userID)).Result()
	if err != nil {
		return core.UserState{}, stateVersion{}, fmt.Errorf("failed to get level: %w", err)
	}
	if v, err := strconv.Atoi(fields["level"]); err == nil {
		state.Level = v
	}
	if v, err := strconv.ParseInt(fields["current_level_xp"], 10, 64); err == nil {
		state.CurrentLevelXP = v
	}
	if v, err := strconv.ParseInt(fields["xp_to_next_level"], 10, 64); err == nil {
		state.XPToNextLevel = v
	}
	version.updated = fields["updated"]
	if v, err := time.Parse(time.RFC3339Nano, version.updated); err == nil {
		state.Updated = v
	}

	return state, version, nil
}

func (s *Store) CreateTask(ctx context.Context, task core.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, userTasksKey(task.UserID), task.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, userID core.UserID, id string) (core.Task, error) {
	data, err := s.client.HGet(ctx, userTasksKey(userID), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Task{}, core.ErrTaskNotFound
	}
	if err != nil {
		return core.Task{}, fmt.Errorf("failed to get task: %w", err)
	}
	var task core.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return core.Task{}, fmt.Errorf("failed to decode task %s: %w", id, err)
	}
	return task, nil
}

func (s *Store) UpdateTask(ctx context.Context, task core.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	n, err := updateTaskScript.Run(ctx, s.client, []string{userTasksKey(task.UserID)}, task.ID, data).Int()
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if n == 0 {
		return core.ErrTaskNotFound
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, userID core.UserID, id string) error {
	n, err := s.client.HDel(ctx, userTasksKey(userID), id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n == 0 {
		return core.ErrTaskNotFound
	}
	return nil
}

// ListTasks returns the user's tasks by creation time, oldest first.
func (s *Store) ListTasks(ctx context.Context, userID core.UserID) ([]core.Task, error) {
	raw, err := s.client.HGetAll(ctx, userTasksKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	tasks := make([]core.Task, 0, len(raw))
	for id, data := range raw {
		var task core.Task
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			return nil, fmt.Errorf("failed to decode task %s: %w", id, err)
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}
