package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

// UserID uniquely identifies a user in the XP domain.
type UserID string

// Difficulty labels a task and selects its base XP reward.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the known labels in ascending order of reward.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty normalizes a label. Unknown labels are returned as-is with ok=false;
// callers that only need a reward can pass them through since rewards fall back to easy.
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Difficulties {
		if d == known {
			return d, true
		}
	}
	return d, false
}

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrEmptyTitle   = errors.New("empty task title")
)

// Task is a to-do item owned by a user. Only Completed tasks with a CompletedAt
// timestamp take part in level history.
type Task struct {
	ID          string     `json:"id" db:"id"`
	UserID      UserID     `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	Difficulty  Difficulty `json:"difficulty" db:"difficulty"`
	XPReward    *int64     `json:"xp_reward,omitempty" db:"xp_reward"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	cp := t
	if t.XPReward != nil {
		v := *t.XPReward
		cp.XPReward = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		cp.CompletedAt = &v
	}
	return cp
}

// UserState is the persisted level document of a user. TotalXP is the source of
// truth; the remaining level fields are a cached copy of the derived snapshot.
type UserState struct {
	UserID         UserID    `json:"user_id" db:"user_id"`
	TotalXP        int64     `json:"total_xp" db:"total_xp"`
	Level          int       `json:"level" db:"level"`
	CurrentLevelXP int64     `json:"current_level_xp" db:"current_level_xp"`
	XPToNextLevel  int64     `json:"xp_to_next_level" db:"xp_to_next_level"`
	Updated        time.Time `json:"updated" db:"updated_at"`
}

// NewUserState returns the document a user starts with.
func NewUserState(user UserID, baseXP int64) UserState {
	return UserState{
		UserID:        user,
		Level:         1,
		XPToNextLevel: baseXP,
		Updated:       time.Now().UTC(),
	}
}

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, errors.New("integer overflow in AddSafe")
	}
	return base + delta, nil
}

// NormalizeUserID trims and lowercases user identifiers.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty user id")
	}
	return UserID(strings.ToLower(s)), nil
}
