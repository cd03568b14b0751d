package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventTaskCompleted EventType = "task_completed"
	EventXPAwarded     EventType = "xp_awarded"
	EventLevelUp       EventType = "level_up"
)

// Event represents an immutable domain event.
type Event struct {
	Type       EventType      `json:"type"`
	Time       time.Time      `json:"time"`
	UserID     UserID         `json:"user_id"`
	TaskID     string         `json:"task_id,omitempty"`
	Difficulty Difficulty     `json:"difficulty,omitempty"`
	Delta      int64          `json:"delta,omitempty"`
	Total      int64          `json:"total,omitempty"`
	Level      int            `json:"level,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewTaskCompleted(user UserID, task Task) Event {
	return Event{Type: EventTaskCompleted, Time: time.Now().UTC(), UserID: user, TaskID: task.ID, Difficulty: task.Difficulty}
}

func NewXPAwarded(user UserID, difficulty Difficulty, delta int64, total int64) Event {
	return Event{Type: EventXPAwarded, Time: time.Now().UTC(), UserID: user, Difficulty: difficulty, Delta: delta, Total: total}
}

func NewLevelUp(user UserID, level int, total int64) Event {
	return Event{Type: EventLevelUp, Time: time.Now().UTC(), UserID: user, Level: level, Total: total}
}
