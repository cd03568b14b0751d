package analytics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"xplist/core"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// HookFunc adapts a plain function to Hook.
type HookFunc func(e core.Event)

func (f HookFunc) OnEvent(e core.Event) { f(e) }

// DAU tracks daily active users.
type DAU struct {
	mu   sync.Mutex
	days map[string]map[core.UserID]struct{}
}

func NewDAU() *DAU { return &DAU{days: map[string]map[core.UserID]struct{}{}} }

func (d *DAU) OnEvent(e core.Event) {
	day := dayKey(e.Time)
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.days[day]
	if m == nil {
		m = map[core.UserID]struct{}{}
		d.days[day] = m
	}
	m[e.UserID] = struct{}{}
}

func (d *DAU) Count(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[day])
}

// Tracker aggregates XP, level-ups and task completions.
type Tracker struct {
	mu sync.RWMutex

	xpByDay          map[string]int64
	xpByDifficulty   map[core.Difficulty]int64
	weeklyActive     map[string]map[core.UserID]struct{}
	levelUpsByDay    map[string]int64
	levelReached     map[int]int // level -> number of level-up events
	highestLevel     map[core.UserID]int
	completionsByDay map[string]int64
	completionsByDif map[core.Difficulty]int64
	events           int64
}

func NewTracker() *Tracker {
	return &Tracker{
		xpByDay:          make(map[string]int64),
		xpByDifficulty:   make(map[core.Difficulty]int64),
		weeklyActive:     make(map[string]map[core.UserID]struct{}),
		levelUpsByDay:    make(map[string]int64),
		levelReached:     make(map[int]int),
		highestLevel:     make(map[core.UserID]int),
		completionsByDay: make(map[string]int64),
		completionsByDif: make(map[core.Difficulty]int64),
	}
}

func (t *Tracker) OnEvent(e core.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	day := dayKey(e.Time)
	week := weekKey(e.Time)

	if t.weeklyActive[week] == nil {
		t.weeklyActive[week] = make(map[core.UserID]struct{})
	}
	t.weeklyActive[week][e.UserID] = struct{}{}
	t.events++

	switch e.Type {
	case core.EventXPAwarded:
		if e.Delta > 0 {
			t.xpByDay[day] += e.Delta
			if e.Difficulty != "" {
				t.xpByDifficulty[e.Difficulty] += e.Delta
			}
		}
	case core.EventLevelUp:
		t.levelUpsByDay[day]++
		t.levelReached[e.Level]++
		if e.Level > t.highestLevel[e.UserID] {
			t.highestLevel[e.UserID] = e.Level
		}
	case core.EventTaskCompleted:
		t.completionsByDay[day]++
		t.completionsByDif[e.Difficulty]++
	}
}

// XPAwardedOn returns total XP awarded on a UTC day (YYYY-MM-DD).
func (t *Tracker) XPAwardedOn(day string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.xpByDay[day]
}

// WeeklyActiveUsers returns the number of distinct users seen in an ISO week (YYYY-Www).
func (t *Tracker) WeeklyActiveUsers(week string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.weeklyActive[week])
}

// Completions returns the number of completions for a difficulty.
func (t *Tracker) Completions(d core.Difficulty) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completionsByDif[d]
}

// HighestLevel returns the highest level a user was seen reaching.
func (t *Tracker) HighestLevel(user core.UserID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.highestLevel[user]
}

// DayStats is one row of Summary.Days.
type DayStats struct {
	Day         string `json:"day"`
	XPAwarded   int64  `json:"xp_awarded"`
	LevelUps    int64  `json:"level_ups"`
	Completions int64  `json:"completions"`
}

// Summary is a point-in-time copy of the tracker.
type Summary struct {
	Events         int64                     `json:"events"`
	TotalXPAwarded int64                     `json:"total_xp_awarded"`
	TotalLevelUps  int64                     `json:"total_level_ups"`
	XPByDifficulty map[core.Difficulty]int64 `json:"xp_by_difficulty"`
	Completions    map[core.Difficulty]int64 `json:"completions"`
	LevelsReached  map[int]int               `json:"levels_reached"`
	Days           []DayStats                `json:"days"`
	GeneratedAt    time.Time                 `json:"generated_at"`
}

// Summary returns aggregated totals with days in ascending order.
func (t *Tracker) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Summary{
		Events:         t.events,
		XPByDifficulty: make(map[core.Difficulty]int64, len(t.xpByDifficulty)),
		Completions:    make(map[core.Difficulty]int64, len(t.completionsByDif)),
		LevelsReached:  make(map[int]int, len(t.levelReached)),
		GeneratedAt:    time.Now().UTC(),
	}
	for d, v := range t.xpByDifficulty {
		s.XPByDifficulty[d] = v
	}
	for d, v := range t.completionsByDif {
		s.Completions[d] = v
	}
	for l, v := range t.levelReached {
		s.LevelsReached[l] = v
	}

	days := make(map[string]struct{})
	for d := range t.xpByDay {
		days[d] = struct{}{}
	}
	for d := range t.levelUpsByDay {
		days[d] = struct{}{}
	}
	for d := range t.completionsByDay {
		days[d] = struct{}{}
	}
	for d := range days {
		row := DayStats{
			Day:         d,
			XPAwarded:   t.xpByDay[d],
			LevelUps:    t.levelUpsByDay[d],
			Completions: t.completionsByDay[d],
		}
		s.TotalXPAwarded += row.XPAwarded
		s.TotalLevelUps += row.LevelUps
		s.Days = append(s.Days, row)
	}
	sort.Slice(s.Days, func(i, j int) bool { return s.Days[i].Day < s.Days[j].Day })
	return s
}

// Helper functions
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func weekKey(t time.Time) string {
	tt := t.UTC()
	year, week := tt.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
