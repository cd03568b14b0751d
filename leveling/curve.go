// Package leveling turns accumulated experience into levels, rewards and display
// metadata. Everything here is a pure function of its inputs and the System's
// configuration: no I/O, no clocks, no shared mutable state.
//
// Persisting a new total and its snapshot atomically is the caller's job; see
// engine.LevelService for the read-modify-write against a store.
package leveling

import (
	"fmt"
	"math"
	"sort"
)

const maxXPFloat = float64(math.MaxInt64)

// System evaluates a validated Config. It is immutable after New and safe for
// concurrent use without locking.
type System struct {
	cfg Config
	// cumulative[l] is the XP needed to reach level l, for 1 <= l <= MaxLevel.
	// Values that do not fit an int64 saturate at math.MaxInt64.
	cumulative []int64
}

// New validates cfg and precomputes the level threshold table.
func New(cfg Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid leveling config: %w", err)
	}
	s := &System{cfg: cfg.clone()}
	s.cumulative = make([]int64, cfg.MaxLevel+1)
	for l := 2; l <= cfg.MaxLevel; l++ {
		s.cumulative[l] = addSat(s.cumulative[l-1], s.XPRequiredForLevel(l-1))
	}
	return s, nil
}

// Default returns a System built from DefaultConfig.
func Default() *System {
	s, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return s
}

// Config returns a copy of the configuration the System was built from.
func (s *System) Config() Config { return s.cfg.clone() }

// MaxLevel is the hard ceiling on reported levels.
func (s *System) MaxLevel() int { return s.cfg.MaxLevel }

// XPRequiredForLevel is the XP span needed to advance from level to level+1:
// floor(BaseXP * XPMultiplier^(level-1)). Levels <= 0 cost BaseXP.
func (s *System) XPRequiredForLevel(level int) int64 {
	if level <= 0 {
		return s.cfg.BaseXP
	}
	f := math.Floor(float64(s.cfg.BaseXP) * math.Pow(s.cfg.XPMultiplier, float64(level-1)))
	if math.IsNaN(f) || f >= maxXPFloat {
		return math.MaxInt64
	}
	return int64(f)
}

// CumulativeXPForLevel is the total XP needed to reach level. Reaching level 1 costs 0.
func (s *System) CumulativeXPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level <= s.cfg.MaxLevel {
		return s.cumulative[level]
	}
	total := s.cumulative[s.cfg.MaxLevel]
	for l := s.cfg.MaxLevel; l < level && total < math.MaxInt64; l++ {
		total = addSat(total, s.XPRequiredForLevel(l))
	}
	return total
}

// LevelFromTotalXP returns the highest level, capped at MaxLevel, whose
// cumulative requirement is paid for by totalXP. Negative totals count as 0.
//
// Thresholds that do not fit an int64 saturate at math.MaxInt64, so every level
// from the first saturated one up to MaxLevel shares that threshold. Only a total
// of exactly math.MaxInt64 reaches them, and it reports MaxLevel. With the
// default curve the cutoff is level 96: math.MaxInt64-1 is level 95.
func (s *System) LevelFromTotalXP(totalXP int64) int {
	totalXP = clampXP(totalXP)
	if totalXP < s.cfg.BaseXP {
		return 1
	}
	// first level in 1..MaxLevel whose threshold exceeds totalXP
	idx := sort.Search(s.cfg.MaxLevel, func(i int) bool {
		return s.cumulative[i+1] > totalXP
	})
	if idx < 1 {
		return 1
	}
	return idx
}

// CurrentLevelXP is the XP earned since reaching the level totalXP maps to.
func (s *System) CurrentLevelXP(totalXP int64) int64 {
	totalXP = clampXP(totalXP)
	return totalXP - s.CumulativeXPForLevel(s.LevelFromTotalXP(totalXP))
}

// XPToNextLevel is the span of the level totalXP maps to.
func (s *System) XPToNextLevel(totalXP int64) int64 {
	return s.XPRequiredForLevel(s.LevelFromTotalXP(totalXP))
}

// CheckLevelUp reports whether moving from oldTotal to newTotal crosses a level.
func (s *System) CheckLevelUp(oldTotal, newTotal int64) bool {
	return s.LevelFromTotalXP(newTotal) > s.LevelFromTotalXP(oldTotal)
}

// Snapshot is the derived level state for a total XP value.
type Snapshot struct {
	Level              int     `json:"level"`
	TotalXP            int64   `json:"total_xp"`
	CurrentLevelXP     int64   `json:"current_level_xp"`
	XPToNextLevel      int64   `json:"xp_to_next_level"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// Snapshot bundles level, progress and next-level span for totalXP.
// Below MaxLevel, 0 <= CurrentLevelXP < XPToNextLevel holds; at MaxLevel only
// the level is capped and CurrentLevelXP keeps growing.
func (s *System) Snapshot(totalXP int64) Snapshot {
	totalXP = clampXP(totalXP)
	level := s.LevelFromTotalXP(totalXP)
	current := totalXP - s.CumulativeXPForLevel(level)
	next := s.XPRequiredForLevel(level)
	return Snapshot{
		Level:              level,
		TotalXP:            totalXP,
		CurrentLevelXP:     current,
		XPToNextLevel:      next,
		ProgressPercentage: progress(current, next),
	}
}

func progress(current, next int64) float64 {
	if next <= 0 {
		return 100
	}
	p := float64(current) / float64(next) * 100
	if p < 0 {
		return 0
	}
	return math.Min(100, p)
}

func clampXP(xp int64) int64 {
	if xp < 0 {
		return 0
	}
	return xp
}

// addSat adds two non-negative values, saturating at math.MaxInt64.
func addSat(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
