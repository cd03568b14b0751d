package leveling

import (
	"math"

	"xplist/core"
)

// BaseReward is the flat reward for a difficulty. Labels missing from the
// table earn the easy tier.
func (s *System) BaseReward(d core.Difficulty) int64 {
	if xp, ok := s.cfg.DifficultyXP[d]; ok {
		return xp
	}
	return s.cfg.DifficultyXP[core.DifficultyEasy]
}

// StreakMultiplier returns the multiplier of the highest streak threshold met,
// or 1 when none is.
func (s *System) StreakMultiplier(consecutive int) float64 {
	best := 0
	mult := 1.0
	for _, b := range s.cfg.StreakBonuses {
		if consecutive >= b.MinStreak && b.MinStreak > best {
			best = b.MinStreak
			mult = b.Multiplier
		}
	}
	return mult
}

// TaskXPReward is floor(BaseReward(d) * StreakMultiplier(consecutive)).
func (s *System) TaskXPReward(d core.Difficulty, consecutive int) int64 {
	f := math.Floor(float64(s.BaseReward(d)) * s.StreakMultiplier(consecutive))
	if f >= maxXPFloat {
		return math.MaxInt64
	}
	return int64(f)
}
