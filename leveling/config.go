package leveling

import (
	"errors"
	"fmt"
	"strings"

	"xplist/core"
)

// StreakBonus scales a task reward once a user has completed at least
// MinStreak tasks in a row.
type StreakBonus struct {
	MinStreak  int     `json:"min_streak" yaml:"min_streak"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// TitleThreshold names every level from Level up to the next threshold.
type TitleThreshold struct {
	Level int    `json:"level" yaml:"level"`
	Title string `json:"title" yaml:"title"`
}

// ColorThreshold colours every level from Level up to the next threshold.
type ColorThreshold struct {
	Level int   `json:"level" yaml:"level"`
	Color Color `json:"color" yaml:"color"`
}

// Config is the full, immutable description of a leveling curve and its
// reward and display tables. Build a System from it with New.
type Config struct {
	// BaseXP is the XP needed to advance from level 1 to level 2.
	BaseXP int64 `json:"base_xp" yaml:"base_xp" env:"XPLIST_LEVELING_BASE_XP"`
	// XPMultiplier is the geometric growth factor applied per level.
	XPMultiplier float64 `json:"xp_multiplier" yaml:"xp_multiplier" env:"XPLIST_LEVELING_XP_MULTIPLIER"`
	// MaxLevel caps every reported level.
	MaxLevel int `json:"max_level" yaml:"max_level" env:"XPLIST_LEVELING_MAX_LEVEL"`

	DifficultyXP  map[core.Difficulty]int64 `json:"difficulty_xp" yaml:"difficulty_xp"`
	StreakBonuses []StreakBonus             `json:"streak_bonuses" yaml:"streak_bonuses"`

	// Titles and Colors must be sorted by ascending level.
	Titles []TitleThreshold `json:"titles" yaml:"titles"`
	Colors []ColorThreshold `json:"colors" yaml:"colors"`
}

const (
	DefaultBaseXP       int64   = 100
	DefaultXPMultiplier float64 = 1.5
	DefaultMaxLevel     int     = 100
)

// DefaultConfig returns the curve and tables used by the XP List app.
func DefaultConfig() Config {
	return Config{
		BaseXP:       DefaultBaseXP,
		XPMultiplier: DefaultXPMultiplier,
		MaxLevel:     DefaultMaxLevel,
		DifficultyXP: map[core.Difficulty]int64{
			core.DifficultyEasy:   10,
			core.DifficultyMedium: 25,
			core.DifficultyHard:   50,
		},
		StreakBonuses: []StreakBonus{
			{MinStreak: 5, Multiplier: 1.2},
			{MinStreak: 10, Multiplier: 1.5},
			{MinStreak: 20, Multiplier: 2.0},
		},
		Titles: []TitleThreshold{
			{Level: 1, Title: "Novice"},
			{Level: 5, Title: "Apprentice"},
			{Level: 10, Title: "Journeyman"},
			{Level: 20, Title: "Expert"},
			{Level: 30, Title: "Master"},
			{Level: 50, Title: "Grandmaster"},
			{Level: 75, Title: "Legend"},
			{Level: 100, Title: "Mythic"},
		},
		Colors: []ColorThreshold{
			{Level: 0, Color: ColorGray},
			{Level: 10, Color: ColorBlue},
			{Level: 20, Color: ColorGreen},
			{Level: 30, Color: ColorBronze},
			{Level: 50, Color: ColorSilver},
			{Level: 75, Color: ColorGold},
		},
	}
}

// Validate reports every problem with the configuration in a single error.
func (c Config) Validate() error {
	var errs []string

	if c.BaseXP <= 0 {
		errs = append(errs, "base_xp must be positive")
	}
	if c.XPMultiplier < 1 {
		errs = append(errs, "xp_multiplier must be >= 1")
	}
	if c.MaxLevel < 1 {
		errs = append(errs, "max_level must be >= 1")
	}

	if _, ok := c.DifficultyXP[core.DifficultyEasy]; !ok {
		errs = append(errs, "difficulty_xp must define the easy tier")
	}
	for d, xp := range c.DifficultyXP {
		if xp < 0 {
			errs = append(errs, fmt.Sprintf("difficulty_xp[%s] must not be negative", d))
		}
	}

	for i, b := range c.StreakBonuses {
		if b.MinStreak <= 0 {
			errs = append(errs, fmt.Sprintf("streak_bonuses[%d].min_streak must be positive", i))
		}
		if b.Multiplier <= 0 {
			errs = append(errs, fmt.Sprintf("streak_bonuses[%d].multiplier must be positive", i))
		}
	}

	if len(c.Titles) == 0 {
		errs = append(errs, "titles cannot be empty")
	}
	for i := 1; i < len(c.Titles); i++ {
		if c.Titles[i].Level <= c.Titles[i-1].Level {
			errs = append(errs, "titles must be sorted by ascending level")
			break
		}
	}

	if len(c.Colors) == 0 {
		errs = append(errs, "colors cannot be empty")
	}
	for i := 1; i < len(c.Colors); i++ {
		if c.Colors[i].Level <= c.Colors[i-1].Level {
			errs = append(errs, "colors must be sorted by ascending level")
			break
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// clone copies the tables so a System never shares them with its caller.
func (c Config) clone() Config {
	cp := c
	cp.DifficultyXP = make(map[core.Difficulty]int64, len(c.DifficultyXP))
	for k, v := range c.DifficultyXP {
		cp.DifficultyXP[k] = v
	}
	cp.StreakBonuses = append([]StreakBonus(nil), c.StreakBonuses...)
	cp.Titles = append([]TitleThreshold(nil), c.Titles...)
	cp.Colors = append([]ColorThreshold(nil), c.Colors...)
	return cp
}
