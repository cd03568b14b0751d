package leaderboard

import "xplist/core"

// Entry is one ranked user.
type Entry struct {
	User    core.UserID `json:"user_id"`
	TotalXP int64       `json:"total_xp"`
	Level   int         `json:"level"`
}

// Board ranks users by total XP, highest first, ties broken by user ID.
type Board interface {
	Update(user core.UserID, totalXP int64)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Get(user core.UserID) (Entry, bool)
	Rank(user core.UserID) (int, bool)
}
