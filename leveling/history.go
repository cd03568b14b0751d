package leveling

import (
	"sort"

	"xplist/core"
)

// LevelGroup holds the tasks attributed to one level, in completion order.
type LevelGroup struct {
	Level int         `json:"level"`
	Tasks []core.Task `json:"tasks"`
}

// PartitionHistory replays completed tasks in completion order and files each
// one under the level it belongs to. A task whose reward pushes the running
// total into a new level is filed under that new level; any other task stays
// with the level current before it.
//
// Tasks that are not completed or have no CompletedAt are skipped. Tasks with
// equal timestamps keep their input order. The result is sorted by level and
// is nil when nothing qualifies.
func (s *System) PartitionHistory(tasks []core.Task) []LevelGroup {
	done := make([]core.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed && t.CompletedAt != nil {
			done = append(done, t)
		}
	}
	sort.SliceStable(done, func(i, j int) bool {
		return done[i].CompletedAt.Before(*done[j].CompletedAt)
	})

	var groups []LevelGroup
	var xp int64
	level := 1
	for _, t := range done {
		newXP := addSat(xp, s.taskReward(t))
		newLevel := s.LevelFromTotalXP(newXP)

		assigned := level
		if newLevel > level {
			assigned = newLevel
		}
		if n := len(groups); n == 0 || groups[n-1].Level != assigned {
			groups = append(groups, LevelGroup{Level: assigned})
		}
		last := &groups[len(groups)-1]
		last.Tasks = append(last.Tasks, t)

		xp, level = newXP, newLevel
	}
	return groups
}

// taskReward prefers the reward frozen on the task over a recomputation.
func (s *System) taskReward(t core.Task) int64 {
	if t.XPReward != nil {
		return clampXP(*t.XPReward)
	}
	return s.TaskXPReward(t.Difficulty, 0)
}

// GroupsByLevel indexes partitioned history by level.
func GroupsByLevel(groups []LevelGroup) map[int][]core.Task {
	out := make(map[int][]core.Task, len(groups))
	for _, g := range groups {
		out[g.Level] = g.Tasks
	}
	return out
}
