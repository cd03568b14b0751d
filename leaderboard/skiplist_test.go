package leaderboard

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xplist/core"
	"xplist/leveling"
)

func TestSkipListBasic(t *testing.T) {
	s := NewSkipList(nil)
	s.Update("a", 10)
	s.Update("b", 20)
	s.Update("c", 15)

	top := s.TopN(3)
	require.Len(t, top, 3)
	assert.Equal(t, []core.UserID{"b", "c", "a"}, []core.UserID{top[0].User, top[1].User, top[2].User})

	s.Update("a", 25)
	top = s.TopN(1)
	require.Len(t, top, 1)
	assert.Equal(t, core.UserID("a"), top[0].User)
	assert.Equal(t, 3, s.Len())
}

func TestSkipListTiesAndRank(t *testing.T) {
	s := NewSkipList(nil)
	s.Update("zed", 50)
	s.Update("amy", 50)
	s.Update("bob", 75)

	rank, ok := s.Rank("amy")
	require.True(t, ok)
	assert.Equal(t, 2, rank)
	rank, _ = s.Rank("zed")
	assert.Equal(t, 3, rank)

	_, ok = s.Rank("nobody")
	assert.False(t, ok)
	assert.Nil(t, s.TopN(0))
	assert.Len(t, s.TopN(10), 3)
}

func TestSkipListRemove(t *testing.T) {
	s := NewSkipList(nil)
	s.Update("a", 1)
	s.Update("b", 2)
	s.Remove("b")
	s.Remove("missing")

	_, ok := s.Get("b")
	assert.False(t, ok)
	e, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), e.TotalXP)
	assert.Equal(t, 1, s.Len())
}

func TestSkipListLevels(t *testing.T) {
	system, err := leveling.New(leveling.DefaultConfig())
	require.NoError(t, err)
	s := NewSkipList(system.LevelFromTotalXP)

	s.Update("a", 260)
	e, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, e.Level)
}

func TestSkipListOnEvent(t *testing.T) {
	s := NewSkipList(nil)
	s.OnEvent(core.NewXPAwarded("a", core.DifficultyHard, 50, 50))
	s.OnEvent(core.NewXPAwarded("a", core.DifficultyEasy, 10, 60))
	s.OnEvent(core.NewLevelUp("a", 2, 100))

	e, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(60), e.TotalXP)
	assert.Equal(t, 1, s.Len())
}

func TestSkipListConcurrent(t *testing.T) {
	s := NewSkipList(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := core.UserID(fmt.Sprintf("u%02d", i))
			for xp := int64(1); xp <= 10; xp++ {
				s.Update(user, int64(i)*100+xp)
			}
		}(i)
	}
	wg.Wait()

	top := s.TopN(20)
	require.Len(t, top, 20)
	assert.Equal(t, core.UserID("u19"), top[0].User)
	assert.Equal(t, int64(1910), top[0].TotalXP)
	for i := 1; i < len(top); i++ {
		assert.Greater(t, top[i-1].TotalXP, top[i].TotalXP)
	}
}
