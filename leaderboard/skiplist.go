package leaderboard

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"

	"xplist/core"
)

// Skip list ordered by (total XP desc, user asc) for O(log n) updates.

const maxHeight = 16
const pFactor = 0.25

type node struct {
	e    Entry
	next [maxHeight]*node
}

// LevelFunc maps a total XP value to a level.
type LevelFunc func(totalXP int64) int

type SkipList struct {
	mu      sync.RWMutex
	head    *node
	height  int
	byUser  map[core.UserID]*node
	rng     *rand.Rand
	levelOf LevelFunc
}

// NewSkipList returns an empty board. levelOf fills Entry.Level; when nil the
// level is left at zero.
func NewSkipList(levelOf LevelFunc) *SkipList {
	var seed [16]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		seed = [16]byte{}
	}
	return &SkipList{
		head:    &node{},
		height:  1,
		byUser:  map[core.UserID]*node{},
		rng:     rand.New(rand.NewPCG(binary.BigEndian.Uint64(seed[:8]), binary.BigEndian.Uint64(seed[8:]))),
		levelOf: levelOf,
	}
}

func (s *SkipList) randomHeight() int {
	h := 1
	for h < maxHeight && s.rng.Float64() < pFactor {
		h++
	}
	return h
}

func less(a, b Entry) bool {
	if a.TotalXP == b.TotalXP {
		return a.User < b.User
	}
	return a.TotalXP > b.TotalXP
}

// Update inserts the user or moves them to a new total.
func (s *SkipList) Update(user core.UserID, totalXP int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byUser[user]; ok {
		s.removeLocked(user, old.e)
	}
	e := Entry{User: user, TotalXP: totalXP}
	if s.levelOf != nil {
		e.Level = s.levelOf(totalXP)
	}
	update := [maxHeight]*node{}
	cur := s.head
	for i := s.height - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	h := s.randomHeight()
	if h > s.height {
		for i := s.height; i < h; i++ {
			update[i] = s.head
		}
		s.height = h
	}
	n := &node{e: e}
	for i := 0; i < h; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n
	}
	s.byUser[user] = n
}

func (s *SkipList) removeLocked(user core.UserID, e Entry) {
	update := [maxHeight]*node{}
	cur := s.head
	for i := s.height - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	target := update[0].next[0]
	if target == nil || target.e.User != user {
		return
	}
	for i := 0; i < s.height; i++ {
		if update[i].next[i] == target {
			update[i].next[i] = target.next[i]
		}
	}
	delete(s.byUser, user)
	for s.height > 1 && s.head.next[s.height-1] == nil {
		s.height--
	}
}

func (s *SkipList) Remove(user core.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.byUser[user]; ok {
		s.removeLocked(user, n.e)
	}
}

func (s *SkipList) TopN(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	out := make([]Entry, 0, min(n, len(s.byUser)))
	for cur := s.head.next[0]; cur != nil && len(out) < n; cur = cur.next[0] {
		out = append(out, cur.e)
	}
	return out
}

func (s *SkipList) Get(user core.UserID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.byUser[user]; ok {
		return n.e, true
	}
	return Entry{}, false
}

// Rank returns the 1-based position of the user.
func (s *SkipList) Rank(user core.UserID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byUser[user]; !ok {
		return 0, false
	}
	rank := 1
	for cur := s.head.next[0]; cur != nil; cur = cur.next[0] {
		if cur.e.User == user {
			return rank, true
		}
		rank++
	}
	return 0, false
}

// Len reports the number of ranked users.
func (s *SkipList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser)
}

// OnEvent keeps the board current from xp_awarded events, which carry the
// user's new total.
func (s *SkipList) OnEvent(e core.Event) {
	if e.Type != core.EventXPAwarded || e.UserID == "" {
		return
	}
	s.Update(e.UserID, e.Total)
}

var _ Board = (*SkipList)(nil)
