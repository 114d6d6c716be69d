package gamification

import (
	"sync"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PER-ENTITY LOCKS
// Every mutation of one entity (a user's progress, one streak, one board)
// runs under that entity's lock. Entries are reference counted and removed
// when the last holder releases them, so the map stays bounded by the number
// of in-flight operations.
//
// Lock order when two are needed: leaderboard/challenge/reward first, user second.
// ══════════════════════════════════════════════════════════════════════════════

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// size returns the number of live lock entries.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func userLock(userID string) string { return "user:" + userID }
func streakLock(userID, typ string) string { return "streak:" + shared.JoinKey(userID, typ) }
func leaderboardLock(id string) string { return "leaderboard:" + id }
func challengeLock(id string) string { return "challenge:" + id }
func rewardLock(userID, id string) string { return "reward:" + shared.JoinKey(userID, id) }
