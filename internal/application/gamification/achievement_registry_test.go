package gamification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/achievement"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

var firstCourse = achievement.Definition{
	ID:          "first_course",
	Type:        achievement.TypeCourseCompletion,
	Title:       "First course",
	Description: "Completed a first course",
	Points:      50,
	Rarity:      achievement.RarityCommon,
}

func TestAchievementRegistry_UnlockTwiceAppliesPointsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.engine.Achievements.Unlock(ctx, "u1", firstCourse)
	require.NoError(t, err)
	assert.Equal(t, "first_course", a.DefinitionID)

	f.clock.Advance(time.Hour)
	again, err := f.engine.Achievements.Unlock(ctx, "u1", firstCourse)
	assert.ErrorIs(t, err, shared.ErrAlreadyUnlocked)
	assert.True(t, shared.IsAlreadyUnlocked(err))
	require.NotNil(t, again)
	assert.Equal(t, a.ID, again.ID)
	assert.Equal(t, t0, again.UnlockedAt)

	list, err := f.engine.Achievements.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	p, err := f.engine.Progress.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, p.TotalPoints)
	assert.Equal(t, 0, p.Experience)
}

func TestAchievementRegistry_ConcurrentUnlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Achievements.Unlock(ctx, "u1", firstCourse)
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, shared.ErrAlreadyUnlocked)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	p, err := f.engine.Progress.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, p.TotalPoints)
}

func TestAchievementRegistry_FailedCommitAppliesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.broken.Store(true)
	_, err := f.engine.Achievements.Unlock(ctx, "u1", firstCourse)
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
	f.store.broken.Store(false)

	list, err := f.engine.Achievements.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.engine.Progress.Get(ctx, "u1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// Retrying after the outage unlocks normally.
	_, err = f.engine.Achievements.Unlock(ctx, "u1", firstCourse)
	require.NoError(t, err)
}

func TestAchievementRegistry_InvalidDefinition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Achievements.Unlock(ctx, "u1", achievement.Definition{ID: "x", Title: "x", Type: "bogus", Rarity: achievement.RarityRare})
	assert.ErrorIs(t, err, shared.ErrValidation)

	bad := firstCourse
	bad.Points = -10
	_, err = f.engine.Achievements.Unlock(ctx, "u1", bad)
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestAchievementRegistry_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, r := range []achievement.Rarity{achievement.RarityCommon, achievement.RarityEpic, achievement.RarityCommon} {
		def := firstCourse
		def.ID = string(rune('a' + i))
		def.Rarity = r
		_, err := f.engine.Achievements.Unlock(ctx, "u1", def)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	stats, err := f.engine.Achievements.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalAchievements)
	assert.Equal(t, 150, stats.TotalPoints)
	assert.Equal(t, 2, stats.RarityBreakdown[achievement.RarityCommon])
	assert.Equal(t, 1, stats.RarityBreakdown[achievement.RarityEpic])
	require.Len(t, stats.RecentAchievements, 3)
	assert.Equal(t, "c", stats.RecentAchievements[0].DefinitionID)

	unlocked, err := f.engine.Achievements.Unlocked(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, unlocked)
}

func TestAchievementRegistry_SeparatorInIDsStaysPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	def := firstCourse
	def.ID = "x:y"
	_, err := f.engine.Achievements.Unlock(ctx, "a", def)
	require.NoError(t, err)

	def.ID = "y"
	a, err := f.engine.Achievements.Unlock(ctx, "a:x", def)
	require.NoError(t, err)
	assert.Equal(t, "a:x", a.UserID)
	assert.Equal(t, "y", a.DefinitionID)

	def.ID = "z"
	_, err = f.engine.Achievements.Unlock(ctx, "a:b", def)
	require.NoError(t, err)

	stats, err := f.engine.Achievements.Stats(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalAchievements)
	assert.Equal(t, 50, stats.TotalPoints)

	unlocked, err := f.engine.Achievements.Unlocked(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"x:y": true}, unlocked)
}
