package query

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/application/gamification"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/achievement"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/challenge"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/leaderboard"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/reward"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/streak"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/infrastructure/persistence/memory"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

// failingStore fails List for one collection.
type failingStore struct {
	shared.Store
	failOn string
}

func (s *failingStore) List(ctx context.Context, collection, prefix string) ([]shared.Record, error) {
	if collection == s.failOn {
		return nil, shared.Unavailable("failing", "List", fmt.Errorf("%s offline", collection))
	}
	return s.Store.List(ctx, collection, prefix)
}

var (
	firstCourse = achievement.Definition{ID: "first_course", Type: achievement.TypeCourseCompletion, Title: "First course", Points: 50, Rarity: achievement.RarityCommon}
	marathon    = achievement.Definition{ID: "marathon", Type: achievement.TypeMilestone, Title: "Marathon", Points: 100, Rarity: achievement.RarityEpic}
)

func newEngine(store shared.Store) *gamification.Engine {
	var n atomic.Int64
	return gamification.New(store, shared.NewManualClock(t0), gamification.WithIDGenerator(func() string {
		return fmt.Sprintf("id-%03d", n.Add(1))
	}))
}

// seed builds two users with progress, achievements, streaks, one board,
// one completed challenge and two rewards.
func seed(t *testing.T, e *gamification.Engine) {
	t.Helper()
	ctx := context.Background()

	_, err := e.Progress.AddExperience(ctx, "u1", 250)
	require.NoError(t, err)
	_, err = e.Progress.AddExperience(ctx, "u2", 50)
	require.NoError(t, err)

	for _, u := range []struct {
		id   string
		defs []achievement.Definition
	}{
		{"u1", []achievement.Definition{firstCourse}},
		{"u2", []achievement.Definition{firstCourse, marathon}},
	} {
		for _, d := range u.defs {
			_, err := e.Achievements.Unlock(ctx, u.id, d)
			require.NoError(t, err)
		}
	}

	_, _, err = e.Streaks.RecordActivity(ctx, "u1", streak.TypeDailyLogin, t0)
	require.NoError(t, err)
	_, _, err = e.Streaks.RecordActivity(ctx, "u2", streak.TypeDailyLogin, t0.AddDate(0, 0, -3))
	require.NoError(t, err)

	_, err = e.Leaderboards.Create(ctx, leaderboard.Definition{ID: "global", Name: "Global", Type: leaderboard.TypeGlobal})
	require.NoError(t, err)
	for _, u := range []string{"u1", "u2"} {
		_, err = e.Leaderboards.Join(ctx, "global", u)
		require.NoError(t, err)
	}

	_, err = e.Challenges.Create(ctx, challenge.Definition{
		ID:           "starter",
		Title:        "Starter",
		StartDate:    t0,
		EndDate:      t0.AddDate(0, 0, 7),
		Requirements: []challenge.Requirement{{Type: challenge.RequirementCoursesCompleted, Target: 1}},
		RewardPoints: 20,
	})
	require.NoError(t, err)
	_, err = e.Challenges.Join(ctx, "starter", "u1")
	require.NoError(t, err)
	_, err = e.Challenges.RecordProgress(ctx, "starter", "u1", challenge.RequirementCoursesCompleted, 1)
	require.NoError(t, err)
	_, err = e.Rewards.Claim(ctx, gamification.CompletionRewardID("starter"), "u1")
	require.NoError(t, err)

	_, err = e.Rewards.Grant(ctx, "u2", reward.Grant{Title: "Bonus", Points: 10, Source: reward.SourceManual})
	require.NoError(t, err)
}

func TestGetGamificationAnalytics(t *testing.T) {
	e := newEngine(memory.New())
	seed(t, e)

	a, err := NewGetGamificationAnalyticsHandler(e).Handle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, a.TotalUsers)
	assert.Equal(t, 95+155, a.TotalPoints)
	assert.InDelta(t, 125.0, a.AveragePoints, 0.001)
	assert.InDelta(t, 2.0, a.AverageLevel, 0.001)
	assert.Equal(t, map[int]int{1: 1, 3: 1}, a.LevelDistribution)
	assert.Equal(t, 300, a.TotalExperience)

	assert.Equal(t, 3, a.TotalAchievements)
	assert.Equal(t, map[achievement.Rarity]int{
		achievement.RarityCommon:    2,
		achievement.RarityRare:      0,
		achievement.RarityEpic:      1,
		achievement.RarityLegendary: 0,
	}, a.RarityBreakdown)
	require.Len(t, a.TopAchievements, 2)
	assert.Equal(t, AchievementCount{DefinitionID: "first_course", Title: "First course", Rarity: achievement.RarityCommon, Unlocks: 2}, a.TopAchievements[0])

	login := a.Streaks[streak.TypeDailyLogin]
	assert.Equal(t, 1, login.Active, "u2's streak is broken")
	assert.Equal(t, 1, login.Longest)
	assert.InDelta(t, 1.0, login.AverageCurrent, 0.001)
	assert.Equal(t, StreakSummary{}, a.Streaks[streak.TypeCourseProgress])

	require.Len(t, a.Leaderboards, 1)
	assert.Equal(t, 2, a.Leaderboards[0].TotalParticipants)

	assert.Equal(t, ChallengeSummary{Total: 1, Open: 1, Participants: 1, Completions: 1}, a.Challenges)
	assert.Equal(t, RewardSummary{Granted: 2, Claimed: 1, PointsClaimed: 20, PointsPending: 10}, a.Rewards)
	assert.Equal(t, t0, a.GeneratedAt)
}

func TestGetGamificationAnalytics_Empty(t *testing.T) {
	a, err := NewGetGamificationAnalyticsHandler(newEngine(memory.New())).Handle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, a.TotalUsers)
	assert.Zero(t, a.AveragePoints)
	assert.Empty(t, a.Leaderboards)
	assert.Len(t, a.Streaks, len(streak.Types()))
}

func TestGetGamificationAnalytics_StoreFailureIsNotZeroed(t *testing.T) {
	for _, c := range shared.Collections() {
		t.Run(c, func(t *testing.T) {
			e := newEngine(&failingStore{Store: memory.New(), failOn: c})
			a, err := NewGetGamificationAnalyticsHandler(e).Handle(context.Background())
			assert.Nil(t, a)
			assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
		})
	}
}

func TestGetAchievementStats(t *testing.T) {
	e := newEngine(memory.New())
	seed(t, e)
	h := NewGetAchievementStatsHandler(e)
	ctx := context.Background()

	stats, err := h.Handle(ctx, GetAchievementStatsQuery{UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalAchievements)
	assert.Equal(t, 150, stats.TotalPoints)
	assert.Equal(t, 1, stats.RarityBreakdown[achievement.RarityEpic])

	empty, err := h.Handle(ctx, GetAchievementStatsQuery{UserID: "nobody"})
	require.NoError(t, err)
	assert.Zero(t, empty.TotalAchievements)

	_, err = h.Handle(ctx, GetAchievementStatsQuery{})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestGetLeaderboard(t *testing.T) {
	e := newEngine(memory.New())
	seed(t, e)
	h := NewGetLeaderboardHandler(e)
	ctx := context.Background()

	res, err := h.Handle(ctx, GetLeaderboardQuery{LeaderboardID: "global", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)
	assert.True(t, res.HasMore)
	assert.Equal(t, 1, res.Page)
	require.Len(t, res.Entries, 1)
	top := res.Entries[0]
	assert.Equal(t, "u2", top.UserID)
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, 155, top.Points)
	assert.Equal(t, 1, top.Level)

	res, err = h.Handle(ctx, GetLeaderboardQuery{LeaderboardID: "global", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.False(t, res.HasMore)
	assert.Equal(t, 2, res.Page)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "u1", res.Entries[0].UserID)
	assert.Equal(t, 3, res.Entries[0].Level)

	res, err = h.Handle(ctx, GetLeaderboardQuery{LeaderboardID: "global", Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 20, res.PageSize)

	_, err = h.Handle(ctx, GetLeaderboardQuery{LeaderboardID: "missing"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = h.Handle(ctx, GetLeaderboardQuery{LeaderboardID: "global", Limit: -1})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestGetUserSummary(t *testing.T) {
	e := newEngine(memory.New())
	seed(t, e)
	h := NewGetUserSummaryHandler(e)
	ctx := context.Background()

	s, err := h.Handle(ctx, GetUserSummaryQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 95, s.Progress.TotalPoints)
	require.Len(t, s.Streaks, 1)
	assert.Equal(t, 2, s.Streaks[0].DaysUntilBreak)
	assert.False(t, s.Streaks[0].IsBroken)
	assert.Equal(t, 1, s.Achievements.TotalAchievements)

	require.Len(t, s.Standings, 1)
	st := s.Standings[0]
	assert.Equal(t, 2, st.Rank)
	assert.Equal(t, 2, st.Of)
	// Board points were seeded at join time, before the challenge reward.
	assert.Equal(t, 75, st.Points)
	assert.Equal(t, 155-75+1, st.PointsToNext)

	require.Len(t, s.Challenges, 1)
	assert.True(t, s.Challenges[0].IsComplete)
	assert.Empty(t, s.PendingRewards, "the challenge reward was claimed")

	s2, err := h.Handle(ctx, GetUserSummaryQuery{UserID: "u2"})
	require.NoError(t, err)
	assert.True(t, s2.Streaks[0].IsBroken)
	assert.Zero(t, s2.Standings[0].PointsToNext)
	require.Len(t, s2.PendingRewards, 1)
	assert.Equal(t, 10, s2.PendingRewards[0].Points)

	_, err = h.Handle(ctx, GetUserSummaryQuery{UserID: "nobody"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
