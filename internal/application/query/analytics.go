// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// A failed load is returned as an error; no query substitutes zeroed data.
package query

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/application/gamification"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/achievement"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/challenge"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/leaderboard"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/progress"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/reward"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET GAMIFICATION ANALYTICS QUERY
// Агрегированная сводка по всем пользователям для дашбордов.
// Коллекции загружаются параллельно.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultTopAchievements - сколько самых частых достижений показывать.
	DefaultTopAchievements = 5

	// DefaultLeaderboardTop - размер топа в снимке лидерборда.
	DefaultLeaderboardTop = 10
)

// AchievementCount - сколько пользователей получили достижение.
type AchievementCount struct {
	DefinitionID string             `json:"definition_id"`
	Title        string             `json:"title"`
	Rarity       achievement.Rarity `json:"rarity"`
	Unlocks      int                `json:"unlocks"`
}

// StreakSummary - сводка серий одного типа.
type StreakSummary struct {
	// Active - серии, которые ещё не прервались на текущий момент.
	Active int `json:"active"`

	// Longest - максимальная серия за всё время.
	Longest int `json:"longest"`

	// AverageCurrent - средняя текущая серия среди активных.
	AverageCurrent float64 `json:"average_current"`
}

// ChallengeSummary - сводка по челленджам.
type ChallengeSummary struct {
	Total        int `json:"total"`
	Open         int `json:"open"`
	Participants int `json:"participants"`
	Completions  int `json:"completions"`
}

// RewardSummary - сводка по наградам.
type RewardSummary struct {
	Granted       int `json:"granted"`
	Claimed       int `json:"claimed"`
	PointsClaimed int `json:"points_claimed"`
	PointsPending int `json:"points_pending"`
}

// GamificationAnalytics - результат запроса аналитики.
type GamificationAnalytics struct {
	TotalUsers        int                           `json:"total_users"`
	TotalPoints       int                           `json:"total_points"`
	TotalExperience   int                           `json:"total_experience"`
	AveragePoints     float64                       `json:"average_points"`
	AverageLevel      float64                       `json:"average_level"`
	LevelDistribution map[int]int                   `json:"level_distribution"`
	CoursesCompleted  int                           `json:"courses_completed"`
	TotalStudyTime    int                           `json:"total_study_time"`
	TotalAchievements int                           `json:"total_achievements"`
	RarityBreakdown   map[achievement.Rarity]int    `json:"rarity_breakdown"`
	TopAchievements   []AchievementCount            `json:"top_achievements"`
	Streaks           map[streak.Type]StreakSummary `json:"streaks"`
	Leaderboards      []*leaderboard.Snapshot       `json:"leaderboards"`
	Challenges        ChallengeSummary              `json:"challenges"`
	Rewards           RewardSummary                 `json:"rewards"`
	GeneratedAt       time.Time                     `json:"generated_at"`
}

// GetGamificationAnalyticsHandler обрабатывает запрос аналитики.
type GetGamificationAnalyticsHandler struct {
	engine          *gamification.Engine
	topAchievements int
	leaderboardTop  int
}

// NewGetGamificationAnalyticsHandler создаёт обработчик.
func NewGetGamificationAnalyticsHandler(engine *gamification.Engine) *GetGamificationAnalyticsHandler {
	return &GetGamificationAnalyticsHandler{
		engine:          engine,
		topAchievements: DefaultTopAchievements,
		leaderboardTop:  DefaultLeaderboardTop,
	}
}

// dataset - все коллекции, загруженные для одного снимка.
type dataset struct {
	progress     []*progress.UserProgress
	achievements []*achievement.Achievement
	streaks      []*streak.Streak
	leaderboards []*leaderboard.Leaderboard
	challenges   []*challenge.Challenge
	rewards      []*reward.Reward
}

// Handle строит снимок. Ошибка любой загрузки возвращается как есть.
func (h *GetGamificationAnalyticsHandler) Handle(ctx context.Context) (*GamificationAnalytics, error) {
	data, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	now := h.engine.Clock().Now()

	a := &GamificationAnalytics{
		LevelDistribution: map[int]int{},
		RarityBreakdown:   map[achievement.Rarity]int{},
		Streaks:           map[streak.Type]StreakSummary{},
		Leaderboards:      make([]*leaderboard.Snapshot, 0, len(data.leaderboards)),
		GeneratedAt:       now,
	}
	h.aggregateProgress(a, data.progress)
	h.aggregateAchievements(a, data.achievements)
	h.aggregateStreaks(a, data.streaks, now)

	for _, l := range (leaderboard.Filter{}).Apply(data.leaderboards) {
		a.Leaderboards = append(a.Leaderboards, leaderboard.NewSnapshot(l, h.leaderboardTop, now))
	}
	for _, c := range data.challenges {
		a.Challenges.Total++
		if c.IsOpen(now) {
			a.Challenges.Open++
		}
		a.Challenges.Participants += len(c.Participants)
		a.Challenges.Completions += c.CompletedCount()
	}
	for _, r := range data.rewards {
		a.Rewards.Granted++
		if r.IsClaimed {
			a.Rewards.Claimed++
			a.Rewards.PointsClaimed += r.Points
		} else {
			a.Rewards.PointsPending += r.Points
		}
	}
	return a, nil
}

func (h *GetGamificationAnalyticsHandler) load(ctx context.Context) (*dataset, error) {
	var d dataset
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.progress, err = h.engine.Progress.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.achievements, err = h.engine.Achievements.ListAll(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.streaks, err = h.engine.Streaks.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.leaderboards, err = h.engine.Leaderboards.List(ctx, leaderboard.Filter{})
		return err
	})
	g.Go(func() (err error) {
		d.challenges, err = h.engine.Challenges.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.rewards, err = h.engine.Rewards.ListAll(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (h *GetGamificationAnalyticsHandler) aggregateProgress(a *GamificationAnalytics, list []*progress.UserProgress) {
	a.TotalUsers = len(list)
	levels := 0
	for _, p := range list {
		a.TotalPoints += p.TotalPoints
		a.TotalExperience += p.Experience
		a.CoursesCompleted += p.Statistics.CoursesCompleted
		a.TotalStudyTime += p.Statistics.TotalStudyTime
		a.LevelDistribution[p.Level]++
		levels += p.Level
	}
	if a.TotalUsers > 0 {
		a.AveragePoints = float64(a.TotalPoints) / float64(a.TotalUsers)
		a.AverageLevel = float64(levels) / float64(a.TotalUsers)
	}
}

func (h *GetGamificationAnalyticsHandler) aggregateAchievements(a *GamificationAnalytics, list []*achievement.Achievement) {
	for _, r := range achievement.Rarities() {
		a.RarityBreakdown[r] = 0
	}
	counts := map[string]*AchievementCount{}
	for _, ach := range list {
		a.TotalAchievements++
		a.RarityBreakdown[ach.Rarity]++
		c, ok := counts[ach.DefinitionID]
		if !ok {
			c = &AchievementCount{DefinitionID: ach.DefinitionID, Title: ach.Title, Rarity: ach.Rarity}
			counts[ach.DefinitionID] = c
		}
		c.Unlocks++
	}

	top := make([]AchievementCount, 0, len(counts))
	for _, c := range counts {
		top = append(top, *c)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Unlocks != top[j].Unlocks {
			return top[i].Unlocks > top[j].Unlocks
		}
		return top[i].DefinitionID < top[j].DefinitionID
	})
	if len(top) > h.topAchievements {
		top = top[:h.topAchievements]
	}
	a.TopAchievements = top
}

func (h *GetGamificationAnalyticsHandler) aggregateStreaks(a *GamificationAnalytics, list []*streak.Streak, now time.Time) {
	loc := h.engine.Location()
	totals := map[streak.Type]int{}
	for _, t := range streak.Types() {
		a.Streaks[t] = StreakSummary{}
	}
	for _, s := range list {
		sum := a.Streaks[s.Type]
		if s.LongestStreak > sum.Longest {
			sum.Longest = s.LongestStreak
		}
		if s.HasActivity() && !s.IsBroken(now, loc) {
			sum.Active++
			totals[s.Type] += s.CurrentStreak
		}
		a.Streaks[s.Type] = sum
	}
	for t, sum := range a.Streaks {
		if sum.Active > 0 {
			sum.AverageCurrent = float64(totals[t]) / float64(sum.Active)
			a.Streaks[t] = sum
		}
	}
}
