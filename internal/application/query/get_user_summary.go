package query

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/application/gamification"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/achievement"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/challenge"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/leaderboard"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/progress"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/reward"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER SUMMARY QUERY
// Всё о прогрессе одного пользователя: уровень, серии, достижения,
// позиции в лидербордах, челленджи и невостребованные награды.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserSummaryQuery - параметры запроса.
type GetUserSummaryQuery struct {
	UserID string
}

// Validate проверяет параметры.
func (q GetUserSummaryQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user id is required")
	}
	return nil
}

// StreakDTO - серия пользователя.
type StreakDTO struct {
	Type           streak.Type `json:"type"`
	Current        int         `json:"current"`
	Longest        int         `json:"longest"`
	LastActivity   time.Time   `json:"last_activity"`
	DaysUntilBreak int         `json:"days_until_break"`
	IsBroken       bool        `json:"is_broken"`
}

// StandingDTO - позиция пользователя в одном лидерборде.
type StandingDTO struct {
	LeaderboardID string `json:"leaderboard_id"`
	Name          string `json:"name"`
	Rank          int    `json:"rank"`
	Of            int    `json:"of"`
	Points        int    `json:"points"`

	// PointsToNext - сколько очков не хватает до позиции выше (0 для первого места).
	PointsToNext int `json:"points_to_next"`

	RankDirection string `json:"rank_direction"`
}

// ChallengeDTO - участие пользователя в челлендже.
type ChallengeDTO struct {
	ChallengeID  string                  `json:"challenge_id"`
	Title        string                  `json:"title"`
	Requirements []challenge.Requirement `json:"requirements"`
	IsComplete   bool                    `json:"is_complete"`
	IsOpen       bool                    `json:"is_open"`
	EndDate      time.Time               `json:"end_date"`
}

// UserSummary - результат запроса.
type UserSummary struct {
	Progress       *progress.UserProgress `json:"progress"`
	Streaks        []StreakDTO            `json:"streaks"`
	Achievements   *achievement.Stats     `json:"achievements"`
	Standings      []StandingDTO          `json:"standings"`
	Challenges     []ChallengeDTO         `json:"challenges"`
	PendingRewards []*reward.Reward       `json:"pending_rewards"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// GetUserSummaryHandler обрабатывает запрос.
type GetUserSummaryHandler struct {
	engine *gamification.Engine
}

// NewGetUserSummaryHandler создаёт обработчик.
func NewGetUserSummaryHandler(engine *gamification.Engine) *GetUserSummaryHandler {
	return &GetUserSummaryHandler{engine: engine}
}

// Handle выполняет запрос. Неизвестный пользователь даёт ошибку NotFound.
func (h *GetUserSummaryHandler) Handle(ctx context.Context, q GetUserSummaryQuery) (*UserSummary, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetUserSummary", shared.ErrValidation, err.Error(), err)
	}

	var (
		p          *progress.UserProgress
		streaks    []*streak.Streak
		stats      *achievement.Stats
		boards     []*leaderboard.Leaderboard
		challenges []*challenge.Challenge
		rewards    []*reward.Reward
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		p, err = h.engine.Progress.Get(gctx, q.UserID)
		return err
	})
	g.Go(func() (err error) {
		streaks, err = h.engine.Streaks.ListForUser(gctx, q.UserID)
		return err
	})
	g.Go(func() (err error) {
		stats, err = h.engine.Achievements.Stats(gctx, q.UserID)
		return err
	})
	g.Go(func() (err error) {
		boards, err = h.engine.Leaderboards.List(gctx, leaderboard.Filter{})
		return err
	})
	g.Go(func() (err error) {
		challenges, err = h.engine.Challenges.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		rewards, err = h.engine.Rewards.List(gctx, q.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := h.engine.Clock().Now()
	loc := h.engine.Location()
	s := &UserSummary{
		Progress:       p,
		Streaks:        make([]StreakDTO, 0, len(streaks)),
		Achievements:   stats,
		Standings:      []StandingDTO{},
		Challenges:     []ChallengeDTO{},
		PendingRewards: []*reward.Reward{},
		GeneratedAt:    now,
	}
	for _, st := range streaks {
		s.Streaks = append(s.Streaks, StreakDTO{
			Type:           st.Type,
			Current:        st.CurrentStreak,
			Longest:        st.LongestStreak,
			LastActivity:   st.LastActivity,
			DaysUntilBreak: st.DaysUntilBreak(now, loc),
			IsBroken:       st.IsBroken(now, loc),
		})
	}
	for _, b := range boards {
		if d, ok := standing(b, q.UserID); ok {
			s.Standings = append(s.Standings, d)
		}
	}
	for _, c := range challenges {
		part, ok := c.Participant(q.UserID)
		if !ok {
			continue
		}
		s.Challenges = append(s.Challenges, ChallengeDTO{
			ChallengeID:  c.ID,
			Title:        c.Title,
			Requirements: part.Requirements,
			IsComplete:   part.IsComplete(),
			IsOpen:       c.IsOpen(now),
			EndDate:      c.EndDate,
		})
	}
	for _, r := range rewards {
		if !r.IsClaimed {
			s.PendingRewards = append(s.PendingRewards, r)
		}
	}
	return s, nil
}

// standing находит пользователя в лидерборде. Участники упорядочены по рангу.
func standing(l *leaderboard.Leaderboard, userID string) (StandingDTO, bool) {
	for i, p := range l.Participants {
		if p.UserID != userID {
			continue
		}
		d := StandingDTO{
			LeaderboardID: l.ID,
			Name:          l.Name,
			Rank:          int(p.Rank),
			Of:            len(l.Participants),
			Points:        p.Points,
			RankDirection: string(p.Direction()),
		}
		if i > 0 {
			// +1: при равенстве очков выше стоит тот, кто вступил раньше
			d.PointsToNext = l.Participants[i-1].Points - p.Points + 1
		}
		return d, true
	}
	return StandingDTO{}, false
}
