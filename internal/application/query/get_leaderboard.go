package query

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/application/gamification"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/leaderboard"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/progress"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Страница лидерборда, обогащённая уровнями участников.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	LeaderboardID string

	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int

	// Offset - смещение для пагинации.
	Offset int
}

// Validate проверяет и нормализует параметры запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.LeaderboardID == "" {
		return errors.New("leaderboard id is required")
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	return nil
}

// LeaderboardEntryDTO - запись лидерборда.
type LeaderboardEntryDTO struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Points int    `json:"points"`
	Level  int    `json:"level"`

	// RankChange - изменение позиции (+ вверх, - вниз, 0 стабильно).
	RankChange int `json:"rank_change"`

	// RankDirection - "up", "down", "stable", "new".
	RankDirection string `json:"rank_direction"`

	JoinedAt time.Time `json:"joined_at"`
}

// GetLeaderboardResult содержит страницу лидерборда.
type GetLeaderboardResult struct {
	LeaderboardID string                `json:"leaderboard_id"`
	Name          string                `json:"name"`
	Type          leaderboard.Type      `json:"type"`
	IsActive      bool                  `json:"is_active"`
	Entries       []LeaderboardEntryDTO `json:"entries"`
	TotalCount    int                   `json:"total_count"`
	AveragePoints int                   `json:"average_points"`
	MedianPoints  int                   `json:"median_points"`
	HasMore       bool                  `json:"has_more"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// GetLeaderboardHandler обрабатывает запросы на получение лидерборда.
type GetLeaderboardHandler struct {
	engine *gamification.Engine
}

// NewGetLeaderboardHandler создаёт новый обработчик запроса лидерборда.
func NewGetLeaderboardHandler(engine *gamification.Engine) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{engine: engine}
}

// Handle выполняет запрос на получение лидерборда.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, err.Error(), err)
	}

	l, err := h.engine.Leaderboards.Get(ctx, q.LeaderboardID)
	if err != nil {
		return nil, err
	}
	now := h.engine.Clock().Now()
	snap := leaderboard.NewSnapshot(l, 0, now)

	page := paginate(l.Participants, q.Offset, q.Limit)
	levels, err := h.levels(ctx, page)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntryDTO, len(page))
	for i, p := range page {
		entries[i] = LeaderboardEntryDTO{
			Rank:          int(p.Rank),
			UserID:        p.UserID,
			Points:        p.Points,
			Level:         levels[i],
			RankChange:    int(p.RankChange()),
			RankDirection: string(p.Direction()),
			JoinedAt:      p.JoinedAt,
		}
	}

	return &GetLeaderboardResult{
		LeaderboardID: l.ID,
		Name:          l.Name,
		Type:          l.Type,
		IsActive:      l.IsActive,
		Entries:       entries,
		TotalCount:    snap.TotalParticipants,
		AveragePoints: snap.AveragePoints,
		MedianPoints:  snap.MedianPoints,
		HasMore:       q.Offset+len(page) < len(l.Participants),
		Page:          q.Offset/q.Limit + 1,
		PageSize:      q.Limit,
		GeneratedAt:   now,
	}, nil
}

// levels загружает уровни участников страницы параллельно.
// Участник без записи прогресса считается пользователем первого уровня.
func (h *GetLeaderboardHandler) levels(ctx context.Context, page []leaderboard.Participant) ([]int, error) {
	levels := make([]int, len(page))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, p := range page {
		g.Go(func() error {
			up, err := h.engine.Progress.Get(ctx, p.UserID)
			if shared.IsNotFound(err) {
				levels[i] = progress.LevelFor(0)
				return nil
			}
			if err != nil {
				return err
			}
			levels[i] = up.Level
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return levels, nil
}

// paginate возвращает срез участников для страницы.
func paginate(all []leaderboard.Participant, offset, limit int) []leaderboard.Participant {
	if offset >= len(all) {
		return []leaderboard.Participant{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
