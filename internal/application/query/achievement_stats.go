package query

import (
	"context"
	"errors"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/application/gamification"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/achievement"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENT STATS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementStatsQuery - параметры запроса.
type GetAchievementStatsQuery struct {
	UserID string
}

// Validate проверяет параметры.
func (q GetAchievementStatsQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user id is required")
	}
	return nil
}

// GetAchievementStatsHandler возвращает статистику достижений пользователя.
// Пользователь без достижений получает нулевую статистику, а не NotFound.
type GetAchievementStatsHandler struct {
	engine *gamification.Engine
}

// NewGetAchievementStatsHandler создаёт обработчик.
func NewGetAchievementStatsHandler(engine *gamification.Engine) *GetAchievementStatsHandler {
	return &GetAchievementStatsHandler{engine: engine}
}

// Handle выполняет запрос.
func (h *GetAchievementStatsHandler) Handle(ctx context.Context, q GetAchievementStatsQuery) (*achievement.Stats, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetAchievementStats", shared.ErrValidation, err.Error(), err)
	}
	return h.engine.Achievements.Stats(ctx, q.UserID)
}
