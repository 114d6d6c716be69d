package eventhandler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/challenge"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/progress"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/streak"
)

// OnDailyLogin extends the login streak. Only the first login of a calendar
// day counts towards DaysActive and daily_logins challenge requirements;
// repeated logins on the same day change nothing.
func (h *Handlers) OnDailyLogin(ctx context.Context, event shared.Event) error {
	var e shared.DailyLoginEvent
	switch v := event.(type) {
	case shared.DailyLoginEvent:
		e = v
	case *shared.DailyLoginEvent:
		e = *v
	default:
		return h.unexpected("daily_login", event)
	}
	userID := e.AggregateID()

	outcome, err := h.touchStreak(ctx, userID, streak.TypeDailyLogin, e.OccurredAt())
	if err != nil {
		return fmt.Errorf("daily login: %w", err)
	}
	if outcome == streak.OutcomeUnchanged {
		return nil
	}

	if _, err := h.engine.Progress.RecordStatistics(ctx, userID, progress.StatisticsDelta{DaysActive: 1}); err != nil {
		return fmt.Errorf("daily login: %w", err)
	}
	if err := h.advanceChallenges(ctx, userID, challengeStep{challenge.RequirementDailyLogins, 1}); err != nil {
		return fmt.Errorf("daily login: %w", err)
	}
	if _, err := h.evaluate(ctx, userID); err != nil {
		return fmt.Errorf("daily login: %w", err)
	}
	if outcome == streak.OutcomeBroken {
		h.logger.Debug("login streak restarted", zap.String("user_id", userID))
	}
	return nil
}
