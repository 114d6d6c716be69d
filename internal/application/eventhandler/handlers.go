// Package eventhandler translates inbound learning, engagement and social
// events into engine operations. Every handler ends with the same step:
// unlock the catalog achievements the user now qualifies for, then push the
// user's point total to the leaderboards they belong to.
package eventhandler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/application/gamification"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/achievement"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/challenge"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// Handlers holds the engine event handlers.
type Handlers struct {
	engine  *gamification.Engine
	checker *achievement.Checker
	logger  *zap.Logger
}

// Option configures Handlers.
type Option func(*Handlers)

// WithRules replaces the built-in achievement catalog.
func WithRules(rules []achievement.Rule) Option {
	return func(h *Handlers) {
		h.checker = achievement.NewChecker(rules)
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handlers) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates handlers bound to engine.
func New(engine *gamification.Engine, opts ...Option) *Handlers {
	h := &Handlers{
		engine:  engine,
		checker: achievement.NewChecker(achievement.Catalog()),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("eventhandler")
	return h
}

// Register subscribes every handler on bus.
func (h *Handlers) Register(bus shared.EventSubscriber) error {
	routes := []struct {
		eventType shared.EventType
		handler   shared.EventHandler
	}{
		{shared.EventCourseCompleted, h.OnCourseCompleted},
		{shared.EventCourseProgressed, h.OnCourseProgressed},
		{shared.EventDailyLogin, h.OnDailyLogin},
		{shared.EventPeerHelped, h.OnPeerHelped},
		{shared.EventSocialInteraction, h.OnSocialInteraction},
	}
	for _, r := range routes {
		if err := bus.Subscribe(r.eventType, r.handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", r.eventType, err)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED STEPS
// ══════════════════════════════════════════════════════════════════════════════

// challengeStep is one requirement increment.
type challengeStep struct {
	reqType challenge.RequirementType
	delta   int
}

// evaluate unlocks every qualifying achievement and syncs leaderboard
// standings with the resulting point total.
func (h *Handlers) evaluate(ctx context.Context, userID string) ([]*achievement.Achievement, error) {
	p, err := h.engine.Progress.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	streaks, err := h.engine.Streaks.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked, err := h.engine.Achievements.Unlocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	var granted []*achievement.Achievement
	qualified := h.checker.Qualified(achievement.Snapshot{Progress: p, Streaks: streaks}, unlocked)
	for _, def := range qualified {
		a, err := h.engine.Achievements.Unlock(ctx, userID, def)
		if shared.IsAlreadyUnlocked(err) {
			continue
		}
		if err != nil {
			return granted, err
		}
		granted = append(granted, a)
		h.logger.Info("achievement unlocked",
			zap.String("user_id", userID),
			zap.String("achievement_id", def.ID),
			zap.Int("points", def.Points),
		)
	}

	if len(granted) > 0 {
		if p, err = h.engine.Progress.Get(ctx, userID); err != nil {
			return granted, err
		}
	}
	if _, err := h.engine.Leaderboards.SyncStandings(ctx, userID, p.TotalPoints); err != nil {
		return granted, err
	}
	return granted, nil
}

// advanceChallenges applies steps to every open challenge the user has
// joined. Steps for requirement types a challenge does not track are skipped.
func (h *Handlers) advanceChallenges(ctx context.Context, userID string, steps ...challengeStep) error {
	list, err := h.engine.Challenges.List(ctx)
	if err != nil {
		return err
	}
	now := h.engine.Clock().Now()
	for _, c := range list {
		if _, ok := c.Participant(userID); !ok || !c.IsOpen(now) {
			continue
		}
		for _, step := range steps {
			if step.delta <= 0 || !tracks(c, step.reqType) {
				continue
			}
			_, err := h.engine.Challenges.RecordProgress(ctx, c.ID, userID, step.reqType, step.delta)
			// Closed between List and RecordProgress.
			if errors.Is(err, shared.ErrInactive) {
				break
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func tracks(c *challenge.Challenge, reqType challenge.RequirementType) bool {
	for _, r := range c.Requirements {
		if r.Type == reqType {
			return true
		}
	}
	return false
}

// touchStreak records activity on the user's streak. An out-of-order event
// is logged and skipped; the rest of the event still applies.
func (h *Handlers) touchStreak(ctx context.Context, userID string, typ streak.Type, at time.Time) (streak.Outcome, error) {
	_, outcome, err := h.engine.Streaks.RecordActivity(ctx, userID, typ, at)
	if errors.Is(err, shared.ErrClockRegression) {
		h.logger.Warn("out of order activity ignored for streak",
			zap.String("user_id", userID),
			zap.String("streak_type", string(typ)),
			zap.Time("at", at),
		)
		return streak.OutcomeUnchanged, nil
	}
	return outcome, err
}

func (h *Handlers) unexpected(handler string, event shared.Event) error {
	h.logger.Warn("unexpected event payload",
		zap.String("handler", handler),
		zap.String("event_type", string(event.EventType())),
		zap.String("go_type", fmt.Sprintf("%T", event)),
	)
	return nil
}
