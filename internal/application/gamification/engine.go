// Package gamification is the progress, streak, achievement, leaderboard and
// challenge engine. It is a passive library: callers drive it through the
// component methods, each of which is a small atomic closure over the store.
package gamification

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/achievement"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/challenge"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/leaderboard"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/progress"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/reward"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine bundles the engine components over one store and clock.
// Construct one per store with New; there is no package-level instance.
type Engine struct {
	Progress     *ProgressStore
	Streaks      *StreakTracker
	Achievements *AchievementRegistry
	Leaderboards *LeaderboardEngine
	Challenges   *ChallengeTracker
	Rewards      *RewardLedger

	core *core
}

// core holds the collaborators every component shares.
type core struct {
	store    shared.Store
	clock    shared.Clock
	loc      *time.Location
	logger   *zap.Logger
	newID    func() string
	locks    *keyedMutex
	validate *validator.Validate

	progress     progress.Repository
	streaks      streak.Repository
	achievements achievement.Repository
	leaderboards leaderboard.Repository
	challenges   challenge.Repository
	rewards      reward.Repository
}

// Option configures an Engine.
type Option func(*core)

// WithLocation sets the location whose calendar days define streaks and
// weekly/monthly board periods. Default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *core) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithLogger sets the logger used for diagnostics. Default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *core) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIDGenerator overrides the uuid-based id generator.
func WithIDGenerator(gen func() string) Option {
	return func(c *core) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// New creates an engine over store. A nil clock means shared.SystemClock.
func New(store shared.Store, clock shared.Clock, opts ...Option) *Engine {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	c := &core{
		store:    store,
		clock:    clock,
		loc:      time.UTC,
		logger:   zap.NewNop(),
		newID:    uuid.NewString,
		locks:    newKeyedMutex(),
		validate: newValidator(),

		progress:     progress.NewRepository(store),
		streaks:      streak.NewRepository(store),
		achievements: achievement.NewRepository(store),
		leaderboards: leaderboard.NewRepository(store),
		challenges:   challenge.NewRepository(store),
		rewards:      reward.NewRepository(store),
	}
	for _, opt := range opts {
		opt(c)
	}

	e := &Engine{core: c}
	e.Progress = &ProgressStore{core: c}
	e.Streaks = &StreakTracker{core: c}
	e.Achievements = &AchievementRegistry{core: c}
	e.Leaderboards = &LeaderboardEngine{core: c, progress: e.Progress}
	e.Challenges = &ChallengeTracker{core: c}
	e.Rewards = &RewardLedger{core: c}
	return e
}

// Store returns the store the engine writes to.
func (e *Engine) Store() shared.Store {
	return e.core.store
}

// Clock returns the engine clock.
func (e *Engine) Clock() shared.Clock {
	return e.core.clock
}

// Location returns the calendar location of the engine.
func (e *Engine) Location() *time.Location {
	return e.core.loc
}

func (c *core) now() time.Time {
	return c.clock.Now()
}
