package gamification

import (
	"context"
	"time"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK TRACKER
// One streak per (user, type). Day differences are calendar days in the
// engine location: 23:59 and 00:01 the next day continue a streak, two
// activities on the same date never count twice.
// ══════════════════════════════════════════════════════════════════════════════

// StreakTracker owns Streak records.
type StreakTracker struct {
	core *core
}

// RecordActivity registers activity of type typ at now. A zero now means the
// engine clock. The returned outcome tells callers whether the streak started,
// continued, broke or stayed unchanged.
//
// A timestamp earlier than the last recorded activity fails with
// ErrClockRegression and leaves the streak untouched.
func (t *StreakTracker) RecordActivity(ctx context.Context, userID string, typ streak.Type, now time.Time) (*streak.Streak, streak.Outcome, error) {
	if now.IsZero() {
		now = t.core.now()
	}

	unlock := t.core.locks.Lock(streakLock(userID, string(typ)))
	defer unlock()

	key := streak.Key(userID, typ)
	s, ok, err := t.core.streaks.Find(ctx, key)
	if err != nil {
		return nil, "", wrap("streak", "RecordActivity", err)
	}
	if !ok {
		if s, err = streak.New(userID, typ); err != nil {
			return nil, "", wrap("streak", "RecordActivity", err)
		}
	}

	outcome, err := s.RecordActivity(now, t.core.loc)
	if err != nil {
		return nil, "", wrap("streak", "RecordActivity", err)
	}
	if outcome == streak.OutcomeUnchanged {
		return s, outcome, nil
	}

	if err := t.core.streaks.Put(ctx, key, s); err != nil {
		return nil, "", wrap("streak", "RecordActivity", err)
	}
	return s, outcome, nil
}

// Get returns one streak.
func (t *StreakTracker) Get(ctx context.Context, userID string, typ streak.Type) (*streak.Streak, error) {
	s, ok, err := t.core.streaks.Find(ctx, streak.Key(userID, typ))
	if err != nil {
		return nil, wrap("streak", "Get", err)
	}
	if !ok {
		return nil, notFound("streak", "Get", streak.Key(userID, typ))
	}
	return s, nil
}

// ListForUser returns every streak the user has, ordered by type.
func (t *StreakTracker) ListForUser(ctx context.Context, userID string) ([]*streak.Streak, error) {
	list, err := t.core.streaks.List(ctx, streak.UserPrefix(userID))
	if err != nil {
		return nil, wrap("streak", "ListForUser", err)
	}
	return list, nil
}

// List returns every streak in the store.
func (t *StreakTracker) List(ctx context.Context) ([]*streak.Streak, error) {
	list, err := t.core.streaks.List(ctx, "")
	if err != nil {
		return nil, wrap("streak", "List", err)
	}
	return list, nil
}
