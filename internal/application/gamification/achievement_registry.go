package gamification

import (
	"context"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/achievement"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/progress"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REGISTRY
// Unlock is idempotent per (user, definition id). The check-and-set and the
// points credit are one Commit under the user lock: both land or neither does.
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRegistry owns Achievement records.
type AchievementRegistry struct {
	core *core
}

// Unlock unlocks def for the user and credits def.Points to the user's total.
//
// If the definition is already unlocked the stored record is returned
// together with an error matching shared.ErrAlreadyUnlocked; nothing changes.
func (r *AchievementRegistry) Unlock(ctx context.Context, userID string, def achievement.Definition) (*achievement.Achievement, error) {
	if def.Points < 0 {
		return nil, invalidAmount("achievement", "Unlock", def.Points)
	}
	if err := r.core.validateStruct("achievement", "Unlock", def); err != nil {
		return nil, err
	}

	unlock := r.core.locks.Lock(userLock(userID))
	defer unlock()

	key := achievement.Key(userID, def.ID)
	existing, ok, err := r.core.achievements.Find(ctx, key)
	if err != nil {
		return nil, wrap("achievement", "Unlock", err)
	}
	if ok {
		return existing, shared.NewDomainError("achievement", "Unlock", shared.ErrAlreadyUnlocked, "already unlocked: "+def.ID)
	}

	now := r.core.now()
	a, err := achievement.Unlock(r.core.newID(), userID, def, now)
	if err != nil {
		return nil, wrap("achievement", "Unlock", err)
	}

	p, ok, err := r.core.progress.Find(ctx, progress.Key(userID))
	if err != nil {
		return nil, wrap("achievement", "Unlock", err)
	}
	if !ok {
		if p, err = progress.New(userID, now); err != nil {
			return nil, wrap("achievement", "Unlock", err)
		}
	}
	if err := p.ApplyPoints(a.Points, now); err != nil {
		return nil, wrap("achievement", "Unlock", err)
	}

	aw, err := r.core.achievements.Write(key, a)
	if err != nil {
		return nil, wrap("achievement", "Unlock", err)
	}
	pw, err := r.core.progress.Write(progress.Key(userID), p)
	if err != nil {
		return nil, wrap("achievement", "Unlock", err)
	}
	if err := r.core.store.Commit(ctx, aw, pw); err != nil {
		return nil, wrap("achievement", "Unlock", err)
	}
	return a, nil
}

// List returns the user's achievements ordered by definition id.
func (r *AchievementRegistry) List(ctx context.Context, userID string) ([]*achievement.Achievement, error) {
	list, err := r.core.achievements.List(ctx, achievement.UserPrefix(userID))
	if err != nil {
		return nil, wrap("achievement", "List", err)
	}
	return list, nil
}

// ListAll returns every unlocked achievement in the store.
func (r *AchievementRegistry) ListAll(ctx context.Context) ([]*achievement.Achievement, error) {
	list, err := r.core.achievements.List(ctx, "")
	if err != nil {
		return nil, wrap("achievement", "ListAll", err)
	}
	return list, nil
}

// Unlocked returns the set of definition ids the user has unlocked.
func (r *AchievementRegistry) Unlocked(ctx context.Context, userID string) (map[string]bool, error) {
	list, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(list))
	for _, a := range list {
		out[a.DefinitionID] = true
	}
	return out, nil
}

// Stats returns totals, rarity breakdown and the five most recent unlocks.
// Pure read.
func (r *AchievementRegistry) Stats(ctx context.Context, userID string) (*achievement.Stats, error) {
	list, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return achievement.ComputeStats(list), nil
}
