package gamification

import (
	"context"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS STORE
// Keyed per-user progress: points, experience, level and statistics.
// Records are created lazily on first touch and never deleted.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressStore owns UserProgress records.
type ProgressStore struct {
	core *core
}

// GetOrCreate returns the user's progress, creating a zero record on first
// touch. Concurrent first touches of the same user create one record.
func (s *ProgressStore) GetOrCreate(ctx context.Context, userID string) (*progress.UserProgress, error) {
	unlock := s.core.locks.Lock(userLock(userID))
	defer unlock()

	p, created, err := s.loadLocked(ctx, userID)
	if err != nil {
		return nil, wrap("progress", "GetOrCreate", err)
	}
	if created {
		if err := s.core.progress.Put(ctx, progress.Key(userID), p); err != nil {
			return nil, wrap("progress", "GetOrCreate", err)
		}
	}
	return p, nil
}

// Get returns the user's progress without creating it.
func (s *ProgressStore) Get(ctx context.Context, userID string) (*progress.UserProgress, error) {
	p, ok, err := s.core.progress.Find(ctx, progress.Key(userID))
	if err != nil {
		return nil, wrap("progress", "Get", err)
	}
	if !ok {
		return nil, notFound("progress", "Get", userID)
	}
	return p, nil
}

// List returns every progress record ordered by user id.
func (s *ProgressStore) List(ctx context.Context) ([]*progress.UserProgress, error) {
	list, err := s.core.progress.List(ctx, "")
	if err != nil {
		return nil, wrap("progress", "List", err)
	}
	return list, nil
}

// AddExperience adds non-negative experience. Total points grow by the
// floor(experience/10) contribution and the level is recomputed.
func (s *ProgressStore) AddExperience(ctx context.Context, userID string, amount int) (*progress.UserProgress, error) {
	if amount < 0 {
		return nil, invalidAmount("progress", "AddExperience", amount)
	}
	return s.mutate(ctx, "AddExperience", userID, func(p *progress.UserProgress) error {
		return p.AddExperience(amount, s.core.now())
	})
}

// ApplyAchievementPoints adds points to the total without touching
// experience or level.
func (s *ProgressStore) ApplyAchievementPoints(ctx context.Context, userID string, points int) (*progress.UserProgress, error) {
	if points < 0 {
		return nil, invalidAmount("progress", "ApplyAchievementPoints", points)
	}
	return s.mutate(ctx, "ApplyAchievementPoints", userID, func(p *progress.UserProgress) error {
		return p.ApplyPoints(points, s.core.now())
	})
}

// RecordStatistics adds a statistics delta. All counters must be non-negative.
func (s *ProgressStore) RecordStatistics(ctx context.Context, userID string, delta progress.StatisticsDelta) (*progress.UserProgress, error) {
	if err := delta.Validate(); err != nil {
		return nil, wrap("progress", "RecordStatistics", err)
	}
	return s.mutate(ctx, "RecordStatistics", userID, func(p *progress.UserProgress) error {
		return p.ApplyStatistics(delta, s.core.now())
	})
}

// mutate runs fn on the user's record under the user lock and stores the
// result. Nothing is written when fn fails.
func (s *ProgressStore) mutate(ctx context.Context, op, userID string, fn func(*progress.UserProgress) error) (*progress.UserProgress, error) {
	unlock := s.core.locks.Lock(userLock(userID))
	defer unlock()

	p, _, err := s.loadLocked(ctx, userID)
	if err != nil {
		return nil, wrap("progress", op, err)
	}
	if err := fn(p); err != nil {
		return nil, wrap("progress", op, err)
	}
	if err := s.core.progress.Put(ctx, progress.Key(userID), p); err != nil {
		return nil, wrap("progress", op, err)
	}
	return p, nil
}

// loadLocked reads the record or builds a fresh one. The caller holds the
// user lock and is responsible for persisting a created record.
func (s *ProgressStore) loadLocked(ctx context.Context, userID string) (*progress.UserProgress, bool, error) {
	p, ok, err := s.core.progress.Find(ctx, progress.Key(userID))
	if err != nil {
		return nil, false, err
	}
	if ok {
		return p, false, nil
	}
	p, err = progress.New(userID, s.core.now())
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}
