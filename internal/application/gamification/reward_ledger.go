package gamification

import (
	"context"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/progress"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/reward"
	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REWARD LEDGER
// Claim is one-way. The claim flag and the points credit commit together.
// ══════════════════════════════════════════════════════════════════════════════

// RewardLedger owns Reward records.
type RewardLedger struct {
	core *core
}

// Grant gives the user a new unclaimed reward.
func (l *RewardLedger) Grant(ctx context.Context, userID string, g reward.Grant) (*reward.Reward, error) {
	if g.Points < 0 {
		return nil, invalidAmount("reward", "Grant", g.Points)
	}
	if err := l.core.validateStruct("reward", "Grant", g); err != nil {
		return nil, err
	}
	r, err := reward.New(l.core.newID(), userID, g, l.core.now())
	if err != nil {
		return nil, wrap("reward", "Grant", err)
	}
	if err := l.core.rewards.Put(ctx, reward.Key(userID, r.ID), r); err != nil {
		return nil, wrap("reward", "Grant", err)
	}
	return r, nil
}

// Claim marks the reward claimed and credits its points to the user's total.
// A second claim returns the stored record with an error matching
// shared.ErrAlreadyClaimed and credits nothing.
func (l *RewardLedger) Claim(ctx context.Context, rewardID, userID string) (*reward.Reward, error) {
	unlock := l.core.locks.Lock(rewardLock(userID, rewardID))
	defer unlock()

	key := reward.Key(userID, rewardID)
	r, ok, err := l.core.rewards.Find(ctx, key)
	if err != nil {
		return nil, wrap("reward", "Claim", err)
	}
	if !ok {
		return nil, notFound("reward", "Claim", rewardID)
	}

	now := l.core.now()
	if err := r.Claim(userID, now); err != nil {
		if shared.IsAlreadyClaimed(err) {
			return r, wrap("reward", "Claim", err)
		}
		return nil, wrap("reward", "Claim", err)
	}

	// reward lock -> user lock
	unlockUser := l.core.locks.Lock(userLock(userID))
	defer unlockUser()

	p, found, err := l.core.progress.Find(ctx, progress.Key(userID))
	if err != nil {
		return nil, wrap("reward", "Claim", err)
	}
	if !found {
		if p, err = progress.New(userID, now); err != nil {
			return nil, wrap("reward", "Claim", err)
		}
	}
	if err := p.ApplyPoints(r.Points, now); err != nil {
		return nil, wrap("reward", "Claim", err)
	}

	rw, err := l.core.rewards.Write(key, r)
	if err != nil {
		return nil, wrap("reward", "Claim", err)
	}
	pw, err := l.core.progress.Write(progress.Key(userID), p)
	if err != nil {
		return nil, wrap("reward", "Claim", err)
	}
	if err := l.core.store.Commit(ctx, rw, pw); err != nil {
		return nil, wrap("reward", "Claim", err)
	}
	return r, nil
}

// List returns the user's rewards ordered by id.
func (l *RewardLedger) List(ctx context.Context, userID string) ([]*reward.Reward, error) {
	list, err := l.core.rewards.List(ctx, reward.UserPrefix(userID))
	if err != nil {
		return nil, wrap("reward", "List", err)
	}
	return list, nil
}

// ListAll returns every reward in the store.
func (l *RewardLedger) ListAll(ctx context.Context) ([]*reward.Reward, error) {
	list, err := l.core.rewards.List(ctx, "")
	if err != nil {
		return nil, wrap("reward", "ListAll", err)
	}
	return list, nil
}
